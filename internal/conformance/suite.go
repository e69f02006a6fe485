package conformance

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/quantkit/internal/kernels"
	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

// Case is one declarative verification scenario. Input values come from one
// of three sources, in priority order: an inline Input list, a fixture file,
// or a seeded uniform fill over the dtype range. Weight defaults to all ones
// and Bias to all zeros when omitted.
type Case struct {
	Name    string  `yaml:"name"`
	DType   string  `yaml:"dtype"`
	Dims    []int   `yaml:"dims"`
	Input   []int64 `yaml:"input,omitempty"`
	Fixture string  `yaml:"fixture,omitempty"`
	Seed    int64   `yaml:"seed,omitempty"`

	InScale      float64   `yaml:"in_scale"`
	InZeroPoint  int64     `yaml:"in_zero_point"`
	Weight       []float32 `yaml:"weight,omitempty"`
	Bias         []float32 `yaml:"bias,omitempty"`
	Eps          float64   `yaml:"eps"`
	OutScale     float64   `yaml:"out_scale"`
	OutZeroPoint int64     `yaml:"out_zero_point"`

	// MaxStepDiff is the allowed per-element difference against the
	// reference, in output quantization steps. Zero means exact.
	MaxStepDiff int64 `yaml:"max_step_diff,omitempty"`
}

// Suite is a named list of cases, usually loaded from a YAML file.
type Suite struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// Load reads a suite from a YAML file. Relative fixture paths in cases
// resolve against the suite file's directory.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite %s: %w", path, err)
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("suite %s: no cases", path)
	}
	dir := filepath.Dir(path)
	for i := range s.Cases {
		if fx := s.Cases[i].Fixture; fx != "" && !filepath.IsAbs(fx) {
			s.Cases[i].Fixture = filepath.Join(dir, fx)
		}
	}
	return &s, nil
}

// Failure records the first mismatching element of a failed case.
type Failure struct {
	Case   string
	Index  int
	Got    int64
	Want   int64
	Detail string
}

func (f Failure) String() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Case, f.Detail)
	}
	return fmt.Sprintf("%s: element %d: got %d, want %d", f.Case, f.Index, f.Got, f.Want)
}

// Result summarizes one suite run.
type Result struct {
	Passed   int
	Failures []Failure
}

func (r *Result) OK() bool { return len(r.Failures) == 0 }

// Run executes every case against ops and compares the output element-wise
// with the float64 reference. A case configuration error counts as a failure
// rather than aborting the run, so one bad case cannot mask the rest.
func (s *Suite) Run(ops kernels.Ops) *Result {
	ops = kernels.EnsureOps(ops)
	res := &Result{}
	for i := range s.Cases {
		c := &s.Cases[i]
		if fail := runCase(c, ops); fail != nil {
			res.Failures = append(res.Failures, *fail)
		} else {
			res.Passed++
		}
	}
	return res
}

func runCase(c *Case, ops kernels.Ops) *Failure {
	dt, err := qdesc.ParseDType(c.DType)
	if err != nil {
		return &Failure{Case: c.Name, Detail: err.Error()}
	}
	if !dt.IsQuantized() {
		return &Failure{Case: c.Name, Detail: "dtype " + dt.String() + " is not a quantized element type"}
	}
	if len(c.Dims) == 0 {
		return &Failure{Case: c.Name, Detail: "no dims"}
	}
	n := c.Dims[len(c.Dims)-1]

	vals, err := caseInput(c, dt)
	if err != nil {
		return &Failure{Case: c.Name, Detail: err.Error()}
	}

	weight := c.Weight
	if weight == nil {
		weight = make([]float32, n)
		for j := range weight {
			weight[j] = 1
		}
	}
	bias := c.Bias
	if bias == nil {
		bias = make([]float32, n)
	}
	if len(weight) != n || len(bias) != n {
		return &Failure{Case: c.Name, Detail: fmt.Sprintf("weight/bias length must be %d", n)}
	}

	in := tensor.New(dt, c.Dims...)
	out := tensor.New(dt, c.Dims...)
	if err := tensor.SetInt64s(in, vals); err != nil {
		return &Failure{Case: c.Name, Detail: err.Error()}
	}

	ops.QuantizedLayerNormPerTensor(in, c.InScale, c.InZeroPoint, []int{n}, weight, bias, c.Eps, c.OutScale, c.OutZeroPoint, out)

	lo, hi := dt.Range()
	rows := len(vals) / n
	want := referenceLayerNorm(vals, rows, n, c.InScale, c.InZeroPoint, weight, bias, c.Eps, c.OutScale, c.OutZeroPoint, lo, hi)
	got := tensor.Int64Values(out)

	for j := range want {
		d := got[j] - want[j]
		if d < 0 {
			d = -d
		}
		if d > c.MaxStepDiff {
			return &Failure{Case: c.Name, Index: j, Got: got[j], Want: want[j]}
		}
	}
	return nil
}

// caseInput materializes the case's quantized input values.
func caseInput(c *Case, dt qdesc.DType) ([]int64, error) {
	numElems := 1
	for _, d := range c.Dims {
		if d <= 0 {
			return nil, fmt.Errorf("non-positive dim %d", d)
		}
		numElems *= d
	}

	switch {
	case len(c.Input) > 0:
		if len(c.Input) != numElems {
			return nil, fmt.Errorf("input has %d values, dims need %d", len(c.Input), numElems)
		}
		return c.Input, nil

	case c.Fixture != "":
		fx, err := qdesc.Open(c.Fixture)
		if err != nil {
			return nil, err
		}
		defer fx.Close()
		if fx.DType != dt {
			return nil, fmt.Errorf("fixture dtype %s, case dtype %s", fx.DType, dt)
		}
		if fx.NumElems() != numElems {
			return nil, fmt.Errorf("fixture has %d elements, dims need %d", fx.NumElems(), numElems)
		}
		payload := make([]byte, len(fx.Payload))
		copy(payload, fx.Payload)
		t, err := tensor.FromRaw(dt, c.Dims, payload)
		if err != nil {
			return nil, err
		}
		return tensor.Int64Values(t), nil

	default:
		lo, hi := dt.Range()
		rng := rand.New(rand.NewSource(c.Seed))
		vals := make([]int64, numElems)
		for i := range vals {
			vals[i] = lo + int64(rng.Intn(int(hi-lo+1)))
		}
		return vals, nil
	}
}
