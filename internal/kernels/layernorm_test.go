package kernels

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

// refLayerNorm is a naive float64 reference: dequantize everything, two float
// passes for mean and population variance, normalize, requantize with clamp.
func refLayerNorm(vals []int64, rows, n int, inScale float64, inZP int64, weight, bias []float32, eps, outScale float64, outZP, lo, hi int64) []int64 {
	out := make([]int64, len(vals))
	for r := 0; r < rows; r++ {
		row := vals[r*n : r*n+n]

		var sum float64
		real := make([]float64, n)
		for j, q := range row {
			real[j] = float64(q-inZP) * inScale
			sum += real[j]
		}
		mean := sum / float64(n)

		var variance float64
		for _, v := range real {
			d := v - mean
			variance += d * d
		}
		variance /= float64(n)
		invStd := 1 / math.Sqrt(variance+eps)

		for j, v := range real {
			y := (v-mean)*invStd*float64(weight[j]) + float64(bias[j])
			q := math.Round(y/outScale) + float64(outZP)
			if q < float64(lo) {
				q = float64(lo)
			}
			if q > float64(hi) {
				q = float64(hi)
			}
			out[r*n+j] = int64(q)
		}
	}
	return out
}

func onesAndZeros(n int) (weight, bias []float32) {
	weight = make([]float32, n)
	bias = make([]float32, n)
	for i := range weight {
		weight[i] = 1
	}
	return weight, bias
}

func TestFlatRowScenario(t *testing.T) {
	// Row [10,10,10,10], scale 1, zp 0: mean 10, variance 0, so every
	// normalized value is exactly bias regardless of eps.
	in := tensor.New(qdesc.DTypeU8, 1, 4)
	out := tensor.New(qdesc.DTypeU8, 1, 4)
	if err := tensor.SetInt64s(in, []int64{10, 10, 10, 10}); err != nil {
		t.Fatal(err)
	}
	weight, bias := onesAndZeros(4)

	QuantizedLayerNormPerTensor(in, 1.0, 0, []int{4}, weight, bias, 1e-5, 1.0, 128, out)

	for i, got := range tensor.Int64Values(out) {
		if got != 128 {
			t.Fatalf("element %d: got %d, want 128", i, got)
		}
	}
}

func TestTwoElementRowStats(t *testing.T) {
	row := []uint8{0, 255}
	mean, invStd := rowStats(row, 1.0, 0, 1e-5)

	if math.Abs(mean-127.5) > 1e-3*127.5 {
		t.Fatalf("mean: got %v, want 127.5", mean)
	}
	// variance = 16256.25; recover it from invStd.
	variance := 1/(invStd*invStd) - 1e-5
	if math.Abs(variance-16256.25) > 1e-3*16256.25 {
		t.Fatalf("variance: got %v, want 16256.25", variance)
	}
}

func TestRowStatsMatchesFloatComputation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	row := make([]int16, 513)
	for i := range row {
		row[i] = int16(rng.Intn(65536) - 32768)
	}
	scale, zp := 0.031, int64(-12)

	mean, invStd := rowStats(row, scale, zp, 1e-5)

	var sum float64
	for _, q := range row {
		sum += float64(int64(q)-zp) * scale
	}
	wantMean := sum / float64(len(row))
	var wantVar float64
	for _, q := range row {
		d := float64(int64(q)-zp)*scale - wantMean
		wantVar += d * d
	}
	wantVar /= float64(len(row))

	if math.Abs(mean-wantMean) > 1e-3*math.Abs(wantMean)+1e-9 {
		t.Fatalf("mean: got %v, want %v", mean, wantMean)
	}
	gotVar := 1/(invStd*invStd) - 1e-5
	if math.Abs(gotVar-wantVar) > 1e-3*wantVar {
		t.Fatalf("variance: got %v, want %v", gotVar, wantVar)
	}
}

func TestZeroPointCorrection(t *testing.T) {
	// Shifting all inputs and the zero point by the same amount must not
	// change the statistics.
	a := []uint8{10, 20, 30, 40}
	b := []uint8{110, 120, 130, 140}

	meanA, invStdA := rowStats(a, 0.5, 0, 1e-5)
	meanB, invStdB := rowStats(b, 0.5, 100, 1e-5)

	if math.Abs(meanA-meanB) > 1e-9 || math.Abs(invStdA-invStdB) > 1e-9 {
		t.Fatalf("zero point shift changed stats: (%v,%v) vs (%v,%v)", meanA, invStdA, meanB, invStdB)
	}
}

func TestMatchesReferenceAllDTypes(t *testing.T) {
	ops := ScalarOps{}
	rng := rand.New(rand.NewSource(42))

	cases := []struct {
		dt     qdesc.DType
		inZP   int64
		outZP  int64
		scale  float64
		oscale float64
	}{
		{qdesc.DTypeU8, 128, 128, 0.05, 0.05},
		{qdesc.DTypeI8, 0, -10, 0.1, 0.04},
		{qdesc.DTypeU16, 32768, 32000, 0.001, 0.002},
		{qdesc.DTypeI16, -5, 7, 0.01, 0.01},
	}

	for _, tc := range cases {
		t.Run(tc.dt.String(), func(t *testing.T) {
			rows, n := 5, 37
			lo, hi := tc.dt.Range()

			vals := make([]int64, rows*n)
			for i := range vals {
				vals[i] = lo + int64(rng.Intn(int(hi-lo+1)))
			}
			weight := make([]float32, n)
			bias := make([]float32, n)
			for j := range weight {
				weight[j] = 0.5 + rng.Float32()
				bias[j] = rng.Float32() - 0.5
			}

			in := tensor.New(tc.dt, rows, n)
			out := tensor.New(tc.dt, rows, n)
			if err := tensor.SetInt64s(in, vals); err != nil {
				t.Fatal(err)
			}

			ops.QuantizedLayerNormPerTensor(in, tc.scale, tc.inZP, []int{n}, weight, bias, 1e-5, tc.oscale, tc.outZP, out)

			want := refLayerNorm(vals, rows, n, tc.scale, tc.inZP, weight, bias, 1e-5, tc.oscale, tc.outZP, lo, hi)
			got := tensor.Int64Values(out)
			for i := range want {
				if d := got[i] - want[i]; d > 1 || d < -1 {
					t.Fatalf("element %d: got %d, want %d", i, got[i], want[i])
				}
			}
		})
	}
}

func TestScalarTensorArgEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	rows, n := 8, 64

	vals := make([]int64, rows*n)
	for i := range vals {
		vals[i] = int64(rng.Intn(256))
	}
	weight := make([]float32, n)
	bias := make([]float32, n)
	for j := range weight {
		weight[j] = rng.Float32()
		bias[j] = rng.Float32()
	}

	in := tensor.New(qdesc.DTypeU8, rows, n)
	if err := tensor.SetInt64s(in, vals); err != nil {
		t.Fatal(err)
	}

	scaleT := tensor.New(qdesc.DTypeF32, 1)
	tensor.Float32s(scaleT)[0] = 0.037
	zpT := tensor.New(qdesc.DTypeI64, 1)
	tensor.Int64s(zpT)[0] = 13

	outScalar := tensor.New(qdesc.DTypeU8, rows, n)
	outTensor := tensor.New(qdesc.DTypeU8, rows, n)

	QuantizedLayerNormPerTensor(in, float64(float32(0.037)), 13, []int{n}, weight, bias, 1e-5, 0.05, 100, outScalar)
	QuantizedLayerNorm(in, scaleT, zpT, []int{n}, weight, bias, 1e-5, 0.05, 100, outTensor)

	if !bytes.Equal(outScalar.Raw(), outTensor.Raw()) {
		t.Fatal("scalar and tensor parameter forms produced different output")
	}
}

func TestDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	rows, n := 64, 256 // big enough for the pool and the AVX2 path

	vals := make([]int64, rows*n)
	for i := range vals {
		vals[i] = int64(rng.Intn(256))
	}
	weight := make([]float32, n)
	bias := make([]float32, n)
	for j := range weight {
		weight[j] = rng.Float32() * 2
		bias[j] = rng.Float32() - 0.5
	}

	in := tensor.New(qdesc.DTypeU8, rows, n)
	if err := tensor.SetInt64s(in, vals); err != nil {
		t.Fatal(err)
	}

	out1 := tensor.New(qdesc.DTypeU8, rows, n)
	out2 := tensor.New(qdesc.DTypeU8, rows, n)
	QuantizedLayerNormPerTensor(in, 0.02, 128, []int{n}, weight, bias, 1e-5, 0.03, 128, out1)
	QuantizedLayerNormPerTensor(in, 0.02, 128, []int{n}, weight, bias, 1e-5, 0.03, 128, out2)

	if !bytes.Equal(out1.Raw(), out2.Raw()) {
		t.Fatal("repeated invocation produced different output")
	}
}

func TestBatchedMatchesRowByRow(t *testing.T) {
	// The parallel driver must produce exactly what independent single-row
	// calls produce.
	rng := rand.New(rand.NewSource(11))
	rows, n := 128, 128

	vals := make([]int64, rows*n)
	for i := range vals {
		vals[i] = int64(rng.Intn(256))
	}
	weight := make([]float32, n)
	bias := make([]float32, n)
	for j := range weight {
		weight[j] = rng.Float32()
		bias[j] = rng.Float32()
	}

	in := tensor.New(qdesc.DTypeU8, rows, n)
	if err := tensor.SetInt64s(in, vals); err != nil {
		t.Fatal(err)
	}
	out := tensor.New(qdesc.DTypeU8, rows, n)
	QuantizedLayerNormPerTensor(in, 0.1, 7, []int{n}, weight, bias, 1e-5, 0.1, 7, out)

	got := tensor.Int64Values(out)
	for r := 0; r < rows; r++ {
		rowIn := tensor.New(qdesc.DTypeU8, 1, n)
		rowOut := tensor.New(qdesc.DTypeU8, 1, n)
		if err := tensor.SetInt64s(rowIn, vals[r*n:r*n+n]); err != nil {
			t.Fatal(err)
		}
		QuantizedLayerNormPerTensor(rowIn, 0.1, 7, []int{n}, weight, bias, 1e-5, 0.1, 7, rowOut)
		rowGot := tensor.Int64Values(rowOut)
		for j := range rowGot {
			if got[r*n+j] != rowGot[j] {
				t.Fatalf("row %d element %d: batched %d, single %d", r, j, got[r*n+j], rowGot[j])
			}
		}
	}
}

func TestShapePreservation(t *testing.T) {
	shapes := [][]int{
		{6},
		{2, 3},
		{2, 2, 4},
		{2, 1, 3, 5},
	}
	for _, dims := range shapes {
		in := tensor.New(qdesc.DTypeU8, dims...)
		out := tensor.New(qdesc.DTypeU8, dims...)
		n := in.LastDim()

		vals := make([]int64, in.NumElems())
		for i := range vals {
			vals[i] = int64(i % 250)
		}
		if err := tensor.SetInt64s(in, vals); err != nil {
			t.Fatal(err)
		}
		// Sentinel the output so untouched elements are detectable: with
		// weight=0 and bias>0, every output must become round(bias/scale)+zp.
		weight := make([]float32, n)
		bias := make([]float32, n)
		for j := range bias {
			bias[j] = 1
		}
		QuantizedLayerNormPerTensor(in, 1.0, 0, []int{n}, weight, bias, 1e-5, 0.5, 0, out)

		if !out.SameShape(in) {
			t.Fatalf("shape changed for %v", dims)
		}
		for i, got := range tensor.Int64Values(out) {
			if got != 2 {
				t.Fatalf("dims %v element %d: got %d, want 2", dims, i, got)
			}
		}
	}
}

func TestOutputSaturation(t *testing.T) {
	// A tiny output scale drives every normalized value far outside the
	// output range; the result must pin to the boundaries, never wrap.
	in := tensor.New(qdesc.DTypeI8, 1, 4)
	out := tensor.New(qdesc.DTypeI8, 1, 4)
	if err := tensor.SetInt64s(in, []int64{-100, -50, 50, 100}); err != nil {
		t.Fatal(err)
	}
	weight, bias := onesAndZeros(4)

	QuantizedLayerNormPerTensor(in, 1.0, 0, []int{4}, weight, bias, 1e-5, 1e-6, 0, out)

	got := tensor.Int64Values(out)
	for i, v := range got[:2] {
		if v != -128 {
			t.Fatalf("element %d: got %d, want -128", i, v)
		}
	}
	for i, v := range got[2:] {
		if v != 127 {
			t.Fatalf("element %d: got %d, want 127", i+2, v)
		}
	}
}

func TestSIMDMatchesScalarWithinOneStep(t *testing.T) {
	if !cpu.HasAVX2 {
		t.Skip("no AVX2 on this machine")
	}
	rng := rand.New(rand.NewSource(3))
	rows, n := 16, 96

	vals := make([]int64, rows*n)
	for i := range vals {
		vals[i] = int64(rng.Intn(256))
	}
	weight := make([]float32, n)
	bias := make([]float32, n)
	for j := range weight {
		weight[j] = rng.Float32() + 0.5
		bias[j] = rng.Float32() - 0.5
	}

	in := tensor.New(qdesc.DTypeU8, rows, n)
	if err := tensor.SetInt64s(in, vals); err != nil {
		t.Fatal(err)
	}
	fast := tensor.New(qdesc.DTypeU8, rows, n)
	ref := tensor.New(qdesc.DTypeU8, rows, n)

	DefaultOps{}.QuantizedLayerNormPerTensor(in, 0.02, 128, []int{n}, weight, bias, 1e-5, 0.02, 128, fast)
	ScalarOps{}.QuantizedLayerNormPerTensor(in, 0.02, 128, []int{n}, weight, bias, 1e-5, 0.02, 128, ref)

	f := tensor.Int64Values(fast)
	s := tensor.Int64Values(ref)
	for i := range f {
		if d := f[i] - s[i]; d > 1 || d < -1 {
			t.Fatalf("element %d: simd %d vs scalar %d", i, f[i], s[i])
		}
	}
}

func TestContractViolationsPanic(t *testing.T) {
	in := tensor.New(qdesc.DTypeU8, 2, 4)
	out := tensor.New(qdesc.DTypeU8, 2, 4)
	weight, bias := onesAndZeros(4)

	cases := []struct {
		name string
		fn   func()
	}{
		{"unsupported dtype", func() {
			f := tensor.New(qdesc.DTypeF32, 2, 4)
			fo := tensor.New(qdesc.DTypeF32, 2, 4)
			QuantizedLayerNormPerTensor(f, 1, 0, []int{4}, weight, bias, 1e-5, 1, 0, fo)
		}},
		{"shape mismatch", func() {
			o := tensor.New(qdesc.DTypeU8, 4, 2)
			QuantizedLayerNormPerTensor(in, 1, 0, []int{4}, weight, bias, 1e-5, 1, 0, o)
		}},
		{"dtype mismatch", func() {
			o := tensor.New(qdesc.DTypeI8, 2, 4)
			QuantizedLayerNormPerTensor(in, 1, 0, []int{4}, weight, bias, 1e-5, 1, 0, o)
		}},
		{"normalized shape mismatch", func() {
			QuantizedLayerNormPerTensor(in, 1, 0, []int{5}, weight, bias, 1e-5, 1, 0, out)
		}},
		{"weight length", func() {
			QuantizedLayerNormPerTensor(in, 1, 0, []int{4}, weight[:3], bias, 1e-5, 1, 0, out)
		}},
		{"bias length", func() {
			QuantizedLayerNormPerTensor(in, 1, 0, []int{4}, weight, bias[:2], 1e-5, 1, 0, out)
		}},
		{"zero eps", func() {
			QuantizedLayerNormPerTensor(in, 1, 0, []int{4}, weight, bias, 0, 1, 0, out)
		}},
		{"zero output scale", func() {
			QuantizedLayerNormPerTensor(in, 1, 0, []int{4}, weight, bias, 1e-5, 0, 0, out)
		}},
		{"scale param wrong dtype", func() {
			s := tensor.New(qdesc.DTypeI64, 1)
			z := tensor.New(qdesc.DTypeI64, 1)
			QuantizedLayerNorm(in, s, z, []int{4}, weight, bias, 1e-5, 1, 0, out)
		}},
		{"scale param wrong size", func() {
			s := tensor.New(qdesc.DTypeF32, 2)
			z := tensor.New(qdesc.DTypeI64, 1)
			QuantizedLayerNorm(in, s, z, []int{4}, weight, bias, 1e-5, 1, 0, out)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			tc.fn()
		})
	}
}

func TestEnsureOps(t *testing.T) {
	if _, ok := EnsureOps(nil).(DefaultOps); !ok {
		t.Fatal("EnsureOps(nil) should return DefaultOps")
	}
	custom := ScalarOps{}
	if _, ok := EnsureOps(custom).(ScalarOps); !ok {
		t.Fatal("EnsureOps should pass through the provided ops")
	}
}
