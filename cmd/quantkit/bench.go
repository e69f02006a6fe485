package main

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/quantkit/internal/kernels"
	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

func benchCmd() *cli.Command {
	var (
		dtypeName  string
		dimsFlag   string
		warmupRuns int64
		benchRuns  int64
		seed       int64
		scalar     bool
	)

	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "dtype",
			Aliases:     []string{"t"},
			Usage:       "element type (u8, i8, u16, i16)",
			Value:       "u8",
			Destination: &dtypeName,
		},
		&cli.StringFlag{
			Name:        "dims",
			Aliases:     []string{"d"},
			Usage:       "tensor dims, e.g. 64x4096",
			Value:       "64x4096",
			Destination: &dimsFlag,
		},
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "number of warmup runs",
			Value:       2,
			Destination: &warmupRuns,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "number of benchmark runs",
			Value:       5,
			Destination: &benchRuns,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "input generation seed",
			Value:       42,
			Destination: &seed,
		},
		&cli.BoolFlag{
			Name:        "scalar",
			Usage:       "force the scalar kernel path",
			Destination: &scalar,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Run standardized kernel benchmarks",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyBenchConfig(cmd, LoadConfig(), &warmupRuns, &benchRuns)
			log := newLogger()

			dt, err := qdesc.ParseDType(dtypeName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if !dt.IsQuantized() {
				return cli.Exit(fmt.Sprintf("error: dtype %s is not a quantized element type", dt), 1)
			}
			dims, err := parseDims(dimsFlag)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(dims) < 2 {
				dims = append([]int{1}, dims...)
			}

			var ops kernels.Ops = kernels.DefaultOps{}
			pathName := "default"
			if scalar {
				ops = kernels.ScalarOps{}
				pathName = "scalar"
			}

			in := tensor.New(dt, dims...)
			out := tensor.New(dt, dims...)
			n := in.LastDim()
			rows := in.LeadingDims()
			fillRandom(in, seed)
			weight := make([]float32, n)
			bias := make([]float32, n)
			for j := range weight {
				weight[j] = 1
			}

			fmt.Println("=== quantkit Benchmark ===")
			fmt.Printf("Op:       quantized_layer_norm\n")
			fmt.Printf("DType:    %s\n", dt)
			fmt.Printf("Dims:     %v (%d rows of %d)\n", dims, rows, n)
			fmt.Printf("Path:     %s (AVX2: %v)\n", pathName, kernels.Features().HasAVX2)
			fmt.Printf("CPUs:     %d\n", runtime.NumCPU())
			fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			fmt.Printf("Warmup:   %d runs\n", warmupRuns)
			fmt.Printf("Runs:     %d\n", benchRuns)
			fmt.Println()

			run := func() time.Duration {
				start := time.Now()
				ops.QuantizedLayerNormPerTensor(in, 0.02, 0, []int{n}, weight, bias, 1e-5, 0.02, 0, out)
				return time.Since(start)
			}

			for i := range int(warmupRuns) {
				log.Debug("warmup run", "run", i+1)
				run()
			}

			elems := float64(rows * n)
			bytes := elems * float64(dt.ElemSize())
			fmt.Println("=== Results ===")
			fmt.Printf("%-6s %12s %12s %12s\n", "Run", "Duration", "ns/elem", "GB/s")

			var sum time.Duration
			best := time.Duration(0)
			for i := range int(benchRuns) {
				d := run()
				sum += d
				if best == 0 || d < best {
					best = d
				}
				fmt.Printf("%-6d %12s %12.3f %12.2f\n",
					i+1, d.Round(time.Microsecond),
					float64(d.Nanoseconds())/elems,
					2*bytes/d.Seconds()/1e9)
			}

			avg := sum / time.Duration(benchRuns)
			fmt.Printf("\n%-6s %12s %12.3f %12.2f\n", "Avg", avg.Round(time.Microsecond),
				float64(avg.Nanoseconds())/elems, 2*bytes/avg.Seconds()/1e9)
			fmt.Printf("%-6s %12s %12.3f %12.2f\n", "Best", best.Round(time.Microsecond),
				float64(best.Nanoseconds())/elems, 2*bytes/best.Seconds()/1e9)

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			fmt.Printf("\nMemory: %.1f MB alloc, %.1f MB sys\n",
				float64(mem.Alloc)/(1024*1024),
				float64(mem.Sys)/(1024*1024))

			return nil
		},
	}
}

func fillRandom(t *tensor.Tensor, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	lo, hi := t.DType().Range()
	vals := make([]int64, t.NumElems())
	for i := range vals {
		vals[i] = lo + int64(rng.Intn(int(hi-lo+1)))
	}
	// Values are drawn from the dtype range, so this cannot fail.
	if err := tensor.SetInt64s(t, vals); err != nil {
		panic(err)
	}
}
