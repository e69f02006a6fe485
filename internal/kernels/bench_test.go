package kernels

import (
	"math/rand"
	"testing"

	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

func benchSetup(b *testing.B, dt qdesc.DType, rows, n int) (in, out *tensor.Tensor, weight, bias []float32) {
	b.Helper()
	rng := rand.New(rand.NewSource(1))
	lo, hi := dt.Range()

	vals := make([]int64, rows*n)
	for i := range vals {
		vals[i] = lo + int64(rng.Intn(int(hi-lo+1)))
	}
	in = tensor.New(dt, rows, n)
	out = tensor.New(dt, rows, n)
	if err := tensor.SetInt64s(in, vals); err != nil {
		b.Fatal(err)
	}
	weight = make([]float32, n)
	bias = make([]float32, n)
	for j := range weight {
		weight[j] = rng.Float32() + 0.5
		bias[j] = rng.Float32()
	}
	return in, out, weight, bias
}

func BenchmarkLayerNormU8(b *testing.B) {
	rows, n := 64, 4096
	in, out, weight, bias := benchSetup(b, qdesc.DTypeU8, rows, n)
	b.SetBytes(int64(rows * n))

	for b.Loop() {
		QuantizedLayerNormPerTensor(in, 0.02, 128, []int{n}, weight, bias, 1e-5, 0.02, 128, out)
	}
}

func BenchmarkLayerNormI16(b *testing.B) {
	rows, n := 64, 4096
	in, out, weight, bias := benchSetup(b, qdesc.DTypeI16, rows, n)
	b.SetBytes(int64(rows * n * 2))

	for b.Loop() {
		QuantizedLayerNormPerTensor(in, 0.001, 0, []int{n}, weight, bias, 1e-5, 0.001, 0, out)
	}
}

func BenchmarkLayerNormU8Scalar(b *testing.B) {
	rows, n := 64, 4096
	in, out, weight, bias := benchSetup(b, qdesc.DTypeU8, rows, n)
	b.SetBytes(int64(rows * n))
	ops := ScalarOps{}

	for b.Loop() {
		ops.QuantizedLayerNormPerTensor(in, 0.02, 128, []int{n}, weight, bias, 1e-5, 0.02, 128, out)
	}
}

func BenchmarkLayerNormSingleRow(b *testing.B) {
	in, out, weight, bias := benchSetup(b, qdesc.DTypeU8, 1, 4096)
	b.SetBytes(4096)

	for b.Loop() {
		QuantizedLayerNormPerTensor(in, 0.02, 128, []int{4096}, weight, bias, 1e-5, 0.02, 128, out)
	}
}

func BenchmarkRowStatsU8(b *testing.B) {
	row := make([]uint8, 4096)
	for i := range row {
		row[i] = uint8(i)
	}
	b.SetBytes(4096)

	for b.Loop() {
		rowStats(row, 0.02, 128, 1e-5)
	}
}
