// Package conformance checks the kernel implementations against a plain
// float64 reference and a suite of declarative test cases. Suites can be
// loaded from YAML or generated from the built-in default set, and the
// verify command runs them against both the SIMD and scalar paths.
package conformance

import "math"

// referenceLayerNorm normalizes quantized rows the slow, obvious way:
// dequantize everything to float64, take two passes per row for mean and
// population variance, normalize, and requantize with round half away from
// zero and clamping to [lo, hi]. It shares no code with the kernels it
// checks.
func referenceLayerNorm(vals []int64, rows, n int, inScale float64, inZP int64, weight, bias []float32, eps, outScale float64, outZP, lo, hi int64) []int64 {
	out := make([]int64, len(vals))
	for r := 0; r < rows; r++ {
		row := vals[r*n : r*n+n]

		mean := 0.0
		for _, q := range row {
			mean += float64(q-inZP) * inScale
		}
		mean /= float64(n)

		variance := 0.0
		for _, q := range row {
			d := float64(q-inZP)*inScale - mean
			variance += d * d
		}
		variance /= float64(n)
		invStd := 1 / math.Sqrt(variance+eps)

		for j, q := range row {
			real := float64(q-inZP) * inScale
			v := (real-mean)*invStd*float64(weight[j]) + float64(bias[j])
			out[r*n+j] = requantize(v, outScale, outZP, lo, hi)
		}
	}
	return out
}

func requantize(v, scale float64, zp, lo, hi int64) int64 {
	q := math.Round(v/scale) + float64(zp)
	if math.IsNaN(q) || q < float64(lo) {
		return lo
	}
	if q > float64(hi) {
		return hi
	}
	return int64(q)
}
