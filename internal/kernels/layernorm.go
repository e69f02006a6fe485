package kernels

import (
	"math"

	"github.com/samcharles93/quantkit/pkg/qdesc"
)

// rowParams carries the per-call constants of one layer-norm invocation.
// outInvScale is the reciprocal of the output scale, computed once per call.
type rowParams struct {
	inScale     float64
	inZP        int64
	eps         float64
	outInvScale float64
	outZP       int64
	noSIMD      bool
}

// rowStats computes the mean and reciprocal standard deviation of one
// quantized row without dequantizing a single element. Because
// real = (q - zp) * scale, the centered moments follow algebraically from the
// raw integer sums:
//
//	Σ real  = scale  * (Σ q - n*zp)
//	Σ real² = scale² * (Σ q² - 2*zp*Σ q + n*zp²)
//
// Accumulators are int64: exact for every supported element width up to rows
// of 2^31 elements. Variance is the population variance, matching the biased
// layer-norm convention, and eps is added before the square root.
func rowStats[T qdesc.Elem](x []T, scale float64, zp int64, eps float64) (mean, invStd float64) {
	n := int64(len(x))
	sum := int64(0)
	sqSum := n * zp * zp
	for _, q := range x {
		v := int64(q)
		sum += v
		sqSum += v * v
	}
	sqSum -= 2 * zp * sum
	sum -= n * zp

	mean = scale * float64(sum) / float64(n)
	variance := scale*scale*float64(sqSum)/float64(n) - mean*mean
	invStd = 1 / math.Sqrt(variance+eps)
	return mean, invStd
}

// layerNormRowScalar is the second pass over one row: dequantize, apply
// (real - mean) * invStd * weight + bias, requantize into y. Writes exactly
// len(x) elements and never reads y.
func layerNormRowScalar[T qdesc.Elem](x, y []T, weight, bias []float32, p rowParams, mean, invStd float64) {
	for j := range x {
		real := dequantize(x[j], p.inScale, p.inZP)
		v := (real-mean)*invStd*float64(weight[j]) + float64(bias[j])
		y[j] = quantize[T](v, p.outInvScale, p.outZP)
	}
}

// layerNormRange normalizes rows [rs, re). Each row takes two ordered linear
// passes: statistics, then normalization. Rows touch disjoint output slices,
// so ranges can run concurrently without locking.
func layerNormRange[T qdesc.Elem](x, y []T, n int, weight, bias []float32, p rowParams, rs, re int) {
	useSIMD := cpu.HasAVX2 && !p.noSIMD && n >= 16
	for r := rs; r < re; r++ {
		row := x[r*n : r*n+n]
		out := y[r*n : r*n+n]
		mean, invStd := rowStats(row, p.inScale, p.inZP, p.eps)
		if useSIMD {
			layerNormRowSIMD(row, out, weight, bias, p, mean, invStd)
		} else {
			layerNormRowScalar(row, out, weight, bias, p, mean, invStd)
		}
	}
}
