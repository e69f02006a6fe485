package kernels

import (
	"simd/archsimd"

	"github.com/samcharles93/quantkit/pkg/qdesc"
)

// layerNormRowSIMD is the AVX2 fast path for the normalization pass. The
// affine transform folds to
//
//	y = real*t[j] + c[j]   where t[j] = invStd*weight[j], c[j] = bias[j] - mean*t[j]
//
// so each 8-lane step is two fused multiply-adds. Arithmetic is float32 like
// the vector unit; the statistics feeding mean/invStd stay exact int64 sums.
// Requantization goes through the scalar quantize primitive so saturation and
// rounding match the scalar path exactly. Scratch lives on the stack.
func layerNormRowSIMD[T qdesc.Elem](x, y []T, weight, bias []float32, p rowParams, mean, invStd float64) {
	n := len(x)

	inScale := float32(p.inScale)
	negZPScale := float32(-p.inZP) * inScale
	vScale := archsimd.BroadcastFloat32x8(inScale)
	vNegZPScale := archsimd.BroadcastFloat32x8(negZPScale)
	vInvStd := archsimd.BroadcastFloat32x8(float32(invStd))
	vNegMean := archsimd.BroadcastFloat32x8(float32(-mean))

	var qbuf, ybuf [8]float32

	i := 0
	for ; i+8 <= n; i += 8 {
		for k := range qbuf {
			qbuf[k] = float32(x[i+k])
		}
		// real = q*scale + (-zp*scale)
		vReal := archsimd.LoadFloat32x8Slice(qbuf[:]).MulAdd(vScale, vNegZPScale)

		vW := archsimd.LoadFloat32x8Slice(weight[i:])
		vB := archsimd.LoadFloat32x8Slice(bias[i:])
		vT := vW.Mul(vInvStd)
		// c = b - mean*t
		vC := vT.MulAdd(vNegMean, vB)
		vY := vReal.MulAdd(vT, vC)

		vY.Store(&ybuf)
		for k := range ybuf {
			y[i+k] = quantize[T](float64(ybuf[k]), p.outInvScale, p.outZP)
		}
	}

	// Scalar tail, same folded form as the vector body.
	mean32 := float32(mean)
	invStd32 := float32(invStd)
	for ; i < n; i++ {
		real := float32(x[i])*inScale + negZPScale
		t := invStd32 * weight[i]
		c := bias[i] - mean32*t
		y[i] = quantize[T](float64(real*t+c), p.outInvScale, p.outZP)
	}
}
