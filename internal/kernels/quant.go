// Package kernels implements the quantized layer normalization operator: the
// affine quantize/dequantize primitives, the integer-domain statistics pass,
// the row normalization pipeline and the dtype dispatch front end.
package kernels

import (
	"math"
	"unsafe"

	"github.com/samcharles93/quantkit/pkg/qdesc"
)

// elemLimits returns the representable range of T.
func elemLimits[T qdesc.Elem]() (lo, hi int64) {
	bits := int(unsafe.Sizeof(*new(T))) * 8
	if ^T(0) < T(0) {
		return -(int64(1) << (bits - 1)), int64(1)<<(bits-1) - 1
	}
	return 0, int64(1)<<bits - 1
}

// dequantize maps a fixed-point value back to its real value.
func dequantize[T qdesc.Elem](q T, scale float64, zp int64) float64 {
	return float64(int64(q)-zp) * scale
}

// quantize maps a real value to fixed point, saturating at the bounds of T.
// Out-of-range values clamp, they never wrap. The caller supplies the
// reciprocal of the scale so the division is paid once per call rather than
// once per element.
func quantize[T qdesc.Elem](x float64, invScale float64, zp int64) T {
	lo, hi := elemLimits[T]()
	v := math.Round(x*invScale) + float64(zp)
	if v < float64(lo) || math.IsNaN(v) {
		return T(lo)
	}
	if v > float64(hi) {
		return T(hi)
	}
	return T(int64(v))
}
