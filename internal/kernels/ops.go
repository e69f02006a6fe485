package kernels

import "github.com/samcharles93/quantkit/internal/tensor"

// Ops defines the normalization operations used by callers, so the vectorized
// kernels can be swapped for the scalar reference path in tests and golden
// comparisons.
type Ops interface {
	QuantizedLayerNorm(in, inScale, inZeroPoint *tensor.Tensor, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor)
	QuantizedLayerNormPerTensor(in *tensor.Tensor, inScale float64, inZeroPoint int64, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor)
}

// DefaultOps uses the hardware path when available.
type DefaultOps struct{}

func (DefaultOps) QuantizedLayerNorm(in, inScale, inZeroPoint *tensor.Tensor, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor) {
	QuantizedLayerNorm(in, inScale, inZeroPoint, normalizedShape, weight, bias, eps, outScale, outZeroPoint, out)
}

func (DefaultOps) QuantizedLayerNormPerTensor(in *tensor.Tensor, inScale float64, inZeroPoint int64, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor) {
	QuantizedLayerNormPerTensor(in, inScale, inZeroPoint, normalizedShape, weight, bias, eps, outScale, outZeroPoint, out)
}

// ScalarOps forces the scalar float64 pipeline regardless of CPU features.
type ScalarOps struct{}

func (ScalarOps) QuantizedLayerNorm(in, inScale, inZeroPoint *tensor.Tensor, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor) {
	quantizedLayerNorm(in, inScale, inZeroPoint, normalizedShape, weight, bias, eps, outScale, outZeroPoint, out, true)
}

func (ScalarOps) QuantizedLayerNormPerTensor(in *tensor.Tensor, inScale float64, inZeroPoint int64, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor) {
	quantizedLayerNormPerTensor(in, inScale, inZeroPoint, normalizedShape, weight, bias, eps, outScale, outZeroPoint, out, true)
}

// EnsureOps returns the provided ops or the default implementation.
func EnsureOps(current Ops) Ops {
	if current == nil {
		return DefaultOps{}
	}
	return current
}
