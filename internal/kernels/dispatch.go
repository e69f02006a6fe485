package kernels

import (
	"math"

	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

// QuantizedLayerNormPerTensor normalizes every trailing-dimension row of in
// and writes the requantized result into out. Scale and zero point are given
// as scalars and apply uniformly to the whole input tensor.
//
// in and out must share dims and dtype; weight and bias must have the length
// of the trailing dimension. Contract violations and unsupported dtypes
// panic: proceeding would silently corrupt the numeric results. Requantized
// values outside the output range saturate silently.
func QuantizedLayerNormPerTensor(in *tensor.Tensor, inScale float64, inZeroPoint int64, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor) {
	quantizedLayerNormPerTensor(in, inScale, inZeroPoint, normalizedShape, weight, bias, eps, outScale, outZeroPoint, out, false)
}

// QuantizedLayerNorm is the tensor-parameter form: inScale is a one-element
// f32 tensor and inZeroPoint a one-element i64 tensor. Both are folded to
// scalars here, once, before any row work; the row loops never see tensors.
func QuantizedLayerNorm(in, inScale, inZeroPoint *tensor.Tensor, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor) {
	quantizedLayerNorm(in, inScale, inZeroPoint, normalizedShape, weight, bias, eps, outScale, outZeroPoint, out, false)
}

func quantizedLayerNorm(in, inScale, inZeroPoint *tensor.Tensor, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor, noSIMD bool) {
	scale := scalarF32(inScale)
	zp := scalarI64(inZeroPoint)
	quantizedLayerNormPerTensor(in, float64(scale), zp, normalizedShape, weight, bias, eps, outScale, outZeroPoint, out, noSIMD)
}

func quantizedLayerNormPerTensor(in *tensor.Tensor, inScale float64, inZeroPoint int64, normalizedShape []int, weight, bias []float32, eps, outScale float64, outZeroPoint int64, out *tensor.Tensor, noSIMD bool) {
	checkLayerNormArgs(in, out, normalizedShape, weight, bias, eps, outScale)

	p := rowParams{
		inScale:     inScale,
		inZP:        inZeroPoint,
		eps:         eps,
		outInvScale: 1 / outScale,
		outZP:       outZeroPoint,
		noSIMD:      noSIMD,
	}

	switch in.DType() {
	case qdesc.DTypeU8:
		runLayerNorm[uint8](in, out, weight, bias, p)
	case qdesc.DTypeI8:
		runLayerNorm[int8](in, out, weight, bias, p)
	case qdesc.DTypeU16:
		runLayerNorm[uint16](in, out, weight, bias, p)
	case qdesc.DTypeI16:
		runLayerNorm[int16](in, out, weight, bias, p)
	default:
		panic("kernels: unsupported dtype for quantized layer norm: " + in.DType().String())
	}
}

func runLayerNorm[T qdesc.Elem](in, out *tensor.Tensor, weight, bias []float32, p rowParams) {
	n := in.LastDim()
	rows := in.LeadingDims()
	x := tensor.Data[T](in)
	y := tensor.Data[T](out)
	parallelRows(rows, n, func(rs, re int) {
		layerNormRange(x, y, n, weight, bias, p, rs, re)
	})
}

func checkLayerNormArgs(in, out *tensor.Tensor, normalizedShape []int, weight, bias []float32, eps, outScale float64) {
	if in == nil || out == nil {
		panic("kernels: nil tensor")
	}
	if !in.SameShape(out) {
		panic("kernels: input/output shape mismatch")
	}
	if in.DType() != out.DType() {
		panic("kernels: input/output dtype mismatch")
	}
	n := in.LastDim()
	if n <= 0 {
		panic("kernels: empty normalization axis")
	}
	// Only trailing-dimension reduction is supported; the shape argument is
	// accepted for operator compatibility and must agree with it.
	if len(normalizedShape) > 0 && normalizedShape[len(normalizedShape)-1] != n {
		panic("kernels: normalized shape does not match trailing dimension")
	}
	if len(weight) != n || len(bias) != n {
		panic("kernels: weight/bias length must equal trailing dimension")
	}
	if !(eps > 0) || math.IsInf(eps, 0) {
		panic("kernels: eps must be a positive finite value")
	}
	if !(outScale > 0) || math.IsInf(outScale, 0) {
		panic("kernels: output scale must be a positive finite value")
	}
}

// scalarF32 extracts the single value of a one-element f32 parameter tensor.
func scalarF32(t *tensor.Tensor) float32 {
	if t == nil || t.DType() != qdesc.DTypeF32 || t.NumElems() != 1 {
		panic("kernels: scale parameter must be a one-element f32 tensor")
	}
	return tensor.Float32s(t)[0]
}

// scalarI64 extracts the single value of a one-element i64 parameter tensor.
func scalarI64(t *tensor.Tensor) int64 {
	if t == nil || t.DType() != qdesc.DTypeI64 || t.NumElems() != 1 {
		panic("kernels: zero point parameter must be a one-element i64 tensor")
	}
	return tensor.Int64s(t)[0]
}
