// Package qdesc describes quantized tensor data: fixed-point element types,
// affine quantization parameters, and the QTF fixture container used to feed
// captured tensors through the kernels.
package qdesc

import "fmt"

// QTF global constants must never change.
const (
	// MagicQTF is the file magic for all QTF fixtures.
	// It is encoded as "QTF\0".
	MagicQTF = "QTF\x00"

	// CurrentVersion: any change indicates a breaking format change.
	CurrentVersion uint16 = 1
)

// DType identifies the element encoding of a tensor.
//
// The quantized subset (U8, I8, U16, I16) is the closed set of element types
// the normalization kernels accept. F32 and I64 exist for auxiliary tensors
// only: affine weights, biases and tensor-wrapped quantization parameters.
type DType uint8

const (
	DTypeInvalid DType = iota
	DTypeU8
	DTypeI8
	DTypeU16
	DTypeI16
	DTypeF32
	DTypeI64
)

// Elem is the closed set of fixed-point element types the kernels operate on.
type Elem interface {
	~uint8 | ~int8 | ~uint16 | ~int16
}

// ElemSize returns the element size in bytes, or 0 for an invalid dtype.
func (dt DType) ElemSize() int {
	switch dt {
	case DTypeU8, DTypeI8:
		return 1
	case DTypeU16, DTypeI16:
		return 2
	case DTypeF32:
		return 4
	case DTypeI64:
		return 8
	default:
		return 0
	}
}

// IsQuantized reports whether dt belongs to the fixed-point element set the
// normalization kernels dispatch on.
func (dt DType) IsQuantized() bool {
	switch dt {
	case DTypeU8, DTypeI8, DTypeU16, DTypeI16:
		return true
	default:
		return false
	}
}

// Signed reports whether dt is a signed fixed-point type.
func (dt DType) Signed() bool {
	return dt == DTypeI8 || dt == DTypeI16
}

func (dt DType) String() string {
	switch dt {
	case DTypeU8:
		return "u8"
	case DTypeI8:
		return "i8"
	case DTypeU16:
		return "u16"
	case DTypeI16:
		return "i16"
	case DTypeF32:
		return "f32"
	case DTypeI64:
		return "i64"
	default:
		return "invalid"
	}
}

// ParseDType converts a string form back to a DType.
func ParseDType(s string) (DType, error) {
	switch s {
	case "u8":
		return DTypeU8, nil
	case "i8":
		return DTypeI8, nil
	case "u16":
		return DTypeU16, nil
	case "i16":
		return DTypeI16, nil
	case "f32":
		return DTypeF32, nil
	case "i64":
		return DTypeI64, nil
	default:
		return DTypeInvalid, fmt.Errorf("%w: %q", ErrUnknownDType, s)
	}
}

// Range returns the representable value range of a quantized dtype.
// Requantization saturates to these bounds.
func (dt DType) Range() (lo, hi int64) {
	switch dt {
	case DTypeU8:
		return 0, 255
	case DTypeI8:
		return -128, 127
	case DTypeU16:
		return 0, 65535
	case DTypeI16:
		return -32768, 32767
	default:
		return 0, 0
	}
}

// Params is the per-tensor affine quantization parameter pair. It defines the
// map real = (quantized - ZeroPoint) * Scale.
type Params struct {
	Scale     float64
	ZeroPoint int64
}

// Dequantize maps a quantized value back to its real value.
func (p Params) Dequantize(q int64) float64 {
	return float64(q-p.ZeroPoint) * p.Scale
}
