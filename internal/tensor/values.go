package tensor

import (
	"errors"
	"fmt"

	"github.com/samcharles93/quantkit/pkg/qdesc"
)

var ErrValueRange = errors.New("tensor: value outside dtype range")

// SetInt64s fills a quantized tensor from integer element values, validating
// each against the dtype range. Meant for test and request plumbing, not hot
// paths.
func SetInt64s(t *Tensor, vals []int64) error {
	if len(vals) != t.NumElems() {
		return ErrSizeMismatch
	}
	lo, hi := t.dt.Range()
	for i, v := range vals {
		if v < lo || v > hi {
			return fmt.Errorf("%w: element %d value %d for %s", ErrValueRange, i, v, t.dt)
		}
	}
	switch t.dt {
	case qdesc.DTypeU8:
		dst := Data[uint8](t)
		for i, v := range vals {
			dst[i] = uint8(v)
		}
	case qdesc.DTypeI8:
		dst := Data[int8](t)
		for i, v := range vals {
			dst[i] = int8(v)
		}
	case qdesc.DTypeU16:
		dst := Data[uint16](t)
		for i, v := range vals {
			dst[i] = uint16(v)
		}
	case qdesc.DTypeI16:
		dst := Data[int16](t)
		for i, v := range vals {
			dst[i] = int16(v)
		}
	default:
		return qdesc.ErrUnknownDType
	}
	return nil
}

// Int64Values reads a quantized tensor back out as integer element values.
func Int64Values(t *Tensor) []int64 {
	out := make([]int64, t.NumElems())
	switch t.dt {
	case qdesc.DTypeU8:
		for i, v := range Data[uint8](t) {
			out[i] = int64(v)
		}
	case qdesc.DTypeI8:
		for i, v := range Data[int8](t) {
			out[i] = int64(v)
		}
	case qdesc.DTypeU16:
		for i, v := range Data[uint16](t) {
			out[i] = int64(v)
		}
	case qdesc.DTypeI16:
		for i, v := range Data[int16](t) {
			out[i] = int64(v)
		}
	default:
		panic("tensor: dtype is not quantized")
	}
	return out
}
