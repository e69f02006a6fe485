// Package tensor provides the fixed-point tensor view the kernels operate on.
//
// A Tensor is a dtype tag, dims and a flat row-major element buffer. It owns
// no semantics beyond that: kernels treat inputs as read-only and outputs as
// write-once, and the buffer belongs to whoever constructed the tensor.
package tensor

import (
	"errors"
	"unsafe"

	"github.com/samcharles93/quantkit/pkg/qdesc"
)

var (
	ErrSizeMismatch = errors.New("tensor: raw buffer size mismatch")
	ErrMisaligned   = errors.New("tensor: raw buffer misaligned for dtype")
	ErrBadDims      = errors.New("tensor: invalid dims")
)

// Tensor is a dtype-tagged view over a contiguous element buffer.
type Tensor struct {
	dt   qdesc.DType
	dims []int
	raw  []byte
}

// New allocates a zeroed tensor. Dims must be rank >= 1 with positive
// extents and the dtype must be known; violations panic.
func New(dt qdesc.DType, dims ...int) *Tensor {
	elemSize := dt.ElemSize()
	if elemSize == 0 {
		panic("tensor: unknown dtype")
	}
	if len(dims) == 0 {
		panic("tensor: rank must be >= 1")
	}
	n := 1
	for _, d := range dims {
		if d <= 0 {
			panic("tensor: non-positive dimension")
		}
		n *= d
	}
	return &Tensor{
		dt:   dt,
		dims: append([]int(nil), dims...),
		raw:  make([]byte, n*elemSize),
	}
}

// FromRaw wraps an existing buffer without copying. The buffer length must
// equal the element count times the element size and must be aligned for the
// dtype (mmap'd fixture payloads and fresh allocations always are).
func FromRaw(dt qdesc.DType, dims []int, raw []byte) (*Tensor, error) {
	elemSize := dt.ElemSize()
	if elemSize == 0 {
		return nil, qdesc.ErrUnknownDType
	}
	if len(dims) == 0 {
		return nil, ErrBadDims
	}
	n := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, ErrBadDims
		}
		n *= d
	}
	if len(raw) != n*elemSize {
		return nil, ErrSizeMismatch
	}
	if elemSize > 1 && uintptr(unsafe.Pointer(unsafe.SliceData(raw)))%uintptr(elemSize) != 0 {
		return nil, ErrMisaligned
	}
	return &Tensor{
		dt:   dt,
		dims: append([]int(nil), dims...),
		raw:  raw,
	}, nil
}

func (t *Tensor) DType() qdesc.DType { return t.dt }

// Dims returns the tensor extents. Callers must not mutate the result.
func (t *Tensor) Dims() []int { return t.dims }

// Raw returns the backing byte buffer.
func (t *Tensor) Raw() []byte { return t.raw }

func (t *Tensor) NumElems() int {
	n := 1
	for _, d := range t.dims {
		n *= d
	}
	return n
}

// LastDim is the trailing extent: the normalization axis length.
func (t *Tensor) LastDim() int {
	return t.dims[len(t.dims)-1]
}

// LeadingDims is the product of all extents except the last: the number of
// independent reduction rows.
func (t *Tensor) LeadingDims() int {
	n := 1
	for _, d := range t.dims[:len(t.dims)-1] {
		n *= d
	}
	return n
}

// SameShape reports whether t and o have identical dims.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.dims) != len(o.dims) {
		return false
	}
	for i, d := range t.dims {
		if o.dims[i] != d {
			return false
		}
	}
	return true
}

// Data reinterprets the tensor buffer as a typed element slice. The type
// parameter must match the tensor dtype in width and signedness; a mismatch
// panics, since continuing would misread every element.
func Data[T qdesc.Elem](t *Tensor) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size != t.dt.ElemSize() || !t.dt.IsQuantized() || signed[T]() != t.dt.Signed() {
		panic("tensor: element type does not match dtype " + t.dt.String())
	}
	if len(t.raw) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(t.raw))), len(t.raw)/size)
}

// Float32s reinterprets an F32 tensor buffer.
func Float32s(t *Tensor) []float32 {
	if t.dt != qdesc.DTypeF32 {
		panic("tensor: dtype is not f32")
	}
	if len(t.raw) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(t.raw))), len(t.raw)/4)
}

// Int64s reinterprets an I64 tensor buffer.
func Int64s(t *Tensor) []int64 {
	if t.dt != qdesc.DTypeI64 {
		panic("tensor: dtype is not i64")
	}
	if len(t.raw) == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(unsafe.SliceData(t.raw))), len(t.raw)/8)
}

func signed[T qdesc.Elem]() bool {
	return ^T(0) < T(0)
}
