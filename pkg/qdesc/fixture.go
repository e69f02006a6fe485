package qdesc

import "encoding/binary"

// Fixture is a decoded QTF tensor fixture.
//
// The on-disk layout is little-endian:
//
//	magic  [4]byte  "QTF\0"
//	version uint16
//	dtype   uint8
//	rank    uint8
//	dims    [rank]uint32
//	payload [numElems * elemSize]byte
//
// Payload holds raw elements in row-major order, host (little-endian) byte
// order. A mmap-backed fixture must be closed to release the mapping.
type Fixture struct {
	DType   DType
	Dims    []int
	Payload []byte

	data    []byte
	mmapped bool
}

const fixtureHeaderSize = 4 + 2 + 1 + 1

// NumElems returns the element count implied by the fixture dims.
func (fx *Fixture) NumElems() int {
	n := 1
	for _, d := range fx.Dims {
		n *= d
	}
	return n
}

// Encode serializes a fixture for the given dtype, dims and raw payload.
func Encode(dt DType, dims []int, payload []byte) ([]byte, error) {
	elemSize := dt.ElemSize()
	if elemSize == 0 {
		return nil, ErrUnknownDType
	}
	if len(dims) == 0 || len(dims) > 255 {
		return nil, ErrCorruptFixture
	}
	n := 1
	for _, d := range dims {
		if d <= 0 || d > int(^uint32(0)) {
			return nil, ErrCorruptFixture
		}
		n *= d
	}
	if len(payload) != n*elemSize {
		return nil, ErrCorruptFixture
	}

	out := make([]byte, 0, fixtureHeaderSize+4*len(dims)+len(payload))
	out = append(out, MagicQTF...)
	out = binary.LittleEndian.AppendUint16(out, CurrentVersion)
	out = append(out, byte(dt), byte(len(dims)))
	for _, d := range dims {
		out = binary.LittleEndian.AppendUint32(out, uint32(d))
	}
	return append(out, payload...), nil
}

// Decode parses fixture bytes. The returned fixture aliases data; it does not
// copy the payload.
func Decode(data []byte) (*Fixture, error) {
	return parseFixtureData(data, false)
}

func parseFixtureData(data []byte, mmapped bool) (*Fixture, error) {
	if len(data) < fixtureHeaderSize {
		return nil, ErrCorruptFixture
	}
	if string(data[:4]) != MagicQTF {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(data[4:6]) != CurrentVersion {
		return nil, ErrUnsupportedVersion
	}

	dt := DType(data[6])
	elemSize := dt.ElemSize()
	if elemSize == 0 {
		return nil, ErrUnknownDType
	}

	rank := int(data[7])
	if rank == 0 {
		return nil, ErrCorruptFixture
	}
	dimsEnd := fixtureHeaderSize + 4*rank
	if len(data) < dimsEnd {
		return nil, ErrCorruptFixture
	}

	dims := make([]int, rank)
	n := 1
	for i := range dims {
		d := int(binary.LittleEndian.Uint32(data[fixtureHeaderSize+4*i:]))
		if d == 0 {
			return nil, ErrCorruptFixture
		}
		dims[i] = d
		n *= d
	}

	payload := data[dimsEnd:]
	if len(payload) != n*elemSize {
		return nil, ErrCorruptFixture
	}

	return &Fixture{
		DType:   dt,
		Dims:    dims,
		Payload: payload,
		data:    data,
		mmapped: mmapped,
	}, nil
}
