package tflite

import (
	flatbuffers "github.com/sandeepkadiyam/har-tflite/flatbuffers"
	"golang.org/x/xerrors"
)

func vectorLength(tab *flatbuffers.Table, slot flatbuffers.VOffsetT) (int, error) {
	o, err := tab.Offset(slot)
	if err != nil || o == 0 {
		return 0, err
	}
	return tab.VectorLen(flatbuffers.UOffsetT(o))
}

// vectorElem returns the position of element j. An absent vector is empty,
// so every index into it is out of bounds.
func vectorElem(tab *flatbuffers.Table, slot flatbuffers.VOffsetT, j, stride int) (flatbuffers.UOffsetT, error) {
	o, err := tab.Offset(slot)
	if err != nil {
		return 0, err
	}
	if o == 0 {
		return 0, xerrors.Errorf("index %d of empty vector: %w", j, flatbuffers.ErrOutOfBounds)
	}
	return tab.VectorElem(flatbuffers.UOffsetT(o), j, stride)
}

func vectorBytes(tab *flatbuffers.Table, slot flatbuffers.VOffsetT, stride int) ([]byte, error) {
	o, err := tab.Offset(slot)
	if err != nil || o == 0 {
		return nil, err
	}
	return tab.VectorBytes(flatbuffers.UOffsetT(o), stride)
}

// decodeVector copies a vector payload out of the buffer. A nil payload
// (absent vector) decodes to nil, a present empty one to an empty slice.
func decodeVector[T any](raw []byte, stride int, decode func([]byte) T) []T {
	if raw == nil {
		return nil
	}
	out := make([]T, len(raw)/stride)
	for i := range out {
		out[i] = decode(raw[i*stride:])
	}
	return out
}
