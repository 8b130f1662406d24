package flatbuffers

import (
	"math"
	"unicode/utf8"
)

// Table wraps a byte slice and provides read access to its data.
//
// The variable `Pos` indicates the root of the FlatBuffers object therein.
// A Table never modifies Bytes; any number of Tables may read the same
// buffer concurrently once it has been finished.
type Table struct {
	Bytes []byte
	Pos   UOffsetT // Always < 1<<31.
}

// FieldSlot converts a schema field index into its vtable offset, i.e. the
// value accepted by Offset. Field 0 lives at vtable offset 4, right after
// the two metadata fields.
func FieldSlot(field int) VOffsetT {
	return VOffsetT((field + VtableMetadataFields) * SizeVOffsetT)
}

// check reports whether [off, off+size) lies inside the buffer.
func (t *Table) check(op string, off, size int64) error {
	if off < 0 || size < 0 || off+size > int64(len(t.Bytes)) {
		return newDecodeError(ErrOutOfBounds, op, off, size, len(t.Bytes))
	}
	return nil
}

// Offset provides access into the Table's vtable.
//
// It returns the position of the field relative to Pos, or 0 if the field
// is absent. Fields which are deprecated, or which were unknown to the
// writer, are ignored by checking against the vtable's length.
func (t *Table) Offset(vtableOffset VOffsetT) (VOffsetT, error) {
	// t.Pos 开始的 4B 存储着 vtable 的相对偏移（SOffsetT），这里计算出 vtable 的绝对位置。
	if err := t.check("vtable soffset", int64(t.Pos), SizeSOffsetT); err != nil {
		return 0, err
	}
	vtable := int64(t.Pos) - int64(GetSOffsetT(t.Bytes[t.Pos:]))
	if err := t.check("vtable length", vtable, SizeVOffsetT); err != nil {
		return 0, err
	}

	// vtable 的开始 2B 存储着 vtable 的大小，超出该大小的字段视为未写入，由调用方返回默认值。
	if vtableOffset >= GetVOffsetT(t.Bytes[vtable:]) {
		return 0, nil
	}

	// 读取 vtable + vtableOffset 上存储的 2B 偏移量，它是字段相对 t.Pos 的位置，0 表示未写入。
	slot := vtable + int64(vtableOffset)
	if err := t.check("vtable slot", slot, SizeVOffsetT); err != nil {
		return 0, err
	}
	return GetVOffsetT(t.Bytes[slot:]), nil
}

// Indirect retrieves the relative offset stored at `offset`.
func (t *Table) Indirect(off UOffsetT) (UOffsetT, error) {
	if err := t.check("indirect", int64(off), SizeUOffsetT); err != nil {
		return 0, err
	}
	// 间接寻址：off 处存储了相对于 off 的偏移量(4B)。
	target := int64(off) + int64(GetUOffsetT(t.Bytes[off:]))
	if target > math.MaxUint32 {
		return 0, newDecodeError(ErrOutOfBounds, "indirect", target, 0, len(t.Bytes))
	}
	return UOffsetT(target), nil
}

// String gets a string from data stored inside the flatbuffer.
//
// The payload must be valid UTF-8, otherwise the returned error matches
// ErrInvalidUTF8. The string shares memory with the buffer.
func (t *Table) String(off UOffsetT) (string, error) {
	b, err := t.ByteVector(off)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newDecodeError(ErrInvalidUTF8, "string", int64(off), int64(len(b)), len(t.Bytes))
	}
	return byteSliceToString(b), nil
}

// ByteVector gets a byte slice from data stored inside the flatbuffer.
// `off` is the absolute position of the uoffset pointing at the vector.
// The returned slice is borrowed from the buffer.
func (t *Table) ByteVector(off UOffsetT) ([]byte, error) {
	// 通过两跳定位到目标数据：data = length(4B) + content[0,...,length)。
	start, length, err := t.vectorHeader(off)
	if err != nil {
		return nil, err
	}
	if err := t.check("byte vector", int64(start), int64(length)); err != nil {
		return nil, err
	}
	return t.Bytes[start : start+length], nil
}

// VectorLen retrieves the length of the vector whose offset is stored at
// "off" in this object.
func (t *Table) VectorLen(off UOffsetT) (int, error) {
	_, length, err := t.vectorHeader(t.Pos + off)
	if err != nil {
		return 0, err
	}
	return int(length), nil
}

// Vector retrieves the start of data of the vector whose offset is stored
// at "off" in this object.
func (t *Table) Vector(off UOffsetT) (UOffsetT, error) {
	start, _, err := t.vectorHeader(t.Pos + off)
	return start, err
}

// VectorElem returns the position of element j of the vector whose offset
// is stored at "off" in this object, with elements `stride` bytes wide.
// An index outside [0, length) is reported as ErrOutOfBounds.
func (t *Table) VectorElem(off UOffsetT, j, stride int) (UOffsetT, error) {
	start, length, err := t.vectorHeader(t.Pos + off)
	if err != nil {
		return 0, err
	}
	if j < 0 || j >= int(length) {
		return 0, newDecodeError(ErrOutOfBounds, "vector index", int64(j), 1, int(length))
	}
	elem := int64(start) + int64(j)*int64(stride)
	if err := t.check("vector element", elem, int64(stride)); err != nil {
		return 0, err
	}
	return UOffsetT(elem), nil
}

// VectorBytes returns the raw payload of the vector whose offset is stored
// at "off" in this object, with elements `stride` bytes wide. The slice is
// borrowed from the buffer.
func (t *Table) VectorBytes(off UOffsetT, stride int) ([]byte, error) {
	start, length, err := t.vectorHeader(t.Pos + off)
	if err != nil {
		return nil, err
	}
	size := int64(length) * int64(stride)
	if err := t.check("vector payload", int64(start), size); err != nil {
		return nil, err
	}
	return t.Bytes[start : int64(start)+size], nil
}

// vectorHeader follows the uoffset stored at the absolute position `off`
// and returns the position of element 0 and the element count.
func (t *Table) vectorHeader(off UOffsetT) (UOffsetT, UOffsetT, error) {
	x, err := t.Indirect(off)
	if err != nil {
		return 0, 0, err
	}
	if err := t.check("vector length", int64(x), SizeUOffsetT); err != nil {
		return 0, 0, err
	}
	// data starts after metadata containing the vector length
	return x + SizeUOffsetT, GetUOffsetT(t.Bytes[x:]), nil
}

// Union initializes any Table-derived type to point to the union at the given offset.
func (t *Table) Union(t2 *Table, off UOffsetT) error {
	pos, err := t.Indirect(t.Pos + off)
	if err != nil {
		return err
	}
	t2.Pos = pos
	t2.Bytes = t.Bytes
	return nil
}

func get[T any](t *Table, op string, off UOffsetT, size int, decode func([]byte) T) (T, error) {
	if err := t.check(op, int64(off), int64(size)); err != nil {
		var zero T
		return zero, err
	}
	return decode(t.Bytes[off:]), nil
}

// GetBool retrieves a bool at the given offset. Any nonzero byte is true.
func (t *Table) GetBool(off UOffsetT) (bool, error) {
	return get(t, "bool", off, SizeBool, GetBool)
}

// GetByte retrieves a byte at the given offset.
func (t *Table) GetByte(off UOffsetT) (byte, error) {
	return get(t, "byte", off, SizeByte, GetByte)
}

// GetUint8 retrieves a uint8 at the given offset.
func (t *Table) GetUint8(off UOffsetT) (uint8, error) {
	return get(t, "uint8", off, SizeUint8, GetUint8)
}

// GetUint16 retrieves a uint16 at the given offset.
func (t *Table) GetUint16(off UOffsetT) (uint16, error) {
	return get(t, "uint16", off, SizeUint16, GetUint16)
}

// GetUint32 retrieves a uint32 at the given offset.
func (t *Table) GetUint32(off UOffsetT) (uint32, error) {
	return get(t, "uint32", off, SizeUint32, GetUint32)
}

// GetUint64 retrieves a uint64 at the given offset.
func (t *Table) GetUint64(off UOffsetT) (uint64, error) {
	return get(t, "uint64", off, SizeUint64, GetUint64)
}

// GetInt8 retrieves a int8 at the given offset.
func (t *Table) GetInt8(off UOffsetT) (int8, error) {
	return get(t, "int8", off, SizeInt8, GetInt8)
}

// GetInt16 retrieves a int16 at the given offset.
func (t *Table) GetInt16(off UOffsetT) (int16, error) {
	return get(t, "int16", off, SizeInt16, GetInt16)
}

// GetInt32 retrieves a int32 at the given offset.
func (t *Table) GetInt32(off UOffsetT) (int32, error) {
	return get(t, "int32", off, SizeInt32, GetInt32)
}

// GetInt64 retrieves a int64 at the given offset.
func (t *Table) GetInt64(off UOffsetT) (int64, error) {
	return get(t, "int64", off, SizeInt64, GetInt64)
}

// GetFloat32 retrieves a float32 at the given offset.
func (t *Table) GetFloat32(off UOffsetT) (float32, error) {
	return get(t, "float32", off, SizeFloat32, GetFloat32)
}

// GetFloat64 retrieves a float64 at the given offset.
func (t *Table) GetFloat64(off UOffsetT) (float64, error) {
	return get(t, "float64", off, SizeFloat64, GetFloat64)
}

// GetUOffsetT retrieves a UOffsetT at the given offset.
func (t *Table) GetUOffsetT(off UOffsetT) (UOffsetT, error) {
	return get(t, "uoffset", off, SizeUOffsetT, GetUOffsetT)
}

// GetVOffsetT retrieves a VOffsetT at the given offset.
func (t *Table) GetVOffsetT(off UOffsetT) (VOffsetT, error) {
	return get(t, "voffset", off, SizeVOffsetT, GetVOffsetT)
}

// GetSOffsetT retrieves a SOffsetT at the given offset.
func (t *Table) GetSOffsetT(off UOffsetT) (SOffsetT, error) {
	return get(t, "soffset", off, SizeSOffsetT, GetSOffsetT)
}

// getSlot resolves `slot` and reads it with `read`, falling back to `d`
// when the field is absent.
func getSlot[T any](t *Table, slot VOffsetT, d T, read func(UOffsetT) (T, error)) (T, error) {
	// 1. 先根据 t.Pos 定位到 vtable，再根据 slot 读取字段相对 t.Pos 的偏移；
	// 2. 偏移为 0 表示未写入，返回默认值；否则按类型读取数据。
	off, err := t.Offset(slot)
	if err != nil || off == 0 {
		return d, err
	}
	return read(t.Pos + UOffsetT(off))
}

// GetBoolSlot retrieves the bool that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetBoolSlot(slot VOffsetT, d bool) (bool, error) {
	return getSlot(t, slot, d, t.GetBool)
}

// GetByteSlot retrieves the byte that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetByteSlot(slot VOffsetT, d byte) (byte, error) {
	return getSlot(t, slot, d, t.GetByte)
}

// GetInt8Slot retrieves the int8 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetInt8Slot(slot VOffsetT, d int8) (int8, error) {
	return getSlot(t, slot, d, t.GetInt8)
}

// GetUint8Slot retrieves the uint8 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetUint8Slot(slot VOffsetT, d uint8) (uint8, error) {
	return getSlot(t, slot, d, t.GetUint8)
}

// GetInt16Slot retrieves the int16 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetInt16Slot(slot VOffsetT, d int16) (int16, error) {
	return getSlot(t, slot, d, t.GetInt16)
}

// GetUint16Slot retrieves the uint16 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetUint16Slot(slot VOffsetT, d uint16) (uint16, error) {
	return getSlot(t, slot, d, t.GetUint16)
}

// GetInt32Slot retrieves the int32 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetInt32Slot(slot VOffsetT, d int32) (int32, error) {
	return getSlot(t, slot, d, t.GetInt32)
}

// GetUint32Slot retrieves the uint32 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetUint32Slot(slot VOffsetT, d uint32) (uint32, error) {
	return getSlot(t, slot, d, t.GetUint32)
}

// GetInt64Slot retrieves the int64 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetInt64Slot(slot VOffsetT, d int64) (int64, error) {
	return getSlot(t, slot, d, t.GetInt64)
}

// GetUint64Slot retrieves the uint64 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetUint64Slot(slot VOffsetT, d uint64) (uint64, error) {
	return getSlot(t, slot, d, t.GetUint64)
}

// GetFloat32Slot retrieves the float32 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetFloat32Slot(slot VOffsetT, d float32) (float32, error) {
	return getSlot(t, slot, d, t.GetFloat32)
}

// GetFloat64Slot retrieves the float64 that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetFloat64Slot(slot VOffsetT, d float64) (float64, error) {
	return getSlot(t, slot, d, t.GetFloat64)
}

// GetVOffsetTSlot retrieves the VOffsetT that the given vtable location
// points to. If the vtable value is zero, the default value `d`
// will be returned.
func (t *Table) GetVOffsetTSlot(slot VOffsetT, d VOffsetT) (VOffsetT, error) {
	off, err := t.Offset(slot)
	if err != nil || off == 0 {
		return d, err
	}
	return off, nil
}
