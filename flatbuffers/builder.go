package flatbuffers

// vtable 的元素都是 VOffsetT 类型，即 uint16：
//	第一个元素是 vtable 的大小（以字节为单位），包括自身。
//	第二个元素是 object 的大小，以字节为单位（包括 vtable 偏移量）。
//	从第三个元素开始是 N 个字段偏移量，N 为 schema 中声明的字段数量（包括 deprecated 字段），
//	尾部值为 0 的字段不会写入，读取方依靠 vtable 长度判断其缺失。

// builderState tracks which scope, if any, is open on a Builder.
type builderState int

const (
	stateIdle builderState = iota
	stateObject
	stateVector
)

func (s builderState) String() string {
	switch s {
	case stateObject:
		return "object"
	case stateVector:
		return "vector"
	default:
		return "idle"
	}
}

// Builder is a state machine for creating FlatBuffer objects.
// Use a Builder to construct object(s) starting from leaf nodes.
//
// A Builder constructs byte buffers in a last-first manner for simplicity and
// performance. Children (strings, vectors, nested tables) must be finished
// before the table referencing them is started, since forward references
// cannot be expressed.
//
// A Builder is not safe for concurrent use. Calling its methods out of order
// panics with an error wrapping ErrBuilderProtocol.
type Builder struct {
	// `Bytes` gives raw access to the buffer. Most users will want to use
	// FinishedBytes() instead.
	Bytes []byte

	minalign    int
	vtable      []UOffsetT // 当前正在构建的 object 的字段位置，按字段序号索引
	objectEnd   UOffsetT
	vtables     []UOffsetT // 已写入的 vtable 的位置，用于复用完全相同的 vtable
	head        UOffsetT
	state       builderState
	vectorElems int
	finished    bool
}

// NewBuilder initializes a Builder of size `initial_size`.
// The internal buffer is grown as needed.
func NewBuilder(initialSize int) *Builder {
	if initialSize <= 0 {
		initialSize = 0
	}

	b := &Builder{}
	b.Bytes = make([]byte, initialSize)
	b.head = UOffsetT(initialSize)
	b.minalign = 1
	b.vtables = make([]UOffsetT, 0, 16) // sensible default capacity

	return b
}

// Reset truncates the underlying Builder buffer, facilitating alloc-free
// reuse of a Builder. It also resets bookkeeping data.
func (b *Builder) Reset() {
	if b.Bytes != nil {
		b.Bytes = b.Bytes[:cap(b.Bytes)]
	}

	if b.vtables != nil {
		b.vtables = b.vtables[:0]
	}

	if b.vtable != nil {
		b.vtable = b.vtable[:0]
	}

	b.head = UOffsetT(len(b.Bytes))
	b.minalign = 1
	b.state = stateIdle
	b.vectorElems = 0
	b.finished = false
}

// FinishedBytes returns a pointer to the written data in the byte buffer.
// Panics if the builder is not in a finished state (which is caused by calling
// `Finish()`).
func (b *Builder) FinishedBytes() []byte {
	b.assertFinished()
	return b.Bytes[b.Head():]
}

// StartObject initializes bookkeeping for writing a new object.
func (b *Builder) StartObject(numfields int) {
	b.assertState(stateIdle, "StartObject")
	b.state = stateObject

	// use 32-bit offsets so that arithmetic doesn't overflow.
	if cap(b.vtable) < numfields || b.vtable == nil {
		b.vtable = make([]UOffsetT, numfields)
	} else {
		b.vtable = b.vtable[:numfields]
		for i := 0; i < len(b.vtable); i++ {
			b.vtable[i] = 0
		}
	}

	b.objectEnd = b.Offset()
}

// WriteVtable serializes the vtable for the current object, if applicable.
//
// Before writing out the vtable, this checks pre-existing vtables for equality
// to this one. If an equal vtable is found, point the object to the existing
// vtable and return.
//
// Because vtable values are sensitive to alignment of object data, not all
// logically-equal vtables will be deduplicated.
//
// A vtable has the following format:
//
//	<VOffsetT: size of the vtable in bytes, including this value>
//	<VOffsetT: size of the object in bytes, including the vtable offset>
//	<VOffsetT: offset for a field> * N, where N is the number of fields in
//	           the schema for this type. Includes deprecated fields.
//
// Thus, a vtable is made of 2 + N elements, each SizeVOffsetT bytes wide.
//
// An object has the following format:
//
//	<SOffsetT: offset to this object's vtable (may be negative)>
//	<byte: data>+
func (b *Builder) WriteVtable() (n UOffsetT) {
	// Prepend a zero scalar to the object. Later in this function we'll
	// write an offset here that points to the object's vtable:
	b.PrependSOffsetT(0)

	objectOffset := b.Offset()
	existingVtable := UOffsetT(0)

	// Trim vtable of trailing zeroes.
	i := len(b.vtable) - 1
	for ; i >= 0 && b.vtable[i] == 0; i-- {
	}
	b.vtable = b.vtable[:i+1]

	// Search backwards through existing vtables, because similar vtables
	// are likely to have been recently appended. See
	// BenchmarkVtableDeduplication for a case in which this heuristic
	// saves about 30% of the time used in writing objects with duplicate
	// tables.
	for i := len(b.vtables) - 1; i >= 0; i-- {
		// Find the other vtable, which is associated with `i`:
		vt2Offset := b.vtables[i]
		vt2Start := len(b.Bytes) - int(vt2Offset)
		vt2Len := GetVOffsetT(b.Bytes[vt2Start:])

		metadata := VtableMetadataFields * SizeVOffsetT
		vt2End := vt2Start + int(vt2Len)
		vt2 := b.Bytes[vt2Start+metadata : vt2End]

		// Compare the other vtable to the one under consideration.
		// If they are equal, store the offset and break:
		if vtableEqual(b.vtable, objectOffset, vt2) {
			existingVtable = vt2Offset
			break
		}
	}

	if existingVtable == 0 {
		// Did not find a vtable, so write this one to the buffer.

		// Write out the current vtable in reverse , because
		// serialization occurs in last-first order:
		for i := len(b.vtable) - 1; i >= 0; i-- {
			var off UOffsetT
			if b.vtable[i] != 0 {
				// Forward reference to field;
				// use 32bit number to assert no overflow:
				off = objectOffset - b.vtable[i]
			}

			b.PrependVOffsetT(VOffsetT(off))
		}

		// The two metadata fields are written last.

		// First, store the object bytesize:
		objectSize := objectOffset - b.objectEnd
		b.PrependVOffsetT(VOffsetT(objectSize))

		// Second, store the vtable bytesize:
		vBytes := (len(b.vtable) + VtableMetadataFields) * SizeVOffsetT
		b.PrependVOffsetT(VOffsetT(vBytes))

		// Next, write the offset to the new vtable in the
		// already-allocated SOffsetT at the beginning of this object:
		objectStart := SOffsetT(len(b.Bytes)) - SOffsetT(objectOffset)
		WriteSOffsetT(b.Bytes[objectStart:],
			SOffsetT(b.Offset())-SOffsetT(objectOffset))

		// Finally, store this vtable in memory for future
		// deduplication:
		b.vtables = append(b.vtables, b.Offset())
	} else {
		// Found a duplicate vtable.

		objectStart := SOffsetT(len(b.Bytes)) - SOffsetT(objectOffset)
		b.head = UOffsetT(objectStart)

		// Write the offset to the found vtable in the
		// already-allocated SOffsetT at the beginning of this object:
		WriteSOffsetT(b.Bytes[b.head:],
			SOffsetT(existingVtable)-SOffsetT(objectOffset))
	}

	b.vtable = b.vtable[:0]
	return objectOffset
}

// EndObject writes data necessary to finish object construction.
func (b *Builder) EndObject() UOffsetT {
	b.assertState(stateObject, "EndObject")
	n := b.WriteVtable()
	b.state = stateIdle
	return n
}

// Doubles the size of the byteslice, and copies the old data towards the
// end of the new byteslice (since we build the buffer backwards).
func (b *Builder) growByteBuffer() {
	if (int64(len(b.Bytes)) & int64(0xC0000000)) != 0 {
		panic("cannot grow buffer beyond 2 gigabytes")
	}
	newLen := len(b.Bytes) * 2
	if newLen == 0 {
		newLen = 1
	}

	if cap(b.Bytes) >= newLen {
		b.Bytes = b.Bytes[:newLen]
	} else {
		extension := make([]byte, newLen-len(b.Bytes))
		b.Bytes = append(b.Bytes, extension...)
	}

	middle := newLen / 2
	copy(b.Bytes[middle:], b.Bytes[:middle])
}

// Head gives the start of useful data in the underlying byte buffer.
// Note: unlike other functions, this value is interpreted as from the left.
func (b *Builder) Head() UOffsetT {
	return b.head
}

// Offset relative to the end of the buffer.
func (b *Builder) Offset() UOffsetT {
	return UOffsetT(len(b.Bytes)) - b.head
}

// Pad places zeros at the current offset.
func (b *Builder) Pad(n int) {
	for i := 0; i < n; i++ {
		b.PlaceByte(0)
	}
}

// Prep prepares to write an element of `size` after `additional_bytes`
// have been written, e.g. if you write a string, you need to align such
// the int length field is aligned to SizeInt32, and the string data follows it
// directly.
// If all you need to do is align, `additionalBytes` will be 0.
func (b *Builder) Prep(size, additionalBytes int) {
	// Track the biggest thing we've ever aligned to.
	if size > b.minalign {
		b.minalign = size
	}
	// Find the amount of alignment needed such that `size` is properly
	// aligned after `additionalBytes`:
	alignSize := (^(len(b.Bytes) - int(b.Head()) + additionalBytes)) + 1
	alignSize &= (size - 1)

	// Reallocate the buffer if needed:
	for int(b.head) <= alignSize+size+additionalBytes {
		oldBufSize := len(b.Bytes)
		b.growByteBuffer()
		b.head += UOffsetT(len(b.Bytes) - oldBufSize)
	}
	b.Pad(alignSize)
}

// PrependSOffsetT prepends an SOffsetT, relative to where it will be written.
func (b *Builder) PrependSOffsetT(off SOffsetT) {
	b.Prep(SizeSOffsetT, 0) // Ensure alignment is already done.
	if !(UOffsetT(off) <= b.Offset()) {
		protocolViolation("soffset %d refers to data not yet written (offset %d)", off, b.Offset())
	}
	off2 := SOffsetT(b.Offset()) - off + SOffsetT(SizeSOffsetT)
	b.PlaceSOffsetT(off2)
}

// PrependUOffsetT prepends an UOffsetT, relative to where it will be written.
func (b *Builder) PrependUOffsetT(off UOffsetT) {
	b.Prep(SizeUOffsetT, 0) // Ensure alignment is already done.
	if !(off <= b.Offset()) {
		protocolViolation("uoffset %d refers to data not yet written (offset %d)", off, b.Offset())
	}
	off2 := b.Offset() - off + UOffsetT(SizeUOffsetT)
	b.PlaceUOffsetT(off2)
}

// StartVector initializes bookkeeping for writing a new vector.
//
// A vector has the following format:
//
//	<UOffsetT: number of elements in this vector>
//	<T: data>+, where T is the type of elements of this vector.
//
// Elements are prepended, so they must be written in reverse order.
func (b *Builder) StartVector(elemSize, numElems, alignment int) UOffsetT {
	b.assertState(stateIdle, "StartVector")
	b.state = stateVector
	b.vectorElems = numElems
	b.Prep(SizeUint32, elemSize*numElems)
	b.Prep(alignment, elemSize*numElems) // Just in case alignment > int.
	return b.Offset()
}

// EndVector writes data necessary to finish vector construction.
// `vectorNumElems` must match the count given to StartVector.
func (b *Builder) EndVector(vectorNumElems int) UOffsetT {
	b.assertState(stateVector, "EndVector")
	if vectorNumElems != b.vectorElems {
		protocolViolation("EndVector(%d) does not match StartVector count %d", vectorNumElems, b.vectorElems)
	}

	// we already made space for this, so write without PrependUint32
	// 保存 vector 的成员个数，不是存储空间长度
	b.PlaceUOffsetT(UOffsetT(vectorNumElems))

	b.state = stateIdle
	return b.Offset()
}

// CreateString writes a null-terminated string as a vector.
func (b *Builder) CreateString(s string) UOffsetT {
	return b.createBytes(s, true, "CreateString")
}

// CreateByteString writes a byte slice as a string (null-terminated).
func (b *Builder) CreateByteString(s []byte) UOffsetT {
	return b.createBytes(string(s), true, "CreateByteString")
}

// CreateByteVector writes a ubyte vector
func (b *Builder) CreateByteVector(v []byte) UOffsetT {
	return b.createBytes(string(v), false, "CreateByteVector")
}

func (b *Builder) createBytes(s string, terminate bool, op string) UOffsetT {
	b.assertState(stateIdle, op)

	extra := len(s)
	if terminate {
		extra++
	}
	b.Prep(int(SizeUOffsetT), extra*SizeByte)
	if terminate {
		// string 的末尾是 null 结束符，要加一个字节的 0
		b.PlaceByte(0)
	}

	l := UOffsetT(len(s))
	b.head -= l
	copy(b.Bytes[b.head:b.head+l], s)

	// 把长度（不含末尾 0）写在数据之前，长度空间已由 Prep 预留
	b.PlaceUOffsetT(l)
	return b.Offset()
}

func (b *Builder) assertState(want builderState, op string) {
	if b.state != want {
		protocolViolation("%s requires %s state, builder is in %s state", op, want, b.state)
	}
}

func (b *Builder) assertFinished() {
	// If you get this assert, you're attempting to access a buffer
	// which hasn't been finished yet. Be sure to call builder.Finish()
	// with your root table.
	// If you really need to access an unfinished buffer, use the Bytes
	// buffer directly.
	if !b.finished {
		protocolViolation("FinishedBytes called before Finish")
	}
}

// The Prepend*Slot family writes x into field `o` of the open object. When
// x equals the default d nothing is written and the field reads back as d.

func (b *Builder) PrependBoolSlot(o int, x, d bool) {
	prependSlot(b, "PrependBoolSlot", o, x, d, SizeBool, WriteBool)
}

func (b *Builder) PrependByteSlot(o int, x, d byte) {
	prependSlot(b, "PrependByteSlot", o, x, d, SizeByte, WriteByte)
}

func (b *Builder) PrependUint8Slot(o int, x, d uint8) {
	prependSlot(b, "PrependUint8Slot", o, x, d, SizeUint8, WriteUint8)
}

func (b *Builder) PrependUint16Slot(o int, x, d uint16) {
	prependSlot(b, "PrependUint16Slot", o, x, d, SizeUint16, WriteUint16)
}

func (b *Builder) PrependUint32Slot(o int, x, d uint32) {
	prependSlot(b, "PrependUint32Slot", o, x, d, SizeUint32, WriteUint32)
}

func (b *Builder) PrependUint64Slot(o int, x, d uint64) {
	prependSlot(b, "PrependUint64Slot", o, x, d, SizeUint64, WriteUint64)
}

func (b *Builder) PrependInt8Slot(o int, x, d int8) {
	prependSlot(b, "PrependInt8Slot", o, x, d, SizeInt8, WriteInt8)
}

func (b *Builder) PrependInt16Slot(o int, x, d int16) {
	prependSlot(b, "PrependInt16Slot", o, x, d, SizeInt16, WriteInt16)
}

func (b *Builder) PrependInt32Slot(o int, x, d int32) {
	prependSlot(b, "PrependInt32Slot", o, x, d, SizeInt32, WriteInt32)
}

func (b *Builder) PrependInt64Slot(o int, x, d int64) {
	prependSlot(b, "PrependInt64Slot", o, x, d, SizeInt64, WriteInt64)
}

func (b *Builder) PrependFloat32Slot(o int, x, d float32) {
	prependSlot(b, "PrependFloat32Slot", o, x, d, SizeFloat32, WriteFloat32)
}

func (b *Builder) PrependFloat64Slot(o int, x, d float64) {
	prependSlot(b, "PrependFloat64Slot", o, x, d, SizeFloat64, WriteFloat64)
}

// prependSlot 先检查 object 已打开；值等于默认值时不写入数据，也不记录 slot。
func prependSlot[T comparable](b *Builder, op string, o int, x, d T, size int, write func([]byte, T)) {
	b.assertState(stateObject, op)
	if x != d {
		prepend(b, x, size, write)
		b.Slot(o)
	}
}

// PrependUOffsetTSlot prepends an UOffsetT onto the object at vtable slot `o`.
// If value `x` equals default `d`, then the slot will be set to zero and no
// other data will be written.
func (b *Builder) PrependUOffsetTSlot(o int, x, d UOffsetT) {
	b.assertState(stateObject, "PrependUOffsetTSlot")
	if x != d {
		b.PrependUOffsetT(x)
		b.Slot(o)
	}
}

// PrependStructSlot prepends a struct onto the object at vtable slot `o`.
// Structs are stored inline, so nothing additional is being added.
// In generated code, `d` is always 0.
func (b *Builder) PrependStructSlot(voffset int, x, d UOffsetT) {
	b.assertState(stateObject, "PrependStructSlot")
	if x != d {
		// Structs are always stored inline, so need to be created right
		// before they are used.
		if x != b.Offset() {
			protocolViolation("inline data write outside of object")
		}
		b.Slot(voffset)
	}
}

// Slot sets the vtable key `voffset` to the current location in the buffer.
func (b *Builder) Slot(slotnum int) {
	b.assertState(stateObject, "Slot")
	if slotnum < 0 || slotnum >= len(b.vtable) {
		protocolViolation("slot %d outside object with %d fields", slotnum, len(b.vtable))
	}
	b.vtable[slotnum] = UOffsetT(b.Offset())
}

// Finish finalizes a buffer, pointing to the given `rootTable`.
func (b *Builder) Finish(rootTable UOffsetT) {
	b.finish(rootTable, nil, false)
}

// FinishWithFileIdentifier finalizes a buffer, pointing to the given
// `rootTable`, and places the 4-byte file identifier `fid` right after the
// root offset.
func (b *Builder) FinishWithFileIdentifier(rootTable UOffsetT, fid []byte) {
	b.assertFileIdentifier(fid)
	b.finish(rootTable, fid, false)
}

// FinishSizePrefixed finalizes a buffer like Finish and prefixes it with
// its size, not counting the prefix itself.
func (b *Builder) FinishSizePrefixed(rootTable UOffsetT) {
	b.finish(rootTable, nil, true)
}

// FinishSizePrefixedWithFileIdentifier combines FinishSizePrefixed and
// FinishWithFileIdentifier.
func (b *Builder) FinishSizePrefixedWithFileIdentifier(rootTable UOffsetT, fid []byte) {
	b.assertFileIdentifier(fid)
	b.finish(rootTable, fid, true)
}

func (b *Builder) assertFileIdentifier(fid []byte) {
	if len(fid) != FileIdentifierLength {
		protocolViolation("file identifier must be %d bytes, got %d", FileIdentifierLength, len(fid))
	}
}

// finish lays out, from the front of the buffer:
//
//	[size prefix (4B)] root uoffset (4B) [file identifier (4B)] data...
//
// The whole header is aligned in one Prep so no padding can land between
// its parts.
func (b *Builder) finish(rootTable UOffsetT, fid []byte, sizePrefix bool) {
	b.assertState(stateIdle, "Finish")
	if b.minalign < SizeUOffsetT {
		b.minalign = SizeUOffsetT
	}

	header := SizeUOffsetT + len(fid)
	if sizePrefix {
		header += SizeUint32
	}
	b.Prep(b.minalign, header)

	for i := len(fid) - 1; i >= 0; i-- {
		b.PlaceByte(fid[i])
	}
	b.PrependUOffsetT(rootTable)
	if sizePrefix {
		b.PlaceUint32(uint32(b.Offset()))
	}
	b.finished = true
}

// vtableEqual compares an unwritten vtable to a written vtable.
func vtableEqual(a []UOffsetT, objectStart UOffsetT, b []byte) bool {
	if len(a)*SizeVOffsetT != len(b) {
		return false
	}

	for i := 0; i < len(a); i++ {
		x := GetVOffsetT(b[i*SizeVOffsetT : (i+1)*SizeVOffsetT])

		// Skip vtable entries that indicate a default value.
		if x == 0 && a[i] == 0 {
			continue
		}

		y := SOffsetT(objectStart) - SOffsetT(a[i])
		if SOffsetT(x) != y {
			return false
		}
	}
	return true
}

// prepend aligns the head to `size`, growing the buffer when needed, and
// places x.
func prepend[T any](b *Builder, x T, size int, write func([]byte, T)) {
	b.Prep(size, 0)
	place(b, x, size, write)
}

// place writes x just below the head without checking for space.
func place[T any](b *Builder, x T, size int, write func([]byte, T)) {
	b.head -= UOffsetT(size)
	write(b.Bytes[b.head:], x)
}

// Prepend* align, check for space and write one scalar. Place* skip both
// and must follow a Prep that reserved the room.

func (b *Builder) PrependBool(x bool)         { prepend(b, x, SizeBool, WriteBool) }
func (b *Builder) PrependByte(x byte)         { prepend(b, x, SizeByte, WriteByte) }
func (b *Builder) PrependUint8(x uint8)       { prepend(b, x, SizeUint8, WriteUint8) }
func (b *Builder) PrependUint16(x uint16)     { prepend(b, x, SizeUint16, WriteUint16) }
func (b *Builder) PrependUint32(x uint32)     { prepend(b, x, SizeUint32, WriteUint32) }
func (b *Builder) PrependUint64(x uint64)     { prepend(b, x, SizeUint64, WriteUint64) }
func (b *Builder) PrependInt8(x int8)         { prepend(b, x, SizeInt8, WriteInt8) }
func (b *Builder) PrependInt16(x int16)       { prepend(b, x, SizeInt16, WriteInt16) }
func (b *Builder) PrependInt32(x int32)       { prepend(b, x, SizeInt32, WriteInt32) }
func (b *Builder) PrependInt64(x int64)       { prepend(b, x, SizeInt64, WriteInt64) }
func (b *Builder) PrependFloat32(x float32)   { prepend(b, x, SizeFloat32, WriteFloat32) }
func (b *Builder) PrependFloat64(x float64)   { prepend(b, x, SizeFloat64, WriteFloat64) }
func (b *Builder) PrependVOffsetT(x VOffsetT) { prepend(b, x, SizeVOffsetT, WriteVOffsetT) }

func (b *Builder) PlaceBool(x bool)         { place(b, x, SizeBool, WriteBool) }
func (b *Builder) PlaceByte(x byte)         { place(b, x, SizeByte, WriteByte) }
func (b *Builder) PlaceUint8(x uint8)       { place(b, x, SizeUint8, WriteUint8) }
func (b *Builder) PlaceUint16(x uint16)     { place(b, x, SizeUint16, WriteUint16) }
func (b *Builder) PlaceUint32(x uint32)     { place(b, x, SizeUint32, WriteUint32) }
func (b *Builder) PlaceUint64(x uint64)     { place(b, x, SizeUint64, WriteUint64) }
func (b *Builder) PlaceInt8(x int8)         { place(b, x, SizeInt8, WriteInt8) }
func (b *Builder) PlaceInt16(x int16)       { place(b, x, SizeInt16, WriteInt16) }
func (b *Builder) PlaceInt32(x int32)       { place(b, x, SizeInt32, WriteInt32) }
func (b *Builder) PlaceInt64(x int64)       { place(b, x, SizeInt64, WriteInt64) }
func (b *Builder) PlaceFloat32(x float32)   { place(b, x, SizeFloat32, WriteFloat32) }
func (b *Builder) PlaceFloat64(x float64)   { place(b, x, SizeFloat64, WriteFloat64) }
func (b *Builder) PlaceVOffsetT(x VOffsetT) { place(b, x, SizeVOffsetT, WriteVOffsetT) }
func (b *Builder) PlaceSOffsetT(x SOffsetT) { place(b, x, SizeSOffsetT, WriteSOffsetT) }
func (b *Builder) PlaceUOffsetT(x UOffsetT) { place(b, x, SizeUOffsetT, WriteUOffsetT) }
