package flatbuffers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireProtocolPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, ErrBuilderProtocol)
	}()
	f()
}

func TestBuilderProtocolViolations(t *testing.T) {
	tests := []struct {
		name string
		run  func(b *Builder)
	}{
		{"nested StartObject", func(b *Builder) {
			b.StartObject(1)
			b.StartObject(1)
		}},
		{"EndObject without object", func(b *Builder) {
			b.EndObject()
		}},
		{"EndObject during vector", func(b *Builder) {
			b.StartVector(4, 1, 4)
			b.EndObject()
		}},
		{"StartVector inside object", func(b *Builder) {
			b.StartObject(1)
			b.StartVector(4, 1, 4)
		}},
		{"CreateString inside object", func(b *Builder) {
			b.StartObject(1)
			b.CreateString("x")
		}},
		{"CreateByteVector during vector", func(b *Builder) {
			b.StartVector(1, 1, 1)
			b.CreateByteVector([]byte{1})
		}},
		{"slot outside object", func(b *Builder) {
			b.PrependInt32Slot(0, 1, 0)
		}},
		{"slot index out of range", func(b *Builder) {
			b.StartObject(2)
			b.PrependInt32Slot(2, 1, 0)
		}},
		{"EndVector without vector", func(b *Builder) {
			b.EndVector(0)
		}},
		{"EndVector count mismatch", func(b *Builder) {
			b.StartVector(4, 2, 4)
			b.PrependInt32(1)
			b.PrependInt32(2)
			b.EndVector(3)
		}},
		{"Finish inside object", func(b *Builder) {
			b.StartObject(1)
			b.Finish(0)
		}},
		{"Finish during vector", func(b *Builder) {
			b.StartVector(4, 0, 4)
			b.Finish(0)
		}},
		{"FinishedBytes before Finish", func(b *Builder) {
			b.FinishedBytes()
		}},
		{"forward reference", func(b *Builder) {
			b.StartObject(1)
			b.PrependUOffsetTSlot(0, 1000, 0)
		}},
		{"short file identifier", func(b *Builder) {
			b.StartObject(0)
			root := b.EndObject()
			b.FinishWithFileIdentifier(root, []byte("TFL"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(0)
			requireProtocolPanic(t, func() { tt.run(b) })
		})
	}
}

func TestBuilderStateRecovers(t *testing.T) {
	b := NewBuilder(0)
	b.StartVector(4, 2, 4)
	b.PrependInt32(2)
	b.PrependInt32(1)
	vec := b.EndVector(2)

	b.StartObject(1)
	b.PrependUOffsetTSlot(0, vec, 0)
	root := b.EndObject()
	b.Finish(root)

	buf := b.FinishedBytes()
	pos, err := RootPos(buf, 0)
	require.NoError(t, err)
	tab := &Table{Bytes: buf, Pos: pos}

	off, err := tab.Offset(FieldSlot(0))
	require.NoError(t, err)
	require.NotZero(t, off)

	n, err := tab.VectorLen(UOffsetT(off))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	start, err := tab.Vector(UOffsetT(off))
	require.NoError(t, err)
	for j, want := range []int32{1, 2} {
		v, err := tab.GetInt32(start + UOffsetT(j*SizeInt32))
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestBuilderDefaultOmitted(t *testing.T) {
	build := func(writeDefault bool) []byte {
		b := NewBuilder(0)
		b.StartObject(3)
		if writeDefault {
			b.PrependInt32Slot(0, 0, 0)
			b.PrependBoolSlot(2, false, false)
		}
		b.PrependInt8Slot(1, 9, 0)
		b.Finish(b.EndObject())
		return b.FinishedBytes()
	}

	assert.Equal(t, build(false), build(true))

	buf := build(true)
	pos, err := RootPos(buf, 0)
	require.NoError(t, err)
	tab := &Table{Bytes: buf, Pos: pos}

	// trailing absent fields are trimmed from the vtable
	vt := int64(pos) - int64(GetSOffsetT(buf[pos:]))
	assert.EqualValues(t, 2*SizeVOffsetT+2*SizeVOffsetT, GetVOffsetT(buf[vt:]))

	v, err := tab.GetInt8Slot(FieldSlot(1), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 9, v)
	x, err := tab.GetInt32Slot(FieldSlot(0), -1)
	require.NoError(t, err)
	assert.EqualValues(t, -1, x)
	f, err := tab.GetBoolSlot(FieldSlot(2), true)
	require.NoError(t, err)
	assert.True(t, f)
}

func TestBuilderVtableDedup(t *testing.T) {
	b := NewBuilder(0)

	b.StartObject(2)
	b.PrependInt32Slot(0, 1, 0)
	b.PrependInt32Slot(1, 2, 0)
	first := b.EndObject()

	b.StartObject(2)
	b.PrependInt32Slot(0, 3, 0)
	b.PrependInt32Slot(1, 4, 0)
	second := b.EndObject()

	b.StartObject(2)
	b.PrependInt32Slot(0, 5, 0)
	third := b.EndObject()

	b.Finish(second)
	buf := b.FinishedBytes()

	vtableOf := func(off UOffsetT) int64 {
		pos := int64(len(buf)) - int64(off)
		return pos - int64(GetSOffsetT(buf[pos:]))
	}
	assert.Equal(t, vtableOf(first), vtableOf(second))
	assert.NotEqual(t, vtableOf(first), vtableOf(third))
	assert.Len(t, b.vtables, 2)
}

func TestBuilderGrowth(t *testing.T) {
	b := NewBuilder(0)
	var offs []UOffsetT
	for i := 0; i < 200; i++ {
		offs = append(offs, b.CreateString(fmt.Sprintf("string-%03d", i)))
	}

	b.StartVector(SizeUOffsetT, len(offs), SizeUOffsetT)
	for i := len(offs) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offs[i])
	}
	vec := b.EndVector(len(offs))

	b.StartObject(1)
	b.PrependUOffsetTSlot(0, vec, 0)
	b.Finish(b.EndObject())
	buf := b.FinishedBytes()

	pos, err := RootPos(buf, 0)
	require.NoError(t, err)
	tab := &Table{Bytes: buf, Pos: pos}
	off, err := tab.Offset(FieldSlot(0))
	require.NoError(t, err)

	n, err := tab.VectorLen(UOffsetT(off))
	require.NoError(t, err)
	require.Equal(t, 200, n)

	for _, j := range []int{0, 57, 199} {
		elem, err := tab.VectorElem(UOffsetT(off), j, SizeUOffsetT)
		require.NoError(t, err)
		s, err := tab.String(elem)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("string-%03d", j), s)
	}
}

func TestBuilderReset(t *testing.T) {
	build := func(b *Builder) []byte {
		name := b.CreateString("reuse")
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, name, 0)
		b.PrependUint32Slot(1, 7, 0)
		b.Finish(b.EndObject())
		return append([]byte(nil), b.FinishedBytes()...)
	}

	b := NewBuilder(16)
	first := build(b)

	b.Reset()
	requireProtocolPanic(t, func() { b.FinishedBytes() })
	second := build(b)
	assert.Equal(t, first, second)

	// Reset also clears an abandoned scope.
	b.Reset()
	b.StartObject(1)
	b.Reset()
	assert.Equal(t, first, build(b))
}

func TestBuilderFinishLayout(t *testing.T) {
	fid := []byte("TFL3")
	build := func(finish func(b *Builder, root UOffsetT)) []byte {
		b := NewBuilder(0)
		b.StartObject(1)
		b.PrependInt64Slot(0, 1<<40, 0)
		root := b.EndObject()
		finish(b, root)
		return b.FinishedBytes()
	}

	tests := []struct {
		name         string
		finish       func(b *Builder, root UOffsetT)
		sizePrefixed bool
		identified   bool
	}{
		{"plain", func(b *Builder, r UOffsetT) { b.Finish(r) }, false, false},
		{"identifier", func(b *Builder, r UOffsetT) { b.FinishWithFileIdentifier(r, fid) }, false, true},
		{"size prefix", func(b *Builder, r UOffsetT) { b.FinishSizePrefixed(r) }, true, false},
		{"size prefix and identifier", func(b *Builder, r UOffsetT) {
			b.FinishSizePrefixedWithFileIdentifier(r, fid)
		}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := build(tt.finish)
			assert.Zero(t, len(buf)%8, "buffer length keeps the largest alignment")

			rootAt := UOffsetT(0)
			if tt.sizePrefixed {
				size, err := GetSizePrefix(buf, 0)
				require.NoError(t, err)
				assert.EqualValues(t, len(buf)-SizeUint32, size)
				rootAt = SizeUint32
			}
			assert.Equal(t, tt.identified, BufferHasIdentifier(buf, 0, fid, tt.sizePrefixed))
			if tt.identified {
				assert.Equal(t, fid, buf[rootAt+SizeUOffsetT:rootAt+SizeUOffsetT+FileIdentifierLength])
			}

			pos, err := RootPos(buf, rootAt)
			require.NoError(t, err)
			assert.Zero(t, pos%4)
			tab := &Table{Bytes: buf, Pos: pos}
			v, err := tab.GetInt64Slot(FieldSlot(0), 0)
			require.NoError(t, err)
			assert.EqualValues(t, int64(1)<<40, v)
		})
	}
}

func TestCreateByteVectorAndString(t *testing.T) {
	b := NewBuilder(0)
	raw := b.CreateByteVector([]byte{0xde, 0xad})
	empty := b.CreateByteVector(nil)
	str := b.CreateByteString([]byte("héllo"))

	b.StartObject(3)
	b.PrependUOffsetTSlot(0, raw, 0)
	b.PrependUOffsetTSlot(1, empty, 0)
	b.PrependUOffsetTSlot(2, str, 0)
	b.Finish(b.EndObject())
	buf := b.FinishedBytes()

	pos, err := RootPos(buf, 0)
	require.NoError(t, err)
	tab := &Table{Bytes: buf, Pos: pos}

	field := func(i int) UOffsetT {
		off, err := tab.Offset(FieldSlot(i))
		require.NoError(t, err)
		require.NotZero(t, off)
		return UOffsetT(off)
	}

	got, err := tab.VectorBytes(field(0), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, got)

	n, err := tab.VectorLen(field(1))
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err = tab.VectorBytes(field(1), 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	s, err := tab.String(tab.Pos + field(2))
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
}
