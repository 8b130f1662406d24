package flatbuffers

import (
	"bytes"

	"golang.org/x/xerrors"
)

// FlatBuffer is the interface that represents a flatbuffer table accessor.
type FlatBuffer interface {
	Table() Table
	Init(buf []byte, i UOffsetT)
}

// GetRootAs initializes fb with the root table of buf. The root uoffset is
// read at `offset`; the table it points to must lie inside buf.
//
// The file identifier is not checked; use VerifyIdentifier for that.
func GetRootAs(buf []byte, offset UOffsetT, fb FlatBuffer) error {
	pos, err := RootPos(buf, offset)
	if err != nil {
		return err
	}
	fb.Init(buf, pos)
	return nil
}

// GetSizePrefixedRootAs is GetRootAs for buffers carrying a 4-byte size
// prefix ahead of the root uoffset.
func GetSizePrefixedRootAs(buf []byte, offset UOffsetT, fb FlatBuffer) error {
	return GetRootAs(buf, offset+SizeUint32, fb)
}

// RootPos returns the absolute position of the table whose uoffset is
// stored at `offset`.
func RootPos(buf []byte, offset UOffsetT) (UOffsetT, error) {
	t := Table{Bytes: buf}
	pos, err := t.Indirect(offset)
	if err != nil {
		return 0, err
	}
	if err := t.check("root table", int64(pos), SizeSOffsetT); err != nil {
		return 0, err
	}
	return pos, nil
}

// GetSizePrefix reads the size prefix stored at `offset`. The prefix counts
// the bytes that follow it.
func GetSizePrefix(buf []byte, offset UOffsetT) (uint32, error) {
	t := Table{Bytes: buf}
	return t.GetUint32(offset)
}

// BufferHasIdentifier reports whether the 4 bytes following the root
// uoffset at `offset` equal fid. It never panics: short buffers and
// identifiers of the wrong length report false.
func BufferHasIdentifier(buf []byte, offset UOffsetT, fid []byte, sizePrefixed bool) bool {
	return VerifyIdentifier(buf, offset, fid, sizePrefixed) == nil
}

// VerifyIdentifier is BufferHasIdentifier returning the reason for a
// mismatch. Every error it returns wraps ErrMalformedIdentifier.
func VerifyIdentifier(buf []byte, offset UOffsetT, fid []byte, sizePrefixed bool) error {
	if len(fid) != FileIdentifierLength {
		return xerrors.Errorf("flatbuffers: identifier must be %d bytes, got %d: %w",
			FileIdentifierLength, len(fid), ErrMalformedIdentifier)
	}

	// [size prefix (4B)] root uoffset (4B) file identifier (4B)
	pos := int64(offset) + SizeUOffsetT
	if sizePrefixed {
		pos += SizeUint32
	}
	if pos+FileIdentifierLength > int64(len(buf)) {
		return xerrors.Errorf("flatbuffers: %d-byte buffer too short for identifier at %d: %w",
			len(buf), pos, ErrMalformedIdentifier)
	}

	got := buf[pos : pos+FileIdentifierLength]
	if !bytes.Equal(got, fid) {
		return xerrors.Errorf("flatbuffers: identifier %q, want %q: %w", got, fid, ErrMalformedIdentifier)
	}
	return nil
}
