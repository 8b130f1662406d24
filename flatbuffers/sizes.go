package flatbuffers

import (
	"unsafe"
)

const (
	// See http://golang.org/ref/spec#Numeric_types

	// SizeUint8 is the byte size of a uint8.
	SizeUint8 = 1
	// SizeUint16 is the byte size of a uint16.
	SizeUint16 = 2
	// SizeUint32 is the byte size of a uint32.
	SizeUint32 = 4
	// SizeUint64 is the byte size of a uint64.
	SizeUint64 = 8

	// SizeInt8 is the byte size of a int8.
	SizeInt8 = 1
	// SizeInt16 is the byte size of a int16.
	SizeInt16 = 2
	// SizeInt32 is the byte size of a int32.
	SizeInt32 = 4
	// SizeInt64 is the byte size of a int64.
	SizeInt64 = 8

	// SizeFloat32 is the byte size of a float32.
	SizeFloat32 = 4
	// SizeFloat64 is the byte size of a float64.
	SizeFloat64 = 8

	// SizeByte is the byte size of a byte.
	SizeByte = 1

	// SizeBool is the byte size of a bool, stored as a single byte.
	SizeBool = 1

	// SizeSOffsetT is the byte size of an SOffsetT.
	SizeSOffsetT = 4
	// SizeUOffsetT is the byte size of an UOffsetT.
	SizeUOffsetT = 4
	// SizeVOffsetT is the byte size of an VOffsetT.
	SizeVOffsetT = 2

	// FileIdentifierLength is the byte size of a file identifier.
	FileIdentifierLength = 4
)

// byteSliceToString converts a []byte to string without a heap allocation.
// The string aliases b and must not outlive changes to it.
func byteSliceToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
