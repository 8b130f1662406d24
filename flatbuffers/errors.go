package flatbuffers

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	// ErrOutOfBounds reports a read whose position or length falls outside
	// the buffer.
	ErrOutOfBounds = xerrors.New("flatbuffers: out of bounds")
	// ErrInvalidUTF8 reports a string payload that is not valid UTF-8.
	ErrInvalidUTF8 = xerrors.New("flatbuffers: invalid utf-8")
	// ErrMalformedIdentifier reports a file identifier that does not match
	// the expected one.
	ErrMalformedIdentifier = xerrors.New("flatbuffers: malformed file identifier")
	// ErrBuilderProtocol is the cause of every panic raised by a Builder
	// that is driven in the wrong order.
	ErrBuilderProtocol = xerrors.New("flatbuffers: builder protocol violation")
)

// DecodeError describes a failed read from a flatbuffer.
//
// It matches ErrOutOfBounds or ErrInvalidUTF8 with errors.Is, depending on
// Kind.
type DecodeError struct {
	Kind error  // ErrOutOfBounds or ErrInvalidUTF8
	Op   string // the Table operation that failed
	Off  int64  // absolute position of the read
	Size int64  // number of bytes the read needed
	Len  int    // length of the buffer

	frame xerrors.Frame
}

func newDecodeError(kind error, op string, off, size int64, n int) *DecodeError {
	return &DecodeError{
		Kind:  kind,
		Op:    op,
		Off:   off,
		Size:  size,
		Len:   n,
		frame: xerrors.Caller(2),
	}
}

func (e *DecodeError) Error() string {
	if e.Kind == ErrInvalidUTF8 {
		return fmt.Sprintf("%v: %s at %d (%d bytes)", e.Kind, e.Op, e.Off, e.Size)
	}
	return fmt.Sprintf("%v: %s reads [%d, %d) of %d-byte buffer", e.Kind, e.Op, e.Off, e.Off+e.Size, e.Len)
}

// Is reports whether target is the sentinel this error was raised for.
func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

// Format prints the call site of the failing read with %+v.
func (e *DecodeError) Format(s fmt.State, v rune) { xerrors.FormatError(e, s, v) }

// FormatError implements xerrors.Formatter.
func (e *DecodeError) FormatError(p xerrors.Printer) error {
	p.Print(e.Error())
	e.frame.Format(p)
	return nil
}

// protocolViolation panics with an error wrapping ErrBuilderProtocol.
func protocolViolation(format string, args ...interface{}) {
	panic(xerrors.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrBuilderProtocol))
}
