package tflite

import (
	flatbuffers "github.com/sandeepkadiyam/har-tflite/flatbuffers"
	"golang.org/x/xerrors"
)

// TensorIdentifier is the file identifier of TFLite flatbuffers.
const TensorIdentifier = "TFL3"

// Vtable offsets of the Tensor fields, (field+2)*2.
const (
	tensorShapeSlot        flatbuffers.VOffsetT = 4
	tensorTypeSlot         flatbuffers.VOffsetT = 6
	tensorBufferSlot       flatbuffers.VOffsetT = 8
	tensorNameSlot         flatbuffers.VOffsetT = 10
	tensorQuantizationSlot flatbuffers.VOffsetT = 12
	tensorIsVariableSlot   flatbuffers.VOffsetT = 14

	tensorNumFields = 6
)

// Tensor is a view of a Tensor table inside a flatbuffer.
type Tensor struct {
	_tab flatbuffers.Table
}

// GetRootAsTensor returns the Tensor whose uoffset is stored at `offset`
// in buf. It does not check the file identifier.
func GetRootAsTensor(buf []byte, offset flatbuffers.UOffsetT) (*Tensor, error) {
	x := &Tensor{}
	if err := flatbuffers.GetRootAs(buf, offset, x); err != nil {
		return nil, xerrors.Errorf("tflite: tensor root: %w", err)
	}
	return x, nil
}

// GetSizePrefixedRootAsTensor is GetRootAsTensor for size-prefixed buffers.
func GetSizePrefixedRootAsTensor(buf []byte, offset flatbuffers.UOffsetT) (*Tensor, error) {
	x := &Tensor{}
	if err := flatbuffers.GetSizePrefixedRootAs(buf, offset, x); err != nil {
		return nil, xerrors.Errorf("tflite: tensor root: %w", err)
	}
	return x, nil
}

// TensorBufferHasIdentifier reports whether buf carries the "TFL3" file
// identifier after the root uoffset at `offset`.
func TensorBufferHasIdentifier(buf []byte, offset flatbuffers.UOffsetT, sizePrefixed bool) bool {
	return flatbuffers.BufferHasIdentifier(buf, offset, []byte(TensorIdentifier), sizePrefixed)
}

// VerifyTensorIdentifier is TensorBufferHasIdentifier reporting why the
// check failed. The error wraps flatbuffers.ErrMalformedIdentifier.
func VerifyTensorIdentifier(buf []byte, offset flatbuffers.UOffsetT, sizePrefixed bool) error {
	return flatbuffers.VerifyIdentifier(buf, offset, []byte(TensorIdentifier), sizePrefixed)
}

func (rcv *Tensor) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Tensor) Table() flatbuffers.Table {
	return rcv._tab
}

// Shape returns dimension j. j must be in [0, ShapeLength()).
func (rcv *Tensor) Shape(j int) (int32, error) {
	pos, err := vectorElem(&rcv._tab, tensorShapeSlot, j, flatbuffers.SizeInt32)
	if err != nil {
		return 0, xerrors.Errorf("tflite: tensor shape[%d]: %w", j, err)
	}
	return flatbuffers.GetInt32(rcv._tab.Bytes[pos:]), nil
}

// ShapeLength returns the rank of the tensor, 0 when the shape is absent.
func (rcv *Tensor) ShapeLength() (int, error) {
	n, err := vectorLength(&rcv._tab, tensorShapeSlot)
	if err != nil {
		return 0, xerrors.Errorf("tflite: tensor shape length: %w", err)
	}
	return n, nil
}

// ShapeBytes returns the raw little-endian shape payload, borrowed from
// the buffer. It is nil when the shape is absent.
func (rcv *Tensor) ShapeBytes() ([]byte, error) {
	raw, err := vectorBytes(&rcv._tab, tensorShapeSlot, flatbuffers.SizeInt32)
	if err != nil {
		return nil, xerrors.Errorf("tflite: tensor shape: %w", err)
	}
	return raw, nil
}

// ShapeAsArray returns a copy of the whole shape.
func (rcv *Tensor) ShapeAsArray() ([]int32, error) {
	raw, err := rcv.ShapeBytes()
	if err != nil {
		return nil, err
	}
	return decodeVector(raw, flatbuffers.SizeInt32, flatbuffers.GetInt32), nil
}

func (rcv *Tensor) Type() (TensorType, error) {
	v, err := rcv._tab.GetInt8Slot(tensorTypeSlot, 0)
	if err != nil {
		return 0, xerrors.Errorf("tflite: tensor type: %w", err)
	}
	return TensorType(v), nil
}

// Buffer is an index into the model's buffer list; 0 means no data.
func (rcv *Tensor) Buffer() (uint32, error) {
	v, err := rcv._tab.GetUint32Slot(tensorBufferSlot, 0)
	if err != nil {
		return 0, xerrors.Errorf("tflite: tensor buffer: %w", err)
	}
	return v, nil
}

// Name returns the tensor name and whether it was written. The string
// shares memory with the buffer.
func (rcv *Tensor) Name() (string, bool, error) {
	o, err := rcv._tab.Offset(tensorNameSlot)
	if err != nil {
		return "", false, xerrors.Errorf("tflite: tensor name: %w", err)
	}
	if o == 0 {
		return "", false, nil
	}
	s, err := rcv._tab.String(flatbuffers.UOffsetT(o) + rcv._tab.Pos)
	if err != nil {
		return "", false, xerrors.Errorf("tflite: tensor name: %w", err)
	}
	return s, true, nil
}

// NameBytes returns the raw name, borrowed from the buffer, without UTF-8
// validation. It is nil when the name is absent.
func (rcv *Tensor) NameBytes() ([]byte, error) {
	o, err := rcv._tab.Offset(tensorNameSlot)
	if err != nil {
		return nil, xerrors.Errorf("tflite: tensor name: %w", err)
	}
	if o == 0 {
		return nil, nil
	}
	b, err := rcv._tab.ByteVector(flatbuffers.UOffsetT(o) + rcv._tab.Pos)
	if err != nil {
		return nil, xerrors.Errorf("tflite: tensor name: %w", err)
	}
	return b, nil
}

// Quantization returns the nested quantization table, or nil when absent.
// If obj is non-nil it is reused.
func (rcv *Tensor) Quantization(obj *QuantizationParameters) (*QuantizationParameters, error) {
	o, err := rcv._tab.Offset(tensorQuantizationSlot)
	if err != nil {
		return nil, xerrors.Errorf("tflite: tensor quantization: %w", err)
	}
	if o == 0 {
		return nil, nil
	}
	x, err := rcv._tab.Indirect(flatbuffers.UOffsetT(o) + rcv._tab.Pos)
	if err != nil {
		return nil, xerrors.Errorf("tflite: tensor quantization: %w", err)
	}
	if obj == nil {
		obj = new(QuantizationParameters)
	}
	obj.Init(rcv._tab.Bytes, x)
	return obj, nil
}

func (rcv *Tensor) IsVariable() (bool, error) {
	v, err := rcv._tab.GetBoolSlot(tensorIsVariableSlot, false)
	if err != nil {
		return false, xerrors.Errorf("tflite: tensor is_variable: %w", err)
	}
	return v, nil
}

func TensorStart(builder *flatbuffers.Builder) {
	builder.StartObject(tensorNumFields)
}
func TensorAddShape(builder *flatbuffers.Builder, shape flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, shape, 0)
}
func TensorStartShapeVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}
func TensorAddType(builder *flatbuffers.Builder, type_ TensorType) {
	builder.PrependInt8Slot(1, int8(type_), 0)
}
func TensorAddBuffer(builder *flatbuffers.Builder, buffer uint32) {
	builder.PrependUint32Slot(2, buffer, 0)
}
func TensorAddName(builder *flatbuffers.Builder, name flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(3, name, 0)
}
func TensorAddQuantization(builder *flatbuffers.Builder, quantization flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(4, quantization, 0)
}
func TensorAddIsVariable(builder *flatbuffers.Builder, isVariable bool) {
	builder.PrependBoolSlot(5, isVariable, false)
}
func TensorEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

// TensorCreateShapeVector writes shape as a complete vector, to be passed
// to TensorAddShape.
func TensorCreateShapeVector(builder *flatbuffers.Builder, shape []int32) flatbuffers.UOffsetT {
	TensorStartShapeVector(builder, len(shape))
	// Note: Since we prepend the data, this loop iterates in reverse.
	for i := len(shape) - 1; i >= 0; i-- {
		builder.PrependInt32(shape[i])
	}
	return builder.EndVector(len(shape))
}

// FinishTensorBuffer finishes builder with `offset` as the root Tensor
// and the "TFL3" identifier.
func FinishTensorBuffer(builder *flatbuffers.Builder, offset flatbuffers.UOffsetT) {
	builder.FinishWithFileIdentifier(offset, []byte(TensorIdentifier))
}

// FinishSizePrefixedTensorBuffer is FinishTensorBuffer with a size prefix.
func FinishSizePrefixedTensorBuffer(builder *flatbuffers.Builder, offset flatbuffers.UOffsetT) {
	builder.FinishSizePrefixedWithFileIdentifier(offset, []byte(TensorIdentifier))
}
