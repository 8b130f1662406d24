package tflite

import (
	"strconv"

	flatbuffers "github.com/sandeepkadiyam/har-tflite/flatbuffers"
	"golang.org/x/xerrors"
)

// QuantizationDetails tags the union stored in QuantizationParameters.Details.
type QuantizationDetails byte

const (
	QuantizationDetailsNONE               QuantizationDetails = 0
	QuantizationDetailsCustomQuantization QuantizationDetails = 1
)

var EnumNamesQuantizationDetails = map[QuantizationDetails]string{
	QuantizationDetailsNONE:               "NONE",
	QuantizationDetailsCustomQuantization: "CustomQuantization",
}

func (v QuantizationDetails) String() string {
	if s, ok := EnumNamesQuantizationDetails[v]; ok {
		return s
	}
	return "QuantizationDetails(" + strconv.FormatInt(int64(v), 10) + ")"
}

const (
	quantMinSlot                flatbuffers.VOffsetT = 4
	quantMaxSlot                flatbuffers.VOffsetT = 6
	quantScaleSlot              flatbuffers.VOffsetT = 8
	quantZeroPointSlot          flatbuffers.VOffsetT = 10
	quantDetailsTypeSlot        flatbuffers.VOffsetT = 12
	quantDetailsSlot            flatbuffers.VOffsetT = 14
	quantQuantizedDimensionSlot flatbuffers.VOffsetT = 16

	quantNumFields = 7
)

// QuantizationParameters is a view of the table nested in Tensor.Quantization.
// Its fields resolve through its own vtable, independent of the Tensor's.
type QuantizationParameters struct {
	_tab flatbuffers.Table
}

func (rcv *QuantizationParameters) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *QuantizationParameters) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *QuantizationParameters) float32At(slot flatbuffers.VOffsetT, field string, j int) (float32, error) {
	pos, err := vectorElem(&rcv._tab, slot, j, flatbuffers.SizeFloat32)
	if err != nil {
		return 0, xerrors.Errorf("tflite: quantization %s[%d]: %w", field, j, err)
	}
	return flatbuffers.GetFloat32(rcv._tab.Bytes[pos:]), nil
}

func (rcv *QuantizationParameters) length(slot flatbuffers.VOffsetT, field string) (int, error) {
	n, err := vectorLength(&rcv._tab, slot)
	if err != nil {
		return 0, xerrors.Errorf("tflite: quantization %s length: %w", field, err)
	}
	return n, nil
}

func (rcv *QuantizationParameters) float32s(slot flatbuffers.VOffsetT, field string) ([]float32, error) {
	raw, err := vectorBytes(&rcv._tab, slot, flatbuffers.SizeFloat32)
	if err != nil {
		return nil, xerrors.Errorf("tflite: quantization %s: %w", field, err)
	}
	return decodeVector(raw, flatbuffers.SizeFloat32, flatbuffers.GetFloat32), nil
}

func (rcv *QuantizationParameters) Min(j int) (float32, error) {
	return rcv.float32At(quantMinSlot, "min", j)
}

func (rcv *QuantizationParameters) MinLength() (int, error) {
	return rcv.length(quantMinSlot, "min")
}

func (rcv *QuantizationParameters) MinAsArray() ([]float32, error) {
	return rcv.float32s(quantMinSlot, "min")
}

func (rcv *QuantizationParameters) Max(j int) (float32, error) {
	return rcv.float32At(quantMaxSlot, "max", j)
}

func (rcv *QuantizationParameters) MaxLength() (int, error) {
	return rcv.length(quantMaxSlot, "max")
}

func (rcv *QuantizationParameters) MaxAsArray() ([]float32, error) {
	return rcv.float32s(quantMaxSlot, "max")
}

func (rcv *QuantizationParameters) Scale(j int) (float32, error) {
	return rcv.float32At(quantScaleSlot, "scale", j)
}

func (rcv *QuantizationParameters) ScaleLength() (int, error) {
	return rcv.length(quantScaleSlot, "scale")
}

func (rcv *QuantizationParameters) ScaleAsArray() ([]float32, error) {
	return rcv.float32s(quantScaleSlot, "scale")
}

func (rcv *QuantizationParameters) ZeroPoint(j int) (int64, error) {
	pos, err := vectorElem(&rcv._tab, quantZeroPointSlot, j, flatbuffers.SizeInt64)
	if err != nil {
		return 0, xerrors.Errorf("tflite: quantization zero_point[%d]: %w", j, err)
	}
	return flatbuffers.GetInt64(rcv._tab.Bytes[pos:]), nil
}

func (rcv *QuantizationParameters) ZeroPointLength() (int, error) {
	return rcv.length(quantZeroPointSlot, "zero_point")
}

func (rcv *QuantizationParameters) ZeroPointAsArray() ([]int64, error) {
	raw, err := vectorBytes(&rcv._tab, quantZeroPointSlot, flatbuffers.SizeInt64)
	if err != nil {
		return nil, xerrors.Errorf("tflite: quantization zero_point: %w", err)
	}
	return decodeVector(raw, flatbuffers.SizeInt64, flatbuffers.GetInt64), nil
}

func (rcv *QuantizationParameters) DetailsType() (QuantizationDetails, error) {
	v, err := rcv._tab.GetByteSlot(quantDetailsTypeSlot, 0)
	if err != nil {
		return 0, xerrors.Errorf("tflite: quantization details_type: %w", err)
	}
	return QuantizationDetails(v), nil
}

// Details points obj at the union value and reports whether one was
// written. Use DetailsType to tell which table it is.
func (rcv *QuantizationParameters) Details(obj *flatbuffers.Table) (bool, error) {
	o, err := rcv._tab.Offset(quantDetailsSlot)
	if err != nil {
		return false, xerrors.Errorf("tflite: quantization details: %w", err)
	}
	if o == 0 {
		return false, nil
	}
	if err := rcv._tab.Union(obj, flatbuffers.UOffsetT(o)); err != nil {
		return false, xerrors.Errorf("tflite: quantization details: %w", err)
	}
	return true, nil
}

func (rcv *QuantizationParameters) QuantizedDimension() (int32, error) {
	v, err := rcv._tab.GetInt32Slot(quantQuantizedDimensionSlot, 0)
	if err != nil {
		return 0, xerrors.Errorf("tflite: quantization quantized_dimension: %w", err)
	}
	return v, nil
}

func QuantizationParametersStart(builder *flatbuffers.Builder) {
	builder.StartObject(quantNumFields)
}
func QuantizationParametersAddMin(builder *flatbuffers.Builder, min flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, min, 0)
}
func QuantizationParametersStartMinVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}
func QuantizationParametersAddMax(builder *flatbuffers.Builder, max flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(1, max, 0)
}
func QuantizationParametersStartMaxVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}
func QuantizationParametersAddScale(builder *flatbuffers.Builder, scale flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(2, scale, 0)
}
func QuantizationParametersStartScaleVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}
func QuantizationParametersAddZeroPoint(builder *flatbuffers.Builder, zeroPoint flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(3, zeroPoint, 0)
}
func QuantizationParametersStartZeroPointVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(8, numElems, 8)
}
func QuantizationParametersAddDetailsType(builder *flatbuffers.Builder, detailsType QuantizationDetails) {
	builder.PrependByteSlot(4, byte(detailsType), 0)
}
func QuantizationParametersAddDetails(builder *flatbuffers.Builder, details flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(5, details, 0)
}
func QuantizationParametersAddQuantizedDimension(builder *flatbuffers.Builder, quantizedDimension int32) {
	builder.PrependInt32Slot(6, quantizedDimension, 0)
}
func QuantizationParametersEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

// QuantizationParametersCreateFloat32Vector writes v as a complete vector
// for the min, max or scale fields.
func QuantizationParametersCreateFloat32Vector(builder *flatbuffers.Builder, v []float32) flatbuffers.UOffsetT {
	builder.StartVector(4, len(v), 4)
	for i := len(v) - 1; i >= 0; i-- {
		builder.PrependFloat32(v[i])
	}
	return builder.EndVector(len(v))
}

// QuantizationParametersCreateZeroPointVector writes v as a complete
// zero_point vector.
func QuantizationParametersCreateZeroPointVector(builder *flatbuffers.Builder, v []int64) flatbuffers.UOffsetT {
	QuantizationParametersStartZeroPointVector(builder, len(v))
	for i := len(v) - 1; i >= 0; i-- {
		builder.PrependInt64(v[i])
	}
	return builder.EndVector(len(v))
}

const customQuantizationCustomSlot flatbuffers.VOffsetT = 4

// CustomQuantization is the table carried by QuantizationParameters.Details
// when DetailsType is QuantizationDetailsCustomQuantization.
type CustomQuantization struct {
	_tab flatbuffers.Table
}

func (rcv *CustomQuantization) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *CustomQuantization) Table() flatbuffers.Table {
	return rcv._tab
}

// CustomBytes returns the opaque custom payload, borrowed from the buffer.
func (rcv *CustomQuantization) CustomBytes() ([]byte, error) {
	raw, err := vectorBytes(&rcv._tab, customQuantizationCustomSlot, flatbuffers.SizeByte)
	if err != nil {
		return nil, xerrors.Errorf("tflite: custom quantization: %w", err)
	}
	return raw, nil
}

func (rcv *CustomQuantization) CustomLength() (int, error) {
	n, err := vectorLength(&rcv._tab, customQuantizationCustomSlot)
	if err != nil {
		return 0, xerrors.Errorf("tflite: custom quantization length: %w", err)
	}
	return n, nil
}

func CustomQuantizationStart(builder *flatbuffers.Builder) {
	builder.StartObject(1)
}
func CustomQuantizationAddCustom(builder *flatbuffers.Builder, custom flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, custom, 0)
}
func CustomQuantizationEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}
