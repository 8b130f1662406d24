package tflite

import (
	"strings"

	flatbuffers "github.com/sandeepkadiyam/har-tflite/flatbuffers"
)

// TensorT is the owned, decoded form of a Tensor.
//
// An empty Name is not written by Pack, so it reads back as absent.
type TensorT struct {
	Shape        []int32
	Type         TensorType
	Buffer       uint32
	Name         string
	Quantization *QuantizationParametersT
	IsVariable   bool
}

// Pack writes t and its children to builder and returns the Tensor offset.
// The builder must be idle.
func (t *TensorT) Pack(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	if t == nil {
		return 0
	}
	shapeOffset := flatbuffers.UOffsetT(0)
	if t.Shape != nil {
		shapeOffset = TensorCreateShapeVector(builder, t.Shape)
	}
	nameOffset := flatbuffers.UOffsetT(0)
	if t.Name != "" {
		nameOffset = builder.CreateString(t.Name)
	}
	quantizationOffset := t.Quantization.Pack(builder)

	TensorStart(builder)
	TensorAddShape(builder, shapeOffset)
	TensorAddType(builder, t.Type)
	TensorAddBuffer(builder, t.Buffer)
	TensorAddName(builder, nameOffset)
	TensorAddQuantization(builder, quantizationOffset)
	TensorAddIsVariable(builder, t.IsVariable)
	return TensorEnd(builder)
}

// UnPackTo decodes every field of rcv into t. Nothing in t aliases the
// buffer afterwards.
func (rcv *Tensor) UnPackTo(t *TensorT) error {
	var err error
	if t.Shape, err = rcv.ShapeAsArray(); err != nil {
		return err
	}
	if t.Type, err = rcv.Type(); err != nil {
		return err
	}
	if t.Buffer, err = rcv.Buffer(); err != nil {
		return err
	}
	name, _, err := rcv.Name()
	if err != nil {
		return err
	}
	t.Name = strings.Clone(name)

	q, err := rcv.Quantization(nil)
	if err != nil {
		return err
	}
	if t.Quantization, err = q.UnPack(); err != nil {
		return err
	}

	t.IsVariable, err = rcv.IsVariable()
	return err
}

func (rcv *Tensor) UnPack() (*TensorT, error) {
	if rcv == nil {
		return nil, nil
	}
	t := &TensorT{}
	if err := rcv.UnPackTo(t); err != nil {
		return nil, err
	}
	return t, nil
}

// QuantizationParametersT is the owned, decoded form of
// QuantizationParameters. A non-nil CustomDetails is written as a
// CustomQuantization details union.
type QuantizationParametersT struct {
	Min                []float32
	Max                []float32
	Scale              []float32
	ZeroPoint          []int64
	CustomDetails      []byte
	QuantizedDimension int32
}

func (t *QuantizationParametersT) Pack(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	if t == nil {
		return 0
	}
	var minOffset, maxOffset, scaleOffset, zeroPointOffset, detailsOffset flatbuffers.UOffsetT
	if t.Min != nil {
		minOffset = QuantizationParametersCreateFloat32Vector(builder, t.Min)
	}
	if t.Max != nil {
		maxOffset = QuantizationParametersCreateFloat32Vector(builder, t.Max)
	}
	if t.Scale != nil {
		scaleOffset = QuantizationParametersCreateFloat32Vector(builder, t.Scale)
	}
	if t.ZeroPoint != nil {
		zeroPointOffset = QuantizationParametersCreateZeroPointVector(builder, t.ZeroPoint)
	}
	detailsType := QuantizationDetailsNONE
	if t.CustomDetails != nil {
		custom := builder.CreateByteVector(t.CustomDetails)
		CustomQuantizationStart(builder)
		CustomQuantizationAddCustom(builder, custom)
		detailsOffset = CustomQuantizationEnd(builder)
		detailsType = QuantizationDetailsCustomQuantization
	}

	QuantizationParametersStart(builder)
	QuantizationParametersAddMin(builder, minOffset)
	QuantizationParametersAddMax(builder, maxOffset)
	QuantizationParametersAddScale(builder, scaleOffset)
	QuantizationParametersAddZeroPoint(builder, zeroPointOffset)
	QuantizationParametersAddDetailsType(builder, detailsType)
	QuantizationParametersAddDetails(builder, detailsOffset)
	QuantizationParametersAddQuantizedDimension(builder, t.QuantizedDimension)
	return QuantizationParametersEnd(builder)
}

func (rcv *QuantizationParameters) UnPackTo(t *QuantizationParametersT) error {
	var err error
	if t.Min, err = rcv.MinAsArray(); err != nil {
		return err
	}
	if t.Max, err = rcv.MaxAsArray(); err != nil {
		return err
	}
	if t.Scale, err = rcv.ScaleAsArray(); err != nil {
		return err
	}
	if t.ZeroPoint, err = rcv.ZeroPointAsArray(); err != nil {
		return err
	}

	detailsType, err := rcv.DetailsType()
	if err != nil {
		return err
	}
	t.CustomDetails = nil
	if detailsType == QuantizationDetailsCustomQuantization {
		var tab flatbuffers.Table
		ok, err := rcv.Details(&tab)
		if err != nil {
			return err
		}
		if ok {
			custom := &CustomQuantization{}
			custom.Init(tab.Bytes, tab.Pos)
			raw, err := custom.CustomBytes()
			if err != nil {
				return err
			}
			t.CustomDetails = append([]byte{}, raw...)
		}
	}

	t.QuantizedDimension, err = rcv.QuantizedDimension()
	return err
}

func (rcv *QuantizationParameters) UnPack() (*QuantizationParametersT, error) {
	if rcv == nil {
		return nil, nil
	}
	t := &QuantizationParametersT{}
	if err := rcv.UnPackTo(t); err != nil {
		return nil, err
	}
	return t, nil
}
