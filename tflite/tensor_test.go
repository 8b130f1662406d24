package tflite

import (
	"testing"

	flatbuffers "github.com/sandeepkadiyam/har-tflite/flatbuffers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildInputTensor writes the first layer input of the activity model:
// an INT8 [1, 28, 28, 1] tensor named "input" backed by buffer 3.
func buildInputTensor() []byte {
	b := flatbuffers.NewBuilder(0)
	name := b.CreateString("input")
	shape := TensorCreateShapeVector(b, []int32{1, 28, 28, 1})

	TensorStart(b)
	TensorAddShape(b, shape)
	TensorAddType(b, TensorTypeINT8)
	TensorAddBuffer(b, 3)
	TensorAddName(b, name)
	FinishTensorBuffer(b, TensorEnd(b))
	return b.FinishedBytes()
}

func TestTensorAccessors(t *testing.T) {
	buf := buildInputTensor()
	require.True(t, TensorBufferHasIdentifier(buf, 0, false))

	tensor, err := GetRootAsTensor(buf, 0)
	require.NoError(t, err)

	n, err := tensor.ShapeLength()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for j, want := range []int32{1, 28, 28, 1} {
		got, err := tensor.Shape(j)
		require.NoError(t, err)
		assert.Equal(t, want, got, "shape[%d]", j)
	}

	shape, err := tensor.ShapeAsArray()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 28, 28, 1}, shape)

	typ, err := tensor.Type()
	require.NoError(t, err)
	assert.Equal(t, TensorTypeINT8, typ)
	assert.Equal(t, "INT8", typ.String())

	buffer, err := tensor.Buffer()
	require.NoError(t, err)
	assert.EqualValues(t, 3, buffer)

	name, ok, err := tensor.Name()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "input", name)

	q, err := tensor.Quantization(nil)
	require.NoError(t, err)
	assert.Nil(t, q)

	variable, err := tensor.IsVariable()
	require.NoError(t, err)
	assert.False(t, variable)
}

func TestTensorShapeIndexOutOfRange(t *testing.T) {
	tensor, err := GetRootAsTensor(buildInputTensor(), 0)
	require.NoError(t, err)

	for _, j := range []int{-1, 4, 1000} {
		_, err := tensor.Shape(j)
		assert.ErrorIs(t, err, flatbuffers.ErrOutOfBounds, "shape[%d]", j)
	}
}

func TestTensorDefaults(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	TensorStart(b)
	FinishTensorBuffer(b, TensorEnd(b))
	buf := b.FinishedBytes()

	tensor, err := GetRootAsTensor(buf, 0)
	require.NoError(t, err)

	n, err := tensor.ShapeLength()
	require.NoError(t, err)
	assert.Zero(t, n)

	shape, err := tensor.ShapeAsArray()
	require.NoError(t, err)
	assert.Nil(t, shape)

	raw, err := tensor.ShapeBytes()
	require.NoError(t, err)
	assert.Nil(t, raw)

	_, err = tensor.Shape(0)
	assert.ErrorIs(t, err, flatbuffers.ErrOutOfBounds)

	typ, err := tensor.Type()
	require.NoError(t, err)
	assert.Equal(t, TensorTypeFLOAT32, typ)

	buffer, err := tensor.Buffer()
	require.NoError(t, err)
	assert.Zero(t, buffer)

	name, ok, err := tensor.Name()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, name)

	nameBytes, err := tensor.NameBytes()
	require.NoError(t, err)
	assert.Nil(t, nameBytes)

	q, err := tensor.Quantization(nil)
	require.NoError(t, err)
	assert.Nil(t, q)

	variable, err := tensor.IsVariable()
	require.NoError(t, err)
	assert.False(t, variable)
}

func TestTensorDefaultValuesAreOmitted(t *testing.T) {
	build := func(explicit bool) []byte {
		b := flatbuffers.NewBuilder(0)
		TensorStart(b)
		TensorAddBuffer(b, 1)
		if explicit {
			TensorAddType(b, TensorTypeFLOAT32)
			TensorAddIsVariable(b, false)
		}
		FinishTensorBuffer(b, TensorEnd(b))
		return b.FinishedBytes()
	}
	assert.Equal(t, build(false), build(true))
}

func TestTensorEmptyShape(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	shape := TensorCreateShapeVector(b, []int32{})
	TensorStart(b)
	TensorAddShape(b, shape)
	FinishTensorBuffer(b, TensorEnd(b))

	tensor, err := GetRootAsTensor(b.FinishedBytes(), 0)
	require.NoError(t, err)

	got, err := tensor.ShapeAsArray()
	require.NoError(t, err)
	assert.NotNil(t, got, "a written empty shape is a scalar, not an absent one")
	assert.Empty(t, got)

	_, err = tensor.Shape(0)
	assert.ErrorIs(t, err, flatbuffers.ErrOutOfBounds)
}

func TestTensorSizePrefixed(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	shape := TensorCreateShapeVector(b, []int32{1, 3})
	TensorStart(b)
	TensorAddShape(b, shape)
	TensorAddIsVariable(b, true)
	FinishSizePrefixedTensorBuffer(b, TensorEnd(b))
	buf := b.FinishedBytes()

	size, err := flatbuffers.GetSizePrefix(buf, 0)
	require.NoError(t, err)
	assert.EqualValues(t, len(buf)-4, size)

	assert.True(t, TensorBufferHasIdentifier(buf, 0, true))
	assert.False(t, TensorBufferHasIdentifier(buf, 0, false))

	tensor, err := GetSizePrefixedRootAsTensor(buf, 0)
	require.NoError(t, err)
	got, err := tensor.ShapeAsArray()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 3}, got)
	variable, err := tensor.IsVariable()
	require.NoError(t, err)
	assert.True(t, variable)
}

func TestTensorIdentifier(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	TensorStart(b)
	b.Finish(TensorEnd(b))
	plain := b.FinishedBytes()

	assert.False(t, TensorBufferHasIdentifier(plain, 0, false))
	assert.ErrorIs(t, VerifyTensorIdentifier(plain, 0, false), flatbuffers.ErrMalformedIdentifier)
	assert.False(t, TensorBufferHasIdentifier([]byte{4, 0, 0}, 0, false))
	assert.NoError(t, VerifyTensorIdentifier(buildInputTensor(), 0, false))

	// The identifier is opt-in: a buffer without one still decodes.
	_, err := GetRootAsTensor(plain, 0)
	assert.NoError(t, err)
}

func TestTensorNestedQuantization(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	scale := QuantizationParametersCreateFloat32Vector(b, []float32{0.5, 0.25})
	zeroPoint := QuantizationParametersCreateZeroPointVector(b, []int64{-128, 7})
	QuantizationParametersStart(b)
	QuantizationParametersAddScale(b, scale)
	QuantizationParametersAddZeroPoint(b, zeroPoint)
	QuantizationParametersAddQuantizedDimension(b, 2)
	quant := QuantizationParametersEnd(b)

	shape := TensorCreateShapeVector(b, []int32{2, 3})
	TensorStart(b)
	TensorAddShape(b, shape)
	TensorAddBuffer(b, 5)
	TensorAddQuantization(b, quant)
	FinishTensorBuffer(b, TensorEnd(b))

	tensor, err := GetRootAsTensor(b.FinishedBytes(), 0)
	require.NoError(t, err)

	q, err := tensor.Quantization(nil)
	require.NoError(t, err)
	require.NotNil(t, q)

	scales, err := q.ScaleAsArray()
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, scales)

	zp, err := q.ZeroPoint(0)
	require.NoError(t, err)
	assert.EqualValues(t, -128, zp)
	zps, err := q.ZeroPointAsArray()
	require.NoError(t, err)
	assert.Equal(t, []int64{-128, 7}, zps)

	dim, err := q.QuantizedDimension()
	require.NoError(t, err)
	assert.EqualValues(t, 2, dim)

	// Slots resolve through each table's own vtable.
	minLen, err := q.MinLength()
	require.NoError(t, err)
	assert.Zero(t, minLen)
	_, err = q.Min(0)
	assert.ErrorIs(t, err, flatbuffers.ErrOutOfBounds)

	shapeLen, err := tensor.ShapeLength()
	require.NoError(t, err)
	assert.Equal(t, 2, shapeLen)
	buffer, err := tensor.Buffer()
	require.NoError(t, err)
	assert.EqualValues(t, 5, buffer)

	details, err := q.DetailsType()
	require.NoError(t, err)
	assert.Equal(t, QuantizationDetailsNONE, details)
	var tab flatbuffers.Table
	ok, err := q.Details(&tab)
	require.NoError(t, err)
	assert.False(t, ok)

	var reused QuantizationParameters
	q2, err := tensor.Quantization(&reused)
	require.NoError(t, err)
	assert.Same(t, &reused, q2)
}

func TestTensorSchemaEvolution(t *testing.T) {
	t.Run("older writer", func(t *testing.T) {
		b := flatbuffers.NewBuilder(0)
		b.StartObject(2)
		b.PrependInt8Slot(1, int8(TensorTypeUINT8), 0)
		FinishTensorBuffer(b, b.EndObject())

		tensor, err := GetRootAsTensor(b.FinishedBytes(), 0)
		require.NoError(t, err)
		typ, err := tensor.Type()
		require.NoError(t, err)
		assert.Equal(t, TensorTypeUINT8, typ)
		_, ok, err := tensor.Name()
		require.NoError(t, err)
		assert.False(t, ok)
		variable, err := tensor.IsVariable()
		require.NoError(t, err)
		assert.False(t, variable)
	})

	t.Run("newer writer", func(t *testing.T) {
		b := flatbuffers.NewBuilder(0)
		b.StartObject(8)
		b.PrependUint32Slot(2, 9, 0)
		b.PrependInt64Slot(7, 1234, 0)
		b.PrependInt8Slot(1, 42, 0)
		FinishTensorBuffer(b, b.EndObject())

		tensor, err := GetRootAsTensor(b.FinishedBytes(), 0)
		require.NoError(t, err)
		buffer, err := tensor.Buffer()
		require.NoError(t, err)
		assert.EqualValues(t, 9, buffer)
		typ, err := tensor.Type()
		require.NoError(t, err)
		assert.Equal(t, TensorType(42), typ)
		assert.Equal(t, "TensorType(42)", typ.String())
	})
}

func TestTensorInvalidName(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	name := b.CreateByteString([]byte{0xff, 0xfe, 'x'})
	TensorStart(b)
	TensorAddName(b, name)
	FinishTensorBuffer(b, TensorEnd(b))

	tensor, err := GetRootAsTensor(b.FinishedBytes(), 0)
	require.NoError(t, err)

	_, _, err = tensor.Name()
	assert.ErrorIs(t, err, flatbuffers.ErrInvalidUTF8)

	raw, err := tensor.NameBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe, 'x'}, raw)
}

func TestTensorBorrowedAndCopied(t *testing.T) {
	buf := buildInputTensor()
	tensor, err := GetRootAsTensor(buf, 0)
	require.NoError(t, err)

	shape, err := tensor.ShapeAsArray()
	require.NoError(t, err)
	raw, err := tensor.ShapeBytes()
	require.NoError(t, err)
	nameBytes, err := tensor.NameBytes()
	require.NoError(t, err)

	raw[0] = 7
	nameBytes[0] = 'I'

	assert.Equal(t, []int32{1, 28, 28, 1}, shape, "copies do not follow the buffer")
	first, err := tensor.Shape(0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, first, "borrowed slices alias the buffer")
	name, _, err := tensor.Name()
	require.NoError(t, err)
	assert.Equal(t, "Input", name)
}

func TestTensorTruncatedBuffers(t *testing.T) {
	full := buildInputTensor()
	for n := 0; n < len(full); n++ {
		buf := append([]byte(nil), full[:n]...)
		assert.NotPanics(t, func() {
			tensor, err := GetRootAsTensor(buf, 0)
			if err != nil {
				assert.ErrorIs(t, err, flatbuffers.ErrOutOfBounds)
				return
			}
			_, _ = tensor.ShapeLength()
			_, _ = tensor.ShapeAsArray()
			for j := 0; j < 4; j++ {
				_, _ = tensor.Shape(j)
			}
			_, _ = tensor.Type()
			_, _ = tensor.Buffer()
			_, _, _ = tensor.Name()
			_, _ = tensor.NameBytes()
			_, _ = tensor.IsVariable()
			if q, err := tensor.Quantization(nil); err == nil && q != nil {
				_, _ = q.UnPack()
			}
			_, _ = tensor.UnPack()
		}, "truncated to %d bytes", n)
	}
}

func TestTensorTypeString(t *testing.T) {
	for name, v := range EnumValuesTensorType {
		assert.Equal(t, name, v.String())
		assert.Equal(t, v, EnumValuesTensorType[EnumNamesTensorType[v]])
	}
	assert.Equal(t, "TensorType(-1)", TensorType(-1).String())
	assert.Equal(t, "CustomQuantization", QuantizationDetailsCustomQuantization.String())
	assert.Equal(t, "QuantizationDetails(9)", QuantizationDetails(9).String())
}
