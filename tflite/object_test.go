package tflite

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	flatbuffers "github.com/sandeepkadiyam/har-tflite/flatbuffers"
	"github.com/stretchr/testify/require"
)

func TestTensorObjectRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		tensor *TensorT
	}{
		{
			name: "input",
			tensor: &TensorT{
				Shape:  []int32{1, 28, 28, 1},
				Type:   TensorTypeINT8,
				Buffer: 3,
				Name:   "input",
			},
		},
		{
			name:   "empty",
			tensor: &TensorT{},
		},
		{
			name: "scalar variable",
			tensor: &TensorT{
				Shape:      []int32{},
				Type:       TensorTypeFLOAT32,
				Name:       "state",
				IsVariable: true,
			},
		},
		{
			name: "per-channel quantization",
			tensor: &TensorT{
				Shape:  []int32{8, 3, 3, 1},
				Type:   TensorTypeINT8,
				Buffer: 12,
				Name:   "conv2d/kernel",
				Quantization: &QuantizationParametersT{
					Min:                []float32{-1, -2},
					Max:                []float32{1, 2},
					Scale:              []float32{0.0078125, 0.015625},
					ZeroPoint:          []int64{0, 0},
					QuantizedDimension: 0,
				},
			},
		},
		{
			name: "custom quantization",
			tensor: &TensorT{
				Shape: []int32{128},
				Type:  TensorTypeUINT8,
				Name:  "dense/bias",
				Quantization: &QuantizationParametersT{
					Scale:              []float32{0.5},
					ZeroPoint:          []int64{128},
					CustomDetails:      []byte{1, 2, 3, 4, 5},
					QuantizedDimension: 3,
				},
			},
		},
		{
			name: "empty quantization",
			tensor: &TensorT{
				Type:         TensorTypeINT16,
				Quantization: &QuantizationParametersT{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := flatbuffers.NewBuilder(0)
			FinishTensorBuffer(b, tt.tensor.Pack(b))
			buf := b.FinishedBytes()

			tensor, err := GetRootAsTensor(buf, 0)
			require.NoError(t, err)
			got, err := tensor.UnPack()
			require.NoError(t, err)

			if diff := cmp.Diff(tt.tensor, got); diff != "" {
				t.Fatalf("unpacked tensor mismatch (-want +got):\n%s", diff)
			}

			// Unpacked values own their memory.
			for i := range buf {
				buf[i] = 0
			}
			if diff := cmp.Diff(tt.tensor, got); diff != "" {
				t.Fatalf("unpacked tensor aliases the buffer (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCustomQuantizationAccessors(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	q := &QuantizationParametersT{CustomDetails: []byte("lut")}
	root := q.Pack(b)
	b.Finish(root)

	var params QuantizationParameters
	require.NoError(t, flatbuffers.GetRootAs(b.FinishedBytes(), 0, &params))

	typ, err := params.DetailsType()
	require.NoError(t, err)
	require.Equal(t, QuantizationDetailsCustomQuantization, typ)

	var tab flatbuffers.Table
	ok, err := params.Details(&tab)
	require.NoError(t, err)
	require.True(t, ok)

	var custom CustomQuantization
	custom.Init(tab.Bytes, tab.Pos)
	n, err := custom.CustomLength()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	raw, err := custom.CustomBytes()
	require.NoError(t, err)
	require.Equal(t, []byte("lut"), raw)
}

func TestUnPackNil(t *testing.T) {
	var tensor *Tensor
	got, err := tensor.UnPack()
	require.NoError(t, err)
	require.Nil(t, got)

	var q *QuantizationParameters
	gotQ, err := q.UnPack()
	require.NoError(t, err)
	require.Nil(t, gotQ)
}
