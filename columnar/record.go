// Package columnar exports decoded Tensor tables as Apache Arrow records,
// one row per tensor.
package columnar

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/sandeepkadiyam/har-tflite/tflite"
)

// Column indices of TensorSchema.
const (
	ColName = iota
	ColType
	ColBuffer
	ColShape
	ColIsVariable
	ColScale
	ColZeroPoint
)

// TensorSchema describes the record built by TensorRecord. Absent names,
// shapes and quantization vectors are null.
var TensorSchema = arrow.NewSchema([]arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "type", Type: arrow.PrimitiveTypes.Int8},
	{Name: "buffer", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "shape", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32), Nullable: true},
	{Name: "is_variable", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "scale", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32), Nullable: true},
	{Name: "zero_point", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64), Nullable: true},
}, nil)

// TensorRecord decodes every tensor and appends it as one row. Buffers
// are allocated from mem; the caller must Release the record.
//
// The first decode error aborts the export and is returned with the index
// of the offending tensor.
func TensorRecord(mem memory.Allocator, tensors []*tflite.Tensor) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, TensorSchema)
	defer b.Release()

	rb := rowBuilder{
		name:       b.Field(ColName).(*array.StringBuilder),
		typ:        b.Field(ColType).(*array.Int8Builder),
		buffer:     b.Field(ColBuffer).(*array.Uint32Builder),
		shape:      b.Field(ColShape).(*array.ListBuilder),
		isVariable: b.Field(ColIsVariable).(*array.BooleanBuilder),
		scale:      b.Field(ColScale).(*array.ListBuilder),
		zeroPoint:  b.Field(ColZeroPoint).(*array.ListBuilder),
	}

	var dims int
	for i, t := range tensors {
		n, err := rb.append(t)
		if err != nil {
			return nil, xerrors.Errorf("columnar: tensor %d: %w", i, err)
		}
		dims += n
	}

	rec := b.NewRecord()
	Logger().Debug("exported tensors",
		zap.Int64("rows", rec.NumRows()),
		zap.Int("shape_values", dims))
	return rec, nil
}

type rowBuilder struct {
	name       *array.StringBuilder
	typ        *array.Int8Builder
	buffer     *array.Uint32Builder
	shape      *array.ListBuilder
	isVariable *array.BooleanBuilder
	scale      *array.ListBuilder
	zeroPoint  *array.ListBuilder
}

// append decodes t fully before touching any builder so that a failed
// tensor leaves no partial row behind. It returns the tensor's rank.
func (rb *rowBuilder) append(t *tflite.Tensor) (int, error) {
	row, err := t.UnPack()
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, xerrors.New("nil tensor")
	}
	_, hasName, err := t.Name()
	if err != nil {
		return 0, err
	}

	if hasName {
		rb.name.Append(row.Name)
	} else {
		rb.name.AppendNull()
	}
	rb.typ.Append(int8(row.Type))
	rb.buffer.Append(row.Buffer)
	rb.isVariable.Append(row.IsVariable)

	if row.Shape == nil {
		rb.shape.AppendNull()
	} else {
		rb.shape.Append(true)
		rb.shape.ValueBuilder().(*array.Int32Builder).AppendValues(row.Shape, nil)
	}

	var scale []float32
	var zeroPoint []int64
	if q := row.Quantization; q != nil {
		scale, zeroPoint = q.Scale, q.ZeroPoint
	}
	if scale == nil {
		rb.scale.AppendNull()
	} else {
		rb.scale.Append(true)
		rb.scale.ValueBuilder().(*array.Float32Builder).AppendValues(scale, nil)
	}
	if zeroPoint == nil {
		rb.zeroPoint.AppendNull()
	} else {
		rb.zeroPoint.Append(true)
		rb.zeroPoint.ValueBuilder().(*array.Int64Builder).AppendValues(zeroPoint, nil)
	}
	return len(row.Shape), nil
}

// Shape returns row i of the shape column of a record built by
// TensorRecord, or nil when the shape is null. The slice aliases the
// record's memory.
func Shape(rec arrow.Record, i int) []int32 {
	col := rec.Column(ColShape).(*array.List)
	if col.IsNull(i) {
		return nil
	}
	start, end := col.ValueOffsets(i)
	return col.ListValues().(*array.Int32).Int32Values()[start:end]
}

// WriteSummary prints every column of rec, one per line.
func WriteSummary(w io.Writer, rec arrow.Record) error {
	for i := 0; i < int(rec.NumCols()); i++ {
		if _, err := fmt.Fprintf(w, "%-11s %v\n", rec.ColumnName(i), rec.Column(i)); err != nil {
			return err
		}
	}
	return nil
}
