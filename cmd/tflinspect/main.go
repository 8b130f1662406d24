// Command tflinspect writes and reads standalone TFLite Tensor buffers.
//
//	tflinspect build -out t.bin -shape 1,28,28,1 -type INT8 -buffer 3 -name input
//	tflinspect dump -in t.bin -verify -arrow
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sandeepkadiyam/har-tflite/columnar"
	"github.com/sandeepkadiyam/har-tflite/flatbuffers"
	"github.com/sandeepkadiyam/har-tflite/tflite"
)

var errUsage = errors.New("usage: tflinspect build|dump [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "build":
		return runBuild(args[1:], stdout, stderr)
	case "dump":
		return runDump(args[1:], stdout, stderr)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func runBuild(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		out          = fs.String("out", "", "Output file")
		shape        = fs.String("shape", "", "Dimensions, comma-separated (empty: no shape)")
		typ          = fs.String("type", "FLOAT32", "Element type, by name or code")
		buffer       = fs.Uint("buffer", 0, "Index into the model buffer list")
		name         = fs.String("name", "", "Tensor name")
		variable     = fs.Bool("variable", false, "Mark the tensor as variable")
		sizePrefixed = fs.Bool("size-prefixed", false, "Prefix the buffer with its size")
		noIdentifier = fs.Bool("no-identifier", false, "Omit the TFL3 file identifier")
		quantScale   = fs.String("quant-scale", "", "Quantization scales, comma-separated")
		quantZero    = fs.String("quant-zero-point", "", "Quantization zero points, comma-separated")
		quantDim     = fs.Int("quant-dim", 0, "Quantized dimension")
		verbose      = fs.Bool("v", false, "Debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("build: -out is required: %w", errUsage)
	}

	log := newLogger(*verbose, stderr)
	defer log.Sync() //nolint:errcheck

	var err error
	t := &tflite.TensorT{
		Buffer:     uint32(*buffer),
		Name:       *name,
		IsVariable: *variable,
	}
	if t.Type, err = parseTensorType(*typ); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if *shape != "" {
		if t.Shape, err = parseInts[int32](*shape, 32); err != nil {
			return fmt.Errorf("build: -shape: %w", err)
		}
	}
	if *quantScale != "" || *quantZero != "" {
		q := &tflite.QuantizationParametersT{QuantizedDimension: int32(*quantDim)}
		if *quantScale != "" {
			if q.Scale, err = parseFloats(*quantScale); err != nil {
				return fmt.Errorf("build: -quant-scale: %w", err)
			}
		}
		if *quantZero != "" {
			if q.ZeroPoint, err = parseInts[int64](*quantZero, 64); err != nil {
				return fmt.Errorf("build: -quant-zero-point: %w", err)
			}
		}
		t.Quantization = q
	}

	b := flatbuffers.NewBuilder(1024)
	root := t.Pack(b)
	switch {
	case *noIdentifier && *sizePrefixed:
		b.FinishSizePrefixed(root)
	case *noIdentifier:
		b.Finish(root)
	case *sizePrefixed:
		tflite.FinishSizePrefixedTensorBuffer(b, root)
	default:
		tflite.FinishTensorBuffer(b, root)
	}
	buf := b.FinishedBytes()

	if err := os.WriteFile(*out, buf, 0o644); err != nil {
		return fmt.Errorf("build: write: %w", err)
	}
	log.Debug("wrote tensor",
		zap.String("file", *out),
		zap.Int("bytes", len(buf)),
		zap.Stringer("type", t.Type),
		zap.Bool("size_prefixed", *sizePrefixed),
		zap.Bool("identifier", !*noIdentifier))
	fmt.Fprintf(stdout, "wrote %d bytes to %s\n", len(buf), *out)
	return nil
}

func runDump(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in           = fs.String("in", "", "Input file")
		offset       = fs.Uint("offset", 0, "Position of the root offset")
		sizePrefixed = fs.Bool("size-prefixed", false, "The buffer carries a size prefix")
		verify       = fs.Bool("verify", false, "Require the TFL3 file identifier")
		withArrow    = fs.Bool("arrow", false, "Also print the tensor as an Arrow record")
		verbose      = fs.Bool("v", false, "Debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("dump: -in is required: %w", errUsage)
	}

	log := newLogger(*verbose, stderr)
	defer log.Sync() //nolint:errcheck
	columnar.SetLogger(log.Named("columnar"))

	buf, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("dump: read: %w", err)
	}
	log.Debug("read buffer", zap.String("file", *in), zap.Int("bytes", len(buf)))

	off := flatbuffers.UOffsetT(*offset)
	if *verify {
		if err := tflite.VerifyTensorIdentifier(buf, off, *sizePrefixed); err != nil {
			return fmt.Errorf("dump: %w", err)
		}
	}

	var tensor *tflite.Tensor
	if *sizePrefixed {
		size, err := flatbuffers.GetSizePrefix(buf, off)
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		if int64(size)+int64(off)+flatbuffers.SizeUint32 > int64(len(buf)) {
			log.Warn("size prefix exceeds file", zap.Uint32("size", size), zap.Int("bytes", len(buf)))
		}
		tensor, err = tflite.GetSizePrefixedRootAsTensor(buf, off)
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
	} else {
		if tensor, err = tflite.GetRootAsTensor(buf, off); err != nil {
			return fmt.Errorf("dump: %w", err)
		}
	}

	if err := printTensor(stdout, tensor, tflite.TensorBufferHasIdentifier(buf, off, *sizePrefixed)); err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	if *withArrow {
		rec, err := columnar.TensorRecord(memory.NewGoAllocator(), []*tflite.Tensor{tensor})
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		defer rec.Release()
		fmt.Fprintln(stdout, "arrow:")
		if err := columnar.WriteSummary(stdout, rec); err != nil {
			return fmt.Errorf("dump: %w", err)
		}
	}
	return nil
}

func printTensor(w io.Writer, tensor *tflite.Tensor, identified bool) error {
	t, err := tensor.UnPack()
	if err != nil {
		return err
	}
	_, hasName, err := tensor.Name()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "identifier:   %v\n", identified)
	if hasName {
		fmt.Fprintf(w, "name:         %q\n", t.Name)
	} else {
		fmt.Fprintln(w, "name:         <absent>")
	}
	fmt.Fprintf(w, "type:         %v\n", t.Type)
	fmt.Fprintf(w, "buffer:       %d\n", t.Buffer)
	if t.Shape == nil {
		fmt.Fprintln(w, "shape:        <absent>")
	} else {
		fmt.Fprintf(w, "shape:        %v\n", t.Shape)
	}
	fmt.Fprintf(w, "is_variable:  %v\n", t.IsVariable)

	q := t.Quantization
	if q == nil {
		fmt.Fprintln(w, "quantization: <absent>")
		return nil
	}
	fmt.Fprintf(w, "quantization: scale=%v zero_point=%v min=%v max=%v quantized_dimension=%d\n",
		q.Scale, q.ZeroPoint, q.Min, q.Max, q.QuantizedDimension)
	if q.CustomDetails != nil {
		fmt.Fprintf(w, "custom:       %d bytes\n", len(q.CustomDetails))
	}
	return nil
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core)
}

func parseTensorType(s string) (tflite.TensorType, error) {
	if v, ok := tflite.EnumValuesTensorType[strings.ToUpper(s)]; ok {
		return v, nil
	}
	n, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown tensor type %q", s)
	}
	return tflite.TensorType(n), nil
}

func parseInts[T int32 | int64](s string, bits int) ([]T, error) {
	parts := strings.Split(s, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, bits)
		if err != nil {
			return nil, err
		}
		out = append(out, T(v))
	}
	return out, nil
}

func parseFloats(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out = append(out, float32(v))
	}
	return out, nil
}
