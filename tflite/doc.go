// Package tflite reads and writes the TFLite Tensor table and its nested
// QuantizationParameters directly inside a flatbuffer, without decoding the
// buffer into Go values first.
//
// Every getter resolves its field through the table's vtable on each call
// and falls back to the schema default when the field was omitted. Getters
// return an error when the buffer is too short for the position they
// compute; they never read outside the buffer.
//
// Strings and the *Bytes accessors return memory borrowed from the buffer.
// The *AsArray accessors return decoded copies.
package tflite
