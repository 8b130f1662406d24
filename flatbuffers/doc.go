// Package flatbuffers provides bounds-checked facilities to read and write
// flatbuffers objects.
//
// A flatbuffer is a single byte slice. Objects are written last-first by a
// Builder and read in place through a Table, which resolves a field number
// to a byte position by following the object's vtable:
//
//	vtable:
//	+-------------------+-------------------+-------------------+-----+
//	| vtable length (2B)| object length (2B)| field0 offset (2B)| ... |
//	+-------------------+-------------------+-------------------+-----+
//
//	object:
//	+-------------------+-------------------+-------------------+-----+
//	| vtable soffset(4B)| data for field0   | data for field1   | ... |
//	+-------------------+-------------------+-------------------+-----+
//
// Unlike the upstream runtime, every read is checked against the length of
// the buffer and reports a *DecodeError instead of panicking, so views can be
// opened over untrusted input.
package flatbuffers

// 简单来说 FlatBuffers 就是把对象数据保存在一个一维的数组中，每个对象在数组中被分为两部分：
//	元数据部分（vtable）：负责存放字段索引。
//	真实数据部分（object）：存放实际的值。
//
// 写入方向与读取方向不同：Builder 从 buffer 尾部向头部填充，Table 则按正常顺序读取，
// 因此解析时最先读到的是 root offset 和 file identifier 等概要信息。
//
// 字段在 vtable 中的位置由 schema 中的声明顺序决定：
//	vtable_field_offset = vtable_address + 4 + field_index * 2
// 其中 4 是 2B 的 vtable 大小和 2B 的 object 大小。若该位置超出 vtable 长度或存储的值为 0，
// 则字段未写入，读取方返回默认值。
