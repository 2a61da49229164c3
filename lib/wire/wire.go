// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/bureau-foundation/peersync/lib/geom"
)

// ErrShortBuffer is recorded by a Reader that was asked for more bytes
// than remain, and by a Writer whose backing buffer is too small.
var ErrShortBuffer = errors.New("wire: short buffer")

// Writer appends primitives at a moving offset. A Writer created by
// Measure has no backing buffer: every write only advances the offset,
// which is how an entity's fixed byte length is inferred from the same
// Encode method that later emits it.
type Writer struct {
	buffer    []byte
	offset    int
	measuring bool
	err       error
}

// NewWriter returns a Writer that emits into buffer starting at offset 0.
func NewWriter(buffer []byte) *Writer {
	return &Writer{buffer: buffer}
}

// Measure returns a Writer that counts bytes without storing them.
func Measure() *Writer {
	return &Writer{measuring: true}
}

// Len returns the number of bytes written (or counted) so far.
func (w *Writer) Len() int { return w.offset }

// Measuring reports whether this is a dry-run writer.
func (w *Writer) Measuring() bool { return w.measuring }

// Bytes returns the written prefix of the backing buffer. Nil for a
// measuring writer.
func (w *Writer) Bytes() []byte {
	if w.measuring {
		return nil
	}
	return w.buffer[:min(w.offset, len(w.buffer))]
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }

// reserve returns the slice for the next size bytes and advances the
// offset. It returns nil when measuring or when the buffer is full; in
// the latter case the writer records ErrShortBuffer.
func (w *Writer) reserve(size int) []byte {
	start := w.offset
	w.offset += size
	if w.measuring {
		return nil
	}
	if w.offset > len(w.buffer) {
		if w.err == nil {
			w.err = ErrShortBuffer
		}
		return nil
	}
	return w.buffer[start:w.offset]
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(x uint8) {
	if b := w.reserve(1); b != nil {
		b[0] = x
	}
}

// WriteInt16 writes a big-endian two's-complement 16-bit integer.
func (w *Writer) WriteInt16(x int16) {
	if b := w.reserve(2); b != nil {
		binary.BigEndian.PutUint16(b, uint16(x))
	}
}

// WriteFloat32 writes a big-endian IEEE 754 single.
func (w *Writer) WriteFloat32(x float32) {
	if b := w.reserve(4); b != nil {
		binary.BigEndian.PutUint32(b, math.Float32bits(x))
	}
}

// WriteFloat64 writes a big-endian IEEE 754 double.
func (w *Writer) WriteFloat64(x float64) {
	if b := w.reserve(8); b != nil {
		binary.BigEndian.PutUint64(b, math.Float64bits(x))
	}
}

// WriteFloat16 writes x quantized into two bytes over [-maxVal, maxVal]
// and returns the value the reader will decode.
func (w *Writer) WriteFloat16(x, maxVal float64) float64 {
	q := Quantize(x, maxVal)
	w.WriteInt16(q)
	return Dequantize(q, maxVal)
}

// WriteVector3 writes three float32 components and returns the vector
// as the reader will decode it.
func (w *Writer) WriteVector3(v geom.Vec3) geom.Vec3 {
	x, y, z := float32(v.X), float32(v.Y), float32(v.Z)
	w.WriteFloat32(x)
	w.WriteFloat32(y)
	w.WriteFloat32(z)
	return geom.Vec3{X: float64(x), Y: float64(y), Z: float64(z)}
}

// WriteVector3Q writes three quantized components.
func (w *Writer) WriteVector3Q(v geom.Vec3, maxVal float64) geom.Vec3 {
	return geom.Vec3{
		X: w.WriteFloat16(v.X, maxVal),
		Y: w.WriteFloat16(v.Y, maxVal),
		Z: w.WriteFloat16(v.Z, maxVal),
	}
}

// WriteQuaternion writes four float32 components in x, y, z, w order.
func (w *Writer) WriteQuaternion(q geom.Quat) geom.Quat {
	x, y, z, s := float32(q.X), float32(q.Y), float32(q.Z), float32(q.W)
	w.WriteFloat32(x)
	w.WriteFloat32(y)
	w.WriteFloat32(z)
	w.WriteFloat32(s)
	return geom.Quat{X: float64(x), Y: float64(y), Z: float64(z), W: float64(s)}
}

// WriteQuaternionQ writes four quantized components.
func (w *Writer) WriteQuaternionQ(q geom.Quat, maxVal float64) geom.Quat {
	return geom.Quat{
		X: w.WriteFloat16(q.X, maxVal),
		Y: w.WriteFloat16(q.Y, maxVal),
		Z: w.WriteFloat16(q.Z, maxVal),
		W: w.WriteFloat16(q.W, maxVal),
	}
}

// Reader consumes primitives at a moving offset. Reading past the end
// records ErrShortBuffer and yields zero values; callers check Err once
// after a sequence of reads.
type Reader struct {
	buffer []byte
	offset int
	err    error
}

// NewReader returns a Reader over buffer.
func NewReader(buffer []byte) *Reader {
	return &Reader{buffer: buffer}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.offset }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buffer) - r.offset }

func (r *Reader) take(size int) []byte {
	if r.err != nil {
		return nil
	}
	if r.offset+size > len(r.buffer) {
		r.err = ErrShortBuffer
		r.offset = len(r.buffer)
		return nil
	}
	b := r.buffer[r.offset : r.offset+size]
	r.offset += size
	return b
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadInt16 reads a big-endian 16-bit integer.
func (r *Reader) ReadInt16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.BigEndian.Uint16(b))
}

// ReadFloat32 reads a big-endian IEEE 754 single.
func (r *Reader) ReadFloat32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// ReadFloat64 reads a big-endian IEEE 754 double.
func (r *Reader) ReadFloat64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// ReadFloat16 reads a quantized value written with the same maxVal.
func (r *Reader) ReadFloat16(maxVal float64) float64 {
	return Dequantize(r.ReadInt16(), maxVal)
}

// ReadVector3 reads three float32 components.
func (r *Reader) ReadVector3() geom.Vec3 {
	x := r.ReadFloat32()
	y := r.ReadFloat32()
	z := r.ReadFloat32()
	return geom.Vec3{X: float64(x), Y: float64(y), Z: float64(z)}
}

// ReadVector3Q reads three quantized components.
func (r *Reader) ReadVector3Q(maxVal float64) geom.Vec3 {
	x := r.ReadFloat16(maxVal)
	y := r.ReadFloat16(maxVal)
	z := r.ReadFloat16(maxVal)
	return geom.Vec3{X: x, Y: y, Z: z}
}

// ReadQuaternion reads four float32 components.
func (r *Reader) ReadQuaternion() geom.Quat {
	x := r.ReadFloat32()
	y := r.ReadFloat32()
	z := r.ReadFloat32()
	w := r.ReadFloat32()
	return geom.Quat{X: float64(x), Y: float64(y), Z: float64(z), W: float64(w)}
}

// ReadQuaternionQ reads four quantized components.
func (r *Reader) ReadQuaternionQ(maxVal float64) geom.Quat {
	x := r.ReadFloat16(maxVal)
	y := r.ReadFloat16(maxVal)
	z := r.ReadFloat16(maxVal)
	w := r.ReadFloat16(maxVal)
	return geom.Quat{X: x, Y: y, Z: z, W: w}
}

// Quantize maps x in [-maxVal, maxVal] onto the int16 range as
// round(x * 32768 / maxVal). Values outside the range saturate.
func Quantize(x, maxVal float64) int16 {
	scaled := math.Round(x * 32768 / maxVal)
	switch {
	case math.IsNaN(scaled):
		return 0
	case scaled > math.MaxInt16:
		return math.MaxInt16
	case scaled < math.MinInt16:
		return math.MinInt16
	}
	return int16(scaled)
}

// Dequantize is the inverse of Quantize.
func Dequantize(q int16, maxVal float64) float64 {
	return float64(q) / 32768 * maxVal
}
