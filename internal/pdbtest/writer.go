// Package pdbtest builds synthetic CodeView records, TPI streams and MSF
// images for tests.
package pdbtest

import (
	"encoding/binary"
)

// Writer appends little-endian values to a byte buffer.
type Writer struct {
	buf []byte
}

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) U64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

// Str appends s followed by a NUL terminator.
func (w *Writer) Str(s string) *Writer {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w
}

func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Numeric appends v as a CodeView numeric leaf, inline when it fits.
func (w *Writer) Numeric(v uint64) *Writer {
	switch {
	case v < 0x8000:
		return w.U16(uint16(v))
	case v <= 0xFFFF:
		return w.U16(0x8002).U16(uint16(v))
	case v <= 0xFFFFFFFF:
		return w.U16(0x8004).U32(uint32(v))
	default:
		return w.U16(0x800a).U64(v)
	}
}

// Pad appends zero bytes until the length is a multiple of n.
func (w *Writer) Pad(n int) *Writer {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
	return w
}

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Bytes() []byte { return w.buf }

// Record frames data as a CodeView record: u16 length, u16 kind, payload.
func Record(kind uint16, data []byte) []byte {
	w := &Writer{}
	w.U16(uint16(len(data) + 2)).U16(kind).Raw(data)
	return w.Bytes()
}

// Symbol frames a symbol record and pads it to a four byte boundary.
func Symbol(kind uint16, data []byte) []byte {
	w := &Writer{}
	w.Raw(data)
	for (w.Len()+4)%4 != 0 {
		w.U8(0)
	}
	return Record(kind, w.Bytes())
}
