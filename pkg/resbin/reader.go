package resbin

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Reader is a random-access cursor over an in-memory (usually mmapped)
// container. Reads are sticky: after the first failure every read returns
// the zero value and Err reports the original cause, so record decoders
// can read a run of fields and check once.
type Reader struct {
	data  []byte
	pos   int64
	order binary.ByteOrder
	err   error
}

func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{data: data, order: order}
}

func (r *Reader) Len() int64                  { return int64(len(r.data)) }
func (r *Reader) Pos() int64                  { return r.pos }
func (r *Reader) Order() binary.ByteOrder     { return r.order }
func (r *Reader) SetOrder(o binary.ByteOrder) { r.order = o }
func (r *Reader) Err() error                  { return r.err }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Seek moves the cursor to an absolute position. Seeking to Len is allowed.
func (r *Reader) Seek(abs int64) {
	if r.err != nil {
		return
	}
	if abs < 0 || abs > int64(len(r.data)) {
		r.fail(fmt.Errorf("%w: seek to 0x%x (size 0x%x)", ErrOutOfBounds, abs, len(r.data)))
		return
	}
	r.pos = abs
}

func (r *Reader) Skip(n int64) { r.Seek(r.pos + n) }

// Align advances the cursor to the next multiple of n.
func (r *Reader) Align(n int64) {
	if n <= 1 {
		return
	}
	if rem := r.pos % n; rem != 0 {
		r.Skip(n - rem)
	}
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	end := r.pos + int64(n)
	if n < 0 || end > int64(len(r.data)) {
		r.fail(fmt.Errorf("%w: read %d bytes at 0x%x (size 0x%x)", ErrOutOfBounds, n, r.pos, len(r.data)))
		return nil
	}
	b := r.data[r.pos:end]
	r.pos = end
	return b
}

func (r *Reader) U8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) I8() int8 { return int8(r.U8()) }

func (r *Reader) U16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

func (r *Reader) I16() int16 { return int16(r.U16()) }

func (r *Reader) U32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) U64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return r.order.Uint64(b)
}

func (r *Reader) I64() int64 { return int64(r.U64()) }

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) []byte {
	b := r.next(n)
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

func (r *Reader) U32s(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = r.U32()
	}
	return out
}

func (r *Reader) I32s(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = r.I32()
	}
	return out
}

// Signature consumes len(want) bytes and fails when they differ.
func (r *Reader) Signature(want string) error {
	at := r.pos
	got := r.next(len(want))
	if r.err != nil {
		return r.err
	}
	if string(got) != want {
		err := fmt.Errorf("%w: got %q want %q at 0x%x", ErrSignature, got, want, at)
		r.fail(err)
		return err
	}
	return nil
}

// ByteOrderMark reads the two-byte mark (always stored big-endian) and
// switches the reader to the order it names.
func (r *Reader) ByteOrderMark() binary.ByteOrder {
	b := r.next(2)
	if b == nil {
		return r.order
	}
	switch binary.BigEndian.Uint16(b) {
	case 0xFEFF:
		r.order = binary.BigEndian
	case 0xFFFE:
		r.order = binary.LittleEndian
	default:
		r.fail(fmt.Errorf("%w: 0x%04x at 0x%x", ErrByteOrderMark, binary.BigEndian.Uint16(b), r.pos-2))
	}
	return r.order
}

// PeekU32 reads a u32 at abs without moving the cursor or touching the
// sticky error.
func (r *Reader) PeekU32(abs int64) (uint32, error) {
	if abs < 0 || abs+4 > int64(len(r.data)) {
		return 0, fmt.Errorf("%w: peek at 0x%x (size 0x%x)", ErrOutOfBounds, abs, len(r.data))
	}
	return r.order.Uint32(r.data[abs:]), nil
}

// Slice returns a zero-copy view of size bytes at start.
func (r *Reader) Slice(start, size int64) ([]byte, error) {
	if start < 0 || size < 0 || start+size > int64(len(r.data)) {
		return nil, fmt.Errorf("%w: range 0x%x+0x%x (size 0x%x)", ErrOutOfBounds, start, size, len(r.data))
	}
	return r.data[start : start+size : start+size], nil
}

// String decodes a string at the cursor in the given coding.
func (r *Reader) String(t Text) string {
	if r.err != nil {
		return ""
	}
	var raw []byte
	switch t.Coding {
	case LengthPrefixed16:
		n := r.U16()
		raw = r.next(int(n))
	default:
		raw = r.zeroTerminated(t.unitSize())
	}
	if r.err != nil {
		return ""
	}
	s, err := t.decode(raw)
	if err != nil {
		r.fail(fmt.Errorf("decode string at 0x%x: %w", r.pos, err))
		return ""
	}
	return s
}

func (r *Reader) zeroTerminated(unit int) []byte {
	start := r.pos
	for i := start; i+int64(unit) <= int64(len(r.data)); i += int64(unit) {
		if isZero(r.data[i : i+int64(unit)]) {
			r.pos = i + int64(unit)
			return r.data[start:i]
		}
	}
	r.fail(fmt.Errorf("%w: unterminated string at 0x%x", ErrOutOfBounds, start))
	return nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
