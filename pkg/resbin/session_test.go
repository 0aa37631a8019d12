package resbin

import (
	"encoding/binary"
	"errors"
	"testing"
)

type pair struct {
	A uint16
	B uint16
}

func decodePair(s *Session) (*pair, error) {
	r := s.Reader()
	return &pair{A: r.U16(), B: r.U16()}, nil
}

func TestRelativeOffsetResolvesPastField(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		pos int
		v   uint32
	}{{0, 8}, {12, 4}, {4, 0x100}} {
		data := make([]byte, 0x200)
		binary.BigEndian.PutUint32(data[tc.pos:], tc.v)
		s := NewSession(NewReader(data, binary.BigEndian), CafeLayout())
		s.Reader().Seek(int64(tc.pos))
		addr, ok := s.Offset()
		if !ok {
			t.Fatalf("offset at %d reported absent", tc.pos)
		}
		if want := int64(tc.pos) + 4 + int64(tc.v); addr != want {
			t.Fatalf("offset at %d: got 0x%x want 0x%x", tc.pos, addr, want)
		}
		if s.Reader().Pos() != int64(tc.pos)+4 {
			t.Fatalf("cursor after offset: got %d want %d", s.Reader().Pos(), tc.pos+4)
		}
	}
}

func TestRelativeOffsetHighBitIsBackward(t *testing.T) {
	t.Parallel()

	data := make([]byte, 0x200)
	binary.BigEndian.PutUint32(data[0x100:], 0xFFFFFFF8)
	binary.BigEndian.PutUint32(data[0x10:], 0x80000000)
	s := NewSession(NewReader(data, binary.BigEndian), CafeLayout())

	s.Reader().Seek(0x100)
	addr, ok := s.Offset()
	if !ok || addr != 0xFC {
		t.Fatalf("offset 0xFFFFFFF8 at 0x100: got 0x%x, %v want 0xfc", addr, ok)
	}

	s.Reader().Seek(0x10)
	addr, ok = s.Offset()
	if !ok || addr != 0x14-0x80000000 {
		t.Fatalf("offset 0x80000000 at 0x10: got 0x%x, %v", addr, ok)
	}
	s.Reader().Seek(0x10)
	if _, err := Load(s, decodePair); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("load before stream start: got %v want ErrOutOfBounds", err)
	}
}

func TestZeroOffsetIsAbsent(t *testing.T) {
	t.Parallel()

	for _, layout := range []Layout{CafeLayout(), NXLayout()} {
		s := NewSession(NewReader(make([]byte, 16), binary.LittleEndian), layout)
		if _, ok := s.Offset(); ok {
			t.Fatalf("zero offset resolved for pointer kind %d", layout.Pointer)
		}
		v, err := Load(s, decodePair)
		if err != nil || v != nil {
			t.Fatalf("load through zero offset: got %v, %v", v, err)
		}
	}
}

func TestWriterOffsetRoundTrip(t *testing.T) {
	t.Parallel()

	for _, layout := range []Layout{CafeLayout(), NXLayout()} {
		w := NewWriter(binary.BigEndian, layout)
		w.U32(0xAABBCCDD)
		slot := w.Offset()
		w.Zeros(6)
		target := w.Pos()
		w.U16(7)
		w.U16(9)
		if err := w.Patch(slot, target); err != nil {
			t.Fatalf("patch: %v", err)
		}

		s := NewSession(NewReader(w.Bytes(), binary.BigEndian), layout)
		s.Reader().Seek(int64(slot))
		got, err := Load(s, decodePair)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.A != 7 || got.B != 9 {
			t.Fatalf("record: got %+v", *got)
		}
		if s.Reader().Pos() != int64(slot)+layout.Pointer.Size() {
			t.Fatalf("cursor not restored after load: got %d", s.Reader().Pos())
		}
	}
}

func TestSharedAddressDecodesOnce(t *testing.T) {
	t.Parallel()

	w := NewWriter(binary.LittleEndian, NXLayout())
	first := w.Offset()
	second := w.Offset()
	target := w.Pos()
	w.U16(1)
	w.U16(2)
	if err := w.Patch(first, target); err != nil {
		t.Fatalf("patch first: %v", err)
	}
	if err := w.Patch(second, target); err != nil {
		t.Fatalf("patch second: %v", err)
	}

	s := NewSession(NewReader(w.Bytes(), binary.LittleEndian), NXLayout())
	a, err := Load(s, decodePair)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	b, err := Load(s, decodePair)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if a != b {
		t.Fatalf("shared address produced distinct records")
	}
	if s.CacheHits() != 1 {
		t.Fatalf("cache hits: got %d want 1", s.CacheHits())
	}

	other := NewSession(NewReader(w.Bytes(), binary.LittleEndian), NXLayout())
	c, err := Load(other, decodePair)
	if err != nil {
		t.Fatalf("load in second session: %v", err)
	}
	if c == a {
		t.Fatalf("cache leaked across sessions")
	}
}

func TestCacheHitAdvancesCursor(t *testing.T) {
	t.Parallel()

	data := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	s := NewSession(NewReader(data, binary.LittleEndian), NXLayout())
	list, err := LoadList(s, 0, 2, decodePair)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	again, err := LoadList(s, 0, 2, decodePair)
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if list[0] != again[0] || list[1] != again[1] {
		t.Fatalf("list elements not shared")
	}
	if again[1].A != 3 {
		t.Fatalf("second element: got %+v", *again[1])
	}
}

func TestAtRestoresCursorOnError(t *testing.T) {
	t.Parallel()

	s := NewSession(NewReader(make([]byte, 32), binary.LittleEndian), NXLayout())
	s.Reader().Seek(5)
	boom := errors.New("boom")
	err := s.At(16, func() error {
		s.Reader().U32()
		return s.At(24, func() error {
			s.Reader().U16()
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error: got %v", err)
	}
	if s.Reader().Pos() != 5 {
		t.Fatalf("cursor: got %d want 5", s.Reader().Pos())
	}
}

func TestDecodeErrorCarriesOffset(t *testing.T) {
	t.Parallel()

	s := NewSession(NewReader(make([]byte, 6), binary.LittleEndian), NXLayout())
	_, err := LoadList(s, 2, 2, decodePair)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("error: got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if de.Record != "pair" || de.Offset != 6 {
		t.Fatalf("decode error: got %s at %d", de.Record, de.Offset)
	}
	if s.Reader().Pos() != 0 {
		t.Fatalf("cursor: got %d want 0", s.Reader().Pos())
	}
}

func TestStringTable(t *testing.T) {
	t.Parallel()

	w := NewWriter(binary.BigEndian, CafeLayout())
	slots := []Slot{w.Offset(), w.Offset(), w.Offset()}
	if err := w.StringAt(slots[0], "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := w.StringAt(slots[2], "gamma"); err != nil {
		t.Fatal(err)
	}

	s := NewSession(NewReader(w.Bytes(), binary.BigEndian), CafeLayout())
	got, err := LoadStrings(s, 0, 3)
	if err != nil {
		t.Fatalf("strings: %v", err)
	}
	want := []string{"alpha", "", "gamma"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("string %d: got %q want %q", i, got[i], want[i])
		}
	}
}
