package resbin

import (
	"errors"
	"fmt"
	"reflect"
)

// PointerKind selects how offset fields are stored.
type PointerKind uint8

const (
	// Relative32 offsets are 4-byte values v read at position p that
	// resolve to p+4+v. Zero means absent.
	Relative32 PointerKind = iota
	// Absolute64 offsets are 8-byte addresses from the start of the
	// stream. Zero means absent.
	Absolute64
)

func (k PointerKind) Size() int64 {
	if k == Absolute64 {
		return 8
	}
	return 4
}

// DictFormat selects the on-disk dictionary node layout.
type DictFormat uint8

const (
	// DictIndexed nodes hold only keys; values live in a parallel array.
	DictIndexed DictFormat = iota
	// DictLinked nodes carry a data offset per key.
	DictLinked
)

// Layout is the set of encoding conventions a container family uses.
type Layout struct {
	Pointer PointerKind
	Dict    DictFormat
	Text    Text
}

// CafeLayout is the Wii U convention: self-relative 32-bit offsets,
// linked dictionaries, NUL-terminated strings.
func CafeLayout() Layout {
	return Layout{Pointer: Relative32, Dict: DictLinked, Text: UTF8(ZeroTerminated)}
}

// NXLayout is the Switch convention: absolute 64-bit pointers, indexed
// "_DIC" dictionaries, length-prefixed strings.
func NXLayout() Layout {
	return Layout{Pointer: Absolute64, Dict: DictIndexed, Text: UTF8(LengthPrefixed16)}
}

type cacheKey struct {
	addr int64
	typ  reflect.Type
}

type cacheEntry struct {
	v   any
	end int64
}

// Session is one decode pass over one stream: a cursor plus the
// address-to-record cache that makes shared references decode to the same
// instance. Sessions are not safe for concurrent use and are discarded
// when the decode returns.
type Session struct {
	r      *Reader
	layout Layout
	cache  map[cacheKey]cacheEntry
	hits   int
}

func NewSession(r *Reader, layout Layout) *Session {
	return &Session{
		r:      r,
		layout: layout,
		cache:  make(map[cacheKey]cacheEntry),
	}
}

func (s *Session) Reader() *Reader { return s.r }
func (s *Session) Layout() Layout  { return s.layout }
func (s *Session) Text() Text      { return s.layout.Text }

// CacheHits counts decodes answered from the cache.
func (s *Session) CacheHits() int { return s.hits }

// Offset reads an offset field at the cursor and resolves it to an
// absolute address. ok is false for an absent (zero) offset.
func (s *Session) Offset() (addr int64, ok bool) {
	p := s.r.Pos()
	switch s.layout.Pointer {
	case Absolute64:
		v := s.r.I64()
		return v, v != 0 && s.r.Err() == nil
	default:
		v := s.r.I32()
		if v == 0 || s.r.Err() != nil {
			return 0, false
		}
		return p + 4 + int64(v), true
	}
}

// SkipOffsets consumes n offset fields without resolving them.
func (s *Session) SkipOffsets(n int) { s.r.Skip(int64(n) * s.layout.Pointer.Size()) }

// At runs fn with the cursor at addr and restores the cursor afterwards,
// whether fn succeeds or not.
func (s *Session) At(addr int64, fn func() error) error {
	saved := s.r.Pos()
	defer func() { s.r.pos = saved }()
	s.r.Seek(addr)
	if err := s.r.Err(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.r.Err()
}

// String reads an offset field and decodes the string it points at using
// the session text context. Absent strings are empty.
func (s *Session) String() (string, error) {
	return s.StringWith(s.layout.Text)
}

// StringWith is String with an explicit text context.
func (s *Session) StringWith(t Text) (string, error) {
	addr, ok := s.Offset()
	if !ok {
		return "", s.r.Err()
	}
	var out string
	err := s.At(addr, func() error {
		out = s.r.String(t)
		return nil
	})
	return out, err
}

// DecodeFunc decodes one record at the session cursor.
type DecodeFunc[T any] func(s *Session) (*T, error)

// Decode decodes a T at the cursor through the session cache. A cache hit
// returns the earlier instance and leaves the cursor where the first
// decode ended.
func Decode[T any](s *Session, decode DecodeFunc[T]) (*T, error) {
	typ := reflect.TypeFor[T]()
	addr := s.r.Pos()
	key := cacheKey{addr: addr, typ: typ}
	if e, ok := s.cache[key]; ok {
		s.hits++
		s.r.Seek(e.end)
		return e.v.(*T), nil
	}
	v, err := decode(s)
	if err == nil {
		err = s.r.Err()
	}
	if err != nil {
		return nil, wrap(typ.Name(), addr, err)
	}
	s.cache[key] = cacheEntry{v: v, end: s.r.Pos()}
	return v, nil
}

// LoadAt decodes a T at an absolute address, restoring the cursor.
func LoadAt[T any](s *Session, addr int64, decode DecodeFunc[T]) (*T, error) {
	var out *T
	err := s.At(addr, func() error {
		v, err := Decode(s, decode)
		out = v
		return err
	})
	return out, err
}

// Load reads an offset field and decodes the T it points at. It returns
// nil for an absent offset.
func Load[T any](s *Session, decode DecodeFunc[T]) (*T, error) {
	addr, ok := s.Offset()
	if !ok {
		return nil, s.r.Err()
	}
	return LoadAt(s, addr, decode)
}

// LoadList decodes count consecutive records starting at addr.
func LoadList[T any](s *Session, addr int64, count int, decode DecodeFunc[T]) ([]*T, error) {
	if count <= 0 {
		return nil, nil
	}
	if err := s.checkCount(addr, count, 1); err != nil {
		return nil, err
	}
	out := make([]*T, 0, count)
	err := s.At(addr, func() error {
		for i := 0; i < count; i++ {
			v, err := Decode(s, decode)
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadStrings resolves a flat table of count string offsets at addr. Each
// entry is resolved on its own; absent entries are empty strings.
func LoadStrings(s *Session, addr int64, count int) ([]string, error) {
	out := make([]string, 0, count)
	err := s.At(addr, func() error {
		for i := 0; i < count; i++ {
			str, err := s.String()
			if err != nil {
				return fmt.Errorf("string %d: %w", i, err)
			}
			out = append(out, str)
		}
		return nil
	})
	return out, err
}

// LoadInt32s reads count int32 values at addr.
func LoadInt32s(s *Session, addr int64, count int) ([]int32, error) {
	if err := s.checkCount(addr, count, 4); err != nil {
		return nil, err
	}
	var out []int32
	err := s.At(addr, func() error {
		out = s.r.I32s(count)
		return nil
	})
	return out, err
}

// LoadUint32s reads count uint32 values at addr.
func LoadUint32s(s *Session, addr int64, count int) ([]uint32, error) {
	if err := s.checkCount(addr, count, 4); err != nil {
		return nil, err
	}
	var out []uint32
	err := s.At(addr, func() error {
		out = s.r.U32s(count)
		return nil
	})
	return out, err
}

// checkCount rejects element counts that cannot fit in the stream before
// anything is allocated for them.
func (s *Session) checkCount(addr int64, count int, minSize int64) error {
	if count < 0 || addr < 0 || addr+int64(count)*minSize > s.r.Len() {
		return fmt.Errorf("%w: %d elements at 0x%x", ErrOutOfBounds, count, addr)
	}
	return nil
}

func wrap(record string, addr int64, err error) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Record == record && de.Offset == addr {
		return err
	}
	return &DecodeError{Record: record, Offset: addr, Err: err}
}
