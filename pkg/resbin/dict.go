package resbin

import (
	"bytes"
	"fmt"
	"iter"

	"github.com/goccy/go-json"
)

// Dict is an insertion-ordered name to value map. Position in the dict is
// meaningful: option choices are addressed by index.
type Dict[T any] struct {
	keys   []string
	values []T
	index  map[string]int
}

func NewDict[T any]() *Dict[T] {
	return &Dict[T]{index: make(map[string]int)}
}

// Set appends key, or replaces its value when it already exists.
func (d *Dict[T]) Set(key string, v T) {
	if i, ok := d.index[key]; ok {
		d.values[i] = v
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, v)
}

func (d *Dict[T]) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

func (d *Dict[T]) Get(key string) (T, bool) {
	var zero T
	if d == nil {
		return zero, false
	}
	i, ok := d.index[key]
	if !ok {
		return zero, false
	}
	return d.values[i], true
}

// IndexOf returns the position of key, or -1.
func (d *Dict[T]) IndexOf(key string) int {
	if d == nil {
		return -1
	}
	if i, ok := d.index[key]; ok {
		return i
	}
	return -1
}

// Key returns the key at position i.
func (d *Dict[T]) Key(i int) (string, bool) {
	if d == nil || i < 0 || i >= len(d.keys) {
		return "", false
	}
	return d.keys[i], true
}

// At returns the value at position i.
func (d *Dict[T]) At(i int) (T, bool) {
	var zero T
	if d == nil || i < 0 || i >= len(d.values) {
		return zero, false
	}
	return d.values[i], true
}

func (d *Dict[T]) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

func (d *Dict[T]) Values() []T {
	if d == nil {
		return nil
	}
	return append([]T(nil), d.values...)
}

func (d *Dict[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		if d == nil {
			return
		}
		for i, k := range d.keys {
			if !yield(k, d.values[i]) {
				return
			}
		}
	}
}

// MarshalJSON writes the dict as a JSON object in key order.
func (d *Dict[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(d.values[i])
		if err != nil {
			return nil, fmt.Errorf("dict value %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type dictEntry struct {
	key  string
	data int64
	has  bool
}

const dictSignature = "_DIC"

// readDictEntries decodes the dictionary at addr and returns its entries in
// stored order, root excluded.
func readDictEntries(s *Session, addr int64) ([]dictEntry, error) {
	var out []dictEntry
	err := s.At(addr, func() error {
		r := s.r
		linked := s.layout.Dict == DictLinked
		if linked {
			r.U32() // byte size
		} else if err := r.Signature(dictSignature); err != nil {
			return err
		}
		count := r.I32()
		if r.Err() != nil {
			return r.Err()
		}
		if count < 0 || int64(count) > r.Len()/16 {
			return fmt.Errorf("%w: %d entries", ErrBadDict, count)
		}
		out = make([]dictEntry, 0, count)
		for i := int32(0); i <= count; i++ {
			r.U32() // reference bit
			r.U16() // left
			r.U16() // right
			key, err := s.String()
			if err != nil {
				return fmt.Errorf("dict node %d key: %w", i, err)
			}
			var e dictEntry
			e.key = key
			if linked {
				e.data, e.has = s.Offset()
			}
			if i > 0 {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap("Dict", addr, err)
	}
	return out, nil
}

// DictKeysAt returns the keys of the dictionary at addr in order.
func DictKeysAt(s *Session, addr int64) ([]string, error) {
	entries, err := readDictEntries(s, addr)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys, nil
}

// LoadDictKeys reads an offset field and returns the keys of the dictionary
// it points at. An absent dictionary has no keys.
func LoadDictKeys(s *Session) ([]string, error) {
	addr, ok := s.Offset()
	if !ok {
		return nil, s.r.Err()
	}
	return DictKeysAt(s, addr)
}

// LoadDict reads one offset field and decodes a linked dictionary whose
// nodes point at their values. An absent dictionary yields an empty Dict.
func LoadDict[T any](s *Session, decode DecodeFunc[T]) (*Dict[*T], error) {
	out := NewDict[*T]()
	addr, ok := s.Offset()
	if !ok {
		return out, s.r.Err()
	}
	if s.layout.Dict != DictLinked {
		return nil, fmt.Errorf("%w: indexed dictionary at 0x%x carries no values", ErrBadDict, addr)
	}
	entries, err := readDictEntries(s, addr)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		var v *T
		if e.has {
			v, err = LoadAt(s, e.data, decode)
			if err != nil {
				return nil, fmt.Errorf("dict value %q: %w", e.key, err)
			}
		}
		out.Set(e.key, v)
	}
	return out, nil
}

// LoadDictValues reads a values offset followed by a dictionary offset and
// zips the dictionary keys with the values in key order. Indexed layouts
// take values from the parallel array; linked layouts follow node data
// offsets and ignore the values offset.
func LoadDictValues[T any](s *Session, decode DecodeFunc[T]) (*Dict[*T], error) {
	valuesAddr, hasValues := s.Offset()
	dictAddr, hasDict := s.Offset()
	out := NewDict[*T]()
	if err := s.r.Err(); err != nil {
		return nil, err
	}
	if !hasDict {
		return out, nil
	}
	entries, err := readDictEntries(s, dictAddr)
	if err != nil {
		return nil, err
	}
	if s.layout.Dict == DictLinked {
		for _, e := range entries {
			var v *T
			if e.has {
				if v, err = LoadAt(s, e.data, decode); err != nil {
					return nil, fmt.Errorf("dict value %q: %w", e.key, err)
				}
			}
			out.Set(e.key, v)
		}
		return out, nil
	}
	var values []*T
	if hasValues {
		if values, err = LoadList(s, valuesAddr, len(entries), decode); err != nil {
			return nil, err
		}
	}
	for i, e := range entries {
		var v *T
		if i < len(values) {
			v = values[i]
		}
		out.Set(e.key, v)
	}
	return out, nil
}
