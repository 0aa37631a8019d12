package resbin

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer builds a container image in memory. Offset fields are reserved
// as slots and patched once their target address is known.
type Writer struct {
	buf    []byte
	order  byteOrder
	layout Layout
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Slot is the position of a reserved offset field.
type Slot int64

// NewWriter returns a writer for order, which must be binary.BigEndian or
// binary.LittleEndian.
func NewWriter(order binary.ByteOrder, layout Layout) *Writer {
	bo, ok := order.(byteOrder)
	if !ok {
		panic(fmt.Sprintf("resbin: byte order %v cannot append", order))
	}
	return &Writer{order: bo, layout: layout}
}

func (w *Writer) Pos() int64              { return int64(len(w.buf)) }
func (w *Writer) Bytes() []byte           { return w.buf }
func (w *Writer) Order() binary.ByteOrder { return w.order }
func (w *Writer) Layout() Layout          { return w.layout }

func (w *Writer) U8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) I8(v int8)    { w.U8(uint8(v)) }
func (w *Writer) U16(v uint16) { w.buf = w.order.AppendUint16(w.buf, v) }
func (w *Writer) I16(v int16)  { w.U16(uint16(v)) }
func (w *Writer) U32(v uint32) { w.buf = w.order.AppendUint32(w.buf, v) }
func (w *Writer) I32(v int32)  { w.U32(uint32(v)) }
func (w *Writer) U64(v uint64) { w.buf = w.order.AppendUint64(w.buf, v) }
func (w *Writer) I64(v int64)  { w.U64(uint64(v)) }
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *Writer) Signature(sig string) { w.buf = append(w.buf, sig...) }

func (w *Writer) Zeros(n int) {
	for range n {
		w.buf = append(w.buf, 0)
	}
}

// Align pads with zeros to the next multiple of n.
func (w *Writer) Align(n int) {
	if n <= 1 {
		return
	}
	if rem := len(w.buf) % n; rem != 0 {
		w.Zeros(n - rem)
	}
}

// ByteOrderMark writes the mark for the writer's order, big-endian.
func (w *Writer) ByteOrderMark() {
	if w.order == binary.BigEndian {
		w.buf = binary.BigEndian.AppendUint16(w.buf, 0xFEFF)
	} else {
		w.buf = binary.BigEndian.AppendUint16(w.buf, 0xFFFE)
	}
}

func (w *Writer) PutU32At(pos int64, v uint32) { w.order.PutUint32(w.buf[pos:], v) }
func (w *Writer) PutU64At(pos int64, v uint64) { w.order.PutUint64(w.buf[pos:], v) }

// Offset reserves an offset field. Left unpatched it reads back as absent.
func (w *Writer) Offset() Slot {
	s := Slot(w.Pos())
	w.Zeros(int(w.layout.Pointer.Size()))
	return s
}

// Patch points slot at target.
func (w *Writer) Patch(slot Slot, target int64) error {
	switch w.layout.Pointer {
	case Absolute64:
		w.PutU64At(int64(slot), uint64(target))
	default:
		v := target - (int64(slot) + 4)
		if v == 0 || v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: slot 0x%x target 0x%x", ErrBadOffset, slot, target)
		}
		w.PutU32At(int64(slot), uint32(int32(v)))
	}
	return nil
}

// Reach pads the image so that the next write is addressable from slot.
// A relative offset cannot name the byte right after its own field.
func (w *Writer) Reach(slot Slot) {
	if w.layout.Pointer == Relative32 && w.Pos() == int64(slot)+4 {
		w.Zeros(4)
	}
}

// OffsetTo writes an offset field resolving to target.
func (w *Writer) OffsetTo(target int64) error {
	return w.Patch(w.Offset(), target)
}

// String appends s in the layout's string coding and returns the address
// offsets to it must resolve to.
func (w *Writer) String(s string) (int64, error) {
	t := w.layout.Text
	raw, err := t.encode(s)
	if err != nil {
		return 0, fmt.Errorf("encode %q: %w", s, err)
	}
	if t.Coding == LengthPrefixed16 {
		w.Align(2)
	}
	addr := w.Pos()
	if t.Coding == LengthPrefixed16 {
		if len(raw) > math.MaxUint16 {
			return 0, fmt.Errorf("string of %d bytes exceeds u16 length", len(raw))
		}
		w.U16(uint16(len(raw)))
	}
	w.Raw(raw)
	w.Zeros(t.unitSize())
	return addr, nil
}

// StringAt appends s and patches slot to it. Empty strings leave the slot
// absent.
func (w *Writer) StringAt(slot Slot, s string) error {
	if s == "" {
		return nil
	}
	w.Reach(slot)
	addr, err := w.String(s)
	if err != nil {
		return err
	}
	return w.Patch(slot, addr)
}

// Dict appends a dictionary over keys in the layout's dictionary format
// and returns its address. For linked dictionaries the returned slots are
// the per-key data offsets, in key order, for the caller to patch.
func (w *Writer) Dict(keys []string) (int64, []Slot, error) {
	nodes, err := buildTrie(keys)
	if err != nil {
		return 0, nil, err
	}
	linked := w.layout.Dict == DictLinked
	w.Align(4)
	addr := w.Pos()
	if linked {
		nodeSize := 8 + 2*w.layout.Pointer.Size()
		w.U32(uint32(8 + int64(len(nodes))*nodeSize))
	} else {
		w.Signature(dictSignature)
	}
	w.I32(int32(len(keys)))
	keySlots := make([]Slot, len(nodes))
	data := make([]Slot, 0, len(keys))
	for i, n := range nodes {
		w.U32(n.ref)
		w.U16(n.left)
		w.U16(n.right)
		keySlots[i] = w.Offset()
		if linked {
			slot := w.Offset()
			if i > 0 {
				data = append(data, slot)
			}
		}
	}
	for i, k := range keys {
		if err := w.StringAt(keySlots[i+1], k); err != nil {
			return 0, nil, err
		}
	}
	w.Align(4)
	return addr, data, nil
}

type trieNode struct {
	ref         uint32
	left, right uint16
	key         string
}

// bitAt numbers bits from the last byte of the key upwards.
func bitAt(key string, bit int) int {
	i := bit >> 3
	if i >= len(key) {
		return 0
	}
	return int(key[len(key)-1-i]>>(bit&7)) & 1
}

func firstDiff(a, b string) int {
	n := max(len(a), len(b)) * 8
	for i := 0; i < n; i++ {
		if bitAt(a, i) != bitAt(b, i) {
			return i
		}
	}
	return -1
}

// ref compares as a signed value so the root (0xFFFFFFFF) sorts first.
func (n trieNode) bit() int { return int(int32(n.ref)) }

func (n trieNode) child(key string) uint16 {
	if bitAt(key, n.bit()) == 1 {
		return n.right
	}
	return n.left
}

// buildTrie lays out the Patricia trie the dictionary formats store. Node
// 0 is the root with an empty key; node i+1 holds keys[i].
func buildTrie(keys []string) ([]trieNode, error) {
	if len(keys) > math.MaxUint16-1 {
		return nil, fmt.Errorf("%w: %d keys", ErrBadDict, len(keys))
	}
	nodes := make([]trieNode, 1, len(keys)+1)
	nodes[0] = trieNode{ref: math.MaxUint32}
	for _, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrBadDict)
		}
		parent, cur := 0, int(nodes[0].left)
		for nodes[parent].bit() < nodes[cur].bit() {
			parent, cur = cur, int(nodes[cur].child(key))
		}
		diff := firstDiff(key, nodes[cur].key)
		if diff < 0 {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrBadDict, key)
		}

		parent, cur = 0, int(nodes[0].left)
		for nodes[parent].bit() < nodes[cur].bit() && nodes[cur].bit() < diff {
			parent, cur = cur, int(nodes[cur].child(key))
		}

		idx := uint16(len(nodes))
		n := trieNode{ref: uint32(diff), key: key}
		if bitAt(key, diff) == 1 {
			n.left, n.right = uint16(cur), idx
		} else {
			n.left, n.right = idx, uint16(cur)
		}
		nodes = append(nodes, n)

		switch {
		case parent == 0:
			nodes[0].left = idx
		case bitAt(key, nodes[parent].bit()) == 1:
			nodes[parent].right = idx
		default:
			nodes[parent].left = idx
		}
	}
	return nodes, nil
}
