package fsha

import (
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

// ShaderOption is a named switch whose choice is packed into a program's
// key row. The choice index of a program is
// (word & BitMask) >> BitShift, where word is the key word at WordIndex.
type ShaderOption struct {
	Name string `json:"name"`
	// Choices maps choice name to the raw value the shader compiler saw.
	// Key order is choice index order.
	Choices *resbin.Dict[uint32] `json:"choices"`

	DefaultChoiceIndex uint8  `json:"default_choice_index"`
	BranchOffset       uint16 `json:"branch_offset"`
	Flag               uint8  `json:"flag"`
	// KeyOffset is subtracted from WordIndex for dynamic options, whose
	// words follow the static words of the row.
	KeyOffset uint8  `json:"key_offset"`
	WordIndex uint8  `json:"word_index"`
	BitShift  uint8  `json:"bit_shift"`
	BitMask   uint32 `json:"bit_mask"`
}

// DefaultChoice is the name of the default choice.
func (o *ShaderOption) DefaultChoice() string {
	k, _ := o.Choices.Key(int(o.DefaultChoiceIndex))
	return k
}

// ChoiceNames lists the choices in index order.
func (o *ShaderOption) ChoiceNames() []string { return o.Choices.Keys() }

// Extract returns the choice index stored in a key word.
func (o *ShaderOption) Extract(word int32) int {
	return int((uint32(word) & o.BitMask) >> o.BitShift)
}

// Pack stores choice index into word and returns the new word.
func (o *ShaderOption) Pack(word int32, index int) (int32, error) {
	if index < 0 || index >= o.Choices.Len() {
		return word, fmt.Errorf("%w: %s choice %d of %d", ErrKeyOutOfRange, o.Name, index, o.Choices.Len())
	}
	v := (uint32(index) << o.BitShift) & o.BitMask
	if int(v>>o.BitShift) != index {
		return word, fmt.Errorf("%w: %s choice %d does not fit mask 0x%x", ErrKeyOutOfRange, o.Name, index, o.BitMask)
	}
	return int32(uint32(word)&^o.BitMask | v), nil
}

func (dc decodeCtx) decodeOption(s *resbin.Session) (*ShaderOption, error) {
	r := s.Reader()
	o := &ShaderOption{}
	var (
		name        string
		keys        []string
		valuesAt    int64
		hasValues   bool
		choiceCount uint8
		err         error
	)
	readRefs := func() error {
		if name, err = s.String(); err != nil {
			return fmt.Errorf("name: %w", err)
		}
		if keys, err = resbin.LoadDictKeys(s); err != nil {
			return fmt.Errorf("choices: %w", err)
		}
		valuesAt, hasValues = s.Offset()
		return nil
	}
	readBits := func() {
		choiceCount = r.U8()
		o.DefaultChoiceIndex = r.U8()
		o.BranchOffset = r.U16()
		o.Flag = r.U8()
		o.KeyOffset = r.U8()
		o.WordIndex = r.U8()
		o.BitShift = r.U8()
		o.BitMask = r.U32()
	}

	if dc.nx() {
		if err := readRefs(); err != nil {
			return nil, err
		}
		readBits()
		r.U32()
	} else {
		readBits()
		if err := readRefs(); err != nil {
			return nil, err
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	o.Name = name

	var values []uint32
	if hasValues && choiceCount > 0 {
		if values, err = resbin.LoadUint32s(s, valuesAt, int(choiceCount)); err != nil {
			return nil, fmt.Errorf("%s choice values: %w", name, err)
		}
	}
	o.Choices = resbin.NewDict[uint32]()
	for i, k := range keys {
		v := uint32(i)
		if i < len(values) {
			v = values[i]
		}
		o.Choices.Set(k, v)
	}
	return o, nil
}
