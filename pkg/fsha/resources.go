package fsha

import (
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

// Attribute is a vertex attribute input.
type Attribute struct {
	Index    uint8 `json:"index"`
	Location uint8 `json:"location"`
	GX2Type  uint8 `json:"gx2_type,omitempty"`
	GX2Count uint8 `json:"gx2_count,omitempty"`
}

// Sampler is a texture sampler slot.
type Sampler struct {
	Index      uint8  `json:"index"`
	Annotation string `json:"annotation,omitempty"`
	GX2Type    uint8  `json:"gx2_type,omitempty"`
	GX2Count   uint8  `json:"gx2_count,omitempty"`
}

// BlockType is the role of a uniform block.
type BlockType uint8

const (
	BlockNone BlockType = iota
	BlockMaterial
	BlockShape
	BlockOption
	BlockNum
)

func (t BlockType) String() string {
	switch t {
	case BlockNone:
		return "none"
	case BlockMaterial:
		return "material"
	case BlockShape:
		return "shape"
	case BlockOption:
		return "option"
	case BlockNum:
		return "num"
	default:
		return fmt.Sprintf("block(%d)", uint8(t))
	}
}

func (t BlockType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UniformBlock is a uniform buffer and the variables laid out in it.
type UniformBlock struct {
	Index    uint8                     `json:"index"`
	Type     BlockType                 `json:"type"`
	Size     uint16                    `json:"size"`
	Uniforms *resbin.Dict[*UniformVar] `json:"uniforms"`
	// Default is the block's default contents, Size bytes, when present.
	Default []byte `json:"default,omitempty"`
}

// UniformVar is one variable inside a uniform block.
type UniformVar struct {
	Name       string `json:"name"`
	Index      int32  `json:"index"`
	Offset     uint16 `json:"offset"`
	BlockIndex uint8  `json:"block_index"`

	GX2Count     uint16 `json:"gx2_count,omitempty"`
	GX2Type      uint8  `json:"gx2_type,omitempty"`
	GX2ParamType uint8  `json:"gx2_param_type,omitempty"`
}

func (dc decodeCtx) decodeAttribute(s *resbin.Session) (*Attribute, error) {
	r := s.Reader()
	a := &Attribute{Index: r.U8()}
	if !dc.nx() {
		a.GX2Type = r.U8()
		a.GX2Count = r.U8()
	}
	a.Location = r.U8()
	return a, nil
}

func (dc decodeCtx) decodeSampler(s *resbin.Session) (*Sampler, error) {
	r := s.Reader()
	smp := &Sampler{}
	var err error
	if dc.nx() {
		if smp.Annotation, err = s.String(); err != nil {
			return nil, err
		}
		smp.Index = r.U8()
		r.Skip(7)
		return smp, nil
	}
	smp.Index = r.U8()
	smp.GX2Type = r.U8()
	smp.GX2Count = r.U8()
	r.U8()
	if smp.Annotation, err = s.String(); err != nil {
		return nil, err
	}
	return smp, nil
}

func (dc decodeCtx) decodeUniformBlock(s *resbin.Session) (*UniformBlock, error) {
	r := s.Reader()
	b := &UniformBlock{}
	var (
		defaultAt  int64
		hasDefault bool
		err        error
	)
	if dc.nx() {
		if b.Uniforms, err = resbin.LoadDictValues(s, dc.decodeUniformVar); err != nil {
			return nil, fmt.Errorf("uniforms: %w", err)
		}
		defaultAt, hasDefault = s.Offset()
		b.Index = r.U8()
		b.Type = BlockType(r.U8())
		b.Size = r.U16()
		r.U16() // uniform count
		r.U16()
	} else {
		b.Index = r.U8()
		b.Type = BlockType(r.U8())
		b.Size = r.U16()
		r.U16() // uniform count
		r.U16()
		if b.Uniforms, err = resbin.LoadDict(s, dc.decodeUniformVar); err != nil {
			return nil, fmt.Errorf("uniforms: %w", err)
		}
		defaultAt, hasDefault = s.Offset()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if hasDefault && b.Size > 0 {
		err := s.At(defaultAt, func() error {
			b.Default = r.Bytes(int(b.Size))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("default buffer: %w", err)
		}
	}
	return b, nil
}

func (dc decodeCtx) decodeUniformVar(s *resbin.Session) (*UniformVar, error) {
	r := s.Reader()
	u := &UniformVar{}
	var err error
	if dc.nx() {
		if u.Name, err = s.String(); err != nil {
			return nil, err
		}
		u.Index = r.I32()
		u.Offset = r.U16()
		u.BlockIndex = r.U8()
		r.U8()
		return u, nil
	}
	u.Index = r.I32()
	u.GX2Count = r.U16()
	u.GX2Type = r.U8()
	u.BlockIndex = r.U8()
	u.Offset = r.U16()
	u.GX2ParamType = r.U8()
	r.U8()
	if u.Name, err = s.String(); err != nil {
		return nil, err
	}
	return u, nil
}
