package fsha

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/samcharles93/fsha/pkg/bnsh"
	"github.com/samcharles93/fsha/pkg/resbin"
)

// ShaderModel is one shader and all of its compiled permutations.
type ShaderModel struct {
	Name string `json:"name"`

	StaticOptions  *resbin.Dict[*ShaderOption] `json:"static_options"`
	DynamicOptions *resbin.Dict[*ShaderOption] `json:"dynamic_options"`
	Attributes     *resbin.Dict[*Attribute]    `json:"attributes"`
	Samplers       *resbin.Dict[*Sampler]      `json:"samplers"`
	UniformBlocks  *resbin.Dict[*UniformBlock] `json:"uniform_blocks"`
	UniformVars    []*UniformVar               `json:"uniform_vars"`
	Programs       []*ShaderProgram            `json:"programs"`

	// KeyTable holds one row of StaticKeyLength+DynamicKeyLength words per
	// program.
	KeyTable         []int32 `json:"key_table"`
	StaticKeyLength  uint8   `json:"static_key_length"`
	DynamicKeyLength uint8   `json:"dynamic_key_length"`

	DefaultProgramIndex int32 `json:"default_program_index"`

	// Cafe only.
	MaxRingItemSize uint8 `json:"max_ring_item_size,omitempty"`

	// NX only.
	SystemBlockIndices [4]uint8 `json:"system_block_indices"`
	StorageBufferCount uint32   `json:"storage_buffer_count,omitempty"`
	ImageCount         uint8    `json:"image_count,omitempty"`

	embedded *embedded
}

// embedded is the model's BNSH byte range, opened on first use.
type embedded struct {
	base int64
	data []byte

	once sync.Once
	file *bnsh.File
	err  error
}

// SetEmbedded attaches a BNSH image to a model built in memory. Program
// variation offsets of such a model are local to data.
func (m *ShaderModel) SetEmbedded(data []byte) {
	m.embedded = &embedded{data: data}
}

// EmbeddedBytes returns the raw embedded shader container, if any.
func (m *ShaderModel) EmbeddedBytes() []byte {
	if m.embedded == nil {
		return nil
	}
	return m.embedded.data
}

// Embedded opens the model's BNSH container. The container is decoded once
// and shared by later calls.
func (m *ShaderModel) Embedded() (*bnsh.File, error) {
	e := m.embedded
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEmbeddedContainer, m.Name)
	}
	e.once.Do(func() {
		e.file, e.err = bnsh.Decode(e.data)
	})
	return e.file, e.err
}

// Variation returns the compiled variation of program p.
func (m *ShaderModel) Variation(p *ShaderProgram) (*bnsh.Variation, error) {
	f, err := m.Embedded()
	if err != nil {
		return nil, err
	}
	if p.VariationOffset == 0 {
		return nil, fmt.Errorf("%w: program has no variation", ErrNoEmbeddedContainer)
	}
	local := p.VariationOffset - m.embedded.base
	if local < 0 || local >= int64(len(m.embedded.data)) {
		return nil, fmt.Errorf("variation offset 0x%x outside embedded container at 0x%x", p.VariationOffset, m.embedded.base)
	}
	return f.VariationAt(local)
}

// ProgramVariation returns the compiled variation of the program at index.
func (m *ShaderModel) ProgramVariation(index int) (*bnsh.Variation, error) {
	p, err := m.Program(index)
	if err != nil {
		return nil, err
	}
	return m.Variation(p)
}

// Program returns the program at index.
func (m *ShaderModel) Program(index int) (*ShaderProgram, error) {
	if index < 0 || index >= len(m.Programs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrProgramIndex, index, len(m.Programs))
	}
	return m.Programs[index], nil
}

func (dc decodeCtx) decodeModel(s *resbin.Session) (*ShaderModel, error) {
	if dc.nx() {
		return dc.decodeModelNX(s)
	}
	return dc.decodeModelCafe(s)
}

// modelCounts are the element counts a model record stores after its
// offsets.
type modelCounts struct {
	uniforms uint32
	programs uint16
}

// modelRefs are the offsets a model record resolves after its fixed part
// has been read.
type modelRefs struct {
	uniforms, programs, keys, bnsh int64
}

func (dc decodeCtx) decodeModelNX(s *resbin.Session) (*ShaderModel, error) {
	r := s.Reader()
	m := &ShaderModel{}
	var err error
	if m.Name, err = s.String(); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if err := dc.decodeModelDicts(s, m); err != nil {
		return nil, err
	}

	major2 := dc.version.Major2()
	if major2 >= 8 {
		r.Skip(16)
	}
	if m.UniformBlocks, err = resbin.LoadDictValues(s, dc.decodeUniformBlock); err != nil {
		return nil, fmt.Errorf("uniform blocks: %w", err)
	}

	var refs modelRefs
	refs.uniforms, _ = s.Offset()
	if major2 >= 7 {
		r.Skip(24)
	}
	refs.programs, _ = s.Offset()
	refs.keys, _ = s.Offset()
	s.SkipOffsets(2) // parent archive, GL shader info
	refs.bnsh, _ = s.Offset()
	s.SkipOffsets(3) // mutex, user pointer, update callback
	if major2 >= 7 {
		r.Skip(16)
	}

	var n modelCounts
	n.uniforms = r.U32()
	if major2 >= 7 {
		m.StorageBufferCount = r.U32()
	}
	m.DefaultProgramIndex = r.I32()
	r.U16() // static option count
	r.U16() // dynamic option count
	n.programs = r.U16()
	if major2 < 7 {
		r.U16()
	}
	m.StaticKeyLength = r.U8()
	m.DynamicKeyLength = r.U8()
	r.U8() // attribute count
	r.U8() // sampler count
	if major2 >= 8 {
		m.ImageCount = r.U8()
	}
	r.U8() // uniform block count
	r.U8()
	copy(m.SystemBlockIndices[:], r.Bytes(4))
	switch {
	case major2 >= 8:
		r.Skip(11)
	case major2 >= 7:
		r.Skip(4)
	default:
		r.Skip(6)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := dc.decodeModelTables(s, m, refs, n); err != nil {
		return nil, err
	}

	if refs.bnsh != 0 {
		size, err := r.PeekU32(refs.bnsh + bnsh.FileSizeOffset)
		if err != nil {
			return nil, fmt.Errorf("embedded container size: %w", err)
		}
		data, err := r.Slice(refs.bnsh, int64(size))
		if err != nil {
			return nil, fmt.Errorf("embedded container: %w", err)
		}
		m.embedded = &embedded{base: refs.bnsh, data: bytes.Clone(data)}
	}
	return m, nil
}

func (dc decodeCtx) decodeModelCafe(s *resbin.Session) (*ShaderModel, error) {
	r := s.Reader()
	m := &ShaderModel{}
	var n modelCounts
	m.StaticKeyLength = r.U8()
	m.DynamicKeyLength = r.U8()
	r.U16() // static option count
	r.U16() // dynamic option count
	n.programs = r.U16()
	r.U8() // attribute count
	r.U8() // sampler count
	r.U8() // uniform block count
	m.MaxRingItemSize = r.U8()
	r.U16()
	r.U16()
	r.U32()
	n.uniforms = r.U32()
	r.I32()
	m.DefaultProgramIndex = r.I32()

	var err error
	if m.Name, err = s.String(); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	r.U32()
	r.U32()
	if err := dc.decodeModelDicts(s, m); err != nil {
		return nil, err
	}
	if m.UniformBlocks, err = resbin.LoadDictValues(s, dc.decodeUniformBlock); err != nil {
		return nil, fmt.Errorf("uniform blocks: %w", err)
	}

	var refs modelRefs
	refs.uniforms, _ = s.Offset()
	refs.programs, _ = s.Offset()
	refs.keys, _ = s.Offset()
	s.SkipOffsets(1) // parent archive
	r.Skip(12)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, dc.decodeModelTables(s, m, refs, n)
}

// decodeModelDicts reads the option, attribute and sampler dictionaries,
// which both targets store back to back.
func (dc decodeCtx) decodeModelDicts(s *resbin.Session, m *ShaderModel) error {
	var err error
	if m.StaticOptions, err = resbin.LoadDictValues(s, dc.decodeOption); err != nil {
		return fmt.Errorf("static options: %w", err)
	}
	if m.DynamicOptions, err = resbin.LoadDictValues(s, dc.decodeOption); err != nil {
		return fmt.Errorf("dynamic options: %w", err)
	}
	if m.Attributes, err = resbin.LoadDictValues(s, dc.decodeAttribute); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	if m.Samplers, err = resbin.LoadDictValues(s, dc.decodeSampler); err != nil {
		return fmt.Errorf("samplers: %w", err)
	}
	return nil
}

func (dc decodeCtx) decodeModelTables(s *resbin.Session, m *ShaderModel, refs modelRefs, n modelCounts) error {
	var err error
	if refs.uniforms != 0 {
		if m.UniformVars, err = resbin.LoadList(s, refs.uniforms, int(n.uniforms), dc.decodeUniformVar); err != nil {
			return fmt.Errorf("uniform variables: %w", err)
		}
	}
	if refs.programs != 0 {
		if m.Programs, err = resbin.LoadList(s, refs.programs, int(n.programs), dc.decodeProgram); err != nil {
			return fmt.Errorf("programs: %w", err)
		}
	}
	if refs.keys != 0 {
		words := (int(m.StaticKeyLength) + int(m.DynamicKeyLength)) * int(n.programs)
		if m.KeyTable, err = resbin.LoadInt32s(s, refs.keys, words); err != nil {
			return fmt.Errorf("key table: %w", err)
		}
	}
	return nil
}
