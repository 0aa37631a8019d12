package fsha

import (
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

// ShaderProgram is one compiled permutation of a shader model.
type ShaderProgram struct {
	SamplerLocations       []*LocationInfo `json:"sampler_locations"`
	UniformBlockLocations  []*LocationInfo `json:"uniform_block_locations"`
	ImageLocations         []*LocationInfo `json:"image_locations,omitempty"`
	StorageBufferLocations []*LocationInfo `json:"storage_buffer_locations,omitempty"`

	UsedAttributeFlags uint32 `json:"used_attribute_flags"`
	Flags              uint16 `json:"flags"`

	// VariationOffset addresses the program's variation inside the
	// model's embedded container, in parent-archive coordinates. NX only.
	VariationOffset int64 `json:"variation_offset,omitempty"`

	// Cafe only.
	VertexShader *GX2Shader `json:"vertex_shader,omitempty"`
	PixelShader  *GX2Shader `json:"pixel_shader,omitempty"`
}

// HasAttribute reports whether the program reads vertex attribute i.
func (p *ShaderProgram) HasAttribute(i int) bool {
	if i < 0 || i > 31 {
		return false
	}
	return p.UsedAttributeFlags&(1<<uint(i)) != 0
}

// LocationInfo is the per-stage binding slot of a resource; -1 marks a
// stage that does not use it.
type LocationInfo struct {
	Vertex   int32 `json:"vertex"`
	Geometry int32 `json:"geometry"`
	Fragment int32 `json:"fragment"`
	Compute  int32 `json:"compute"`
	// Extra holds the additional stage slots of Major2 >= 8 NX archives.
	Extra []int32 `json:"extra,omitempty"`
}

// Unused is a LocationInfo bound in no stage.
func Unused() LocationInfo {
	return LocationInfo{Vertex: -1, Geometry: -1, Fragment: -1, Compute: -1}
}

// GX2Shader is a Cafe GX2 shader header: register state plus program data.
type GX2Shader struct {
	Regs []uint32 `json:"regs"`
	Mode uint32   `json:"mode"`
	Data []byte   `json:"data"`
}

const (
	gx2VertexRegs = 52
	gx2PixelRegs  = 41
)

func (dc decodeCtx) decodeLocation(s *resbin.Session) (*LocationInfo, error) {
	r := s.Reader()
	if !dc.nx() {
		return &LocationInfo{
			Vertex:   int32(r.I8()),
			Geometry: int32(r.I8()),
			Fragment: int32(r.I8()),
			Compute:  -1,
		}, nil
	}
	l := &LocationInfo{
		Vertex:   r.I32(),
		Geometry: r.I32(),
		Fragment: r.I32(),
		Compute:  r.I32(),
	}
	if dc.version.Major2() >= 8 {
		l.Extra = []int32{r.I32(), r.I32()}
	}
	return l, nil
}

func (dc decodeCtx) decodeProgram(s *resbin.Session) (*ShaderProgram, error) {
	if dc.nx() {
		return dc.decodeProgramNX(s)
	}
	return dc.decodeProgramCafe(s)
}

func (dc decodeCtx) decodeProgramNX(s *resbin.Session) (*ShaderProgram, error) {
	r := s.Reader()
	p := &ShaderProgram{}
	major2 := dc.version.Major2()

	var imagesAt, storageAt int64
	samplersAt, _ := s.Offset()
	if major2 >= 8 {
		imagesAt, _ = s.Offset()
	}
	blocksAt, _ := s.Offset()
	if major2 >= 7 {
		storageAt, _ = s.Offset()
	}
	p.VariationOffset, _ = s.Offset()
	s.SkipOffsets(1) // parent model

	var imageCount, storageCount uint16
	p.UsedAttributeFlags = r.U32()
	p.Flags = r.U16()
	samplerCount := r.U16()
	var blockCount uint16
	switch {
	case major2 >= 8:
		imageCount = r.U16()
		blockCount = r.U16()
		storageCount = r.U16()
		r.Skip(2)
	case major2 >= 7:
		blockCount = r.U16()
		storageCount = r.U16()
		r.Skip(4)
	default:
		blockCount = r.U16()
		r.Skip(6)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	var err error
	if p.SamplerLocations, err = dc.loadLocations(s, samplersAt, samplerCount); err != nil {
		return nil, fmt.Errorf("sampler locations: %w", err)
	}
	if p.UniformBlockLocations, err = dc.loadLocations(s, blocksAt, blockCount); err != nil {
		return nil, fmt.Errorf("uniform block locations: %w", err)
	}
	if p.ImageLocations, err = dc.loadLocations(s, imagesAt, imageCount); err != nil {
		return nil, fmt.Errorf("image locations: %w", err)
	}
	if p.StorageBufferLocations, err = dc.loadLocations(s, storageAt, storageCount); err != nil {
		return nil, fmt.Errorf("storage buffer locations: %w", err)
	}
	return p, nil
}

func (dc decodeCtx) decodeProgramCafe(s *resbin.Session) (*ShaderProgram, error) {
	r := s.Reader()
	p := &ShaderProgram{}
	p.Flags = r.U16()
	samplerCount := uint16(r.U8())
	blockCount := uint16(r.U8())
	p.UsedAttributeFlags = r.U32()
	r.Skip(24)
	samplersAt, _ := s.Offset()
	blocksAt, _ := s.Offset()

	var err error
	if p.VertexShader, err = resbin.Load(s, decodeGX2(gx2VertexRegs)); err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	s.SkipOffsets(1) // geometry shader
	if p.PixelShader, err = resbin.Load(s, decodeGX2(gx2PixelRegs)); err != nil {
		return nil, fmt.Errorf("pixel shader: %w", err)
	}
	s.SkipOffsets(1) // parent model
	if err := r.Err(); err != nil {
		return nil, err
	}

	if p.SamplerLocations, err = dc.loadLocations(s, samplersAt, samplerCount); err != nil {
		return nil, fmt.Errorf("sampler locations: %w", err)
	}
	if p.UniformBlockLocations, err = dc.loadLocations(s, blocksAt, blockCount); err != nil {
		return nil, fmt.Errorf("uniform block locations: %w", err)
	}
	return p, nil
}

func (dc decodeCtx) loadLocations(s *resbin.Session, addr int64, count uint16) ([]*LocationInfo, error) {
	if addr == 0 || count == 0 {
		return nil, nil
	}
	return resbin.LoadList(s, addr, int(count), dc.decodeLocation)
}

func decodeGX2(regs int) resbin.DecodeFunc[GX2Shader] {
	return func(s *resbin.Session) (*GX2Shader, error) {
		r := s.Reader()
		g := &GX2Shader{Regs: r.U32s(regs)}
		size := r.U32()
		dataAt, hasData := s.Offset()
		g.Mode = r.U32()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if hasData && size > 0 {
			err := s.At(dataAt, func() error {
				g.Data = r.Bytes(int(size))
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		return g, nil
	}
}
