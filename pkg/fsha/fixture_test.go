package fsha

import (
	"github.com/samcharles93/fsha/pkg/resbin"
)

func choices(names ...string) *resbin.Dict[uint32] {
	d := resbin.NewDict[uint32]()
	for i, n := range names {
		d.Set(n, uint32(i))
	}
	return d
}

func dictOf[T any](pairs ...any) *resbin.Dict[*T] {
	d := resbin.NewDict[*T]()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1].(*T))
	}
	return d
}

// keyModel has two static options sharing one key word: Quality in bit 0
// and Fog in bit 1. Program 0 is {Low, Off}, program 1 is {High, On}.
func keyModel() *ShaderModel {
	quality := &ShaderOption{Name: "Quality", Choices: choices("Low", "High"), BitMask: 0x1}
	fog := &ShaderOption{Name: "Fog", Choices: choices("Off", "On"), BitMask: 0x2, BitShift: 1}
	return &ShaderModel{
		Name:            "scene",
		StaticOptions:   dictOf[ShaderOption]("Quality", quality, "Fog", fog),
		DynamicOptions:  resbin.NewDict[*ShaderOption](),
		StaticKeyLength: 1,
		Programs:        []*ShaderProgram{{}, {}},
		KeyTable:        []int32{0, 3},
	}
}

// sampleModel is keyModel plus one dynamic option and every resource
// table populated for platform.
func sampleModel(platform Platform) *ShaderModel {
	m := keyModel()
	skinning := &ShaderOption{
		Name:               "Skinning",
		Choices:            resbin.NewDict[uint32](),
		DefaultChoiceIndex: 0,
		BranchOffset:       12,
		Flag:               1,
		KeyOffset:          4,
		WordIndex:          4,
		BitShift:           0,
		BitMask:            0x3,
	}
	skinning.Choices.Set("none", 0)
	skinning.Choices.Set("rigid", 1)
	skinning.Choices.Set("smooth", 4)
	m.DynamicOptions.Set("Skinning", skinning)
	m.DynamicKeyLength = 1
	m.KeyTable = []int32{0, 0, 3, 2}
	m.DefaultProgramIndex = 1

	pos := &Attribute{Index: 0, Location: 0}
	uv := &Attribute{Index: 1, Location: 2}
	albedo := &Sampler{Index: 0, Annotation: "albedo"}
	diffuse := &UniformVar{Name: "cDiffuse", Index: 0, Offset: 0}
	alpha := &UniformVar{Name: "cAlpha", Index: 1, Offset: 16}
	if platform == PlatformCafe {
		pos.GX2Type, pos.GX2Count = 0x0A, 1
		uv.GX2Type, uv.GX2Count = 0x07, 1
		albedo.GX2Type, albedo.GX2Count = 1, 1
		diffuse.GX2Type, diffuse.GX2Count, diffuse.GX2ParamType = 0x0A, 1, 3
		alpha.GX2Type, alpha.GX2Count = 0x01, 1
		m.MaxRingItemSize = 4
	} else {
		m.SystemBlockIndices = [4]uint8{1, 2, 0xFF, 0xFF}
	}
	m.Attributes = dictOf[Attribute]("_p0", pos, "_u0", uv)
	m.Samplers = dictOf[Sampler]("_a0", albedo)
	m.UniformVars = []*UniformVar{diffuse, alpha}

	def := make([]byte, 32)
	for i := range def {
		def[i] = byte(i)
	}
	m.UniformBlocks = dictOf[UniformBlock]("gsys_material", &UniformBlock{
		Index:    0,
		Type:     BlockMaterial,
		Size:     32,
		Uniforms: dictOf[UniformVar]("cDiffuse", diffuse, "cAlpha", alpha),
		Default:  def,
	})

	shared := []*LocationInfo{{Vertex: 2, Geometry: -1, Fragment: 2, Compute: -1}}
	m.Programs = []*ShaderProgram{
		{
			SamplerLocations:      []*LocationInfo{{Vertex: -1, Geometry: -1, Fragment: 0, Compute: -1}},
			UniformBlockLocations: shared,
			UsedAttributeFlags:    0x1,
		},
		{
			UniformBlockLocations: shared,
			UsedAttributeFlags:    0x3,
			Flags:                 1,
		},
	}
	if platform == PlatformCafe {
		regs := make([]uint32, gx2VertexRegs)
		for i := range regs {
			regs[i] = uint32(i) * 3
		}
		vs := &GX2Shader{Regs: regs, Mode: 1, Data: []byte{0x10, 0x20, 0x30, 0x40}}
		ps := &GX2Shader{Regs: make([]uint32, gx2PixelRegs), Mode: 2, Data: []byte{0xAA}}
		for _, p := range m.Programs {
			p.VertexShader = vs
			p.PixelShader = ps
		}
	}
	return m
}

func sampleContainer(platform Platform, version Version) *Container {
	c := &Container{
		Platform:  platform,
		Version:   version,
		BigEndian: platform == PlatformCafe,
		Flag:      1,
		Name:      "scene",
		Path:      "shader/scene.bfsha",
		Models:    resbin.NewDict[*ShaderModel](),
	}
	if platform == PlatformNX {
		c.Alignment = 12
		c.AddressSize = 64
	} else {
		c.Alignment = 0x2000
	}
	c.Models.Set("scene", sampleModel(platform))
	return c
}

func newTestEncoder(platform Platform, version Version) *encoder {
	return newEncoder(decodeCtx{platform: platform, version: version}, platform == PlatformCafe)
}
