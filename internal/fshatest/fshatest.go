// Package fshatest builds small but complete shader archives for tests.
package fshatest

import (
	"testing"

	"github.com/samcharles93/fsha/pkg/bnsh"
	"github.com/samcharles93/fsha/pkg/fsha"
	"github.com/samcharles93/fsha/pkg/resbin"
)

// ModelName is the single shader model of every fixture archive.
const ModelName = "scene"

func choices(names ...string) *resbin.Dict[uint32] {
	d := resbin.NewDict[uint32]()
	for i, n := range names {
		d.Set(n, uint32(i))
	}
	return d
}

// Container returns an archive with one model of two programs:
// program 0 is {Quality: Low, Fog: Off} and program 1 is
// {Quality: High, Fog: On}. NX archives embed a BNSH container with one
// variation per program.
func Container(tb testing.TB, platform fsha.Platform) *fsha.Container {
	tb.Helper()

	static := resbin.NewDict[*fsha.ShaderOption]()
	static.Set("Quality", &fsha.ShaderOption{Name: "Quality", Choices: choices("Low", "High"), BitMask: 0x1})
	static.Set("Fog", &fsha.ShaderOption{Name: "Fog", Choices: choices("Off", "On"), BitMask: 0x2, BitShift: 1, DefaultChoiceIndex: 1})

	diffuse := &fsha.UniformVar{Name: "cDiffuse", Offset: 0}
	uniforms := resbin.NewDict[*fsha.UniformVar]()
	uniforms.Set("cDiffuse", diffuse)
	blocks := resbin.NewDict[*fsha.UniformBlock]()
	blocks.Set("gsys_material", &fsha.UniformBlock{Type: fsha.BlockMaterial, Size: 16, Uniforms: uniforms})

	attrs := resbin.NewDict[*fsha.Attribute]()
	attrs.Set("_p0", &fsha.Attribute{Index: 0})
	samplers := resbin.NewDict[*fsha.Sampler]()
	samplers.Set("_a0", &fsha.Sampler{Index: 0, Annotation: "albedo"})

	m := &fsha.ShaderModel{
		Name:            ModelName,
		StaticOptions:   static,
		DynamicOptions:  resbin.NewDict[*fsha.ShaderOption](),
		Attributes:      attrs,
		Samplers:        samplers,
		UniformBlocks:   blocks,
		UniformVars:     []*fsha.UniformVar{diffuse},
		StaticKeyLength: 1,
		KeyTable:        []int32{0, 3},
		Programs: []*fsha.ShaderProgram{
			{UsedAttributeFlags: 1},
			{UsedAttributeFlags: 1, Flags: 1},
		},
	}

	c := &fsha.Container{
		Platform: platform,
		Name:     ModelName,
		Path:     "shader/" + ModelName + ".bfsha",
		Models:   resbin.NewDict[*fsha.ShaderModel](),
	}
	switch platform {
	case fsha.PlatformNX:
		c.Version = fsha.NewVersion(2, 8, 0, 0)
		c.Alignment = 12
		c.AddressSize = 64
		raw, offsets, err := bnsh.Encode(EmbeddedFile())
		if err != nil {
			tb.Fatalf("encode embedded container: %v", err)
		}
		m.SetEmbedded(raw)
		for i, p := range m.Programs {
			p.VariationOffset = offsets[i]
		}
	default:
		c.Version = fsha.NewVersion(3, 0, 0, 0)
		c.BigEndian = true
		c.Alignment = 0x2000
		vs := &fsha.GX2Shader{Regs: make([]uint32, 52), Mode: 1, Data: []byte{1, 2, 3, 4}}
		ps := &fsha.GX2Shader{Regs: make([]uint32, 41), Mode: 1, Data: []byte{5, 6}}
		for _, p := range m.Programs {
			p.VertexShader, p.PixelShader = vs, ps
		}
	}
	c.Models.Set(ModelName, m)
	return c
}

// EmbeddedFile is the BNSH container NX fixtures embed.
func EmbeddedFile() *bnsh.File {
	low := &bnsh.Program{Format: bnsh.FormatBinary}
	low.Stages[bnsh.StageVertex] = &bnsh.Code{Data: []byte("low-vs")}
	low.Stages[bnsh.StagePixel] = &bnsh.Code{Control: []byte{1}, Data: []byte("low-ps")}
	high := &bnsh.Program{Format: bnsh.FormatBinary}
	high.Stages[bnsh.StageVertex] = &bnsh.Code{Data: []byte("high-vs")}
	high.Stages[bnsh.StagePixel] = &bnsh.Code{Data: []byte("high-ps")}
	src := &bnsh.Program{Format: bnsh.FormatSource}
	src.Stages[bnsh.StagePixel] = &bnsh.Code{Data: []byte("void main() {}")}
	return &bnsh.File{
		Version:     0x02010C00,
		Alignment:   12,
		AddressSize: 64,
		Name:        ModelName,
		Variations: []*bnsh.Variation{
			{Binary: low},
			{Source: src, Binary: high},
		},
	}
}

// Bytes encodes Container(platform).
func Bytes(tb testing.TB, platform fsha.Platform) []byte {
	tb.Helper()
	data, err := fsha.Encode(Container(tb, platform))
	if err != nil {
		tb.Fatalf("encode fixture archive: %v", err)
	}
	return data
}
