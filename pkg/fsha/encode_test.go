package fsha

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/samcharles93/fsha/pkg/bnsh"
)

func roundTrip(t *testing.T, c *Container) *Container {
	t.Helper()
	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.FileSize != uint32(len(data)) {
		t.Fatalf("FileSize = %d; want %d", got.FileSize, len(data))
	}
	return got
}

func checkModel(t *testing.T, want, got *ShaderModel) {
	t.Helper()
	if got.Name != want.Name {
		t.Fatalf("model name = %q; want %q", got.Name, want.Name)
	}
	if !slices.Equal(got.KeyTable, want.KeyTable) {
		t.Fatalf("key table = %v; want %v", got.KeyTable, want.KeyTable)
	}
	if got.StaticKeyLength != want.StaticKeyLength || got.DynamicKeyLength != want.DynamicKeyLength {
		t.Fatalf("key lengths = %d/%d", got.StaticKeyLength, got.DynamicKeyLength)
	}
	if got.DefaultProgramIndex != want.DefaultProgramIndex {
		t.Fatalf("default program = %d", got.DefaultProgramIndex)
	}

	for _, pair := range []struct {
		name      string
		want, got interface{ Keys() []string }
	}{
		{"static options", want.StaticOptions, got.StaticOptions},
		{"dynamic options", want.DynamicOptions, got.DynamicOptions},
		{"attributes", want.Attributes, got.Attributes},
		{"samplers", want.Samplers, got.Samplers},
		{"uniform blocks", want.UniformBlocks, got.UniformBlocks},
	} {
		if !slices.Equal(pair.got.Keys(), pair.want.Keys()) {
			t.Fatalf("%s = %v; want %v", pair.name, pair.got.Keys(), pair.want.Keys())
		}
	}

	skin, ok := got.DynamicOptions.Get("Skinning")
	if !ok {
		t.Fatalf("dynamic option Skinning missing")
	}
	if !slices.Equal(skin.ChoiceNames(), []string{"none", "rigid", "smooth"}) {
		t.Fatalf("choices = %v", skin.ChoiceNames())
	}
	if v, _ := skin.Choices.Get("smooth"); v != 4 {
		t.Fatalf("smooth value = %d; want 4", v)
	}
	if skin.KeyOffset != 4 || skin.WordIndex != 4 || skin.BitMask != 0x3 || skin.BranchOffset != 12 || skin.Flag != 1 {
		t.Fatalf("skinning option = %+v", skin)
	}

	for name, a := range want.Attributes.All() {
		g, _ := got.Attributes.Get(name)
		if *g != *a {
			t.Fatalf("attribute %s = %+v; want %+v", name, *g, *a)
		}
	}
	smp, _ := got.Samplers.Get("_a0")
	if smp.Annotation != "albedo" {
		t.Fatalf("sampler annotation = %q", smp.Annotation)
	}

	if len(got.UniformVars) != len(want.UniformVars) {
		t.Fatalf("uniform vars = %d", len(got.UniformVars))
	}
	for i, u := range want.UniformVars {
		if *got.UniformVars[i] != *u {
			t.Fatalf("uniform var %d = %+v; want %+v", i, *got.UniformVars[i], *u)
		}
	}
	block, _ := got.UniformBlocks.Get("gsys_material")
	wantBlock, _ := want.UniformBlocks.Get("gsys_material")
	if block.Type != BlockMaterial || block.Size != 32 || !bytes.Equal(block.Default, wantBlock.Default) {
		t.Fatalf("block = %+v", block)
	}
	if u, _ := block.Uniforms.Get("cAlpha"); u != got.UniformVars[1] {
		t.Fatalf("block uniform is not the model's uniform variable instance")
	}

	if len(got.Programs) != len(want.Programs) {
		t.Fatalf("programs = %d", len(got.Programs))
	}
	for i, p := range want.Programs {
		g := got.Programs[i]
		if g.Flags != p.Flags || g.UsedAttributeFlags != p.UsedAttributeFlags {
			t.Fatalf("program %d = %+v", i, g)
		}
		if len(g.SamplerLocations) != len(p.SamplerLocations) || len(g.UniformBlockLocations) != len(p.UniformBlockLocations) {
			t.Fatalf("program %d locations = %d/%d", i, len(g.SamplerLocations), len(g.UniformBlockLocations))
		}
	}
	if got.Programs[0].UniformBlockLocations[0] != got.Programs[1].UniformBlockLocations[0] {
		t.Fatalf("shared location list decoded twice")
	}
	if !got.Programs[1].HasAttribute(1) || got.Programs[0].HasAttribute(1) {
		t.Fatalf("attribute flags not preserved")
	}

	idx, found, err := got.ProgramIndex(map[string]string{"Quality": "High", "Fog": "On", "Skinning": "smooth"})
	if err != nil || !found || idx != 1 {
		t.Fatalf("ProgramIndex = %d, %v, %v; want 1, true, nil", idx, found, err)
	}
}

func TestRoundTripNX(t *testing.T) {
	t.Parallel()

	for _, v := range []Version{
		NewVersion(2, 6, 0, 0),
		NewVersion(2, 7, 7, 0),
		NewVersion(2, 8, 0, 0),
	} {
		c := sampleContainer(PlatformNX, v)
		got := roundTrip(t, c)
		if got.Platform != PlatformNX || got.Version != v || got.BigEndian {
			t.Fatalf("%s: header = %+v", v, got)
		}
		if got.Name != c.Name || got.Path != c.Path || got.Flag != 1 || got.AddressSize != 64 {
			t.Fatalf("%s: header = %+v", v, got)
		}
		if got.DataAlignment() != 4096 {
			t.Fatalf("%s: data alignment = %d", v, got.DataAlignment())
		}
		want, _ := c.Model("scene")
		m, ok := got.Model("scene")
		if !ok {
			t.Fatalf("%s: model missing", v)
		}
		checkModel(t, want, m)
		if m.SystemBlockIndices != want.SystemBlockIndices {
			t.Fatalf("%s: system blocks = %v", v, m.SystemBlockIndices)
		}
	}
}

func TestRoundTripCafe(t *testing.T) {
	t.Parallel()

	c := sampleContainer(PlatformCafe, NewVersion(3, 0, 0, 0))
	got := roundTrip(t, c)
	if got.Platform != PlatformCafe || !got.BigEndian || got.DataAlignment() != 0x2000 {
		t.Fatalf("header = %+v", got)
	}
	want, _ := c.Model("scene")
	m, _ := got.Model("scene")
	checkModel(t, want, m)
	if m.MaxRingItemSize != 4 {
		t.Fatalf("max ring item size = %d", m.MaxRingItemSize)
	}

	vs := m.Programs[0].VertexShader
	if vs == nil || vs.Mode != 1 || !bytes.Equal(vs.Data, []byte{0x10, 0x20, 0x30, 0x40}) {
		t.Fatalf("vertex shader = %+v", vs)
	}
	if !slices.Equal(vs.Regs, want.Programs[0].VertexShader.Regs) {
		t.Fatalf("vertex regs differ")
	}
	if m.Programs[1].VertexShader != vs {
		t.Fatalf("shared vertex shader decoded twice")
	}
	if ps := m.Programs[0].PixelShader; ps == nil || len(ps.Regs) != gx2PixelRegs || ps.Mode != 2 {
		t.Fatalf("pixel shader = %+v", ps)
	}
	if loc := m.Programs[0].SamplerLocations[0]; loc.Fragment != 0 || loc.Vertex != -1 || loc.Compute != -1 {
		t.Fatalf("sampler location = %+v", loc)
	}
}

func TestRoundTripCafeLittleEndian(t *testing.T) {
	t.Parallel()

	c := sampleContainer(PlatformCafe, NewVersion(3, 0, 0, 0))
	c.BigEndian = false
	got := roundTrip(t, c)
	if got.BigEndian {
		t.Fatalf("decoded as big endian")
	}
	want, _ := c.Model("scene")
	m, _ := got.Model("scene")
	checkModel(t, want, m)
}

func embeddedFile() *bnsh.File {
	binary := &bnsh.Program{Format: bnsh.FormatBinary, BinaryFormat: 0x0E}
	binary.Stages[bnsh.StageVertex] = &bnsh.Code{Data: []byte{1, 2, 3, 4}}
	binary.Stages[bnsh.StagePixel] = &bnsh.Code{Control: []byte{7}, Data: []byte{5, 6}}
	return &bnsh.File{
		Version:     0x02010C00,
		Alignment:   12,
		AddressSize: 64,
		Name:        "scene",
		Variations:  []*bnsh.Variation{{Binary: binary}, {Binary: binary}},
	}
}

func TestEmbeddedVariationIsRebased(t *testing.T) {
	t.Parallel()

	raw, offsets, err := bnsh.Encode(embeddedFile())
	if err != nil {
		t.Fatalf("bnsh.Encode: %v", err)
	}
	c := sampleContainer(PlatformNX, NewVersion(2, 8, 0, 0))
	m, _ := c.Model("scene")
	m.SetEmbedded(raw)
	for i, p := range m.Programs {
		p.VariationOffset = offsets[i]
	}
	if v, err := m.ProgramVariation(1); err != nil || v.Offset != offsets[1] {
		t.Fatalf("in-memory variation = %+v, %v", v, err)
	}

	got := roundTrip(t, c)
	gm, _ := got.Model("scene")
	if !bytes.Equal(gm.EmbeddedBytes(), raw) {
		t.Fatalf("embedded container not copied verbatim")
	}
	if gm.Programs[1].VariationOffset <= offsets[1] {
		t.Fatalf("variation offset 0x%x not rebased", gm.Programs[1].VariationOffset)
	}
	v, err := gm.ProgramVariation(1)
	if err != nil {
		t.Fatalf("ProgramVariation: %v", err)
	}
	if v.Offset != offsets[1] {
		t.Fatalf("variation local offset = 0x%x; want 0x%x", v.Offset, offsets[1])
	}
	if code := v.Binary.Stages[bnsh.StageVertex]; code == nil || !bytes.Equal(code.Data, []byte{1, 2, 3, 4}) {
		t.Fatalf("vertex code = %+v", code)
	}
	f, err := gm.Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	if f.Name != "scene" || len(f.Variations) != 2 {
		t.Fatalf("embedded file = %q with %d variations", f.Name, len(f.Variations))
	}
	again, _ := gm.Embedded()
	if again != f {
		t.Fatalf("embedded container decoded twice")
	}
}

func TestVariationWithoutEmbeddedContainer(t *testing.T) {
	t.Parallel()

	m := sampleModel(PlatformNX)
	if _, err := m.ProgramVariation(0); !errors.Is(err, ErrNoEmbeddedContainer) {
		t.Fatalf("err = %v; want ErrNoEmbeddedContainer", err)
	}

	c := sampleContainer(PlatformNX, NewVersion(2, 8, 0, 0))
	cm, _ := c.Model("scene")
	cm.Programs[0].VariationOffset = 0x40
	if _, err := Encode(c); !errors.Is(err, ErrEncodeUnsupported) {
		t.Fatalf("Encode err = %v; want ErrEncodeUnsupported", err)
	}
}

func TestEncodeRejectsMismatchedKeyTable(t *testing.T) {
	t.Parallel()

	c := sampleContainer(PlatformNX, NewVersion(2, 8, 0, 0))
	m, _ := c.Model("scene")
	m.KeyTable = m.KeyTable[:3]
	if _, err := Encode(c); !errors.Is(err, ErrKeyTable) {
		t.Fatalf("err = %v; want ErrKeyTable", err)
	}
	if _, err := Encode(&Container{}); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("zero container err = %v; want ErrUnknownPlatform", err)
	}
}
