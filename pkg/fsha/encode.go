package fsha

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

// Encode writes c in the layout of its platform and version. Records that
// several tables share, such as the uniform variables of a block, are
// written once. Embedded shader containers are copied unchanged and
// program variation offsets are rebased onto the copy. Relocation tables
// are not emitted.
func Encode(c *Container) ([]byte, error) {
	if c.Platform != PlatformNX && c.Platform != PlatformCafe {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, c.Platform)
	}
	e := newEncoder(decodeCtx{platform: c.Platform, version: c.Version}, c.BigEndian)
	var sizeAt int64
	if e.dc.nx() {
		sizeAt = e.headerNX(c)
	} else {
		sizeAt = e.headerCafe(c)
	}
	if err := e.flush(); err != nil {
		return nil, err
	}
	e.w.Align(e.align)
	e.w.PutU32At(sizeAt, uint32(e.w.Pos()))
	return e.w.Bytes(), nil
}

// encoder writes the fixed part of each record in place and defers the
// records it points to. Deferred work runs in order, which keeps list
// elements contiguous.
type encoder struct {
	dc    decodeCtx
	w     *resbin.Writer
	queue []func() error
	addrs map[any]int64
	sizes map[any]int64
	align int
}

func newEncoder(dc decodeCtx, bigEndian bool) *encoder {
	var order binary.ByteOrder = binary.LittleEndian
	if bigEndian {
		order = binary.BigEndian
	}
	e := &encoder{
		dc:    dc,
		w:     resbin.NewWriter(order, dc.platform.Layout()),
		addrs: make(map[any]int64),
		sizes: make(map[any]int64),
		align: 4,
	}
	if dc.nx() {
		e.align = 8
	}
	return e
}

func (e *encoder) later(fn func() error) { e.queue = append(e.queue, fn) }

func (e *encoder) flush() error {
	for len(e.queue) > 0 {
		fn := e.queue[0]
		e.queue = e.queue[1:]
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) str(slot resbin.Slot, s string) {
	if s == "" {
		return
	}
	e.later(func() error { return e.w.StringAt(slot, s) })
}

// contiguous reports whether items were already written back to back, in
// which case a new list can point at the existing run.
func contiguous[T any](e *encoder, items []*T) (int64, bool) {
	first, ok := e.addrs[items[0]]
	if !ok {
		return 0, false
	}
	next := first
	for _, it := range items {
		at, ok := e.addrs[it]
		if !ok || at != next {
			return 0, false
		}
		next += e.sizes[it]
	}
	return first, true
}

func writeList[T any](e *encoder, slot resbin.Slot, items []*T, write func(*T) error) (int64, error) {
	for _, it := range items {
		if it == nil {
			return 0, fmt.Errorf("%w: nil %T in list", ErrEncodeUnsupported, it)
		}
	}
	if at, ok := contiguous(e, items); ok {
		return at, nil
	}
	e.w.Reach(slot)
	e.w.Align(e.align)
	at := e.w.Pos()
	for _, it := range items {
		start := e.w.Pos()
		if err := write(it); err != nil {
			return 0, err
		}
		e.addrs[it] = start
		e.sizes[it] = e.w.Pos() - start
	}
	return at, nil
}

// list schedules items as one contiguous run for slot to point at.
func list[T any](e *encoder, slot resbin.Slot, items []*T, write func(*T) error) {
	if len(items) == 0 {
		return
	}
	e.later(func() error {
		at, err := writeList(e, slot, items, write)
		if err != nil {
			return err
		}
		return e.w.Patch(slot, at)
	})
}

// record schedules a single record, reusing it if already written.
func record[T any](e *encoder, slot resbin.Slot, v *T, write func(*T) error) {
	if v == nil {
		return
	}
	e.later(func() error {
		at, err := writeList(e, slot, []*T{v}, write)
		if err != nil {
			return err
		}
		return e.w.Patch(slot, at)
	})
}

// dictValues reserves the values and dictionary offset pair for d.
func dictValues[T any](e *encoder, d *resbin.Dict[*T], write func(*T) error) {
	valuesSlot := e.w.Offset()
	dictSlot := e.w.Offset()
	if d.Len() == 0 {
		return
	}
	e.later(func() error { return writeDict(e, &valuesSlot, dictSlot, d, write) })
}

// dict reserves a lone dictionary offset for d.
func dict[T any](e *encoder, d *resbin.Dict[*T], write func(*T) error) {
	dictSlot := e.w.Offset()
	if d.Len() == 0 {
		return
	}
	e.later(func() error { return writeDict(e, nil, dictSlot, d, write) })
}

func writeDict[T any](e *encoder, valuesSlot *resbin.Slot, dictSlot resbin.Slot, d *resbin.Dict[*T], write func(*T) error) error {
	values := d.Values()
	linked := e.w.Layout().Dict == resbin.DictLinked
	if valuesSlot != nil || !linked {
		slot := dictSlot
		if valuesSlot != nil {
			slot = *valuesSlot
		}
		at, err := writeList(e, slot, values, write)
		if err != nil {
			return err
		}
		if valuesSlot != nil {
			if err := e.w.Patch(*valuesSlot, at); err != nil {
				return err
			}
		}
	} else {
		for _, v := range values {
			if _, ok := e.addrs[v]; ok {
				continue
			}
			if _, err := writeList(e, dictSlot, []*T{v}, write); err != nil {
				return err
			}
		}
	}

	e.w.Reach(dictSlot)
	addr, data, err := e.w.Dict(d.Keys())
	if err != nil {
		return err
	}
	if err := e.w.Patch(dictSlot, addr); err != nil {
		return err
	}
	for i, slot := range data {
		if err := e.w.Patch(slot, e.addrs[values[i]]); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) headerNX(c *Container) int64 {
	w := e.w
	w.Signature(Signature)
	w.U32(nxMarker)
	w.U32(uint32(c.Version))
	w.ByteOrderMark()
	w.U8(uint8(c.Alignment))
	w.U8(c.AddressSize)
	w.U32(0) // file name offset
	w.U16(c.Flag)
	w.U16(0) // block offset
	w.U32(0) // relocation table offset
	sizeAt := w.Pos()
	w.U32(0)
	w.U64(0)
	w.U64(0)
	w.U64(0)
	e.str(w.Offset(), c.Name)
	e.str(w.Offset(), c.Path)
	dictValues(e, c.Models, e.model)
	w.Zeros(16)
	w.U64(0)
	if e.dc.version.Minor() >= 7 {
		w.U64(0)
	}
	w.U16(uint16(c.Models.Len()))
	w.U16(0)
	w.U16(0)
	return sizeAt
}

func (e *encoder) headerCafe(c *Container) int64 {
	w := e.w
	w.Signature(Signature)
	w.U32(uint32(c.Version))
	w.ByteOrderMark()
	w.U16(cafeHeaderSize)
	sizeAt := w.Pos()
	w.U32(0)
	w.U32(c.Alignment)
	e.str(w.Offset(), c.Name)
	w.U32(0) // string pool size
	w.Offset()
	e.str(w.Offset(), c.Path)
	w.U16(uint16(c.Models.Len()))
	w.U16(c.Flag)
	w.U32(0)
	dict(e, c.Models, e.model)
	w.U32(0)
	w.U32(0)
	return sizeAt
}

func (e *encoder) model(m *ShaderModel) error {
	if want := m.RowWidth() * len(m.Programs); len(m.KeyTable) != want {
		return fmt.Errorf("%w: model %s has %d key words, want %d", ErrKeyTable, m.Name, len(m.KeyTable), want)
	}
	if e.dc.nx() {
		return e.modelNX(m)
	}
	return e.modelCafe(m)
}

// variationRef is a program's variation offset waiting for the embedded
// container to be placed.
type variationRef struct {
	slot  resbin.Slot
	local int64
}

func (e *encoder) modelNX(m *ShaderModel) error {
	w := e.w
	major2 := e.dc.version.Major2()
	e.str(w.Offset(), m.Name)
	e.modelDicts(m)
	if major2 >= 8 {
		w.Zeros(16)
	}
	dictValues(e, m.UniformBlocks, e.uniformBlock)
	uniforms := w.Offset()
	if major2 >= 7 {
		w.Zeros(24)
	}
	programs := w.Offset()
	keys := w.Offset()
	w.Offset() // parent archive
	w.Offset() // GL shader info
	bnshSlot := w.Offset()
	w.Zeros(3 * 8)
	if major2 >= 7 {
		w.Zeros(16)
	}

	w.U32(uint32(len(m.UniformVars)))
	if major2 >= 7 {
		w.U32(m.StorageBufferCount)
	}
	w.I32(m.DefaultProgramIndex)
	w.U16(uint16(m.StaticOptions.Len()))
	w.U16(uint16(m.DynamicOptions.Len()))
	w.U16(uint16(len(m.Programs)))
	if major2 < 7 {
		w.U16(0)
	}
	w.U8(m.StaticKeyLength)
	w.U8(m.DynamicKeyLength)
	w.U8(uint8(m.Attributes.Len()))
	w.U8(uint8(m.Samplers.Len()))
	if major2 >= 8 {
		w.U8(m.ImageCount)
	}
	w.U8(uint8(m.UniformBlocks.Len()))
	w.U8(0)
	w.Raw(m.SystemBlockIndices[:])
	switch {
	case major2 >= 8:
		w.Zeros(11)
	case major2 >= 7:
		w.Zeros(4)
	default:
		w.Zeros(6)
	}

	var refs []variationRef
	var base int64
	if m.embedded != nil {
		base = m.embedded.base
	}
	e.modelTables(m, uniforms, programs, keys, func(p *ShaderProgram, slot resbin.Slot) error {
		if p.VariationOffset == 0 {
			return nil
		}
		local := p.VariationOffset - base
		if m.embedded == nil || local < 0 || local >= int64(len(m.embedded.data)) {
			return fmt.Errorf("%w: model %s variation offset 0x%x outside embedded container", ErrEncodeUnsupported, m.Name, p.VariationOffset)
		}
		refs = append(refs, variationRef{slot: slot, local: local})
		return nil
	})

	data := m.EmbeddedBytes()
	if len(data) == 0 {
		return nil
	}
	e.later(func() error {
		e.w.Align(bnshAlignment)
		at := e.w.Pos()
		e.w.Raw(data)
		if err := e.w.Patch(bnshSlot, at); err != nil {
			return err
		}
		for _, ref := range refs {
			if err := e.w.Patch(ref.slot, at+ref.local); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}

const bnshAlignment = 256

func (e *encoder) modelCafe(m *ShaderModel) error {
	w := e.w
	w.U8(m.StaticKeyLength)
	w.U8(m.DynamicKeyLength)
	w.U16(uint16(m.StaticOptions.Len()))
	w.U16(uint16(m.DynamicOptions.Len()))
	w.U16(uint16(len(m.Programs)))
	w.U8(uint8(m.Attributes.Len()))
	w.U8(uint8(m.Samplers.Len()))
	w.U8(uint8(m.UniformBlocks.Len()))
	w.U8(m.MaxRingItemSize)
	w.U16(0)
	w.U16(0)
	w.U32(0)
	w.U32(uint32(len(m.UniformVars)))
	w.I32(0)
	w.I32(m.DefaultProgramIndex)
	e.str(w.Offset(), m.Name)
	w.U32(0)
	w.U32(0)
	e.modelDicts(m)
	dictValues(e, m.UniformBlocks, e.uniformBlock)
	uniforms := w.Offset()
	programs := w.Offset()
	keys := w.Offset()
	w.Offset() // parent archive
	w.Zeros(12)
	e.modelTables(m, uniforms, programs, keys, nil)
	return nil
}

func (e *encoder) modelDicts(m *ShaderModel) {
	dictValues(e, m.StaticOptions, e.option)
	dictValues(e, m.DynamicOptions, e.option)
	dictValues(e, m.Attributes, e.attribute)
	dictValues(e, m.Samplers, e.sampler)
}

func (e *encoder) modelTables(m *ShaderModel, uniforms, programs, keys resbin.Slot, variation func(*ShaderProgram, resbin.Slot) error) {
	list(e, uniforms, m.UniformVars, e.uniformVar)
	list(e, programs, m.Programs, func(p *ShaderProgram) error {
		return e.program(p, variation)
	})
	if len(m.KeyTable) == 0 {
		return
	}
	e.later(func() error {
		e.w.Reach(keys)
		e.w.Align(4)
		at := e.w.Pos()
		for _, k := range m.KeyTable {
			e.w.I32(k)
		}
		return e.w.Patch(keys, at)
	})
}

func (e *encoder) option(o *ShaderOption) error {
	w := e.w
	if o.Choices.Len() > 0xFF {
		return fmt.Errorf("%w: option %s has %d choices", ErrEncodeUnsupported, o.Name, o.Choices.Len())
	}
	bits := func() {
		w.U8(uint8(o.Choices.Len()))
		w.U8(o.DefaultChoiceIndex)
		w.U16(o.BranchOffset)
		w.U8(o.Flag)
		w.U8(o.KeyOffset)
		w.U8(o.WordIndex)
		w.U8(o.BitShift)
		w.U32(o.BitMask)
	}
	var dictSlot, valuesSlot resbin.Slot
	refs := func() {
		e.str(w.Offset(), o.Name)
		dictSlot = w.Offset()
		valuesSlot = w.Offset()
	}
	if e.dc.nx() {
		refs()
		bits()
		w.U32(0)
	} else {
		bits()
		refs()
	}
	if o.Choices.Len() == 0 {
		return nil
	}

	e.later(func() error {
		e.w.Reach(valuesSlot)
		e.w.Align(4)
		valuesAt := e.w.Pos()
		for _, v := range o.Choices.Values() {
			e.w.U32(v)
		}
		if err := e.w.Patch(valuesSlot, valuesAt); err != nil {
			return err
		}
		addr, data, err := e.w.Dict(o.Choices.Keys())
		if err != nil {
			return fmt.Errorf("option %s choices: %w", o.Name, err)
		}
		if err := e.w.Patch(dictSlot, addr); err != nil {
			return err
		}
		for i, slot := range data {
			if err := e.w.Patch(slot, valuesAt+int64(4*i)); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}

func (e *encoder) attribute(a *Attribute) error {
	w := e.w
	w.U8(a.Index)
	if !e.dc.nx() {
		w.U8(a.GX2Type)
		w.U8(a.GX2Count)
	}
	w.U8(a.Location)
	return nil
}

func (e *encoder) sampler(smp *Sampler) error {
	w := e.w
	if e.dc.nx() {
		e.str(w.Offset(), smp.Annotation)
		w.U8(smp.Index)
		w.Zeros(7)
		return nil
	}
	w.U8(smp.Index)
	w.U8(smp.GX2Type)
	w.U8(smp.GX2Count)
	w.U8(0)
	e.str(w.Offset(), smp.Annotation)
	return nil
}

func (e *encoder) uniformBlock(b *UniformBlock) error {
	w := e.w
	var defaultSlot resbin.Slot
	if e.dc.nx() {
		dictValues(e, b.Uniforms, e.uniformVar)
		defaultSlot = w.Offset()
		w.U8(b.Index)
		w.U8(uint8(b.Type))
		w.U16(b.Size)
		w.U16(uint16(b.Uniforms.Len()))
		w.U16(0)
	} else {
		w.U8(b.Index)
		w.U8(uint8(b.Type))
		w.U16(b.Size)
		w.U16(uint16(b.Uniforms.Len()))
		w.U16(0)
		dict(e, b.Uniforms, e.uniformVar)
		defaultSlot = w.Offset()
	}
	if len(b.Default) == 0 || b.Size == 0 {
		return nil
	}
	e.later(func() error {
		e.w.Reach(defaultSlot)
		e.w.Align(4)
		at := e.w.Pos()
		n := min(len(b.Default), int(b.Size))
		e.w.Raw(b.Default[:n])
		e.w.Zeros(int(b.Size) - n)
		return e.w.Patch(defaultSlot, at)
	})
	return nil
}

func (e *encoder) uniformVar(u *UniformVar) error {
	w := e.w
	if e.dc.nx() {
		e.str(w.Offset(), u.Name)
		w.I32(u.Index)
		w.U16(u.Offset)
		w.U8(u.BlockIndex)
		w.U8(0)
		return nil
	}
	w.I32(u.Index)
	w.U16(u.GX2Count)
	w.U8(u.GX2Type)
	w.U8(u.BlockIndex)
	w.U16(u.Offset)
	w.U8(u.GX2ParamType)
	w.U8(0)
	e.str(w.Offset(), u.Name)
	return nil
}

func (e *encoder) program(p *ShaderProgram, variation func(*ShaderProgram, resbin.Slot) error) error {
	if e.dc.nx() {
		return e.programNX(p, variation)
	}
	return e.programCafe(p)
}

func (e *encoder) programNX(p *ShaderProgram, variation func(*ShaderProgram, resbin.Slot) error) error {
	w := e.w
	major2 := e.dc.version.Major2()
	samplers := w.Offset()
	var images, storage resbin.Slot
	if major2 >= 8 {
		images = w.Offset()
	}
	blocks := w.Offset()
	if major2 >= 7 {
		storage = w.Offset()
	}
	variationSlot := w.Offset()
	w.Offset() // parent model
	if variation != nil {
		if err := variation(p, variationSlot); err != nil {
			return err
		}
	}

	w.U32(p.UsedAttributeFlags)
	w.U16(p.Flags)
	w.U16(uint16(len(p.SamplerLocations)))
	switch {
	case major2 >= 8:
		w.U16(uint16(len(p.ImageLocations)))
		w.U16(uint16(len(p.UniformBlockLocations)))
		w.U16(uint16(len(p.StorageBufferLocations)))
		w.U16(0)
	case major2 >= 7:
		w.U16(uint16(len(p.UniformBlockLocations)))
		w.U16(uint16(len(p.StorageBufferLocations)))
		w.U32(0)
	default:
		w.U16(uint16(len(p.UniformBlockLocations)))
		w.Zeros(6)
	}

	list(e, samplers, p.SamplerLocations, e.location)
	list(e, blocks, p.UniformBlockLocations, e.location)
	if major2 >= 8 {
		list(e, images, p.ImageLocations, e.location)
	}
	if major2 >= 7 {
		list(e, storage, p.StorageBufferLocations, e.location)
	}
	return nil
}

func (e *encoder) programCafe(p *ShaderProgram) error {
	w := e.w
	if len(p.SamplerLocations) > 0xFF || len(p.UniformBlockLocations) > 0xFF {
		return fmt.Errorf("%w: program has more than 255 locations", ErrEncodeUnsupported)
	}
	w.U16(p.Flags)
	w.U8(uint8(len(p.SamplerLocations)))
	w.U8(uint8(len(p.UniformBlockLocations)))
	w.U32(p.UsedAttributeFlags)
	w.Zeros(24)
	samplers := w.Offset()
	blocks := w.Offset()
	vertex := w.Offset()
	w.Offset() // geometry shader
	pixel := w.Offset()
	w.Offset() // parent model

	list(e, samplers, p.SamplerLocations, e.location)
	list(e, blocks, p.UniformBlockLocations, e.location)
	record(e, vertex, p.VertexShader, e.gx2(gx2VertexRegs))
	record(e, pixel, p.PixelShader, e.gx2(gx2PixelRegs))
	return nil
}

func (e *encoder) location(l *LocationInfo) error {
	w := e.w
	if !e.dc.nx() {
		w.I8(int8(l.Vertex))
		w.I8(int8(l.Geometry))
		w.I8(int8(l.Fragment))
		return nil
	}
	w.I32(l.Vertex)
	w.I32(l.Geometry)
	w.I32(l.Fragment)
	w.I32(l.Compute)
	if e.dc.version.Major2() >= 8 {
		for i := range 2 {
			v := int32(-1)
			if i < len(l.Extra) {
				v = l.Extra[i]
			}
			w.I32(v)
		}
	}
	return nil
}

func (e *encoder) gx2(regs int) func(*GX2Shader) error {
	return func(g *GX2Shader) error {
		w := e.w
		for i := range regs {
			var v uint32
			if i < len(g.Regs) {
				v = g.Regs[i]
			}
			w.U32(v)
		}
		w.U32(uint32(len(g.Data)))
		dataSlot := w.Offset()
		w.U32(g.Mode)
		if len(g.Data) == 0 {
			return nil
		}
		e.later(func() error {
			e.w.Reach(dataSlot)
			e.w.Align(gx2DataAlignment)
			at := e.w.Pos()
			e.w.Raw(g.Data)
			return e.w.Patch(dataSlot, at)
		})
		return nil
	}
}

// gx2DataAlignment is the alignment GX2 requires of shader programs.
const gx2DataAlignment = 256
