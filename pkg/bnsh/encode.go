package bnsh

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

type encoder struct {
	w           *resbin.Writer
	programs    map[*Program]int64
	codes       map[*Code]int64
	reflections map[*Reflection]int64
	stages      map[*StageReflection]int64
}

// Encode lays f out as a BNSH container. It returns the image and the
// local address of each variation, in table order. Records reachable
// from more than one place are written once and shared.
func Encode(f *File) ([]byte, []int64, error) {
	order := binary.ByteOrder(binary.LittleEndian)
	if f.BigEndian {
		order = binary.BigEndian
	}
	e := &encoder{
		w:           resbin.NewWriter(order, resbin.NXLayout()),
		programs:    make(map[*Program]int64),
		codes:       make(map[*Code]int64),
		reflections: make(map[*Reflection]int64),
		stages:      make(map[*StageReflection]int64),
	}
	w := e.w

	w.Signature(Signature)
	w.U32(padMarker)
	w.U32(f.Version)
	w.ByteOrderMark()
	w.U8(f.Alignment)
	w.U8(f.AddressSize)
	nameAt := w.Pos()
	w.U32(0)
	w.U16(f.Flag)
	w.U16(f.BlockOffset)
	w.U32(0) // relocation table is not emitted
	sizeAt := w.Pos()
	w.U32(0)
	w.Zeros(headerSize - 0x20)

	w.Signature(grscSignature)
	w.Zeros(12)
	w.U16(f.APIType)
	w.U16(f.APIVersion)
	w.U8(f.TargetCode)
	w.Zeros(3)
	w.U32(f.CompilerVersion)
	w.U32(uint32(len(f.Variations)))
	table := w.Offset()
	w.Offset() // memory pool
	w.U64(f.LLCompileVersion)
	w.Zeros(40)

	offsets := make([]int64, len(f.Variations))
	slots := make([][3]resbin.Slot, len(f.Variations))
	if len(f.Variations) > 0 {
		if err := w.Patch(table, w.Pos()); err != nil {
			return nil, nil, err
		}
	}
	for i := range f.Variations {
		offsets[i] = w.Pos()
		for j := range slots[i] {
			slots[i][j] = w.Offset()
		}
		w.Offset() // parent container
		w.Zeros(32)
	}
	for i, v := range f.Variations {
		for j, p := range []*Program{v.Source, v.Intermediate, v.Binary} {
			if err := e.program(slots[i][j], p); err != nil {
				return nil, nil, fmt.Errorf("variation %d: %w", i, err)
			}
		}
	}

	if f.Name != "" {
		addr, err := w.String(f.Name)
		if err != nil {
			return nil, nil, err
		}
		w.PutU32At(nameAt, uint32(addr))
	}
	w.Align(8)
	w.PutU32At(sizeAt, uint32(w.Pos()))
	return w.Bytes(), offsets, nil
}

// place patches slot to an already written record, or aligns and records
// the address the caller is about to write at.
func place[T any](e *encoder, seen map[*T]int64, slot resbin.Slot, v *T) (bool, error) {
	if at, ok := seen[v]; ok {
		return true, e.w.Patch(slot, at)
	}
	e.w.Align(8)
	at := e.w.Pos()
	seen[v] = at
	return false, e.w.Patch(slot, at)
}

func (e *encoder) program(slot resbin.Slot, p *Program) error {
	if p == nil {
		return nil
	}
	done, err := place(e, e.programs, slot, p)
	if done || err != nil {
		return err
	}
	w := e.w
	start := w.Pos()
	w.U8(uint8(p.Format))
	w.Zeros(3)
	w.U32(p.BinaryFormat)
	var stageSlots [StageCount]resbin.Slot
	for i := range stageSlots {
		stageSlots[i] = w.Offset()
	}
	w.Offset() // object
	refSlot := w.Offset()
	w.Zeros(programRecordSize - int(w.Pos()-start))

	for i, c := range p.Stages {
		if err := e.code(stageSlots[i], c); err != nil {
			return fmt.Errorf("%s code: %w", Stage(i), err)
		}
	}
	return e.reflection(refSlot, p.Reflection)
}

func (e *encoder) code(slot resbin.Slot, c *Code) error {
	if c == nil {
		return nil
	}
	done, err := place(e, e.codes, slot, c)
	if done || err != nil {
		return err
	}
	w := e.w
	start := w.Pos()
	w.U64(0)
	control := w.Offset()
	data := w.Offset()
	w.U32(uint32(len(c.Control)))
	w.U32(uint32(len(c.Data)))
	w.Zeros(codeRecordSize - int(w.Pos()-start))
	if err := e.blob(control, c.Control); err != nil {
		return err
	}
	return e.blob(data, c.Data)
}

func (e *encoder) blob(slot resbin.Slot, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	e.w.Align(8)
	if err := e.w.Patch(slot, e.w.Pos()); err != nil {
		return err
	}
	e.w.Raw(b)
	return nil
}

func (e *encoder) reflection(slot resbin.Slot, ref *Reflection) error {
	if ref == nil {
		return nil
	}
	done, err := place(e, e.reflections, slot, ref)
	if done || err != nil {
		return err
	}
	var slots [StageCount]resbin.Slot
	for i := range slots {
		slots[i] = e.w.Offset()
	}
	for i, st := range ref.Stages {
		if err := e.stage(slots[i], st); err != nil {
			return fmt.Errorf("%s reflection: %w", Stage(i), err)
		}
	}
	return nil
}

func (e *encoder) stage(slot resbin.Slot, st *StageReflection) error {
	if st == nil {
		return nil
	}
	done, err := place(e, e.stages, slot, st)
	if done || err != nil {
		return err
	}
	w := e.w
	dicts := []*resbin.Dict[int]{st.Inputs, st.Outputs, st.Samplers, st.ConstantBuffers, st.UnorderedAccessBuffers}
	dictSlots := make([]resbin.Slot, len(dicts))
	for i := range dicts {
		dictSlots[i] = w.Offset()
	}
	w.I32(st.OutputIndex)
	w.I32(st.SamplerOffset)
	w.I32(st.ConstantBufferOffset)
	w.U32(uint32(len(st.AttributeSlots)))
	slotsAt := w.Pos()
	w.U32(0)
	for _, n := range st.ComputeWorkGroup {
		w.I32(n)
	}
	w.I32(st.ImageOffset)
	w.U64(0)
	w.U64(0)

	for i, d := range dicts {
		if d.Len() == 0 {
			continue
		}
		addr, _, err := w.Dict(d.Keys())
		if err != nil {
			return err
		}
		if err := w.Patch(dictSlots[i], addr); err != nil {
			return err
		}
	}
	if len(st.AttributeSlots) > 0 {
		w.Align(4)
		w.PutU32At(slotsAt, uint32(w.Pos()))
		for _, v := range st.AttributeSlots {
			w.I32(v)
		}
	}
	return nil
}
