package bnsh

import (
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

// Reflection holds interface metadata for each stage of a program.
type Reflection struct {
	Stages [StageCount]*StageReflection `json:"stages"`
}

// StageReflection describes one stage's interface. The name dictionaries
// map a resource name to its position in the stage's table.
type StageReflection struct {
	Inputs                 *resbin.Dict[int] `json:"inputs"`
	Outputs                *resbin.Dict[int] `json:"outputs"`
	Samplers               *resbin.Dict[int] `json:"samplers"`
	ConstantBuffers        *resbin.Dict[int] `json:"constant_buffers"`
	UnorderedAccessBuffers *resbin.Dict[int] `json:"unordered_access_buffers"`

	OutputIndex          int32    `json:"output_index"`
	SamplerOffset        int32    `json:"sampler_offset"`
	ConstantBufferOffset int32    `json:"constant_buffer_offset"`
	ComputeWorkGroup     [3]int32 `json:"compute_work_group"`
	ImageOffset          int32    `json:"image_offset"`
	AttributeSlots       []int32  `json:"attribute_slots"`
}

func decodeReflection(s *resbin.Session) (*Reflection, error) {
	ref := &Reflection{}
	for i := range ref.Stages {
		st, err := resbin.Load(s, decodeStageReflection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Stage(i), err)
		}
		ref.Stages[i] = st
	}
	return ref, nil
}

func decodeStageReflection(s *resbin.Session) (*StageReflection, error) {
	r := s.Reader()
	st := &StageReflection{}
	for _, dst := range []**resbin.Dict[int]{&st.Inputs, &st.Outputs, &st.Samplers, &st.ConstantBuffers, &st.UnorderedAccessBuffers} {
		keys, err := resbin.LoadDictKeys(s)
		if err != nil {
			return nil, err
		}
		*dst = indexDict(keys)
	}
	st.OutputIndex = r.I32()
	st.SamplerOffset = r.I32()
	st.ConstantBufferOffset = r.I32()
	slotCount := r.U32()
	slotsAt := r.U32()
	for i := range st.ComputeWorkGroup {
		st.ComputeWorkGroup[i] = r.I32()
	}
	st.ImageOffset = r.I32()
	r.U64() // image dictionary
	r.U64()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if slotCount > 0 && slotsAt != 0 {
		if int64(slotCount)*4 > r.Len() {
			return nil, fmt.Errorf("%w: %d attribute slots", resbin.ErrOutOfBounds, slotCount)
		}
		slots, err := resbin.LoadInt32s(s, int64(slotsAt), int(slotCount))
		if err != nil {
			return nil, fmt.Errorf("attribute slots: %w", err)
		}
		st.AttributeSlots = slots
	}
	return st, nil
}

func indexDict(keys []string) *resbin.Dict[int] {
	d := resbin.NewDict[int]()
	for i, k := range keys {
		d.Set(k, i)
	}
	return d
}
