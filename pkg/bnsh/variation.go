package bnsh

import (
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

// Format is how a program's code is stored.
type Format uint8

const (
	FormatBinary       Format = 0
	FormatIntermediate Format = 1
	FormatSource       Format = 3
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatIntermediate:
		return "intermediate"
	case FormatSource:
		return "source"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Stage is a pipeline stage slot.
type Stage int

const (
	StageVertex Stage = iota
	StageHull
	StageDomain
	StageGeometry
	StagePixel
	StageCompute
	StageCount
)

var stageNames = [StageCount]string{"vertex", "hull", "domain", "geometry", "pixel", "compute"}

func (s Stage) String() string {
	if s < 0 || s >= StageCount {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Variation groups the up to three code records compiled for one shader
// program permutation.
type Variation struct {
	Offset       int64    `json:"offset"`
	Source       *Program `json:"source,omitempty"`
	Intermediate *Program `json:"intermediate,omitempty"`
	Binary       *Program `json:"binary,omitempty"`
}

// Programs returns the present code records, source first.
func (v *Variation) Programs() []*Program {
	var out []*Program
	for _, p := range []*Program{v.Source, v.Intermediate, v.Binary} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Program is one program-code record: per-stage code plus reflection.
type Program struct {
	Format       Format            `json:"format"`
	BinaryFormat uint32            `json:"binary_format"`
	Stages       [StageCount]*Code `json:"stages"`
	Reflection   *Reflection       `json:"reflection,omitempty"`
}

// Code is the code blob of one stage.
type Code struct {
	Control []byte `json:"control,omitempty"`
	Data    []byte `json:"data"`
}

const (
	programRecordSize = 0x60
	codeRecordSize    = 0x40
)

func decodeVariation(s *resbin.Session) (*Variation, error) {
	r := s.Reader()
	v := &Variation{Offset: r.Pos()}
	var err error
	if v.Source, err = resbin.Load(s, decodeProgram); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if v.Intermediate, err = resbin.Load(s, decodeProgram); err != nil {
		return nil, fmt.Errorf("intermediate: %w", err)
	}
	if v.Binary, err = resbin.Load(s, decodeProgram); err != nil {
		return nil, fmt.Errorf("binary: %w", err)
	}
	s.SkipOffsets(1) // parent container
	r.Skip(32)
	return v, nil
}

func decodeProgram(s *resbin.Session) (*Program, error) {
	r := s.Reader()
	p := &Program{Format: Format(r.U8())}
	r.Skip(3)
	p.BinaryFormat = r.U32()
	for i := range p.Stages {
		c, err := resbin.Load(s, decodeCode)
		if err != nil {
			return nil, fmt.Errorf("%s code: %w", Stage(i), err)
		}
		p.Stages[i] = c
	}
	s.SkipOffsets(1) // object
	ref, err := resbin.Load(s, decodeReflection)
	if err != nil {
		return nil, fmt.Errorf("reflection: %w", err)
	}
	p.Reflection = ref
	r.Skip(24)
	return p, nil
}

func decodeCode(s *resbin.Session) (*Code, error) {
	r := s.Reader()
	r.U64()
	controlAt, hasControl := s.Offset()
	dataAt, hasData := s.Offset()
	controlSize := r.U32()
	dataSize := r.U32()
	r.Skip(32)
	if err := r.Err(); err != nil {
		return nil, err
	}
	c := &Code{}
	if hasControl {
		err := s.At(controlAt, func() error {
			c.Control = r.Bytes(int(controlSize))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("control: %w", err)
		}
	}
	if hasData {
		err := s.At(dataAt, func() error {
			c.Data = r.Bytes(int(dataSize))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
	}
	return c, nil
}
