// Package bnsh decodes the BNSH shader container that NX shader archives
// embed once per shader model. All addresses inside a BNSH are relative to
// its own first byte.
package bnsh

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/samcharles93/fsha/pkg/resbin"
)

const (
	Signature     = "BNSH"
	grscSignature = "grsc"

	padMarker = 0x20202020

	// FileSizeOffset is where the header stores the container size.
	FileSizeOffset = 0x1C

	headerSize          = 0x60
	variationTableStart = 0xC0
	variationSize       = 0x40
)

// File is a decoded BNSH container.
type File struct {
	Version          uint32 `json:"version"`
	BigEndian        bool   `json:"big_endian"`
	Alignment        uint8  `json:"alignment"`
	AddressSize      uint8  `json:"address_size"`
	Flag             uint16 `json:"flag"`
	BlockOffset      uint16 `json:"block_offset"`
	RelocationOffset uint32 `json:"relocation_offset"`
	FileSize         uint32 `json:"file_size"`
	Name             string `json:"name"`

	APIType          uint16 `json:"api_type"`
	APIVersion       uint16 `json:"api_version"`
	TargetCode       uint8  `json:"target_code"`
	CompilerVersion  uint32 `json:"compiler_version"`
	LLCompileVersion uint64 `json:"ll_compile_version"`

	Variations []*Variation `json:"variations"`

	data   []byte
	mu     sync.Mutex
	byAddr map[int64]*Variation
}

// Decode decodes a BNSH container. data is retained for lazy variation
// lookups and must stay valid for the life of the File.
func Decode(data []byte) (*File, error) {
	r := resbin.NewReader(data, binary.LittleEndian)
	f := &File{data: data}
	if err := r.Signature(Signature); err != nil {
		return nil, &resbin.DecodeError{Record: "BNSH", Offset: 0, Err: err}
	}
	r.U32() // padding marker
	versionAt := r.Pos()
	r.Skip(4)
	order := r.ByteOrderMark()
	f.BigEndian = order == binary.BigEndian
	if v, err := r.PeekU32(versionAt); err == nil {
		f.Version = v
	}
	f.Alignment = r.U8()
	f.AddressSize = r.U8()
	nameAt := r.U32()
	f.Flag = r.U16()
	f.BlockOffset = r.U16()
	f.RelocationOffset = r.U32()
	f.FileSize = r.U32()
	r.Skip(headerSize - 0x20)
	if err := r.Err(); err != nil {
		return nil, &resbin.DecodeError{Record: "BNSH", Offset: 0, Err: err}
	}

	s := resbin.NewSession(r, resbin.NXLayout())
	if nameAt != 0 {
		err := s.At(int64(nameAt), func() error {
			f.Name = r.String(s.Text())
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("bnsh name: %w", err)
		}
	}

	if err := f.decodeGrsc(s); err != nil {
		return nil, &resbin.DecodeError{Record: "grsc", Offset: headerSize, Err: err}
	}

	f.byAddr = make(map[int64]*Variation, len(f.Variations))
	for _, v := range f.Variations {
		f.byAddr[v.Offset] = v
	}
	return f, nil
}

func (f *File) decodeGrsc(s *resbin.Session) error {
	r := s.Reader()
	if err := r.Signature(grscSignature); err != nil {
		return err
	}
	r.Skip(12) // next block offset, block size
	f.APIType = r.U16()
	f.APIVersion = r.U16()
	f.TargetCode = r.U8()
	r.Skip(3)
	f.CompilerVersion = r.U32()
	count := r.U32()
	tableAt, hasTable := s.Offset()
	s.SkipOffsets(1) // memory pool
	f.LLCompileVersion = r.U64()
	if err := r.Err(); err != nil {
		return err
	}
	if !hasTable || count == 0 {
		return nil
	}
	if int64(count)*variationSize > r.Len() {
		return fmt.Errorf("%w: %d variations", resbin.ErrOutOfBounds, count)
	}
	vs, err := resbin.LoadList(s, tableAt, int(count), decodeVariation)
	if err != nil {
		return err
	}
	f.Variations = vs
	return nil
}

// Data returns the raw container bytes.
func (f *File) Data() []byte { return f.data }

// VariationAtIndex returns the variation in table slot i.
func (f *File) VariationAtIndex(i int) (*Variation, error) {
	if i < 0 || i >= len(f.Variations) {
		return nil, fmt.Errorf("variation index %d out of range [0,%d)", i, len(f.Variations))
	}
	return f.Variations[i], nil
}

// VariationAt returns the variation at a local address. Addresses outside
// the variation table are decoded on demand and remembered.
func (f *File) VariationAt(local int64) (*Variation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.byAddr[local]; ok {
		return v, nil
	}
	s := resbin.NewSession(resbin.NewReader(f.data, f.order()), resbin.NXLayout())
	v, err := resbin.LoadAt(s, local, decodeVariation)
	if err != nil {
		return nil, err
	}
	f.byAddr[local] = v
	return v, nil
}

// VariationTableOffset is the local address of variation i in a container
// laid out the standard way.
func VariationTableOffset(i int) int64 {
	return variationTableStart + int64(i)*variationSize
}

func (f *File) order() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
