package fsha

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

// Container is a decoded shader archive.
type Container struct {
	Platform  Platform `json:"platform"`
	Version   Version  `json:"version"`
	BigEndian bool     `json:"big_endian"`
	// Alignment is the raw header value: a power-of-two exponent on NX,
	// a byte count on Cafe.
	Alignment   uint32 `json:"alignment"`
	AddressSize uint8  `json:"address_size,omitempty"`
	Flag        uint16 `json:"flag"`
	FileSize    uint32 `json:"file_size"`
	Name        string `json:"name"`
	Path        string `json:"path"`

	Models *resbin.Dict[*ShaderModel] `json:"models"`
}

// DataAlignment is the archive data alignment in bytes.
func (c *Container) DataAlignment() int64 {
	if c.Platform == PlatformNX {
		if c.Alignment >= 63 {
			return 0
		}
		return int64(1) << c.Alignment
	}
	return int64(c.Alignment)
}

// Model returns the shader model with the given name.
func (c *Container) Model(name string) (*ShaderModel, bool) {
	return c.Models.Get(name)
}

const cafeHeaderSize = 0x38

func decodeContainer(s *resbin.Session, platform Platform) (*Container, error) {
	r := s.Reader()
	c := &Container{Platform: platform}
	if err := r.Signature(Signature); err != nil {
		return nil, err
	}
	if platform == PlatformNX {
		r.U32() // marker
	}
	versionAt := r.Pos()
	r.Skip(4)
	c.BigEndian = r.ByteOrderMark() == binary.BigEndian
	if err := r.Err(); err != nil {
		return nil, err
	}
	v, err := r.PeekU32(versionAt)
	if err != nil {
		return nil, err
	}
	c.Version = Version(v)
	dc := decodeCtx{platform: platform, version: c.Version}

	switch platform {
	case PlatformNX:
		err = dc.decodeHeaderNX(s, c)
	case PlatformCafe:
		err = dc.decodeHeaderCafe(s, c)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (dc decodeCtx) decodeHeaderNX(s *resbin.Session, c *Container) error {
	r := s.Reader()
	c.Alignment = uint32(r.U8())
	c.AddressSize = r.U8()
	r.U32() // file name offset
	c.Flag = r.U16()
	r.U16() // block offset
	r.U32() // relocation table offset
	c.FileSize = r.U32()
	r.U64()
	r.U64() // string pool
	r.U64()

	var err error
	if c.Name, err = s.String(); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	if c.Path, err = s.String(); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	if c.Models, err = resbin.LoadDictValues(s, dc.decodeModel); err != nil {
		return fmt.Errorf("shader models: %w", err)
	}
	r.Skip(16) // user pointer, update callback, work memory, reserved
	r.U64()
	if dc.version.Minor() >= 7 {
		r.U64()
	}
	r.U16() // model count
	r.U16()
	r.U16()
	return r.Err()
}

func (dc decodeCtx) decodeHeaderCafe(s *resbin.Session, c *Container) error {
	r := s.Reader()
	r.U16() // header size
	c.FileSize = r.U32()
	c.Alignment = r.U32()

	var err error
	if c.Name, err = s.String(); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	r.U32() // string pool size
	s.SkipOffsets(1)
	if c.Path, err = s.String(); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	r.U16() // model count
	c.Flag = r.U16()
	r.U32()
	if c.Models, err = resbin.LoadDict(s, dc.decodeModel); err != nil {
		return fmt.Errorf("shader models: %w", err)
	}
	r.U32() // user pointer
	r.U32() // update callback
	return r.Err()
}
