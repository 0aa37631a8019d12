// Package fsha decodes FSHA shader archives for the Cafe (Wii U) and NX
// (Switch) targets and resolves shader program permutations from option
// choices.
package fsha

import (
	"fmt"

	"github.com/samcharles93/fsha/pkg/resbin"
)

const (
	Signature = "FSHA"

	// nxMarker fills the word after the signature in NX archives.
	nxMarker = 0x20202020
)

// Platform is the hardware target an archive was built for.
type Platform uint8

const (
	PlatformCafe Platform = iota + 1
	PlatformNX
)

func (p Platform) String() string {
	switch p {
	case PlatformCafe:
		return "cafe"
	case PlatformNX:
		return "nx"
	default:
		return fmt.Sprintf("platform(%d)", uint8(p))
	}
}

func (p Platform) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Layout returns the encoding conventions of the platform.
func (p Platform) Layout() resbin.Layout {
	if p == PlatformNX {
		return resbin.NXLayout()
	}
	return resbin.CafeLayout()
}

// Version is the packed archive version: four 8-bit components, most
// significant first.
type Version uint32

func NewVersion(major, major2, minor, minor2 uint8) Version {
	return Version(uint32(major)<<24 | uint32(major2)<<16 | uint32(minor)<<8 | uint32(minor2))
}

func (v Version) Major() uint8  { return uint8(v >> 24) }
func (v Version) Major2() uint8 { return uint8(v >> 16) }
func (v Version) Minor() uint8  { return uint8(v >> 8) }
func (v Version) Minor2() uint8 { return uint8(v) }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major(), v.Major2(), v.Minor(), v.Minor2())
}

func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// decodeCtx carries the detected target through every record decoder. It
// is passed by value and never changes during a decode.
type decodeCtx struct {
	platform Platform
	version  Version
}

func (dc decodeCtx) nx() bool { return dc.platform == PlatformNX }
