package fsha

import (
	"errors"

	"github.com/samcharles93/fsha/pkg/resbin"
)

var (
	ErrUnknownPlatform     = errors.New("unknown shader archive platform")
	ErrKeyOutOfRange       = errors.New("key choice out of range")
	ErrKeyTable            = errors.New("key table too short")
	ErrProgramIndex        = errors.New("program index out of range")
	ErrNoEmbeddedContainer = errors.New("shader model has no embedded shader container")
	ErrEncodeUnsupported   = errors.New("record cannot be encoded")

	// ErrSignature is resbin.ErrSignature, re-exported for callers that
	// only import this package.
	ErrSignature = resbin.ErrSignature
)
