package resbin

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds   = errors.New("read out of bounds")
	ErrSignature     = errors.New("signature mismatch")
	ErrByteOrderMark = errors.New("invalid byte order mark")
	ErrBadDict       = errors.New("malformed dictionary")
	ErrBadOffset     = errors.New("offset not representable")
)

// DecodeError ties a failure to the record being decoded and the absolute
// offset the record started at.
type DecodeError struct {
	Record string
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at 0x%x: %v", e.Record, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
