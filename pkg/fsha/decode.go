package fsha

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/samcharles93/fsha/pkg/resbin"
)

// Logger receives debug events from a decode. internal/logger.Logger and
// *slog.Logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

type options struct {
	log      Logger
	encoding string
}

// Option configures Decode.
type Option func(*options)

// WithLogger sets the logger for decode events.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTextEncoding decodes names with the given character encoding
// instead of UTF-8.
func WithTextEncoding(name string) Option {
	return func(o *options) { o.encoding = name }
}

// Detect identifies the target of an archive from its first bytes. It
// inspects nothing beyond the signature, the marker word at offset 4 and,
// for Cafe, the byte order mark at offset 8.
func Detect(data []byte) (Platform, error) {
	if len(data) < 12 {
		return 0, fmt.Errorf("%w: %d byte header", ErrUnknownPlatform, len(data))
	}
	if string(data[:4]) != Signature {
		return 0, &resbin.DecodeError{
			Record: "FSHA",
			Offset: 0,
			Err:    fmt.Errorf("%w: got %q want %q", resbin.ErrSignature, data[:4], Signature),
		}
	}
	marker := binary.BigEndian.Uint32(data[4:8])
	if marker == nxMarker {
		return PlatformNX, nil
	}
	switch binary.BigEndian.Uint16(data[8:10]) {
	case 0xFEFF, 0xFFFE:
		return PlatformCafe, nil
	}
	return 0, fmt.Errorf("%w: marker 0x%08x", ErrUnknownPlatform, marker)
}

// Decode decodes a whole archive. Structural records are decoded eagerly;
// embedded shader containers are opened on first use. Everything the
// Container retains is copied, so data may be released once Decode returns.
func Decode(data []byte, opts ...Option) (*Container, error) {
	o := options{log: nopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	platform, err := Detect(data)
	if err != nil {
		return nil, err
	}
	layout := platform.Layout()
	if o.encoding != "" {
		if layout.Text, err = layout.Text.WithEncoding(o.encoding); err != nil {
			return nil, err
		}
	}

	order := binary.ByteOrder(binary.BigEndian)
	if platform == PlatformNX {
		order = binary.LittleEndian
	}
	session := uuid.NewString()
	s := resbin.NewSession(resbin.NewReader(data, order), layout)
	o.log.Debug("decoding shader archive", "session", session, "platform", platform.String(), "size", len(data))

	c, err := resbin.Decode(s, func(s *resbin.Session) (*Container, error) {
		return decodeContainer(s, platform)
	})
	if err != nil {
		return nil, err
	}
	o.log.Debug("decoded shader archive",
		"session", session,
		"name", c.Name,
		"version", c.Version.String(),
		"models", c.Models.Len(),
		"cache_hits", s.CacheHits(),
	)
	return c, nil
}
