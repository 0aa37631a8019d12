package resbin

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Coding is how a string is delimited in the container.
type Coding uint8

const (
	// ZeroTerminated strings end at the first NUL code unit.
	ZeroTerminated Coding = iota
	// LengthPrefixed16 strings start with a u16 byte count and are
	// followed by a NUL that is not part of the value.
	LengthPrefixed16
)

// Text is the string decoding context. It is an immutable value; nested
// decoders receive a copy and derive variants with WithEncoding.
type Text struct {
	Coding Coding
	name   string
	enc    encoding.Encoding
}

// UTF8 returns a Text of the given coding with UTF-8 payloads.
func UTF8(c Coding) Text { return Text{Coding: c} }

// WithEncoding returns a copy of t that decodes payloads with the named
// character encoding (WHATWG names: "shift_jis", "utf-16le", "windows-1252").
func (t Text) WithEncoding(name string) (Text, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		t.name, t.enc = "", nil
		return t, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return t, fmt.Errorf("text encoding %q: %w", name, err)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = name
	}
	t.name, t.enc = canonical, enc
	return t, nil
}

// EncodingName reports the character encoding; empty means UTF-8.
func (t Text) EncodingName() string {
	if t.name == "" {
		return "utf-8"
	}
	return t.name
}

func (t Text) unitSize() int {
	if strings.HasPrefix(t.name, "utf-16") {
		return 2
	}
	return 1
}

// decode keeps UTF-8 payloads byte for byte, invalid sequences included,
// so encode reproduces them.
func (t Text) decode(raw []byte) (string, error) {
	if t.enc == nil {
		return string(raw), nil
	}
	out, err := t.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t Text) encode(s string) ([]byte, error) {
	if t.enc == nil {
		return []byte(s), nil
	}
	return t.enc.NewEncoder().Bytes([]byte(s))
}
