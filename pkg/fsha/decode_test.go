package fsha

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/samcharles93/fsha/pkg/resbin"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	nx := []byte("FSHA    \x00\x08\x02\x00\xFF\xFE")
	cafe := []byte("FSHA\x03\x00\x00\x00\xFE\xFF\x00\x38")
	cafeLE := []byte("FSHA\x00\x00\x00\x03\xFF\xFE\x38\x00")
	cases := []struct {
		name string
		data []byte
		want Platform
	}{
		{"nx", nx, PlatformNX},
		{"cafe", cafe, PlatformCafe},
		{"cafe little endian", cafeLE, PlatformCafe},
	}
	for _, tc := range cases {
		got, err := Detect(tc.data)
		if err != nil {
			t.Fatalf("%s: Detect: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: Detect = %s; want %s", tc.name, got, tc.want)
		}
	}
}

func TestDetectUnknownPlatform(t *testing.T) {
	t.Parallel()

	data := []byte("FSHA\x01\x02\x03\x04\x12\x34\x00\x00")
	if _, err := Detect(data); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("err = %v; want ErrUnknownPlatform", err)
	}
	if _, err := Detect([]byte("FSHA")); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("short header err = %v; want ErrUnknownPlatform", err)
	}
}

func TestDecodeRejectsSignature(t *testing.T) {
	t.Parallel()

	data := []byte("BNSH    \x00\x08\x02\x00\xFF\xFE")
	_, err := Decode(data)
	if !errors.Is(err, ErrSignature) {
		t.Fatalf("err = %v; want ErrSignature", err)
	}
	var de *resbin.DecodeError
	if !errors.As(err, &de) || de.Offset != 0 {
		t.Fatalf("err = %v; want DecodeError at offset 0", err)
	}
}

func TestDecodeTruncatedArchive(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleContainer(PlatformNX, NewVersion(2, 7, 0, 0)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data[:0x60])
	var de *resbin.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v; want DecodeError", err)
	}
	if !errors.Is(err, resbin.ErrOutOfBounds) {
		t.Fatalf("err = %v; want ErrOutOfBounds", err)
	}
}

func TestVersionComponents(t *testing.T) {
	t.Parallel()

	v := Version(0x02070301)
	if v.Major() != 2 || v.Major2() != 7 || v.Minor() != 3 || v.Minor2() != 1 {
		t.Fatalf("components of %s wrong", v)
	}
	if v.String() != "2.7.3.1" {
		t.Fatalf("String = %q", v.String())
	}
	if NewVersion(2, 7, 3, 1) != v {
		t.Fatalf("NewVersion = 0x%08x", uint32(NewVersion(2, 7, 3, 1)))
	}
}

// recordSizes encodes a single record at offset 0, checks the fixed part
// has the expected size, then decodes it back and checks the cursor ends
// at the same place.
func recordSize[T any](t *testing.T, e *encoder, v *T, write func(*T) error, decode resbin.DecodeFunc[T], want int64) *T {
	t.Helper()
	if err := write(v); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := e.w.Pos(); got != want {
		t.Fatalf("encoded record size = %d; want %d", got, want)
	}
	if err := e.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	s := resbin.NewSession(resbin.NewReader(e.w.Bytes(), e.w.Order()), e.w.Layout())
	got, err := resbin.Decode(s, decode)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pos := s.Reader().Pos(); pos != want {
		t.Fatalf("decoder consumed %d bytes; want %d", pos, want)
	}
	return got
}

func TestNXRecordSizesFollowVersion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		major2   uint8
		model    int64
		program  int64
		location int64
	}{
		{6, 192, 48, 16},
		{7, 232, 56, 16},
		{8, 256, 64, 24},
	}
	for _, tc := range cases {
		v := NewVersion(2, tc.major2, 0, 0)
		dc := decodeCtx{platform: PlatformNX, version: v}

		e := newTestEncoder(PlatformNX, v)
		m := recordSize(t, e, sampleModel(PlatformNX), e.model, dc.decodeModel, tc.model)
		if m.Name != "scene" || len(m.Programs) != 2 || m.DefaultProgramIndex != 1 {
			t.Fatalf("v%d: model = %+v", tc.major2, m)
		}
		if m.SystemBlockIndices != [4]uint8{1, 2, 0xFF, 0xFF} {
			t.Fatalf("v%d: system blocks = %v", tc.major2, m.SystemBlockIndices)
		}

		e = newTestEncoder(PlatformNX, v)
		p := &ShaderProgram{
			SamplerLocations:       []*LocationInfo{{Vertex: 1, Geometry: -1, Fragment: 3, Compute: -1}},
			StorageBufferLocations: []*LocationInfo{{Vertex: 0, Geometry: -1, Fragment: -1, Compute: 0}},
			UsedAttributeFlags:     0x5,
		}
		write := func(p *ShaderProgram) error { return e.program(p, nil) }
		got := recordSize(t, e, p, write, dc.decodeProgram, tc.program)
		if got.UsedAttributeFlags != 0x5 || len(got.SamplerLocations) != 1 || got.SamplerLocations[0].Fragment != 3 {
			t.Fatalf("v%d: program = %+v", tc.major2, got)
		}
		if wantStorage := tc.major2 >= 7; (len(got.StorageBufferLocations) == 1) != wantStorage {
			t.Fatalf("v%d: storage locations = %d", tc.major2, len(got.StorageBufferLocations))
		}

		e = newTestEncoder(PlatformNX, v)
		loc := recordSize(t, e, &LocationInfo{Vertex: 4, Geometry: -1, Fragment: 5, Compute: -1}, e.location, dc.decodeLocation, tc.location)
		if loc.Vertex != 4 || loc.Fragment != 5 {
			t.Fatalf("v%d: location = %+v", tc.major2, loc)
		}
	}
}

func TestCafeRecordSizes(t *testing.T) {
	t.Parallel()

	v := NewVersion(3, 0, 0, 0)
	dc := decodeCtx{platform: PlatformCafe, version: v}

	e := newTestEncoder(PlatformCafe, v)
	m := recordSize(t, e, sampleModel(PlatformCafe), e.model, dc.decodeModel, 112)
	if m.MaxRingItemSize != 4 || m.StaticKeyLength != 1 || m.DynamicKeyLength != 1 {
		t.Fatalf("model = %+v", m)
	}

	e = newTestEncoder(PlatformCafe, v)
	write := func(p *ShaderProgram) error { return e.program(p, nil) }
	p := recordSize(t, e, sampleModel(PlatformCafe).Programs[0], write, dc.decodeProgram, 56)
	if p.VertexShader == nil || len(p.VertexShader.Regs) != gx2VertexRegs {
		t.Fatalf("vertex shader = %+v", p.VertexShader)
	}

	e = newTestEncoder(PlatformCafe, v)
	loc := recordSize(t, e, &LocationInfo{Vertex: 1, Geometry: -1, Fragment: 2}, e.location, dc.decodeLocation, 3)
	if loc.Vertex != 1 || loc.Geometry != -1 || loc.Fragment != 2 || loc.Compute != -1 {
		t.Fatalf("location = %+v", loc)
	}
}

func TestCafeHeaderSize(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleContainer(PlatformCafe, NewVersion(3, 0, 0, 0)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := binary.BigEndian.Uint16(data[10:]); got != cafeHeaderSize {
		t.Fatalf("header size field = 0x%x; want 0x%x", got, cafeHeaderSize)
	}
	if got := binary.BigEndian.Uint32(data[12:]); got != uint32(len(data)) {
		t.Fatalf("file size = %d; want %d", got, len(data))
	}
}

type recordingLogger struct{ msgs []string }

func (l *recordingLogger) Debug(msg string, _ ...any) { l.msgs = append(l.msgs, msg) }

func TestDecodeLogsSession(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleContainer(PlatformNX, NewVersion(2, 8, 0, 0)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	log := &recordingLogger{}
	if _, err := Decode(data, WithLogger(log)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(log.msgs) != 2 || log.msgs[1] != "decoded shader archive" {
		t.Fatalf("logged %q", log.msgs)
	}
}

func TestDecodeRejectsUnknownEncoding(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleContainer(PlatformNX, NewVersion(2, 8, 0, 0)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(data, WithTextEncoding("klingon")); err == nil {
		t.Fatalf("unknown encoding accepted")
	}
}
