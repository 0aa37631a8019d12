// Package archive opens shader archive files for the CLI and the HTTP
// browser. Files are memory mapped read-only where the platform allows it.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/samcharles93/fsha/internal/logger"
	"github.com/samcharles93/fsha/pkg/fsha"
	"golang.org/x/sys/unix"
)

var ErrEmpty = errors.New("archive is empty")

// Options configures how archives are decoded.
type Options struct {
	// TextEncoding names the character encoding of archive strings, as
	// understood by the WHATWG encoding index. Empty means UTF-8.
	TextEncoding string
	Logger       logger.Logger
}

func (o Options) decodeOptions(log logger.Logger) []fsha.Option {
	opts := []fsha.Option{fsha.WithLogger(log)}
	if o.TextEncoding != "" {
		opts = append(opts, fsha.WithTextEncoding(o.TextEncoding))
	}
	return opts
}

func (o Options) logger() logger.Logger {
	if o.Logger == nil {
		return logger.Discard()
	}
	return o.Logger
}

// Archive is a decoded shader archive and the bytes it was decoded from.
type Archive struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Path      string          `json:"path,omitempty"`
	Size      int64           `json:"size"`
	LoadedAt  time.Time       `json:"loaded_at"`
	Container *fsha.Container `json:"-"`

	data    []byte
	mmapped bool
}

// Open maps path and decodes it. The mapping stays alive until Close.
func Open(path string, opts Options) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%s: %d bytes is too large to map", path, size64)
	}
	size := int(size64)

	log := opts.logger().With("archive", filepath.Base(path))
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	mmapped := err == nil
	if !mmapped {
		log.Debug("mmap unavailable, reading archive", "error", err)
		if data, err = readAllAt(f, size); err != nil {
			return nil, err
		}
	}

	a, err := decode(filepath.Base(path), data, opts, log)
	if err != nil {
		if mmapped {
			_ = unix.Munmap(data)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.Path = path
	a.mmapped = mmapped
	return a, nil
}

// OpenBytes decodes an archive held in memory, such as an upload. data is
// retained until Close.
func OpenBytes(name string, data []byte, opts Options) (*Archive, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	log := opts.logger().With("archive", name)
	return decode(name, data, opts, log)
}

func decode(name string, data []byte, opts Options, log logger.Logger) (*Archive, error) {
	c, err := fsha.Decode(data, opts.decodeOptions(log)...)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = c.Name
	}
	a := &Archive{
		ID:        uuid.NewString(),
		Name:      name,
		Size:      int64(len(data)),
		LoadedAt:  time.Now().UTC(),
		Container: c,
		data:      data,
	}
	log.Info("opened shader archive",
		"id", a.ID,
		"platform", c.Platform.String(),
		"version", c.Version.String(),
		"models", c.Models.Len(),
	)
	return a, nil
}

// Bytes returns the raw archive. It is invalid after Close.
func (a *Archive) Bytes() []byte { return a.data }

// Mapped reports whether the archive bytes are a file mapping.
func (a *Archive) Mapped() bool { return a.mmapped }

// Close releases the archive bytes. The decoded Container stays usable.
func (a *Archive) Close() error {
	if a == nil || a.data == nil {
		return nil
	}
	var err error
	if a.mmapped {
		err = unix.Munmap(a.data)
	}
	a.data = nil
	a.mmapped = false
	return err
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}
