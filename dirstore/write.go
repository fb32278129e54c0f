package dirstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/ragged-format/go-ragged/buffers"
	"github.com/ragged-format/go-ragged/debug"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/layout"
)

type Option func(*config)

type config struct {
	compress bool
	level    zstd.EncoderLevel
}

// WithZstd compresses every buffer file, suffixed ".zst". The manifest
// stays plain JSON either way.
func WithZstd() Option {
	return func(c *config) {
		c.compress = true
		c.level = zstd.SpeedBetterCompression
	}
}

// Write stores a tree under dir, creating it as needed. Buffers land on
// disk little-endian whatever the machine order is, so a store moves
// between hosts. The manifest is written last: a directory without one
// never opens.
func Write(dir string, c layout.Content, opts ...Option) error {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	f, length, cont, err := buffers.ToBuffers(c, buffers.WithByteOrder(dtype.LittleEndian))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var enc *zstd.Encoder
	if cfg.compress {
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(cfg.level))
		if err != nil {
			return err
		}
		defer enc.Close()
	}

	m := manifest{
		Version:   manifestVersion,
		Length:    length,
		ByteOrder: dtype.LittleEndian.String(),
		Buffers:   make(map[string]bufferInfo, len(cont)),
	}
	if m.Form, err = form.ToJSON(f); err != nil {
		return err
	}
	if cfg.compress {
		m.Compression = compressionZstd
	}

	for key, raw := range cont {
		m.Buffers[key] = bufferInfo{Size: int64(len(raw)), Checksum: checksum(raw)}
		name, data := key, raw
		if enc != nil {
			name += zstdSuffix
			data = enc.EncodeAll(raw, nil)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("buffer %q: %w", key, err)
		}
	}

	if debug.Store() {
		debug.Logf("store write %s: %d buffers, compress=%t\n", dir, len(cont), cfg.compress)
	}
	raw, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifestName), raw, 0644)
}
