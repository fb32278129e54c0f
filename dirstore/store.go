// Package dirstore keeps one layout tree as a directory: one file per
// buffer plus a manifest naming the form, the length, and per-buffer
// integrity data.
package dirstore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/ragged-format/go-ragged/buffers"
	"github.com/ragged-format/go-ragged/dtype"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/layout"
)

const (
	manifestName    = "manifest.json"
	manifestVersion = 1

	compressionZstd = "zstd"
	zstdSuffix      = ".zst"
)

var (
	ErrManifest = errors.New("bad store manifest")
	ErrChecksum = errors.New("buffer checksum mismatch")
)

type manifest struct {
	Version     int                   `json:"version"`
	Form        json.RawMessage       `json:"form"`
	Length      int64                 `json:"length"`
	ByteOrder   string                `json:"byteorder"`
	Compression string                `json:"compression,omitempty"`
	Buffers     map[string]bufferInfo `json:"buffers"`
}

// bufferInfo describes the logical buffer, before any compression.
type bufferInfo struct {
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

func checksum(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}

// Store is an opened directory. It serves the buffer codec directly:
// Get verifies checksums and decompresses on the way out.
type Store struct {
	dir   string
	m     manifest
	f     form.Form
	order dtype.ByteOrder
	dec   *zstd.Decoder
}

// IsStore reports whether dir carries a manifest, without opening it.
func IsStore(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifestName))
	return err == nil
}

// Open reads a directory's manifest. The files themselves are read
// lazily, one Get at a time.
func Open(dir string) (*Store, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: version %d, this build reads %d", ErrManifest, m.Version, manifestVersion)
	}
	f, err := form.FromJSON(m.Form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	order, err := dtype.ParseByteOrder(m.ByteOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	st := &Store{dir: dir, m: m, f: f, order: order}
	switch m.Compression {
	case "":
	case compressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		st.dec = dec
	default:
		return nil, fmt.Errorf("%w: unknown compression %q", ErrManifest, m.Compression)
	}
	return st, nil
}

func (st *Store) Form() form.Form { return st.f }
func (st *Store) Length() int64   { return st.m.Length }

// Keys lists the store's buffer names, sorted.
func (st *Store) Keys() []string {
	keys := make([]string, 0, len(st.m.Buffers))
	for k := range st.m.Buffers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// BufferSize reports one buffer's byte size before compression.
func (st *Store) BufferSize(key string) (int64, bool) {
	info, ok := st.m.Buffers[key]
	return info.Size, ok
}

// Close releases the decompressor. Get fails afterwards when the store
// was compressed.
func (st *Store) Close() {
	if st.dec != nil {
		st.dec.Close()
	}
}

func (st *Store) Get(key string) ([]byte, error) {
	info, ok := st.m.Buffers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", buffers.ErrMissingBuffer, key)
	}
	name := key
	if st.dec != nil {
		name += zstdSuffix
	}
	raw, err := os.ReadFile(filepath.Join(st.dir, name))
	if err != nil {
		return nil, err
	}
	if st.dec != nil {
		raw, err = st.dec.DecodeAll(raw, make([]byte, 0, info.Size))
		if err != nil {
			return nil, fmt.Errorf("buffer %q: %w", key, err)
		}
	}
	if int64(len(raw)) != info.Size {
		return nil, fmt.Errorf("%w: buffer %q is %d bytes, manifest says %d", ErrChecksum, key, len(raw), info.Size)
	}
	if got := checksum(raw); got != info.Checksum {
		return nil, fmt.Errorf("%w: buffer %q", ErrChecksum, key)
	}
	return raw, nil
}

// Content rebuilds the stored tree through the buffer codec. The stored
// byte order always applies, whatever the extra options say.
func (st *Store) Content(opts ...buffers.Option) (layout.Content, error) {
	all := make([]buffers.Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, buffers.WithByteOrder(st.order))
	return buffers.FromBuffers(st.f, st.m.Length, st, all...)
}

// Load opens a directory and rebuilds its tree in one step.
func Load(dir string, opts ...buffers.Option) (layout.Content, error) {
	st, err := Open(dir)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Content(opts...)
}
