package dirstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
)

func ragged(t *testing.T) layout.Content {
	t.Helper()
	p, err := layout.NewPrimitive(backend.CPU(), backend.Of([]int64{1, 2, 3, 4, 5}), nil, nil)
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	lo, err := layout.NewListOffset(index.Wrap(index.I64, []int64{0, 3, 3, 5}), p, nil)
	if err != nil {
		t.Fatalf("NewListOffset: %v", err)
	}
	return lo
}

func wantList(t *testing.T, c layout.Content, want []any) {
	t.Helper()
	got, err := c.ToList()
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

var raggedValues = []any{
	[]any{int64(1), int64(2), int64(3)},
	[]any{},
	[]any{int64(4), int64(5)},
}

func TestWriteLoad(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, ragged(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, name := range []string{"manifest.json", "node0-offsets", "node1-data"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	out, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantList(t, out, raggedValues)
}

func TestZstd(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, ragged(t), WithZstd()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var compressed int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".zst") {
			compressed++
		}
	}
	if compressed != 2 {
		t.Errorf("%d .zst files, want 2", compressed)
	}
	out, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantList(t, out, raggedValues)
}

func TestOpenDescribes(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, ragged(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	if st.Length() != 3 {
		t.Errorf("Length = %d, want 3", st.Length())
	}
	if got := st.Form().Class(); got != "ListOffsetArray" {
		t.Errorf("form class = %q, want ListOffsetArray", got)
	}
}

func TestKeysAndSizes(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, ragged(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	if diff := cmp.Diff([]string{"node0-offsets", "node1-data"}, st.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if n, ok := st.BufferSize("node0-offsets"); !ok || n != 32 {
		t.Errorf("BufferSize(node0-offsets) = %d, %t; want 32, true", n, ok)
	}
	if _, ok := st.BufferSize("nope"); ok {
		t.Error("BufferSize(nope) reported a size")
	}
	if !IsStore(dir) {
		t.Error("IsStore = false for a written store")
	}
	if IsStore(t.TempDir()) {
		t.Error("IsStore = true for an empty dir")
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, ragged(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	name := filepath.Join(dir, "node1-data")
	raw, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	raw[0] ^= 0xff
	if err := os.WriteFile(name, raw, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrChecksum) {
		t.Errorf("err = %v, want ErrChecksum", err)
	}
}

func TestOpenEmptyDir(t *testing.T) {
	if _, err := Open(t.TempDir()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestManifestVersionGuard(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, ragged(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	name := filepath.Join(dir, "manifest.json")
	raw, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	edited := strings.Replace(string(raw), `"version": 1`, `"version": 99`, 1)
	if edited == string(raw) {
		t.Fatal("manifest version field not found")
	}
	if err := os.WriteFile(name, []byte(edited), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(dir); !errors.Is(err, ErrManifest) {
		t.Errorf("err = %v, want ErrManifest", err)
	}
}
