package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"

	"github.com/ragged-format/go-ragged/dirstore"
	"github.com/ragged-format/go-ragged/dump"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/slicing"
	"github.com/ragged-format/go-ragged/system/bufd/api"
)

// Server answers bufd calls for the datasets under Spec.Root. It is
// read-only: each dataset is opened on first use and its tree cached, so
// concurrent sessions share one immutable layout per dataset.
type Server struct {
	Spec Spec

	// Opened datasets (accessed from session goroutines)
	datasetsMu sync.RWMutex
	datasets   map[string]*dataset

	// TCP listener for the JSON-RPC protocol
	tcpListener *TCPListener
}

type dataset struct {
	store   *dirstore.Store
	content layout.Content
}

// New creates a new Server instance.
func New(spec *Spec) *Server {
	if spec.Log == nil {
		spec.Log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel(),
		}))
	}
	return &Server{
		Spec:     *spec,
		datasets: make(map[string]*dataset),
	}
}

func slogLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Serve listens on Spec.Addr and answers calls until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.StartTCP(ctx, s.Spec.Addr); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Close()
}

// StartTCP starts the TCP listener in the background.
func (s *Server) StartTCP(ctx context.Context, addr string) error {
	if s.tcpListener != nil {
		return fmt.Errorf("TCP listener already running")
	}

	listener, err := NewTCPListener(addr, s)
	if err != nil {
		return err
	}

	s.tcpListener = listener

	go func() {
		if err := listener.Serve(ctx); err != nil {
			s.Spec.Log.Error("TCP listener error", "error", err)
		}
	}()

	return nil
}

// StopTCP stops the TCP listener.
func (s *Server) StopTCP() error {
	if s.tcpListener == nil {
		return nil
	}

	err := s.tcpListener.Close()
	s.tcpListener = nil
	return err
}

// TCPAddr returns the TCP listener's address, or "" if not running.
func (s *Server) TCPAddr() string {
	if s.tcpListener == nil {
		return ""
	}
	return s.tcpListener.Addr().String()
}

// Close stops the listener and releases the cached stores.
func (s *Server) Close() error {
	err := s.StopTCP()

	s.datasetsMu.Lock()
	for _, ds := range s.datasets {
		ds.store.Close()
	}
	s.datasets = make(map[string]*dataset)
	s.datasetsMu.Unlock()

	return err
}

// List names the datasets under the root: every subdirectory that
// carries a store manifest, sorted.
func (s *Server) List() ([]string, error) {
	entries, err := os.ReadDir(s.Spec.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrBadDataset, err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if dirstore.IsStore(filepath.Join(s.Spec.Root, e.Name())) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Describe reports one dataset's form, length, type string, and stored
// buffer footprint. The buffers themselves stay on disk.
func (s *Server) Describe(name string) (*api.DescribeResult, error) {
	ds, err := s.dataset(name)
	if err != nil {
		return nil, err
	}
	fj, err := form.ToJSON(ds.store.Form())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", api.ErrBadDataset, name, err)
	}
	keys := ds.store.Keys()
	var total int64
	for _, k := range keys {
		n, _ := ds.store.BufferSize(k)
		total += n
	}
	return &api.DescribeResult{
		Name:    name,
		Form:    json.RawMessage(fj),
		Length:  ds.store.Length(),
		Type:    dump.TypeString(ds.content),
		Buffers: len(keys),
		Bytes:   total,
	}, nil
}

// Rows materializes one dataset's rows. Bounds follow slice semantics: a
// nil bound is open, negatives count from the end.
func (s *Server) Rows(name string, start, stop *int64) (*api.ToListResult, error) {
	ds, err := s.dataset(name)
	if err != nil {
		return nil, err
	}
	c := ds.content
	if start != nil || stop != nil {
		out, err := slicing.Slice(c, slicing.Range{Start: start, Stop: stop})
		if err != nil {
			return nil, fmt.Errorf("%w: row range: %v", jsonrpc2.ErrInvalidParams, err)
		}
		sub, ok := out.(layout.Content)
		if !ok {
			return nil, fmt.Errorf("%w %q: row range left no array", api.ErrBadDataset, name)
		}
		c = sub
	}
	raw, err := c.ToList()
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", api.ErrBadDataset, name, err)
	}
	values, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w %q: not a list", api.ErrBadDataset, name)
	}
	return &api.ToListResult{
		Name:   name,
		Length: c.Length().Or(int64(len(values))),
		Values: values,
	}, nil
}

// dataset resolves a name to an opened store, opening and caching it on
// first use. Two sessions racing the first open keep the earlier one.
func (s *Server) dataset(name string) (*dataset, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: bad dataset name %q", jsonrpc2.ErrInvalidParams, name)
	}

	s.datasetsMu.RLock()
	ds := s.datasets[name]
	s.datasetsMu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	st, err := dirstore.Open(filepath.Join(s.Spec.Root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w %q", api.ErrUnknownDataset, name)
		}
		return nil, fmt.Errorf("%w %q: %v", api.ErrBadDataset, name, err)
	}
	c, err := st.Content()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("%w %q: %v", api.ErrBadDataset, name, err)
	}

	s.datasetsMu.Lock()
	if prior := s.datasets[name]; prior != nil {
		s.datasetsMu.Unlock()
		st.Close()
		return prior, nil
	}
	ds = &dataset{store: st, content: c}
	s.datasets[name] = ds
	s.datasetsMu.Unlock()

	s.Spec.Log.Info("dataset opened", "name", name, "length", st.Length())
	return ds, nil
}

// validName admits one plain path element, keeping lookups under Root.
func validName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
