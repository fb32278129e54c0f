package buffers

import (
	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/dtype"
)

// Option configures FromBuffers and ToBuffers.
type Option func(*config)

type config struct {
	bk       backend.Backend
	order    dtype.ByteOrder
	key      KeyFunc
	simplify bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		bk:    backend.CPU(),
		order: dtype.NativeOrder(),
		key:   DefaultKey,
	}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithBackend selects the backend the rebuilt tree lives on.
func WithBackend(bk backend.Backend) Option {
	return func(c *config) { c.bk = bk }
}

// WithByteOrder sets the endianness of the container's buffers. Buffers
// are swapped on the way in or out when it differs from the machine's.
func WithByteOrder(order dtype.ByteOrder) Option {
	return func(c *config) { c.order = order }
}

// WithKeyFunc replaces the key naming scheme on both directions.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *config) { c.key = fn }
}

// WithSimplify collapses redundant indirection while rebuilding: indexes
// compose through indexes, option layers merge into one, unions flatten.
// Off by default; a form that nests indirection the node set forbids can
// only be rebuilt with this on.
func WithSimplify(v bool) Option {
	return func(c *config) { c.simplify = v }
}
