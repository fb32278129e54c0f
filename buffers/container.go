package buffers

import (
	"errors"
	"fmt"

	"github.com/ragged-format/go-ragged/form"
)

var (
	// ErrBufferSize: a container buffer holds fewer bytes than the form
	// declares.
	ErrBufferSize = errors.New("buffer size mismatch")

	// ErrMissingBuffer: the container has no entry under a key.
	ErrMissingBuffer = errors.New("missing buffer")
)

// Container is the read side of named-buffer storage: a mapping from
// string key to raw bytes. The storage medium is the caller's business.
type Container interface {
	Get(key string) ([]byte, error)
}

// PutContainer is a Container that also accepts writes.
type PutContainer interface {
	Container
	Put(key string, data []byte) error
}

// MapContainer keeps buffers in memory.
type MapContainer map[string][]byte

func (m MapContainer) Get(key string) ([]byte, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingBuffer, key)
	}
	return raw, nil
}

func (m MapContainer) Put(key string, data []byte) error {
	m[key] = data
	return nil
}

// KeyFunc names the container entry for one buffer of a form node.
// Attribute is one of "data", "offsets", "starts", "stops", "index",
// "mask", "tags".
type KeyFunc func(f form.Form, attribute string) string

// DefaultKey joins the node's form key and the attribute with a dash,
// "node0-offsets" style.
func DefaultKey(f form.Form, attribute string) string {
	return f.FormKey() + "-" + attribute
}
