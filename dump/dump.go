// Package dump renders layout trees for terminals: an indented
// per-node view and a compact type notation.
package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/ragged-format/go-ragged/backend"
	"github.com/ragged-format/go-ragged/index"
	"github.com/ragged-format/go-ragged/layout"
)

type Option func(*printer)

// WithColors forces the palette on regardless of where output goes.
func WithColors(c *Colors) Option {
	return func(p *printer) { p.colors = c }
}

// WithMaxValues bounds how many buffer elements a line shows.
func WithMaxValues(n int) Option {
	return func(p *printer) { p.maxValues = n }
}

func WithIndent(s string) Option {
	return func(p *printer) { p.indent = s }
}

type printer struct {
	w         io.Writer
	colors    *Colors
	maxValues int
	indent    string
}

// Fprint writes an indented node-per-node rendering of the tree. Colors
// turn on automatically when w is a terminal, off otherwise.
func Fprint(w io.Writer, c layout.Content, opts ...Option) error {
	p := &printer{w: w, maxValues: 12, indent: "    "}
	for _, opt := range opts {
		opt(p)
	}
	if p.colors == nil {
		p.colors = plainColors()
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			p.colors = NewColors()
		}
	}
	return p.node(c, "", 0)
}

// Sprint is Fprint into a string, never colored unless asked.
func Sprint(c layout.Content, opts ...Option) string {
	var sb strings.Builder
	if err := Fprint(&sb, c, opts...); err != nil {
		return "<" + err.Error() + ">"
	}
	return sb.String()
}

func (p *printer) line(depth int, s string) error {
	_, err := fmt.Fprintf(p.w, "%s%s\n", strings.Repeat(p.indent, depth), s)
	return err
}

func (p *printer) header(c layout.Content, label, detail string) string {
	s := p.colors.class(c, layout.ClassOf(c))
	if label != "" {
		s = p.colors.attr(label+":") + " " + s
	}
	s += " len=" + c.Length().String()
	if detail != "" {
		s += " " + detail
	}
	return s
}

func (p *printer) attrLine(depth int, label string, idx *index.Index) error {
	return p.line(depth, p.colors.attr(label+":")+" "+indexValues(idx, p.maxValues))
}

func (p *printer) paramsLine(depth int, c layout.Content) error {
	params := c.Parameters()
	if len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return p.line(depth, p.colors.attr("params:")+" "+string(raw))
}

func (p *printer) node(c layout.Content, label string, depth int) error {
	var detail string
	switch n := c.(type) {
	case *layout.Primitive:
		detail = "dtype=" + n.DType().String()
		if inner := n.InnerShape(); len(inner) > 0 {
			detail += fmt.Sprintf(" inner=%v", inner)
		}
	case *layout.Regular:
		detail = fmt.Sprintf("size=%d", n.Size())
	case *layout.ByteMasked:
		detail = fmt.Sprintf("validWhen=%t", n.ValidWhen())
	case *layout.BitMasked:
		detail = fmt.Sprintf("validWhen=%t lsbOrder=%t", n.ValidWhen(), n.LSBOrder())
	case *layout.Record:
		if n.IsTuple() {
			detail = "tuple"
		}
	}
	if err := p.line(depth, p.header(c, label, detail)); err != nil {
		return err
	}
	if err := p.paramsLine(depth+1, c); err != nil {
		return err
	}

	switch n := c.(type) {
	case *layout.Empty:
		return nil
	case *layout.Primitive:
		return p.line(depth+1, p.colors.attr("data:")+" "+bufferValues(n.Data(), p.maxValues))
	case *layout.Regular:
		return p.node(n.Content(), "content", depth+1)
	case *layout.List:
		if err := p.attrLine(depth+1, "starts", n.Starts()); err != nil {
			return err
		}
		if err := p.attrLine(depth+1, "stops", n.Stops()); err != nil {
			return err
		}
		return p.node(n.Content(), "content", depth+1)
	case *layout.ListOffset:
		if err := p.attrLine(depth+1, "offsets", n.Offsets()); err != nil {
			return err
		}
		return p.node(n.Content(), "content", depth+1)
	case *layout.Indexed:
		if err := p.attrLine(depth+1, "index", n.Index()); err != nil {
			return err
		}
		return p.node(n.Content(), "content", depth+1)
	case *layout.IndexedOption:
		if err := p.attrLine(depth+1, "index", n.Index()); err != nil {
			return err
		}
		return p.node(n.Content(), "content", depth+1)
	case *layout.ByteMasked:
		if err := p.attrLine(depth+1, "mask", n.Mask()); err != nil {
			return err
		}
		return p.node(n.Content(), "content", depth+1)
	case *layout.BitMasked:
		if err := p.attrLine(depth+1, "mask", n.Mask()); err != nil {
			return err
		}
		return p.node(n.Content(), "content", depth+1)
	case *layout.Unmasked:
		return p.node(n.Content(), "content", depth+1)
	case *layout.Record:
		for i, sub := range n.Contents() {
			name := fmt.Sprintf("%d", i)
			if !n.IsTuple() {
				name = n.Fields()[i]
			}
			if err := p.node(sub, name, depth+1); err != nil {
				return err
			}
		}
		return nil
	case *layout.Union:
		if err := p.attrLine(depth+1, "tags", n.Tags()); err != nil {
			return err
		}
		if err := p.attrLine(depth+1, "index", n.Index()); err != nil {
			return err
		}
		for i, sub := range n.Contents() {
			if err := p.node(sub, fmt.Sprintf("tag%d", i), depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", layout.ErrStructuralType, layout.ClassOf(c))
	}
}

func indexValues(x *index.Index, max int) string {
	if !x.KnownData() {
		return x.String()
	}
	data := x.Data()
	if len(data) <= max {
		return fmt.Sprintf("%s%v", x.Kind(), data)
	}
	return fmt.Sprintf("%s%v... (%d total)", x.Kind(), data[:max], len(data))
}

func bufferValues(b *backend.Buffer, max int) string {
	if !b.KnownData() {
		return b.String()
	}
	n := b.Len().MustKnown()
	shown := n
	if shown > int64(max) {
		shown = int64(max)
	}
	parts := make([]string, shown)
	for i := int64(0); i < shown; i++ {
		parts[i] = fmt.Sprintf("%v", b.Value(i))
	}
	s := "[" + strings.Join(parts, " ") + "]"
	if shown < n {
		s += fmt.Sprintf("... (%d total)", n)
	}
	return s
}
