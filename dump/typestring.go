package dump

import (
	"fmt"
	"strings"

	"github.com/ragged-format/go-ragged/layout"
)

// TypeString renders the array's type: row count, then one segment per
// structural level, "3 * var * ?float64" style. Unknown lengths show as
// "??".
func TypeString(c layout.Content) string {
	return c.Length().String() + " * " + typeOf(c)
}

func typeOf(c layout.Content) string {
	switch n := c.(type) {
	case *layout.Empty:
		return "unknown"
	case *layout.Primitive:
		s := n.DType().String()
		inner := n.InnerShape()
		for i := len(inner) - 1; i >= 0; i-- {
			s = fmt.Sprintf("%d * %s", inner[i], s)
		}
		return s
	case *layout.Regular:
		return fmt.Sprintf("%d * %s", n.Size(), typeOf(n.Content()))
	case *layout.List:
		return "var * " + typeOf(n.Content())
	case *layout.ListOffset:
		return "var * " + typeOf(n.Content())
	case *layout.Indexed:
		return typeOf(n.Content())
	case *layout.IndexedOption:
		return optionOf(n.Content())
	case *layout.ByteMasked:
		return optionOf(n.Content())
	case *layout.BitMasked:
		return optionOf(n.Content())
	case *layout.Unmasked:
		return optionOf(n.Content())
	case *layout.Record:
		parts := make([]string, n.NumFields())
		for i, sub := range n.Contents() {
			if n.IsTuple() {
				parts[i] = typeOf(sub)
			} else {
				parts[i] = n.Fields()[i] + ": " + typeOf(sub)
			}
		}
		if n.IsTuple() {
			return "(" + strings.Join(parts, ", ") + ")"
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *layout.Union:
		parts := make([]string, len(n.Contents()))
		for i, sub := range n.Contents() {
			parts[i] = typeOf(sub)
		}
		return "union[" + strings.Join(parts, ", ") + "]"
	default:
		return layout.ClassOf(c)
	}
}

// optionOf prefixes "?" for scalar content and wraps dimensional content
// in option[...], so "?var" cannot misread as an optional dimension.
func optionOf(c layout.Content) string {
	if dimensional(c) {
		return "option[" + typeOf(c) + "]"
	}
	return "?" + typeOf(c)
}

func dimensional(c layout.Content) bool {
	switch n := c.(type) {
	case *layout.Regular, *layout.List, *layout.ListOffset:
		return true
	case *layout.Indexed:
		return dimensional(n.Content())
	case *layout.Primitive:
		return len(n.InnerShape()) > 0
	}
	return false
}
