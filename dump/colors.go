package dump

import (
	"strings"

	"github.com/fatih/color"

	"github.com/ragged-format/go-ragged/layout"
)

// Colors maps node classes to sprintf-style colorizers. Attribute labels
// (offsets, mask, tags, ...) share one dim colorizer.
type Colors struct {
	Default func(string, ...any) string
	Attr    func(string, ...any) string
	Map     map[string]func(string, ...any) string
}

func NewColors() *Colors {
	colors := &Colors{
		Default: colorDefault,
		Attr:    color.RGB(128, 128, 128).SprintfFunc(),
		Map:     map[string]func(string, ...any) string{},
	}
	leaf := color.CyanString
	lists := color.RGB(8, 196, 16).SprintfFunc()
	option := color.RGB(168, 0, 196).SprintfFunc()

	colors.Map["EmptyArray"] = leaf
	colors.Map["NumpyArray"] = leaf
	colors.Map["RegularArray"] = lists
	colors.Map["ListArray"] = lists
	colors.Map["ListOffsetArray"] = lists
	colors.Map["IndexedArray"] = color.RGB(74, 92, 138).SprintfFunc()
	colors.Map["IndexedOptionArray"] = option
	colors.Map["ByteMaskedArray"] = option
	colors.Map["BitMaskedArray"] = option
	colors.Map["UnmaskedArray"] = option
	colors.Map["RecordArray"] = color.RGB(196, 96, 16).SprintfFunc()
	colors.Map["UnionArray"] = color.RedString
	for k, f := range colors.Map {
		colors.Map[k] = func(v string, _ ...any) string {
			return f(strings.Replace(v, "%", "%%", -1))
		}
	}
	return colors
}

func colorDefault(v string, _ ...any) string { return v }

func plainColors() *Colors {
	return &Colors{Default: colorDefault, Attr: colorDefault, Map: map[string]func(string, ...any) string{}}
}

func (c *Colors) class(cn layout.Content, s string) string {
	f := c.Map[layout.ClassOf(cn)]
	if f == nil {
		f = c.Default
	}
	return f(s)
}

func (c *Colors) attr(s string) string { return c.Attr(s) }
