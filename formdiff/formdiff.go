// Package formdiff renders the difference between two forms as a line
// diff over their canonical JSON.
package formdiff

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ragged-format/go-ragged/form"
)

// Diff reports differing lines prefixed "- " and "+ " with unchanged
// context between, "" when the forms describe the same layout.
func Diff(a, b form.Form) (string, error) {
	if form.Equal(a, b) {
		return "", nil
	}
	at, err := render(a)
	if err != nil {
		return "", err
	}
	bt, err := render(b)
	if err != nil {
		return "", err
	}
	dmp := diffpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(at, bt)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffpatch.DiffDelete:
			prefix = "- "
		case diffpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

func render(f form.Form) (string, error) {
	if f == nil {
		return "", nil
	}
	raw, err := form.ToJSONIndent(f)
	if err != nil {
		return "", err
	}
	s := string(raw)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s, nil
}
