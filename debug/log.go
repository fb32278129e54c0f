package debug

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ragged-format/go-ragged/dump"
	"github.com/ragged-format/go-ragged/form"
	"github.com/ragged-format/go-ragged/layout"
)

// Logf writes to stderr, rendering layout trees and forms readably
// instead of through their default formatting.
func Logf(msg string, args ...any) {
	for i := range args {
		switch x := args[i].(type) {
		case layout.Content:
			args[i] = dump.Sprint(x)
		case form.Form:
			raw, err := form.ToJSONIndent(x)
			if err != nil {
				args[i] = fmt.Sprintf("[raw form] %v", x)
				continue
			}
			args[i] = string(raw)
		case map[string]any, []any:
			raw, err := json.MarshalIndent(x, "   |", "  ")
			if err != nil {
				args[i] = fmt.Sprintf("%v", x)
				continue
			}
			args[i] = string(raw)
		}
	}
	fmt.Fprintf(os.Stderr, msg, args...)
}

func JSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
