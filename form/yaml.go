package form

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// FromYAML parses a form written as YAML.
func FromYAML(data []byte) (Form, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadForm, err)
	}
	j, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadForm, err)
	}
	return FromJSON(j)
}

// ToYAML renders a form as YAML.
func ToYAML(f Form) ([]byte, error) {
	j, err := ToJSON(f)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(j, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
