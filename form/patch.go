package form

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
)

// ApplyPatch applies an RFC-6902 patch to a form and reparses the result,
// so a patch can never produce an ill-formed tree.
func ApplyPatch(f Form, patch []byte) (Form, error) {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	doc, err := ToJSON(f)
	if err != nil {
		return nil, err
	}
	out, err := ops.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	return FromJSON(out)
}
