// Package api provides the wire types for the bufd JSON-RPC protocol.
package api

import (
	"encoding/json"

	"go.lsp.dev/jsonrpc2"
)

// Method names. All methods are calls; bufd sends no notifications.
const (
	MethodList     = "bufd/list"
	MethodDescribe = "bufd/describe"
	MethodToList   = "bufd/tolist"
)

// Error codes in the implementation-defined JSON-RPC server range.
const (
	CodeUnknownDataset = -32010
	CodeBadDataset     = -32011
)

var (
	// ErrUnknownDataset reports a name with no dataset under the root.
	ErrUnknownDataset = jsonrpc2.NewError(CodeUnknownDataset, "unknown dataset")
	// ErrBadDataset reports a dataset that is present but cannot serve:
	// a broken manifest, a corrupt buffer, an unreadable file.
	ErrBadDataset = jsonrpc2.NewError(CodeBadDataset, "bad dataset")
)

// ListResult names the datasets under the served root, sorted.
type ListResult struct {
	Datasets []string `json:"datasets"`
}

type DescribeParams struct {
	Name string `json:"name"`
}

// DescribeResult carries the dataset's shape without its data: the form,
// the row count, the type string, and the stored buffer footprint.
type DescribeResult struct {
	Name    string          `json:"name"`
	Form    json.RawMessage `json:"form"`
	Length  int64           `json:"length"`
	Type    string          `json:"type"`
	Buffers int             `json:"buffers"`
	Bytes   int64           `json:"bytes"`
}

// ToListParams select a dataset and an optional row range. Bounds follow
// slice semantics: a nil bound is open, negatives count from the end.
type ToListParams struct {
	Name  string `json:"name"`
	Start *int64 `json:"start,omitempty"`
	Stop  *int64 `json:"stop,omitempty"`
}

type ToListResult struct {
	Name   string `json:"name"`
	Length int64  `json:"length"`
	Values []any  `json:"values"`
}
