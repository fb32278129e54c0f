// Package bufd serves stored layout directories over JSON-RPC.
//
// bufd is read-only: it exposes the datasets under one root directory to
// remote clients without shipping the buffer files themselves. Each
// subdirectory of the root that carries a manifest is a dataset.
//
// # Server
//
// Start the server with:
//
//	rg serve -addr localhost:7099 /path/to/root
//
// # Methods
//
// The wire protocol is JSON-RPC 2.0 with LSP-style framing
// (Content-Length headers around JSON bodies):
//
//   - bufd/list - dataset names under the root
//   - bufd/describe - form, length, and type of one dataset
//   - bufd/tolist - materialized rows, optionally a row range
//
// # Related Packages
//
//   - [api] - Request/response types and error codes
//   - [server] - TCP JSON-RPC server
package bufd
