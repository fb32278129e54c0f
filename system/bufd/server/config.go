package server

import "log/slog"

// Spec holds the runtime specification for the server.
type Spec struct {
	// Root is the directory whose store subdirectories are served as
	// datasets, one dataset per subdirectory name.
	Root string

	// Addr is the TCP listen address for Serve.
	Addr string

	Log *slog.Logger
}
