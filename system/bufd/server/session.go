package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"go.lsp.dev/jsonrpc2"

	"github.com/ragged-format/go-ragged/system/bufd/api"
)

// Session answers one client connection's JSON-RPC calls. Calls are
// handled in arrival order on the connection's read loop; datasets are
// immutable once opened, so sessions never coordinate with each other.
type Session struct {
	ID     string
	rpc    jsonrpc2.Conn
	server *Server
	log    *slog.Logger
}

// NewSession wraps a connection in a JSON-RPC session. The wire format
// is LSP-style framing: Content-Length headers around JSON bodies.
func NewSession(id string, conn io.ReadWriteCloser, server *Server) *Session {
	return &Session{
		ID:     id,
		rpc:    jsonrpc2.NewConn(jsonrpc2.NewStream(conn)),
		server: server,
		log:    server.Spec.Log.With("session", id),
	}
}

// Run serves calls until the client disconnects or Close is called.
func (s *Session) Run(ctx context.Context) error {
	s.rpc.Go(ctx, s.handle)
	<-s.rpc.Done()

	err := s.rpc.Err()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Close tears down the connection. Run returns afterwards.
func (s *Session) Close() {
	_ = s.rpc.Close()
}

func (s *Session) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.log.Debug("request", "method", req.Method())

	switch req.Method() {
	case api.MethodList:
		names, err := s.server.List()
		if err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, &api.ListResult{Datasets: names}, nil)

	case api.MethodDescribe:
		var p api.DescribeParams
		if err := unmarshalParams(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		res, err := s.server.Describe(p.Name)
		if err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, res, nil)

	case api.MethodToList:
		var p api.ToListParams
		if err := unmarshalParams(req, &p); err != nil {
			return reply(ctx, nil, err)
		}
		res, err := s.server.Rows(p.Name, p.Start, p.Stop)
		if err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, res, nil)

	default:
		return reply(ctx, nil, fmt.Errorf("%w: %q", jsonrpc2.ErrMethodNotFound, req.Method()))
	}
}

func unmarshalParams(req jsonrpc2.Request, v any) error {
	if len(req.Params()) == 0 {
		return fmt.Errorf("%w: missing params", jsonrpc2.ErrInvalidParams)
	}
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err)
	}
	return nil
}
