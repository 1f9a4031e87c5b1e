package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
)

var ErrEndpointExists = errors.New("endpoint already exists")

type StdioServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error
	Listen(ctx context.Context) error
}

// NewStdioServer serves newline-delimited JSON-RPC requests read from in
// and writes one response line per request to out.
func NewStdioServer(in io.Reader, out io.Writer) StdioServer {
	return &stdioServer{
		in:        in,
		out:       out,
		endpoints: make(map[mcp.MCPMethod]MCPEndpoint),
	}
}

type stdioServer struct {
	in        io.Reader
	out       io.Writer
	endpoints map[mcp.MCPMethod]MCPEndpoint
}

func (s *stdioServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := make(chan string)
	errs := make(chan error, 1)

	go func(ctx context.Context, lines chan<- string, errs chan<- error) {
		defer close(lines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}(ctx, lines, errs)

	encoder := json.NewEncoder(s.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if line == "" {
				continue
			}

			var req JSONRPCRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				continue
			}

			// notifications carry no id and get no response
			if req.ID.IsNil() {
				continue
			}

			var resp mcp.JSONRPCMessage

			endpoint, ok := s.endpoints[req.Method]
			if ok {
				resp = endpoint(ctx, req)
			} else {
				resp = MethodNotFound(req.ID)
			}

			if err := encoder.Encode(resp); err != nil {
				return err
			}
		}
	}
}

func (s *stdioServer) AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error {
	_, ok := s.endpoints[method]
	if ok {
		return ErrEndpointExists
	}

	s.endpoints[method] = endpoint
	return nil
}
