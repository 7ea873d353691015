// Package mcp implements a minimal model-context-protocol boundary over
// stdio JSON-RPC: "tools/list" advertises tool descriptors, "tools/call"
// dispatches to handlers. Persistence stays behind the tool handlers; the
// protocol layer itself is stateless.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// ToolDesc describes a single MCP tool, including its input schema.
type ToolDesc struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Handler executes one tool call.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool pairs a descriptor with its handler.
type Tool struct {
	Desc    ToolDesc
	Handler Handler
}

type rpcReq struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResp struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Result  map[string]any `json:"result,omitempty"`
	Error   *rpcError      `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server serves a fixed tool set over a stdio JSON-RPC loop.
type Server struct {
	name        string
	tools       []Tool
	byName      map[string]Handler
	callTimeout time.Duration
	logger      *log.Logger
}

// NewServer wires a tool server. callTimeout bounds each tools/call so a
// stuck handler cannot wedge the loop.
func NewServer(name string, callTimeout time.Duration, logger *log.Logger, tools ...Tool) *Server {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[MCP "+name+"] ", log.LstdFlags)
	}
	byName := make(map[string]Handler, len(tools))
	for _, t := range tools {
		byName[t.Desc.Name] = t.Handler
	}
	return &Server{name: name, tools: tools, byName: byName, callTimeout: callTimeout, logger: logger}
}

// Descriptors returns the advertised tool list.
func (s *Server) Descriptors() []ToolDesc {
	out := make([]ToolDesc, len(s.tools))
	for i, t := range s.tools {
		out[i] = t.Desc
	}
	return out
}

// Call dispatches one tool call. It is used both by the stdio loop and by
// the in-process client.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	h, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return h(ctx, args)
}

// Serve runs the stdio JSON-RPC loop until EOF.
func (s *Server) Serve(in io.Reader, out io.Writer) error {
	dec := json.NewDecoder(bufio.NewReader(in))
	for {
		var req rpcReq
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// Skip malformed frames rather than killing the server.
			s.logger.Printf("bad frame: %v", err)
			dec = json.NewDecoder(bufio.NewReader(in))
			continue
		}

		switch req.Method {
		case "tools/list":
			descs := s.Descriptors()
			writeResp(out, req.ID, map[string]any{"tools": descs}, nil)

		case "tools/call":
			name, _ := req.Params["name"].(string)
			args, _ := req.Params["arguments"].(map[string]any)
			ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
			res, err := s.Call(ctx, name, args)
			cancel()
			if err != nil {
				s.logger.Printf("tool %s failed: %v", name, err)
			}
			writeResp(out, req.ID, res, err)

		default:
			writeResp(out, req.ID, nil, fmt.Errorf("unknown method: %s", req.Method))
		}
	}
}

func writeResp(w io.Writer, id any, result map[string]any, err error) {
	resp := rpcResp{JSONRPC: "2.0", ID: id}
	if err != nil {
		resp.Error = &rpcError{Code: -32000, Message: err.Error()}
	} else {
		resp.Result = result
	}
	_ = json.NewEncoder(w).Encode(resp)
}
