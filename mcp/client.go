package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Client is the caller side of the tool boundary. The records worker only
// ever sees this interface, so tests substitute it freely.
type Client interface {
	ListTools(ctx context.Context) ([]ToolDesc, error)
	CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
	Close() error
}

// stdioClient talks JSON-RPC to a tool server subprocess over its stdio.
type stdioClient struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
	mu  sync.Mutex
	seq int64
}

// StartStdioClient launches a tool server subprocess and connects to it.
func StartStdioClient(ctx context.Context, command string, args ...string) (Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &stdioClient{cmd: cmd, in: stdin, out: bufio.NewReader(stdout)}, nil
}

type clientResp struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Result  map[string]any `json:"result,omitempty"`
	Error   *rpcError      `json:"error,omitempty"`
}

func (c *stdioClient) send(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	req := rpcReq{JSONRPC: "2.0", ID: c.seq, Method: method, Params: params}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	b = append(b, '\n')
	if _, err := c.in.Write(b); err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := c.out.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("mcp: read response: %w", err)
		}
		var resp clientResp
		if err := json.Unmarshal(line, &resp); err != nil {
			continue // not a response frame
		}
		if resp.ID != c.seq {
			continue
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("mcp: %s", resp.Error.Message)
		}
		return resp.Result, nil
	}
}

func (c *stdioClient) ListTools(ctx context.Context) ([]ToolDesc, error) {
	res, err := c.send(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(res["tools"])
	if err != nil {
		return nil, err
	}
	var tools []ToolDesc
	if err := json.Unmarshal(raw, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

func (c *stdioClient) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	return c.send(ctx, "tools/call", map[string]any{"name": name, "arguments": args})
}

func (c *stdioClient) Close() error {
	_ = c.in.Close()
	return c.cmd.Wait()
}

// localClient dispatches tool calls in process. It is used when the tool
// servers run inside the same binary and by tests.
type localClient struct {
	srv *Server
}

// NewLocalClient wraps a Server for in-process use.
func NewLocalClient(srv *Server) Client { return &localClient{srv: srv} }

func (c *localClient) ListTools(context.Context) ([]ToolDesc, error) {
	return c.srv.Descriptors(), nil
}

func (c *localClient) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	return c.srv.Call(ctx, name, args)
}

func (c *localClient) Close() error { return nil }
