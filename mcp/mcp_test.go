package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

func testServer() *Server {
	echo := Tool{
		Desc: ToolDesc{
			Name:        "test.echo",
			Description: "Echo the input back.",
			InputSchema: map[string]any{"type": "object"},
		},
		Handler: func(_ context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"echo": args["msg"]}, nil
		},
	}
	boom := Tool{
		Desc: ToolDesc{Name: "test.boom", Description: "Always fails."},
		Handler: func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	}
	return NewServer("test", time.Second, log.New(io.Discard, "", 0), echo, boom)
}

func TestServeListAndCall(t *testing.T) {
	srv := testServer()

	clientOut, serverIn := io.Pipe()
	serverOut, clientIn := io.Pipe()
	go func() {
		_ = srv.Serve(clientOut, clientIn)
	}()
	defer serverIn.Close()

	enc := json.NewEncoder(serverIn)
	dec := json.NewDecoder(bufio.NewReader(serverOut))

	// tools/list
	if err := enc.Encode(rpcReq{JSONRPC: "2.0", ID: 1, Method: "tools/list"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var listResp struct {
		ID     any `json:"id"`
		Result struct {
			Tools []ToolDesc `json:"tools"`
		} `json:"result"`
	}
	if err := dec.Decode(&listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Result.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(listResp.Result.Tools))
	}

	// tools/call success
	if err := enc.Encode(rpcReq{JSONRPC: "2.0", ID: 2, Method: "tools/call", Params: map[string]any{
		"name":      "test.echo",
		"arguments": map[string]any{"msg": "hello"},
	}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var callResp rpcResp
	if err := dec.Decode(&callResp); err != nil {
		t.Fatalf("decode call: %v", err)
	}
	if callResp.Error != nil {
		t.Fatalf("unexpected error: %+v", callResp.Error)
	}
	if callResp.Result["echo"] != "hello" {
		t.Fatalf("echo = %v", callResp.Result["echo"])
	}

	// tools/call failure maps to an rpc error, not a dead server
	if err := enc.Encode(rpcReq{JSONRPC: "2.0", ID: 3, Method: "tools/call", Params: map[string]any{
		"name": "test.boom",
	}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var errResp rpcResp
	if err := dec.Decode(&errResp); err != nil {
		t.Fatalf("decode error resp: %v", err)
	}
	if errResp.Error == nil || errResp.Error.Message != "boom" {
		t.Fatalf("expected boom error, got %+v", errResp.Error)
	}

	// unknown method
	if err := enc.Encode(rpcReq{JSONRPC: "2.0", ID: 4, Method: "nope"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var unk rpcResp
	if err := dec.Decode(&unk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if unk.Error == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestLocalClient(t *testing.T) {
	c := NewLocalClient(testServer())
	defer c.Close()

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}

	res, err := c.CallTool(context.Background(), "test.echo", map[string]any{"msg": "hi"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res["echo"] != "hi" {
		t.Fatalf("echo = %v", res["echo"])
	}

	if _, err := c.CallTool(context.Background(), "missing", nil); err == nil {
		t.Fatalf("expected error for unknown tool")
	}
}
