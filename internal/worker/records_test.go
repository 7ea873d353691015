package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mosaicworks/querydesk/internal/supervisor"
	"github.com/mosaicworks/querydesk/mcp"
)

// stubGenerator replays scripted responses and records the prompts it
// was given.
type stubGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

// stubToolClient serves a fixed tool list and records calls.
type stubToolClient struct {
	tools  []mcp.ToolDesc
	result map[string]any
	err    error

	mu    sync.Mutex
	calls []string
	args  []map[string]any
}

func (c *stubToolClient) ListTools(context.Context) ([]mcp.ToolDesc, error) {
	return c.tools, nil
}

func (c *stubToolClient) CallTool(_ context.Context, name string, args map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
	c.args = append(c.args, args)
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func (c *stubToolClient) Close() error { return nil }

func personClient() *stubToolClient {
	return &stubToolClient{
		tools: []mcp.ToolDesc{
			{Name: "person.get", Description: "Get a person by id."},
			{Name: "person.search_by_name", Description: "Search persons by name."},
		},
		result: map[string]any{"id": 1, "name": "Joe", "age": 28},
	}
}

func recordsTask() supervisor.WorkerTask {
	return supervisor.WorkerTask{
		Query:    "how old is joe",
		Category: supervisor.CategoryRecords,
		Attempt:  1,
	}
}

func TestRecordsWorkerCallsToolThenAnswers(t *testing.T) {
	client := personClient()
	gen := &stubGenerator{responses: []string{
		`{"action":"call","tool":"person.search_by_name","arguments":{"name":"joe"}}`,
		`{"action":"answer","answer":"Joe is 28 years old."}`,
	}}
	w := &RecordsWorker{Clients: []mcp.Client{client}, Provider: gen, Model: "m"}

	ans, err := w.Invoke(context.Background(), recordsTask())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ans.Text != "Joe is 28 years old." {
		t.Errorf("answer = %q", ans.Text)
	}
	if ans.Category != supervisor.CategoryRecords {
		t.Errorf("category = %s", ans.Category)
	}
	if len(client.calls) != 1 || client.calls[0] != "person.search_by_name" {
		t.Errorf("tool calls = %v", client.calls)
	}
	if client.args[0]["name"] != "joe" {
		t.Errorf("tool args = %v", client.args[0])
	}
	// The second prompt carries the first tool's result.
	if !strings.Contains(gen.prompts[1], `"name":"Joe"`) {
		t.Errorf("second prompt missing tool result:\n%s", gen.prompts[1])
	}
}

func TestRecordsWorkerSurvivesToolError(t *testing.T) {
	client := personClient()
	client.err = errors.New("db locked")
	gen := &stubGenerator{responses: []string{
		`{"action":"call","tool":"person.get","arguments":{"id":1}}`,
		`{"action":"answer","answer":"The record could not be read."}`,
	}}
	w := &RecordsWorker{Clients: []mcp.Client{client}, Provider: gen, Model: "m"}

	ans, err := w.Invoke(context.Background(), recordsTask())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ans.Text == "" {
		t.Fatal("expected answer text")
	}
	if !strings.Contains(gen.prompts[1], "error: db locked") {
		t.Errorf("tool failure not surfaced to the model:\n%s", gen.prompts[1])
	}
}

func TestRecordsWorkerStepBudget(t *testing.T) {
	client := personClient()
	call := `{"action":"call","tool":"person.get","arguments":{"id":1}}`
	gen := &stubGenerator{responses: []string{call, call, call}}
	w := &RecordsWorker{Clients: []mcp.Client{client}, Provider: gen, Model: "m", MaxSteps: 3}

	_, err := w.Invoke(context.Background(), recordsTask())
	if err == nil {
		t.Fatal("expected error after step budget")
	}
	if len(client.calls) != 3 {
		t.Errorf("tool calls = %d, want 3", len(client.calls))
	}
}

func TestRecordsWorkerRejectsUnparseableAction(t *testing.T) {
	w := &RecordsWorker{
		Clients:  []mcp.Client{personClient()},
		Provider: &stubGenerator{responses: []string{"I think the answer is 28"}},
		Model:    "m",
	}
	if _, err := w.Invoke(context.Background(), recordsTask()); err == nil {
		t.Fatal("expected error for unparseable model action")
	}
}

func TestRecordsWorkerFeedbackReachesPrompt(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"action":"answer","answer":"Joe is 28."}`}}
	w := &RecordsWorker{Clients: []mcp.Client{personClient()}, Provider: gen, Model: "m"}

	task := recordsTask()
	task.Attempt = 2
	task.Feedback = []string{"the age is missing"}
	if _, err := w.Invoke(context.Background(), task); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(gen.prompts[0], "the age is missing") {
		t.Errorf("feedback not in prompt:\n%s", gen.prompts[0])
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`prose first {"a":{"b":2}} prose after`, `{"a":{"b":2}}`},
		{`{"s":"brace } inside"}`, `{"s":"brace } inside"}`},
		{"no json here", ""},
		{`{"unterminated":`, ""},
	}
	for _, tc := range cases {
		if got := extractJSON(tc.in); got != tc.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	blocking := invokerFunc(func(ctx context.Context, task supervisor.WorkerTask) (supervisor.WorkerAnswer, error) {
		<-ctx.Done()
		return supervisor.WorkerAnswer{}, ctx.Err()
	})
	w := WithTimeout(blocking, 1)
	if _, err := w.Invoke(context.Background(), recordsTask()); err == nil {
		t.Fatal("expected timeout error")
	}
}

type invokerFunc func(context.Context, supervisor.WorkerTask) (supervisor.WorkerAnswer, error)

func (f invokerFunc) Invoke(ctx context.Context, task supervisor.WorkerTask) (supervisor.WorkerAnswer, error) {
	return f(ctx, task)
}
