package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mosaicworks/querydesk/internal/supervisor"
	"github.com/mosaicworks/querydesk/mcp"
)

const defaultMaxSteps = 6

// RecordsWorker answers questions about persons and bank accounts by
// letting the model drive the record tool servers, one call at a time.
type RecordsWorker struct {
	Clients  []mcp.Client // person and bank tool servers
	Provider Generator
	Model    string
	MaxSteps int // tool calls per invocation, defaults to 6
	Logger   *log.Logger
}

// modelAction is the strict JSON contract the model replies with: either
// one tool call or a final answer.
type modelAction struct {
	Action    string         `json:"action"` // "call" or "answer"
	Tool      string         `json:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Answer    string         `json:"answer,omitempty"`
}

type observation struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

func (w *RecordsWorker) logger() *log.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.New(io.Discard, "", 0)
}

func (w *RecordsWorker) maxSteps() int {
	if w.MaxSteps > 0 {
		return w.MaxSteps
	}
	return defaultMaxSteps
}

func (w *RecordsWorker) Invoke(ctx context.Context, task supervisor.WorkerTask) (supervisor.WorkerAnswer, error) {
	tools, byName, err := w.snapshotTools(ctx)
	if err != nil {
		return supervisor.WorkerAnswer{}, fmt.Errorf("listing tools: %w", err)
	}

	toolsJSON, _ := json.Marshal(tools)
	var observations []observation
	for step := 0; step < w.maxSteps(); step++ {
		prompt := w.buildPrompt(task, string(toolsJSON), observations)
		raw, err := w.Provider.Generate(ctx, prompt, w.Model)
		if err != nil {
			return supervisor.WorkerAnswer{}, fmt.Errorf("model call: %w", err)
		}

		var act modelAction
		if err := json.Unmarshal([]byte(extractJSON(raw)), &act); err != nil {
			return supervisor.WorkerAnswer{}, fmt.Errorf("unparseable model action: %w; content=%s", err, raw)
		}

		switch act.Action {
		case "answer":
			if strings.TrimSpace(act.Answer) == "" {
				return supervisor.WorkerAnswer{}, fmt.Errorf("model returned an empty answer")
			}
			return supervisor.WorkerAnswer{Category: task.Category, Text: act.Answer}, nil

		case "call":
			client, ok := byName[act.Tool]
			if !ok {
				observations = append(observations, observation{
					Tool:   act.Tool,
					Result: fmt.Sprintf("error: unknown tool %q", act.Tool),
				})
				continue
			}
			res, err := client.CallTool(ctx, act.Tool, act.Arguments)
			if err != nil {
				// Let the model see the failure and adjust.
				w.logger().Printf("tool %s failed: %v", act.Tool, err)
				observations = append(observations, observation{
					Tool:   act.Tool,
					Result: "error: " + err.Error(),
				})
				continue
			}
			b, _ := json.Marshal(res)
			observations = append(observations, observation{Tool: act.Tool, Result: string(b)})

		default:
			return supervisor.WorkerAnswer{}, fmt.Errorf("unknown model action %q", act.Action)
		}
	}
	return supervisor.WorkerAnswer{}, fmt.Errorf("no final answer after %d tool calls", w.maxSteps())
}

// snapshotTools merges the tool lists of all attached clients and maps
// each tool name back to the client that serves it.
func (w *RecordsWorker) snapshotTools(ctx context.Context) ([]mcp.ToolDesc, map[string]mcp.Client, error) {
	var all []mcp.ToolDesc
	byName := make(map[string]mcp.Client)
	for _, c := range w.Clients {
		tools, err := c.ListTools(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range tools {
			all = append(all, t)
			byName[t.Name] = c
		}
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("no tools available")
	}
	return all, byName, nil
}

func (w *RecordsWorker) buildPrompt(task supervisor.WorkerTask, toolsJSON string, obs []observation) string {
	var b strings.Builder
	b.WriteString(`You answer questions about person and bank account records by calling tools.
Reply with STRICT JSON only, one of:
  {"action":"call","tool":"<tool name>","arguments":{...}}
  {"action":"answer","answer":"<final answer for the user>"}
Call tools until you have the data, then answer. Answer from tool results only; if the records do not contain the data, say so in the answer.

TOOLS:
`)
	b.WriteString(toolsJSON)
	b.WriteString("\n\nQUESTION: ")
	b.WriteString(task.Query)
	b.WriteString("\n")
	b.WriteString(feedbackBlock(task.Feedback))
	if len(obs) > 0 {
		b.WriteString("\nTOOL RESULTS SO FAR:\n")
		for _, o := range obs {
			fmt.Fprintf(&b, "%s -> %s\n", o.Tool, o.Result)
		}
	}
	return b.String()
}
