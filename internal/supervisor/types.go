package supervisor

import (
	"context"
	"time"
)

// PatternTag identifies the orchestration pattern on every FinalResult.
const PatternTag = "supervisor_multi_agent"

// Category names a class of specialist worker.
type Category string

const (
	// CategoryRecords handles structured data: persons and bank accounts.
	CategoryRecords Category = "records"
	// CategoryDocuments handles free-text document lookups.
	CategoryDocuments Category = "documents"
)

// RoutingDecision is the set of categories selected for a query, derived once
// and never mutated afterwards.
type RoutingDecision struct {
	Categories []Category `json:"categories"`
	Combined   bool       `json:"combined"`
	Rationale  string     `json:"rationale"`
}

// WorkerTask is one unit of work handed to an invoker. On retry a fresh task
// is built carrying the accumulated validator feedback; tasks are never
// mutated in place.
type WorkerTask struct {
	Query    string   `json:"query"`
	Category Category `json:"category"`
	Attempt  int      `json:"attempt"`
	Feedback []string `json:"feedback,omitempty"`
}

// WorkerAnswer is the free-text output of one invocation.
type WorkerAnswer struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// ValidationVerdict is the judge's call on one answer.
type ValidationVerdict struct {
	Accepted bool   `json:"accepted"`
	Feedback string `json:"feedback,omitempty"`
}

// Attempt records one invoke/validate cycle for a category.
type Attempt struct {
	Number  int               `json:"number"`
	Task    WorkerTask        `json:"task"`
	Answer  WorkerAnswer      `json:"answer"`
	Verdict ValidationVerdict `json:"verdict"`
}

// FinalResult is the terminal artifact of processing one query.
type FinalResult struct {
	Success   bool            `json:"success"`
	Query     string          `json:"query"`
	Result    string          `json:"result"`
	Attempts  int             `json:"attempts"`
	Pattern   string          `json:"pattern"`
	Routing   RoutingDecision `json:"routing"`
	Elapsed   time.Duration   `json:"-"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

// Router classifies a query into one or more worker categories. Routing must
// never fail the request: implementations degrade to combined routing on
// ambiguity and to the records worker when nothing matches.
type Router interface {
	Route(ctx context.Context, query string) RoutingDecision
}

// Invoker produces an answer for a worker task. Calls may be slow and may
// fail; the controller charges a failure as one rejected attempt.
type Invoker interface {
	Invoke(ctx context.Context, task WorkerTask) (WorkerAnswer, error)
}

// Validator decides whether an answer satisfies the original query and, when
// it does not, says what is missing.
type Validator interface {
	Validate(ctx context.Context, query string, answer WorkerAnswer) (ValidationVerdict, error)
}

// Synthesizer merges the per-category answers into one response. It is only
// consulted when more than one category produced an answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, answers []WorkerAnswer) (string, error)
}
