package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mosaicworks/querydesk/internal/retrieval"
	"github.com/mosaicworks/querydesk/internal/supervisor"
	"github.com/mosaicworks/querydesk/tools/web_fetch"
	"github.com/mosaicworks/querydesk/tools/web_search/serper"
)

// DocumentSearcher answers hybrid searches over the indexed corpus.
// The retrieval pipeline satisfies this.
type DocumentSearcher interface {
	Search(ctx context.Context, query string) ([]retrieval.SearchHit, error)
}

// ProfileFinder locates social profiles for a person.
type ProfileFinder interface {
	FindProfiles(ctx context.Context, name, email string) (serper.Profiles, error)
}

// PageFetcher pulls readable text from a profile page.
type PageFetcher interface {
	Exec(ctx context.Context, link string) (web_fetch.Result, error)
}

// DocumentsWorker answers questions from the indexed document corpus,
// optionally augmented with a social profile lookup. Every answer is
// masked before it leaves the worker.
type DocumentsWorker struct {
	Pipeline DocumentSearcher
	Provider Generator
	Model    string
	Profiles ProfileFinder // nil disables profile search
	Fetcher  PageFetcher   // nil skips profile page fetch
	Logger   *log.Logger
}

func (w *DocumentsWorker) logger() *log.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.New(io.Discard, "", 0)
}

func (w *DocumentsWorker) Invoke(ctx context.Context, task supervisor.WorkerTask) (supervisor.WorkerAnswer, error) {
	hits, err := w.Pipeline.Search(ctx, task.Query)
	if err != nil {
		return supervisor.WorkerAnswer{}, fmt.Errorf("document search: %w", err)
	}

	var profileNotes string
	if w.Profiles != nil && wantsProfiles(task.Query) {
		profileNotes = w.lookupProfiles(ctx, task.Query)
	}

	if len(hits) == 0 && profileNotes == "" {
		return supervisor.WorkerAnswer{
			Category: task.Category,
			Text:     "No relevant documents were found for this query.",
		}, nil
	}

	prompt := w.buildPrompt(task, hits, profileNotes)
	raw, err := w.Provider.Generate(ctx, prompt, w.Model)
	if err != nil {
		return supervisor.WorkerAnswer{}, fmt.Errorf("model call: %w", err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return supervisor.WorkerAnswer{}, fmt.Errorf("model returned an empty answer")
	}
	return supervisor.WorkerAnswer{
		Category: task.Category,
		Text:     retrieval.MaskSensitive(answer),
	}, nil
}

var profileMarkers = []string{"github", "linkedin", "profile", "social"}

func wantsProfiles(query string) bool {
	q := strings.ToLower(query)
	for _, m := range profileMarkers {
		if strings.Contains(q, m) {
			return true
		}
	}
	return false
}

// lookupProfiles extracts the person's name from the query, finds their
// profiles and, when a fetcher is attached, pulls a short excerpt of
// each page. Lookup failures degrade to an empty note; the document
// answer still stands on its own.
func (w *DocumentsWorker) lookupProfiles(ctx context.Context, query string) string {
	name, err := w.extractName(ctx, query)
	if err != nil || name == "" {
		w.logger().Printf("profile name extraction failed: %v", err)
		return ""
	}
	profiles, err := w.Profiles.FindProfiles(ctx, name, "")
	if err != nil {
		w.logger().Printf("profile search for %s failed: %v", name, err)
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Profile search results for %s:\n", name)
	writeProfile := func(label, url string) {
		if url == "" {
			fmt.Fprintf(&b, "%s: Not found\n", label)
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, url)
		if w.Fetcher == nil {
			return
		}
		res, err := w.Fetcher.Exec(ctx, url)
		if err != nil || res.Text == "" {
			return
		}
		excerpt := res.Text
		if len(excerpt) > 600 {
			excerpt = excerpt[:600]
		}
		fmt.Fprintf(&b, "%s page excerpt: %s\n", label, excerpt)
	}
	writeProfile("GitHub", profiles.GitHub)
	writeProfile("LinkedIn", profiles.LinkedIn)
	return b.String()
}

func (w *DocumentsWorker) extractName(ctx context.Context, query string) (string, error) {
	prompt := "Extract the person's full name from this query. Reply with the name only, or NONE if there is no person name.\n\nQUERY: " + query
	raw, err := w.Provider.Generate(ctx, prompt, w.Model)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(raw)
	if name == "" || strings.EqualFold(name, "NONE") {
		return "", nil
	}
	return name, nil
}

func (w *DocumentsWorker) buildPrompt(task supervisor.WorkerTask, hits []retrieval.SearchHit, profileNotes string) string {
	var b strings.Builder
	b.WriteString(`Answer the question using ONLY the document passages and profile notes below.
Cite the source file for document facts. If the passages do not contain the answer, say so.
Mask every aadhar number as XXXX-XXXX-<last 4 digits>, even when quoting a document.

`)
	if len(hits) > 0 {
		b.WriteString("PASSAGES:\n")
		for _, h := range hits {
			fmt.Fprintf(&b, "[%s p.%d] %s\n", h.Source, h.Page, h.Text)
		}
		b.WriteString("\n")
	}
	if profileNotes != "" {
		b.WriteString("PROFILE NOTES:\n" + profileNotes + "\n")
	}
	b.WriteString("QUESTION: " + task.Query + "\n")
	b.WriteString(feedbackBlock(task.Feedback))
	return b.String()
}
