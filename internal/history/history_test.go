package history

import (
	"context"
	"testing"

	"github.com/mosaicworks/querydesk/config"
	"github.com/mosaicworks/querydesk/internal/supervisor"
)

func supervisorResult() supervisor.FinalResult {
	return supervisor.FinalResult{
		Success:  true,
		Query:    "how old is joe",
		Result:   "Joe is 28.",
		Attempts: 1,
		Pattern:  supervisor.PatternTag,
	}
}

func TestEmptyAddrDisablesArchive(t *testing.T) {
	a, err := NewArchive(config.HistoryConfig{}, nil)
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	if a != nil {
		t.Fatal("expected nil archive for empty address")
	}
}

func TestNilArchiveIsSafe(t *testing.T) {
	var a *Archive
	a.Save(context.Background(), supervisorResult())
	entries, err := a.Recent(context.Background(), 10)
	if err != nil || entries != nil {
		t.Fatalf("Recent on nil archive: %v %v", entries, err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close on nil archive: %v", err)
	}
}
