package server

import (
	"io"
	"log"
	"testing"
	"time"
)

func TestSchedulerDue(t *testing.T) {
	s := &Scheduler{Cron: "*/5 * * * *", Logger: log.New(io.Discard, "", 0)}
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// First check primes lastRun without firing.
	if s.due(t0) {
		t.Error("first check should not fire")
	}
	if s.due(t0.Add(time.Minute)) {
		t.Error("fired before the cron boundary")
	}
	if !s.due(t0.Add(6 * time.Minute)) {
		t.Error("did not fire after the cron boundary")
	}
}

func TestSchedulerTickReindexes(t *testing.T) {
	indexer := &stubIndexer{chunks: 3}
	s := &Scheduler{
		Cron:    "* * * * *",
		Indexer: indexer,
		Logger:  log.New(io.Discard, "", 0),
		Stop:    make(chan struct{}),
	}
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s.tick(t0) // primes lastRun
	s.tick(t0.Add(2 * time.Minute))
	if indexer.runs != 1 {
		t.Errorf("indexer runs = %d, want 1", indexer.runs)
	}
}

func TestSchedulerInvalidCronDisables(t *testing.T) {
	s := &Scheduler{
		Cron:   "not a cron",
		Logger: log.New(io.Discard, "", 0),
		Stop:   make(chan struct{}),
	}
	s.Start() // must not panic or spin
	if s.due(time.Now()) {
		t.Error("invalid cron must never be due")
	}
}
