package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Scheduler reindexes the document corpus on a cron schedule so new
// files dropped into the resources directory get picked up without a
// manual /index-pdfs call.
type Scheduler struct {
	Cron    string
	Indexer Indexer
	Logger  *log.Logger
	Stop    chan struct{}

	lastRun time.Time
}

func (s *Scheduler) Start() {
	if _, err := cronexpr.Parse(s.Cron); err != nil {
		s.Logger.Printf("invalid reindex cron %q, scheduler disabled: %v", s.Cron, err)
		return
	}
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

func (s *Scheduler) tick(now time.Time) {
	if !s.due(now) {
		return
	}
	s.lastRun = now
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	report, err := s.Indexer.IndexDir(ctx)
	if err != nil {
		s.Logger.Printf("scheduled reindex failed: %v", err)
		return
	}
	s.Logger.Printf("scheduled reindex: %d chunks", report.Chunks)
}

// due reports whether the cron expression has fired since the last run.
func (s *Scheduler) due(now time.Time) bool {
	expr, err := cronexpr.Parse(s.Cron)
	if err != nil {
		return false
	}
	base := s.lastRun
	if base.IsZero() {
		// Never run: wait for the first cron firing after startup.
		s.lastRun = now
		return false
	}
	next := expr.Next(base)
	return !next.After(now)
}

func (s *Scheduler) Shutdown() {
	close(s.Stop)
}
