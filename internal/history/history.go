// Package history archives supervisor results in Redis so recent
// queries can be inspected after the fact.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mosaicworks/querydesk/config"
	"github.com/mosaicworks/querydesk/internal/supervisor"
)

const listKey = "querydesk:history"

// Entry is one archived query result.
type Entry struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Result    supervisor.FinalResult `json:"result"`
}

// Archive keeps the most recent results in a capped Redis list.
type Archive struct {
	client     *redis.Client
	maxEntries int64
	logger     *log.Logger
}

// NewArchive connects to Redis. An empty address disables the archive;
// the returned nil *Archive is safe to call.
func NewArchive(cfg config.HistoryConfig, logger *log.Logger) (*Archive, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Archive{client: client, maxEntries: maxEntries, logger: logger}, nil
}

// Save archives a result. Failures are logged, not returned: history is
// best effort and must never fail a query.
func (a *Archive) Save(ctx context.Context, result supervisor.FinalResult) {
	if a == nil {
		return
	}
	entry := Entry{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), Result: result}
	data, err := json.Marshal(entry)
	if err != nil {
		a.logger.Printf("marshal history entry: %v", err)
		return
	}
	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, listKey, data)
	pipe.LTrim(ctx, listKey, 0, a.maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		a.logger.Printf("archive result: %v", err)
	}
}

// Recent returns up to n archived entries, newest first.
func (a *Archive) Recent(ctx context.Context, n int64) ([]Entry, error) {
	if a == nil {
		return nil, nil
	}
	if n <= 0 || n > a.maxEntries {
		n = a.maxEntries
	}
	raw, err := a.client.LRange(ctx, listKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			a.logger.Printf("skipping bad history entry: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close releases the Redis connection.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.client.Close()
}
