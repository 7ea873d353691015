package retrieval

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mosaicworks/querydesk/config"
)

// Embedder produces embedding vectors for texts. The LLM provider
// satisfies this.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline indexes the resources directory and answers hybrid searches
// over it. Reindexing builds a fresh corpus and swaps it in atomically,
// so searches never observe a half-built index.
type Pipeline struct {
	resourcesDir string
	chunkSize    int
	chunkOverlap int
	topK         int
	embedder     Embedder
	logger       *log.Logger

	mu     sync.RWMutex
	corpus *Corpus
}

func NewPipeline(cfg config.RetrievalConfig, embedder Embedder, logger *log.Logger) (*Pipeline, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVAL] ", log.LstdFlags)
	}
	corpus, err := NewCorpus()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		resourcesDir: cfg.ResourcesDir,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		topK:         cfg.TopK,
		embedder:     embedder,
		logger:       logger,
		corpus:       corpus,
	}, nil
}

// Size reports the number of chunks in the live corpus.
func (p *Pipeline) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.corpus.Size()
}

// Close releases the live corpus. Call only once all searches are done.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.corpus.Close()
}

// FileReport describes how one source file was indexed.
type FileReport struct {
	File    string `json:"file"`
	Pages   int    `json:"pages,omitempty"`
	Chunks  int    `json:"chunks"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// IndexReport is the outcome of one corpus rebuild.
type IndexReport struct {
	Files  []FileReport `json:"files"`
	Chunks int          `json:"chunks"`
}

// IndexDir rebuilds the corpus from every PDF and text file under the
// resources directory. Unreadable files are reported, not fatal.
func (p *Pipeline) IndexDir(ctx context.Context) (*IndexReport, error) {
	fresh, err := NewCorpus()
	if err != nil {
		return nil, err
	}

	report := &IndexReport{}
	var chunks []DocChunk
	err = filepath.WalkDir(p.resourcesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			pages, err := ExtractPDF(path)
			if err != nil {
				p.logger.Printf("skipping %s: %v", name, err)
				report.Files = append(report.Files, FileReport{File: name, Error: err.Error()})
				return nil
			}
			count := 0
			for _, pg := range pages {
				for i, text := range makeChunks(pg.Text, p.chunkSize, p.chunkOverlap) {
					chunks = append(chunks, DocChunk{
						ID:     fmt.Sprintf("%s#p%d.%d", name, pg.Page, i),
						Source: name,
						Page:   pg.Page,
						Text:   text,
					})
					count++
				}
			}
			report.Files = append(report.Files, FileReport{File: name, Pages: len(pages), Chunks: count, Success: true})
		case ".txt", ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				p.logger.Printf("skipping %s: %v", name, err)
				report.Files = append(report.Files, FileReport{File: name, Error: err.Error()})
				return nil
			}
			parts := makeChunks(string(data), p.chunkSize, p.chunkOverlap)
			for i, text := range parts {
				chunks = append(chunks, DocChunk{
					ID:     fmt.Sprintf("%s#%d", name, i),
					Source: name,
					Text:   text,
				})
			}
			report.Files = append(report.Files, FileReport{File: name, Chunks: len(parts), Success: true})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", p.resourcesDir, err)
	}

	vecs := make([][]float32, len(chunks))
	if p.embedder != nil && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		embedded, err := p.embedder.CreateEmbedding(ctx, texts)
		if err != nil {
			// BM25 still works without vectors.
			p.logger.Printf("embedding failed, indexing without vectors: %v", err)
		} else if len(embedded) == len(chunks) {
			vecs = embedded
		}
	}

	for i, c := range chunks {
		if err := fresh.Add(c, vecs[i]); err != nil {
			return nil, fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
	}

	// The old corpus is not closed: a search that grabbed the pointer
	// before the swap may still be reading it. The mem-only index holds
	// no file handles, so GC reclaims it once those searches finish.
	p.mu.Lock()
	p.corpus = fresh
	p.mu.Unlock()

	report.Chunks = len(chunks)
	p.logger.Printf("indexed %d chunks from %s", len(chunks), p.resourcesDir)
	return report, nil
}

// Search runs a hybrid BM25 plus vector search and fuses the two rank
// lists. With no embedder, or when the query embedding fails, BM25
// results are returned alone.
func (p *Pipeline) Search(ctx context.Context, query string) ([]SearchHit, error) {
	p.mu.RLock()
	corpus := p.corpus
	p.mu.RUnlock()

	lexical, err := corpus.BM25Search(query, p.topK)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	if p.embedder == nil {
		return lexical, nil
	}
	embedded, err := p.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil || len(embedded) == 0 {
		if err != nil {
			p.logger.Printf("query embedding failed, falling back to bm25: %v", err)
		}
		return lexical, nil
	}
	semantic := corpus.VectorSearch(embedded[0], p.topK)
	return corpus.FuseRRF(lexical, semantic, p.topK), nil
}

func makeChunks(text string, approx, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	// The window must always advance or the loop never terminates.
	if overlap >= approx {
		overlap = approx / 10
	}
	if len(text) <= approx {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(text); {
		end := start + approx
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
