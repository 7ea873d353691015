package retrieval

import (
	"math"
	"sort"
	"sync"

	"github.com/blevesearch/bleve"
)

// DocChunk is one indexed slice of a source document.
type DocChunk struct {
	ID     string `json:"id"`
	Source string `json:"source"` // originating file name
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// SearchHit is a scored chunk returned by a corpus search.
type SearchHit struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Text    string  `json:"text"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

type embedVec struct {
	id  string
	vec []float32
}

const rrfK = 60 // reciprocal-rank-fusion constant

// Corpus is an in-memory hybrid index: a bleve BM25 index plus raw
// embedding vectors for small document sets.
type Corpus struct {
	bleve   bleve.Index
	meta    map[string]DocChunk
	vectors []embedVec
	mu      sync.RWMutex
}

func NewCorpus() (*Corpus, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Corpus{
		bleve: index,
		meta:  make(map[string]DocChunk),
	}, nil
}

// Add indexes a chunk with its embedding. A nil vector is allowed; the
// chunk then only participates in BM25 search.
func (c *Corpus) Add(chunk DocChunk, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta[chunk.ID] = chunk
	if vec != nil {
		c.vectors = append(c.vectors, embedVec{id: chunk.ID, vec: vec})
	}
	return c.bleve.Index(chunk.ID, chunk)
}

// Size reports the number of indexed chunks.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.meta)
}

func (c *Corpus) BM25Search(q string, k int) ([]SearchHit, error) {
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := c.bleve.Search(searchReq)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []SearchHit
	for i, hit := range res.Hits {
		doc := c.meta[hit.ID]
		out = append(out, SearchHit{
			ID: hit.ID, Source: doc.Source, Page: doc.Page,
			Text: doc.Text, Snippet: snippet(doc.Text),
			Score: hit.Score, Rank: i + 1,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (c *Corpus) VectorSearch(q []float32, k int) []SearchHit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	type scored struct {
		id    string
		score float64
	}
	var scoreds []scored
	for _, v := range c.vectors {
		scoreds = append(scoreds, scored{id: v.id, score: cosine(q, v.vec)})
	}
	sort.Slice(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })
	var out []SearchHit
	for i, sc := range scoreds {
		doc := c.meta[sc.id]
		out = append(out, SearchHit{
			ID: sc.id, Source: doc.Source, Page: doc.Page,
			Text: doc.Text, Snippet: snippet(doc.Text),
			Score: sc.score, Rank: i + 1,
		})
		if len(out) >= k {
			break
		}
	}
	return out
}

// FuseRRF merges two ranked lists with reciprocal rank fusion.
func (c *Corpus) FuseRRF(a, b []SearchHit, k int) []SearchHit {
	type agg struct {
		item  SearchHit
		score float64
	}
	m := map[string]*agg{}
	add := func(list []SearchHit) {
		for _, h := range list {
			x, ok := m[h.ID]
			if !ok {
				m[h.ID] = &agg{item: h}
				x = m[h.ID]
			}
			x.score += 1.0 / float64(rrfK+h.Rank)
		}
	}
	add(a)
	add(b)
	items := make([]*agg, 0, len(m))
	for _, v := range m {
		items = append(items, v)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].item.ID < items[j].item.ID
	})
	n := k
	if len(items) < n {
		n = len(items)
	}
	out := make([]SearchHit, 0, n)
	for i := 0; i < n; i++ {
		h := items[i].item
		h.Score = items[i].score
		h.Rank = i + 1
		out = append(out, h)
	}
	return out
}

// Close releases the underlying bleve index.
func (c *Corpus) Close() error {
	return c.bleve.Close()
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func snippet(s string) string {
	if len(s) <= 300 {
		return s
	}
	return s[:300] + "…"
}
