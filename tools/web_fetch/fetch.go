// Package web_fetch: plain HTTP fetch + readability extraction.
package web_fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

type Result struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Status int    `json:"status"`
}

// Fetcher downloads pages and strips them down to readable text.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	DefaultTO time.Duration
	MaxChars  int
}

func NewFetcher(defaultTO time.Duration, maxChars int, userAgent string) *Fetcher {
	if defaultTO <= 0 {
		defaultTO = 30 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &Fetcher{
		Client:    &http.Client{Timeout: defaultTO},
		UserAgent: userAgent,
		DefaultTO: defaultTO,
		MaxChars:  maxChars,
	}
}

// Exec fetches link and extracts the main content. Parse failures
// return the result with empty text rather than a hard error.
func (f *Fetcher) Exec(ctx context.Context, link string) (Result, error) {
	if strings.TrimSpace(link) == "" {
		return Result{}, errors.New("invalid url")
	}
	ctx, cancel := context.WithTimeout(ctx, f.DefaultTO)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Result{}, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return Result{URL: link, Status: 599}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Result{URL: link, Status: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{URL: link, Status: resp.StatusCode}, nil
	}
	article, err := readability.FromReader(strings.NewReader(string(body)), mustParseURL(link))
	if err != nil {
		return Result{URL: link, Status: resp.StatusCode}, nil
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}
	return Result{
		URL:    link,
		Title:  strings.TrimSpace(article.Title),
		Text:   text,
		Status: resp.StatusCode,
	}, nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
