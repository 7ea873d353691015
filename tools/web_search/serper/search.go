package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultEndpoint = "https://google.serper.dev/search"

// Result is one organic web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Profiles holds located social profile URLs. Empty fields mean not
// found.
type Profiles struct {
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

type Search struct {
	APIKey   string
	Endpoint string // defaults to the serper.dev search endpoint
	Client   *http.Client
}

func (s Search) endpoint() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return defaultEndpoint
}

func (s Search) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// Discover runs a web search and returns up to k organic results.
func (s Search) Discover(ctx context.Context, q string, k int) ([]Result, error) {
	payload := map[string]any{"q": q, "num": k}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		x, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serper status %d: %s", resp.StatusCode, string(x))
	}
	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []Result
	for i, it := range raw.Organic {
		if i >= k {
			break
		}
		out = append(out, Result{Title: it.Title, URL: it.Link, Snippet: it.Snippet})
	}
	return out, nil
}

// FindProfiles looks up a person's GitHub and LinkedIn profiles with
// site-restricted queries. An optional email refines the GitHub query
// with its domain. Search failures for one site do not abort the other.
func (s Search) FindProfiles(ctx context.Context, name, email string) (Profiles, error) {
	var p Profiles

	githubQuery := fmt.Sprintf("site:github.com %q", name)
	if at := strings.Index(email, "@"); at >= 0 && at < len(email)-1 {
		githubQuery += " OR " + email[at+1:]
	}
	if hits, err := s.Discover(ctx, githubQuery, 5); err == nil {
		p.GitHub = firstURLContaining(hits, "github.com")
	}

	linkedinQuery := fmt.Sprintf("site:linkedin.com/in %q", name)
	if hits, err := s.Discover(ctx, linkedinQuery, 5); err == nil {
		p.LinkedIn = firstURLContaining(hits, "linkedin.com/in")
	}

	if p.GitHub == "" && p.LinkedIn == "" {
		return p, fmt.Errorf("no profiles found for %s", name)
	}
	return p, nil
}

func firstURLContaining(hits []Result, domain string) string {
	for _, h := range hits {
		if strings.Contains(h.URL, domain) {
			return h.URL
		}
	}
	return ""
}
