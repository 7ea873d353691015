package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeSerper(t *testing.T, results map[string][]map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") == "" {
			http.Error(w, "missing api key", http.StatusUnauthorized)
			return
		}
		var req struct {
			Q string `json:"q"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var organic []map[string]string
		for needle, hits := range results {
			if strings.Contains(req.Q, needle) {
				organic = hits
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"organic": organic})
	}))
}

func TestDiscover(t *testing.T) {
	srv := fakeSerper(t, map[string][]map[string]string{
		"golang": {
			{"title": "The Go Programming Language", "link": "https://go.dev", "snippet": "Build simple software."},
			{"title": "Go wiki", "link": "https://go.dev/wiki", "snippet": "Community wiki."},
		},
	})
	defer srv.Close()

	s := Search{APIKey: "k", Endpoint: srv.URL}
	hits, err := s.Discover(context.Background(), "golang", 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(hits) != 1 || hits[0].URL != "https://go.dev" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestDiscoverRejectsBadStatus(t *testing.T) {
	srv := fakeSerper(t, nil)
	defer srv.Close()

	s := Search{Endpoint: srv.URL} // no API key -> 401
	if _, err := s.Discover(context.Background(), "anything", 3); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestFindProfiles(t *testing.T) {
	srv := fakeSerper(t, map[string][]map[string]string{
		"site:github.com": {
			{"title": "joedev", "link": "https://github.com/joedev"},
		},
		"site:linkedin.com/in": {
			{"title": "Joe Smith", "link": "https://linkedin.com/in/joesmith"},
		},
	})
	defer srv.Close()

	s := Search{APIKey: "k", Endpoint: srv.URL}
	p, err := s.FindProfiles(context.Background(), "Joe Smith", "joe@example.com")
	if err != nil {
		t.Fatalf("FindProfiles: %v", err)
	}
	if p.GitHub != "https://github.com/joedev" {
		t.Errorf("GitHub = %q", p.GitHub)
	}
	if p.LinkedIn != "https://linkedin.com/in/joesmith" {
		t.Errorf("LinkedIn = %q", p.LinkedIn)
	}
}

func TestFindProfilesNoneFound(t *testing.T) {
	srv := fakeSerper(t, nil)
	defer srv.Close()

	s := Search{APIKey: "k", Endpoint: srv.URL}
	if _, err := s.FindProfiles(context.Background(), "Nobody", ""); err == nil {
		t.Fatal("expected error when no profiles found")
	}
}
