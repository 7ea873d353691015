package supervisor

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type scriptedProvider struct {
	out string
	err error
}

func (p scriptedProvider) Generate(context.Context, string, string) (string, error) {
	return p.out, p.err
}

func (p scriptedProvider) CreateEmbedding(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func TestSchemaRouterSingleCategory(t *testing.T) {
	r := NewSchemaRouter(DefaultFieldSchema())

	cases := []struct {
		query string
		want  Category
	}{
		{"what is john's age?", CategoryRecords},
		{"show bank accounts for person 1", CategoryRecords},
		{"what is the engine number?", CategoryDocuments},
		{"what does the insurance policy say about coverage?", CategoryDocuments},
		{"find the aadhar number in the documents", CategoryDocuments},
		// "coverage" and "page" must not fire the "age" field.
		{"which page of the policy describes coverage?", CategoryDocuments},
		{"are there any open claims on the vehicle?", CategoryDocuments},
	}
	for _, tc := range cases {
		got := r.Route(context.Background(), tc.query)
		if got.Combined {
			t.Errorf("%q: unexpected combined routing: %+v", tc.query, got)
			continue
		}
		if len(got.Categories) != 1 || got.Categories[0] != tc.want {
			t.Errorf("%q: routed to %v, want [%s]", tc.query, got.Categories, tc.want)
		}
	}
}

func TestSchemaRouterCombined(t *testing.T) {
	schema := FieldSchema{
		"email":   CategoryRecords,
		"balance": CategoryDocuments,
	}
	r := NewSchemaRouter(schema)

	got := r.Route(context.Background(), "what is the email and balance for person 7")
	if !got.Combined {
		t.Fatalf("expected combined routing, got %+v", got)
	}
	want := []Category{CategoryDocuments, CategoryRecords}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Fatalf("categories = %v, want %v", got.Categories, want)
	}
}

func TestSchemaRouterDefaultsToRecords(t *testing.T) {
	r := NewSchemaRouter(DefaultFieldSchema())

	got := r.Route(context.Background(), "tell me about joe-dev")
	if got.Combined {
		t.Fatalf("open query must not route combined: %+v", got)
	}
	if len(got.Categories) != 1 || got.Categories[0] != CategoryRecords {
		t.Fatalf("open query must default to records, got %v", got.Categories)
	}
}

func TestLLMRouterParsesVerdicts(t *testing.T) {
	fallback := NewSchemaRouter(DefaultFieldSchema())

	cases := []struct {
		out      string
		want     []Category
		combined bool
	}{
		{"RECORDS", []Category{CategoryRecords}, false},
		{"The answer is DOCUMENTS.", []Category{CategoryDocuments}, false},
		{"both", []Category{CategoryDocuments, CategoryRecords}, true},
	}
	for _, tc := range cases {
		r := &LLMRouter{Provider: scriptedProvider{out: tc.out}, Fallback: fallback}
		got := r.Route(context.Background(), "anything")
		if got.Combined != tc.combined || !reflect.DeepEqual(got.Categories, tc.want) {
			t.Errorf("output %q: routed %+v, want %v combined=%v", tc.out, got, tc.want, tc.combined)
		}
	}
}

func TestLLMRouterFallsBackOnErrorOrNoise(t *testing.T) {
	fallback := NewSchemaRouter(DefaultFieldSchema())

	for _, p := range []scriptedProvider{
		{err: errors.New("timeout")},
		{out: "I cannot classify this"},
	} {
		r := &LLMRouter{Provider: p, Fallback: fallback}
		got := r.Route(context.Background(), "what is the insurance premium")
		if len(got.Categories) != 1 || got.Categories[0] != CategoryDocuments {
			t.Errorf("provider %+v: expected schema fallback to documents, got %+v", p, got)
		}
	}
}

func TestSchemaRouterIsDeterministic(t *testing.T) {
	r := NewSchemaRouter(DefaultFieldSchema())
	query := "show joe's account details and his insurance claim"

	first := r.Route(context.Background(), query)
	for i := 0; i < 20; i++ {
		again := r.Route(context.Background(), query)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("routing not deterministic: %+v vs %+v", first, again)
		}
	}
	if !first.Combined {
		t.Fatalf("query spanning both schemas must route combined: %+v", first)
	}
}
