package supervisor

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FieldSchema maps a data field keyword to the category that owns it. It is
// static configuration; the router compiles it once.
type FieldSchema map[string]Category

// DefaultFieldSchema mirrors the demo dataset: persons and bank accounts live
// in the records database, everything about insured vehicles and policies
// lives in the document corpus.
func DefaultFieldSchema() FieldSchema {
	return FieldSchema{
		"name":      CategoryRecords,
		"age":       CategoryRecords,
		"email":     CategoryRecords,
		"person":    CategoryRecords,
		"bank":      CategoryRecords,
		"account":   CategoryRecords,
		"balance":   CategoryRecords,
		"engine":    CategoryDocuments,
		"chassis":   CategoryDocuments,
		"vehicle":   CategoryDocuments,
		"insurance": CategoryDocuments,
		"policy":    CategoryDocuments,
		"premium":   CategoryDocuments,
		"coverage":  CategoryDocuments,
		"claim":     CategoryDocuments,
		"aadhar":    CategoryDocuments,
		"document":  CategoryDocuments,
	}
}

// SchemaRouter routes by matching schema field keywords against the query
// text. Each keyword matches at a word start only, so "age" does not fire
// inside "coverage", while plurals like "claims" still match "claim".
type SchemaRouter struct {
	schema   FieldSchema
	fields   []string // keys of schema, longest first
	patterns map[string]*regexp.Regexp
}

// NewSchemaRouter compiles the field schema into a deterministic router.
func NewSchemaRouter(schema FieldSchema) *SchemaRouter {
	fields := make([]string, 0, len(schema))
	patterns := make(map[string]*regexp.Regexp, len(schema))
	for f := range schema {
		key := strings.ToLower(f)
		fields = append(fields, key)
		patterns[key] = regexp.MustCompile(`\b` + regexp.QuoteMeta(key))
	}
	sort.Slice(fields, func(i, j int) bool {
		if len(fields[i]) != len(fields[j]) {
			return len(fields[i]) > len(fields[j])
		}
		return fields[i] < fields[j]
	})
	return &SchemaRouter{schema: schema, fields: fields, patterns: patterns}
}

// Route never fails: a query touching fields of a single category goes to
// that category alone, spanning queries go combined, and a query matching
// nothing falls back to the records worker, which can always pull a full
// profile for open "tell me about X" questions.
func (r *SchemaRouter) Route(_ context.Context, query string) RoutingDecision {
	q := strings.ToLower(query)

	matched := map[Category][]string{}
	for _, f := range r.fields {
		if r.patterns[f].MatchString(q) {
			cat := r.schema[f]
			matched[cat] = append(matched[cat], f)
		}
	}

	switch len(matched) {
	case 0:
		return RoutingDecision{
			Categories: []Category{CategoryRecords},
			Rationale:  "no schema field matched; defaulting to records profile lookup",
		}
	case 1:
		for cat, fields := range matched {
			return RoutingDecision{
				Categories: []Category{cat},
				Rationale:  fmt.Sprintf("query references %s fields: %s", cat, strings.Join(fields, ", ")),
			}
		}
	}

	cats := make([]Category, 0, len(matched))
	for cat := range matched {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return RoutingDecision{
		Categories: cats,
		Combined:   true,
		Rationale:  "query spans fields from multiple categories",
	}
}
