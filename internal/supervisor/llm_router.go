package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/mosaicworks/querydesk/provider"
)

// LLMRouter asks the model to classify the query against the field schema.
// Any error or unparseable output degrades to the deterministic fallback
// router, so routing can never fail the request.
type LLMRouter struct {
	Provider provider.Provider
	Model    string
	Fallback Router
}

func (r *LLMRouter) Route(ctx context.Context, query string) RoutingDecision {
	prompt := fmt.Sprintf(`Analyze this query: %s

THE RECORDS DATABASE CONTAINS ONLY:
- persons: id, name, age, email
- bank_accounts: account_id, person_id, bank_name, balance

ROUTING LOGIC:
- If the query asks for fields in the records database, output RECORDS
- If the query asks for fields not in the database (insurance, policy, vehicle, engine, chassis, claims), output DOCUMENTS
- If the query needs both database and document data, output BOTH

Output ONLY one word: RECORDS, DOCUMENTS, or BOTH`, query)

	out, err := r.Provider.Generate(ctx, prompt, r.Model)
	if err != nil {
		return r.Fallback.Route(ctx, query)
	}

	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "both"):
		return RoutingDecision{
			Categories: []Category{CategoryDocuments, CategoryRecords},
			Combined:   true,
			Rationale:  "classifier selected both categories",
		}
	case strings.Contains(lower, "record") || strings.Contains(lower, "database"):
		return RoutingDecision{
			Categories: []Category{CategoryRecords},
			Rationale:  "classifier selected records",
		}
	case strings.Contains(lower, "document") || strings.Contains(lower, "rag"):
		return RoutingDecision{
			Categories: []Category{CategoryDocuments},
			Rationale:  "classifier selected documents",
		}
	default:
		return r.Fallback.Route(ctx, query)
	}
}
