// Package bank exposes CRUD tools over bank-account records for MCP clients.
package bank

import (
	"context"
	"fmt"

	"github.com/mosaicworks/querydesk/internal/records"
	"github.com/mosaicworks/querydesk/mcp"
)

// Tools builds the bank-account tool set over the given store.
func Tools(store *records.Store) []mcp.Tool {
	return []mcp.Tool{
		{
			Desc: mcp.ToolDesc{
				Name:        "bank.create_account",
				Description: "Create a bank account for an existing person.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"person_id": map[string]any{"type": "integer"},
						"bank_name": map[string]any{"type": "string"},
						"balance":   map[string]any{"type": "number"},
					},
					"required": []string{"person_id", "bank_name", "balance"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				a, err := store.CreateAccount(ctx,
					int64(mcp.AsInt(args["person_id"])), mcp.Str(args["bank_name"]), mcp.AsFloat(args["balance"]))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"account": accountMap(a),
					"message": fmt.Sprintf("Bank account created successfully with ID %d", a.AccountID),
				}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "bank.get_account",
				Description: "Get a bank account by ID.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_id": map[string]any{"type": "integer"},
					},
					"required": []string{"account_id"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				a, err := store.GetAccount(ctx, int64(mcp.AsInt(args["account_id"])))
				if err != nil {
					return nil, err
				}
				return map[string]any{"account": accountMap(a)}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "bank.list_accounts",
				Description: "List all bank accounts.",
				InputSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			Handler: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				accounts, err := store.ListAccounts(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"accounts": accountMaps(accounts), "count": len(accounts)}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "bank.accounts_by_person",
				Description: "List all bank accounts owned by a person.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"person_id": map[string]any{"type": "integer"},
					},
					"required": []string{"person_id"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				accounts, err := store.AccountsByPerson(ctx, int64(mcp.AsInt(args["person_id"])))
				if err != nil {
					return nil, err
				}
				return map[string]any{"accounts": accountMaps(accounts), "count": len(accounts)}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "bank.update_balance",
				Description: "Set a bank account's balance.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_id": map[string]any{"type": "integer"},
						"balance":    map[string]any{"type": "number"},
					},
					"required": []string{"account_id", "balance"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				a, err := store.UpdateBalance(ctx, int64(mcp.AsInt(args["account_id"])), mcp.AsFloat(args["balance"]))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"account": accountMap(a),
					"message": fmt.Sprintf("Balance updated to %.2f", a.Balance),
				}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "bank.delete_account",
				Description: "Delete a bank account.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"account_id": map[string]any{"type": "integer"},
					},
					"required": []string{"account_id"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				id := int64(mcp.AsInt(args["account_id"]))
				if err := store.DeleteAccount(ctx, id); err != nil {
					return nil, err
				}
				return map[string]any{"message": fmt.Sprintf("Bank account %d deleted successfully", id)}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "bank.person_with_accounts",
				Description: "Get a person joined with all their bank accounts.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"person_id": map[string]any{"type": "integer"},
					},
					"required": []string{"person_id"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				joined, err := store.GetPersonWithAccounts(ctx, int64(mcp.AsInt(args["person_id"])))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"person": map[string]any{
						"id": joined.Person.ID, "name": joined.Person.Name,
						"age": joined.Person.Age, "email": joined.Person.Email,
					},
					"accounts": accountMaps(joined.Accounts),
				}, nil
			},
		},
	}
}

func accountMap(a records.BankAccount) map[string]any {
	return map[string]any{
		"account_id": a.AccountID,
		"person_id":  a.PersonID,
		"bank_name":  a.BankName,
		"balance":    a.Balance,
	}
}

func accountMaps(accounts []records.BankAccount) []map[string]any {
	out := make([]map[string]any, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountMap(a))
	}
	return out
}
