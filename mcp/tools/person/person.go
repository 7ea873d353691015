// Package person exposes CRUD tools over person records for MCP clients.
package person

import (
	"context"
	"errors"
	"fmt"

	"github.com/mosaicworks/querydesk/internal/records"
	"github.com/mosaicworks/querydesk/mcp"
)

// Tools builds the person tool set over the given store.
func Tools(store *records.Store) []mcp.Tool {
	return []mcp.Tool{
		{
			Desc: mcp.ToolDesc{
				Name:        "person.create",
				Description: "Create a new person record.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":  map[string]any{"type": "string"},
						"age":   map[string]any{"type": "integer", "minimum": 0},
						"email": map[string]any{"type": "string"},
					},
					"required": []string{"name", "age", "email"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				name := mcp.Str(args["name"])
				email := mcp.Str(args["email"])
				if name == "" || email == "" {
					return nil, errors.New("name and email are required")
				}
				p, err := store.CreatePerson(ctx, name, mcp.AsInt(args["age"]), email)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"person":  personMap(p),
					"message": fmt.Sprintf("Person %s created successfully with ID %d", p.Name, p.ID),
				}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "person.get",
				Description: "Get a person by ID.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"person_id": map[string]any{"type": "integer"},
					},
					"required": []string{"person_id"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				p, err := store.GetPerson(ctx, int64(mcp.AsInt(args["person_id"])))
				if err != nil {
					return nil, err
				}
				return map[string]any{"person": personMap(p)}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "person.search_by_name",
				Description: "Search for a person by name (case-insensitive exact match).",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
					"required": []string{"name"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				name := mcp.Str(args["name"])
				if name == "" {
					return nil, errors.New("name is required")
				}
				p, err := store.SearchPersonByName(ctx, name)
				if err != nil {
					if errors.Is(err, records.ErrNotFound) {
						return nil, fmt.Errorf("no person named %s found", name)
					}
					return nil, err
				}
				return map[string]any{"person": personMap(p)}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "person.list",
				Description: "List all persons.",
				InputSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
			Handler: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				persons, err := store.ListPersons(ctx)
				if err != nil {
					return nil, err
				}
				out := make([]map[string]any, 0, len(persons))
				for _, p := range persons {
					out = append(out, personMap(p))
				}
				return map[string]any{"persons": out, "count": len(out)}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "person.update",
				Description: "Update a person's fields; omitted fields keep their current value.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"person_id": map[string]any{"type": "integer"},
						"name":      map[string]any{"type": "string"},
						"age":       map[string]any{"type": "integer", "minimum": 0},
						"email":     map[string]any{"type": "string"},
					},
					"required": []string{"person_id"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				var name, email *string
				var age *int
				if mcp.Has(args, "name") {
					v := mcp.Str(args["name"])
					name = &v
				}
				if mcp.Has(args, "age") {
					v := mcp.AsInt(args["age"])
					age = &v
				}
				if mcp.Has(args, "email") {
					v := mcp.Str(args["email"])
					email = &v
				}
				p, err := store.UpdatePerson(ctx, int64(mcp.AsInt(args["person_id"])), name, age, email)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"person":  personMap(p),
					"message": fmt.Sprintf("Person %s updated successfully", p.Name),
				}, nil
			},
		},
		{
			Desc: mcp.ToolDesc{
				Name:        "person.delete",
				Description: "Delete a person; their bank accounts are removed as well.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"person_id": map[string]any{"type": "integer"},
					},
					"required": []string{"person_id"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				id := int64(mcp.AsInt(args["person_id"]))
				if err := store.DeletePerson(ctx, id); err != nil {
					return nil, err
				}
				return map[string]any{"message": fmt.Sprintf("Person %d deleted successfully", id)}, nil
			},
		},
	}
}

func personMap(p records.Person) map[string]any {
	return map[string]any{"id": p.ID, "name": p.Name, "age": p.Age, "email": p.Email}
}
