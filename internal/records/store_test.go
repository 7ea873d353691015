package records

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPersonCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.CreatePerson(ctx, "John", 30, "john@example.com")
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("expected assigned id")
	}

	got, err := s.GetPerson(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if got != p {
		t.Fatalf("GetPerson = %+v, want %+v", got, p)
	}

	byName, err := s.SearchPersonByName(ctx, "JOHN")
	if err != nil {
		t.Fatalf("SearchPersonByName: %v", err)
	}
	if byName.ID != p.ID {
		t.Fatalf("search by name found %+v", byName)
	}

	newAge := 31
	updated, err := s.UpdatePerson(ctx, p.ID, nil, &newAge, nil)
	if err != nil {
		t.Fatalf("UpdatePerson: %v", err)
	}
	if updated.Age != 31 || updated.Name != "John" {
		t.Fatalf("partial update wrong: %+v", updated)
	}

	all, err := s.ListPersons(ctx)
	if err != nil {
		t.Fatalf("ListPersons: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 person, got %d", len(all))
	}

	if err := s.DeletePerson(ctx, p.ID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
	if _, err := s.GetPerson(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreatePerson(ctx, "John", 30, "dup@example.com"); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	if _, err := s.CreatePerson(ctx, "Jane", 25, "dup@example.com"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAccountsAndCascadeDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.CreatePerson(ctx, "Joe", 28, "joe@dev.com")
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	a1, err := s.CreateAccount(ctx, p.ID, "First Bank", 3000)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := s.CreateAccount(ctx, p.ID, "Second Bank", 2000); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if _, err := s.CreateAccount(ctx, 999, "No Bank", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("account for missing person must fail, got %v", err)
	}

	joined, err := s.GetPersonWithAccounts(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPersonWithAccounts: %v", err)
	}
	if len(joined.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(joined.Accounts))
	}

	upd, err := s.UpdateBalance(ctx, a1.AccountID, 3500)
	if err != nil {
		t.Fatalf("UpdateBalance: %v", err)
	}
	if upd.Balance != 3500 {
		t.Fatalf("balance = %v, want 3500", upd.Balance)
	}

	if err := s.DeletePerson(ctx, p.ID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
	accounts, err := s.AccountsByPerson(ctx, p.ID)
	if err != nil {
		t.Fatalf("AccountsByPerson: %v", err)
	}
	if len(accounts) != 0 {
		t.Fatalf("accounts must cascade on person delete, got %d", len(accounts))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s1.CreatePerson(context.Background(), "A", 1, "a@b.c"); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open (migrations already applied): %v", err)
	}
	defer s2.Close()
	all, err := s2.ListPersons(context.Background())
	if err != nil {
		t.Fatalf("ListPersons: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("data lost across reopen: %d persons", len(all))
	}
}
