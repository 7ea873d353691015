// Package records implements the embedded persistence collaborator backing
// the structured-records worker: persons and their bank accounts in a
// single-file SQLite database.
package records

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrEmailExists is returned when a person's email collides with an existing
// record; emails are unique per person.
var ErrEmailExists = errors.New("email already exists")

// Person is a structured person record.
type Person struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

// BankAccount is a structured bank-account record owned by a person.
type BankAccount struct {
	AccountID int64   `json:"account_id"`
	PersonID  int64   `json:"person_id"`
	BankName  string  `json:"bank_name"`
	Balance   float64 `json:"balance"`
}

// PersonWithAccounts is the join of a person and all their accounts.
type PersonWithAccounts struct {
	Person   Person        `json:"person"`
	Accounts []BankAccount `json:"accounts"`
}

// Store wraps the SQLite database holding person and bank-account records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Foreign keys are enabled so deleting a person cascades to their
// accounts.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// modernc sqlite is not safe for concurrent writes over many conns.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating records schema: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// CreatePerson inserts a new person and returns it with its assigned ID.
func (s *Store) CreatePerson(ctx context.Context, name string, age int, email string) (Person, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO persons (name, age, email) VALUES (?, ?, ?)`, name, age, email)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Person{}, ErrEmailExists
		}
		return Person{}, fmt.Errorf("creating person: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Person{}, fmt.Errorf("reading inserted id: %w", err)
	}
	return Person{ID: id, Name: name, Age: age, Email: email}, nil
}

// GetPerson fetches a person by ID.
func (s *Store) GetPerson(ctx context.Context, id int64) (Person, error) {
	var p Person
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, age, email FROM persons WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Age, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Person{}, ErrNotFound
	}
	if err != nil {
		return Person{}, fmt.Errorf("fetching person %d: %w", id, err)
	}
	return p, nil
}

// SearchPersonByName finds a person by exact, case-insensitive name.
func (s *Store) SearchPersonByName(ctx context.Context, name string) (Person, error) {
	var p Person
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, age, email FROM persons WHERE LOWER(name) = LOWER(?)`, name).
		Scan(&p.ID, &p.Name, &p.Age, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Person{}, ErrNotFound
	}
	if err != nil {
		return Person{}, fmt.Errorf("searching person %q: %w", name, err)
	}
	return p, nil
}

// ListPersons returns all persons ordered by ID.
func (s *Store) ListPersons(ctx context.Context) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, age, email FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing persons: %w", err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Email); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePerson overwrites the provided fields; nil fields keep their current
// value.
func (s *Store) UpdatePerson(ctx context.Context, id int64, name *string, age *int, email *string) (Person, error) {
	current, err := s.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}
	if name != nil {
		current.Name = *name
	}
	if age != nil {
		current.Age = *age
	}
	if email != nil {
		current.Email = *email
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE persons SET name = ?, age = ?, email = ? WHERE id = ?`,
		current.Name, current.Age, current.Email, id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Person{}, ErrEmailExists
		}
		return Person{}, fmt.Errorf("updating person %d: %w", id, err)
	}
	return current, nil
}

// DeletePerson removes a person; their bank accounts cascade.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting person %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAccount inserts a bank account for an existing person.
func (s *Store) CreateAccount(ctx context.Context, personID int64, bankName string, balance float64) (BankAccount, error) {
	if _, err := s.GetPerson(ctx, personID); err != nil {
		return BankAccount{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_accounts (person_id, bank_name, balance) VALUES (?, ?, ?)`,
		personID, bankName, balance)
	if err != nil {
		return BankAccount{}, fmt.Errorf("creating account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return BankAccount{}, fmt.Errorf("reading inserted id: %w", err)
	}
	return BankAccount{AccountID: id, PersonID: personID, BankName: bankName, Balance: balance}, nil
}

// GetAccount fetches a bank account by ID.
func (s *Store) GetAccount(ctx context.Context, accountID int64) (BankAccount, error) {
	var a BankAccount
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, person_id, bank_name, balance FROM bank_accounts WHERE account_id = ?`, accountID).
		Scan(&a.AccountID, &a.PersonID, &a.BankName, &a.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return BankAccount{}, ErrNotFound
	}
	if err != nil {
		return BankAccount{}, fmt.Errorf("fetching account %d: %w", accountID, err)
	}
	return a, nil
}

// ListAccounts returns all bank accounts ordered by ID.
func (s *Store) ListAccounts(ctx context.Context) ([]BankAccount, error) {
	return s.queryAccounts(ctx, `SELECT account_id, person_id, bank_name, balance FROM bank_accounts ORDER BY account_id`)
}

// AccountsByPerson returns all accounts owned by one person.
func (s *Store) AccountsByPerson(ctx context.Context, personID int64) ([]BankAccount, error) {
	return s.queryAccounts(ctx,
		`SELECT account_id, person_id, bank_name, balance FROM bank_accounts WHERE person_id = ? ORDER BY account_id`,
		personID)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]BankAccount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []BankAccount
	for rows.Next() {
		var a BankAccount
		if err := rows.Scan(&a.AccountID, &a.PersonID, &a.BankName, &a.Balance); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateBalance sets an account's balance.
func (s *Store) UpdateBalance(ctx context.Context, accountID int64, balance float64) (BankAccount, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bank_accounts SET balance = ? WHERE account_id = ?`, balance, accountID)
	if err != nil {
		return BankAccount{}, fmt.Errorf("updating account %d: %w", accountID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return BankAccount{}, ErrNotFound
	}
	return s.GetAccount(ctx, accountID)
}

// DeleteAccount removes a bank account.
func (s *Store) DeleteAccount(ctx context.Context, accountID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("deleting account %d: %w", accountID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPersonWithAccounts returns the join of a person and all their accounts.
func (s *Store) GetPersonWithAccounts(ctx context.Context, personID int64) (PersonWithAccounts, error) {
	p, err := s.GetPerson(ctx, personID)
	if err != nil {
		return PersonWithAccounts{}, err
	}
	accounts, err := s.AccountsByPerson(ctx, personID)
	if err != nil {
		return PersonWithAccounts{}, err
	}
	return PersonWithAccounts{Person: p, Accounts: accounts}, nil
}
