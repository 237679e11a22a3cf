package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"

	_ "modernc.org/sqlite"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// SQLiteRepository is the single source of truth for contacts and
// transactions. Balances are never stored; callers fold the entry rows this
// repository hands out.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// WAL keeps aggregation reads from blocking writers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// NewWithDB wraps an existing handle. Used by tests that drive the
// repository against a mocked or pre-migrated database.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- contacts ---

const contactColumns = `id, name, phone_number, contact_type, email, address, notes,
	is_active, created_at, created_by, updated_at, updated_by`

func (r *SQLiteRepository) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (name, phone_number, contact_type, email, address, notes, is_active, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.PhoneNumber, string(c.ContactType), c.Email, c.Address, c.Notes,
		boolToInt(c.IsActive), c.CreatedAt.UTC().Format(timestampLayout), c.CreatedBy)
	if err != nil {
		return core.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Contact{}, fmt.Errorf("contact insert id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (r *SQLiteRepository) GetContact(ctx context.Context, id int64) (core.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Contact{}, fmt.Errorf("contact %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Contact{}, fmt.Errorf("get contact %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateContact(ctx context.Context, c core.Contact) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, phone_number = ?, contact_type = ?, email = ?,
		 address = ?, notes = ?, updated_at = ?, updated_by = ? WHERE id = ?`,
		c.Name, c.PhoneNumber, string(c.ContactType), c.Email, c.Address, c.Notes,
		c.UpdatedAt.UTC().Format(timestampLayout), c.UpdatedBy, c.ID)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact %d: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("contact %d: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteContactCascade removes the contact's transactions and then the
// contact inside one database transaction. Either both deletes commit or
// neither does. Returns the number of transactions removed.
func (r *SQLiteRepository) DeleteContactCascade(ctx context.Context, id int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cascade delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE contact_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete transactions for contact %d: %w", id, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete transactions for contact %d: %w", id, err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete contact %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete contact %d: %w", id, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("contact %d: %w", id, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cascade delete for contact %d: %w", id, err)
	}
	return deleted, nil
}

func (r *SQLiteRepository) ListContacts(ctx context.Context, t core.ContactType, activeOnly bool) ([]core.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE contact_type = ?`
	args := []any{string(t)}
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []core.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// ContactCounts feeds the dashboard cards.
type ContactCounts struct {
	Total     int64
	Customers int64
	Suppliers int64
	Active    int64
}

func (r *SQLiteRepository) CountContacts(ctx context.Context) (ContactCounts, error) {
	var c ContactCounts
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN contact_type = 'Customer' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN contact_type = 'Supplier' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0)
		 FROM contacts`).Scan(&c.Total, &c.Customers, &c.Suppliers, &c.Active)
	if err != nil {
		return ContactCounts{}, fmt.Errorf("count contacts: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) HasTransactions(ctx context.Context, contactID int64) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE contact_id = ?)`, contactID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transactions for contact %d: %w", contactID, err)
	}
	return exists == 1, nil
}

// --- transactions ---

const transactionColumns = `id, contact_id, amount, type, details, transaction_date, photo_file_name`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (contact_id, amount, type, details, transaction_date, photo_file_name)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ContactID, t.Amount.String(), string(t.Type), t.Details,
		t.TransactionDate.Format(dateLayout), t.PhotoFileName)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, type = ?, details = ?, transaction_date = ?, photo_file_name = ?
		 WHERE id = ?`,
		t.Amount.String(), string(t.Type), t.Details,
		t.TransactionDate.Format(dateLayout), t.PhotoFileName, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

// ListTransactionsByContact returns the contact's ledger newest first:
// transaction date descending, id descending as the tie-break.
func (r *SQLiteRepository) ListTransactionsByContact(ctx context.Context, contactID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE contact_id = ? ORDER BY transaction_date DESC, id DESC`, contactID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for contact %d: %w", contactID, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions for contact %d: %w", contactID, err)
	}
	return txs, nil
}

// EntriesByContact returns the aggregation slices for a single contact.
func (r *SQLiteRepository) EntriesByContact(ctx context.Context, contactID int64) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT contact_id, type, amount FROM transactions WHERE contact_id = ?`, contactID)
	if err != nil {
		return nil, fmt.Errorf("entries for contact %d: %w", contactID, err)
	}
	return collectEntries(rows)
}

// Entries returns aggregation slices for all active contacts, optionally
// restricted to one contact type. An empty contactType means no filter.
func (r *SQLiteRepository) Entries(ctx context.Context, contactType core.ContactType) ([]core.Entry, error) {
	query := `SELECT t.contact_id, t.type, t.amount
	          FROM transactions t JOIN contacts c ON c.id = t.contact_id
	          WHERE c.is_active = 1`
	var args []any
	if contactType != "" {
		query += ` AND c.contact_type = ?`
		args = append(args, string(contactType))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entries: %w", err)
	}
	return collectEntries(rows)
}

// --- reporting rows ---

type MonthlyRow struct {
	Year   int
	Month  time.Month
	Type   core.TransactionType
	Amount decimal.Decimal
}

type PartyRow struct {
	PartyName string
	Type      core.TransactionType
	Amount    decimal.Decimal
}

type RecentTransaction struct {
	ID              int64
	PartyName       string
	Type            core.TransactionType
	Amount          decimal.Decimal
	TransactionDate time.Time
	Details         string
}

func (r *SQLiteRepository) MonthlyRows(ctx context.Context) ([]MonthlyRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%Y', transaction_date) AS INTEGER),
		        CAST(strftime('%m', transaction_date) AS INTEGER),
		        type, amount
		 FROM transactions ORDER BY transaction_date`)
	if err != nil {
		return nil, fmt.Errorf("monthly rows: %w", err)
	}
	defer rows.Close()

	var out []MonthlyRow
	for rows.Next() {
		var (
			m      MonthlyRow
			month  int
			typ    string
			amount string
		)
		if err := rows.Scan(&m.Year, &month, &typ, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly row: %w", err)
		}
		m.Month = time.Month(month)
		m.Type = core.TransactionType(typ)
		if m.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) PartyRows(ctx context.Context) ([]PartyRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, t.type, t.amount
		 FROM transactions t JOIN contacts c ON c.id = t.contact_id
		 WHERE c.is_active = 1 ORDER BY c.name, t.id`)
	if err != nil {
		return nil, fmt.Errorf("party rows: %w", err)
	}
	defer rows.Close()

	var out []PartyRow
	for rows.Next() {
		var (
			p      PartyRow
			typ    string
			amount string
		)
		if err := rows.Scan(&p.PartyName, &typ, &amount); err != nil {
			return nil, fmt.Errorf("scan party row: %w", err)
		}
		p.Type = core.TransactionType(typ)
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("party rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, limit int) ([]RecentTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, c.name, t.type, t.amount, t.transaction_date, t.details
		 FROM transactions t JOIN contacts c ON c.id = t.contact_id
		 ORDER BY t.transaction_date DESC, t.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	var out []RecentTransaction
	for rows.Next() {
		var (
			rt     RecentTransaction
			typ    string
			amount string
			date   string
		)
		if err := rows.Scan(&rt.ID, &rt.PartyName, &typ, &amount, &date, &rt.Details); err != nil {
			return nil, fmt.Errorf("scan recent transaction: %w", err)
		}
		rt.Type = core.TransactionType(typ)
		if rt.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if rt.TransactionDate, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return out, nil
}

// --- scan helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (core.Contact, error) {
	var (
		c                    core.Contact
		contactType          string
		isActive             int
		createdAt, updatedAt string
	)
	err := s.Scan(&c.ID, &c.Name, &c.PhoneNumber, &contactType, &c.Email, &c.Address,
		&c.Notes, &isActive, &createdAt, &c.CreatedBy, &updatedAt, &c.UpdatedBy)
	if err != nil {
		return core.Contact{}, err
	}
	c.ContactType = core.ContactType(contactType)
	c.IsActive = isActive == 1
	if c.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return core.Contact{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if updatedAt != "" {
		if c.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
			return core.Contact{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
		}
	}
	return c, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t      core.Transaction
		typ    string
		amount string
		date   string
	)
	err := s.Scan(&t.ID, &t.ContactID, &amount, &typ, &t.Details, &date, &t.PhotoFileName)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.TransactionDate, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

func collectEntries(rows *sql.Rows) ([]core.Entry, error) {
	defer rows.Close()
	var entries []core.Entry
	for rows.Next() {
		var (
			e      core.Entry
			typ    string
			amount string
		)
		if err := rows.Scan(&e.ContactID, &typ, &amount); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Type = core.TransactionType(typ)
		var err error
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect entries: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
