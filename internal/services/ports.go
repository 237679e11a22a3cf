// Package services orchestrates contact and transaction operations over the
// repository, the receipt store, and the optional event publisher.
package services

import (
	"context"
	"io"

	"khata/internal/core"
	"khata/internal/events"
	"khata/internal/storage"

	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard charts consume amounts as JSON numbers. Decimal's
	// string form is exact either way; this only drops the quotes.
	decimal.MarshalJSONWithoutQuotes = true
}

// ContactRepository is the slice of storage the contact service needs.
type ContactRepository interface {
	CreateContact(ctx context.Context, c core.Contact) (core.Contact, error)
	GetContact(ctx context.Context, id int64) (core.Contact, error)
	UpdateContact(ctx context.Context, c core.Contact) error
	DeleteContactCascade(ctx context.Context, id int64) (int64, error)
	ListContacts(ctx context.Context, t core.ContactType, activeOnly bool) ([]core.Contact, error)
	HasTransactions(ctx context.Context, contactID int64) (bool, error)
	Entries(ctx context.Context, contactType core.ContactType) ([]core.Entry, error)
}

// TransactionRepository is the slice of storage the transaction service needs.
type TransactionRepository interface {
	GetContact(ctx context.Context, id int64) (core.Contact, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	ListTransactionsByContact(ctx context.Context, contactID int64) ([]core.Transaction, error)
	EntriesByContact(ctx context.Context, contactID int64) ([]core.Entry, error)
}

// ReportingRepository is the read-only slice the dashboard queries run on.
type ReportingRepository interface {
	MonthlyRows(ctx context.Context) ([]storage.MonthlyRow, error)
	PartyRows(ctx context.Context) ([]storage.PartyRow, error)
	RecentTransactions(ctx context.Context, limit int) ([]storage.RecentTransaction, error)
	CountContacts(ctx context.Context) (storage.ContactCounts, error)
	Entries(ctx context.Context, contactType core.ContactType) ([]core.Entry, error)
}

// ReceiptStore is the external collaborator that keeps receipt images. The
// services never touch the disk themselves.
type ReceiptStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Remove(name string) error
}

// EventPublisher pushes ledger events to interested consumers. A nil
// publisher disables publishing; failures are logged, never surfaced.
type EventPublisher interface {
	Publish(ctx context.Context, msg *events.LedgerEventMessage) error
}

// ReceiptUpload carries an uploaded file from the HTTP layer into the
// transaction service.
type ReceiptUpload struct {
	Filename string
	Data     io.Reader
}
