package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/events"
	"khata/internal/storage"
)

// fakeRepo is an in-memory stand-in for the SQLite repository, shared by the
// service tests.
type fakeRepo struct {
	contacts      map[int64]core.Contact
	transactions  map[int64]core.Transaction
	nextContactID int64
	nextTxID      int64

	createContactErr error
	createTxErr      error
	updateTxErr      error

	monthly []storage.MonthlyRow
	party   []storage.PartyRow
	recent  []storage.RecentTransaction
	counts  storage.ContactCounts
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		contacts:     make(map[int64]core.Contact),
		transactions: make(map[int64]core.Transaction),
	}
}

func (f *fakeRepo) CreateContact(_ context.Context, c core.Contact) (core.Contact, error) {
	if f.createContactErr != nil {
		return core.Contact{}, f.createContactErr
	}
	f.nextContactID++
	c.ID = f.nextContactID
	f.contacts[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetContact(_ context.Context, id int64) (core.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return core.Contact{}, fmt.Errorf("contact %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (f *fakeRepo) UpdateContact(_ context.Context, c core.Contact) error {
	if _, ok := f.contacts[c.ID]; !ok {
		return fmt.Errorf("contact %d: %w", c.ID, core.ErrNotFound)
	}
	f.contacts[c.ID] = c
	return nil
}

func (f *fakeRepo) DeleteContactCascade(_ context.Context, id int64) (int64, error) {
	if _, ok := f.contacts[id]; !ok {
		return 0, fmt.Errorf("contact %d: %w", id, core.ErrNotFound)
	}
	var deleted int64
	for txID, tx := range f.transactions {
		if tx.ContactID == id {
			delete(f.transactions, txID)
			deleted++
		}
	}
	delete(f.contacts, id)
	return deleted, nil
}

func (f *fakeRepo) ListContacts(_ context.Context, t core.ContactType, activeOnly bool) ([]core.Contact, error) {
	var out []core.Contact
	for _, c := range f.contacts {
		if c.ContactType != t {
			continue
		}
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) HasTransactions(_ context.Context, contactID int64) (bool, error) {
	for _, tx := range f.transactions {
		if tx.ContactID == contactID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if f.createTxErr != nil {
		return core.Transaction{}, f.createTxErr
	}
	f.nextTxID++
	t.ID = f.nextTxID
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeRepo) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (f *fakeRepo) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if f.updateTxErr != nil {
		return f.updateTxErr
	}
	if _, ok := f.transactions[t.ID]; !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeRepo) ListTransactionsByContact(_ context.Context, contactID int64) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range f.transactions {
		if tx.ContactID == contactID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.After(out[j].TransactionDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeRepo) EntriesByContact(_ context.Context, contactID int64) ([]core.Entry, error) {
	var out []core.Entry
	for _, tx := range f.transactions {
		if tx.ContactID == contactID {
			out = append(out, core.Entry{ContactID: contactID, Type: tx.Type, Amount: tx.Amount})
		}
	}
	return out, nil
}

func (f *fakeRepo) Entries(_ context.Context, contactType core.ContactType) ([]core.Entry, error) {
	var ids []int64
	for id := range f.transactions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []core.Entry
	for _, id := range ids {
		tx := f.transactions[id]
		c, ok := f.contacts[tx.ContactID]
		if !ok || !c.IsActive {
			continue
		}
		if contactType != "" && c.ContactType != contactType {
			continue
		}
		out = append(out, core.Entry{ContactID: tx.ContactID, Type: tx.Type, Amount: tx.Amount})
	}
	return out, nil
}

func (f *fakeRepo) MonthlyRows(_ context.Context) ([]storage.MonthlyRow, error) {
	return f.monthly, nil
}

func (f *fakeRepo) PartyRows(_ context.Context) ([]storage.PartyRow, error) {
	return f.party, nil
}

func (f *fakeRepo) RecentTransactions(_ context.Context, limit int) ([]storage.RecentTransaction, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeRepo) CountContacts(_ context.Context) (storage.ContactCounts, error) {
	return f.counts, nil
}

// seed helpers

func (f *fakeRepo) seedContact(name string, t core.ContactType, active bool) core.Contact {
	f.nextContactID++
	c := core.Contact{
		ID:          f.nextContactID,
		Name:        name,
		ContactType: t,
		IsActive:    active,
		CreatedAt:   time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		CreatedBy:   "System",
	}
	f.contacts[c.ID] = c
	return c
}

func (f *fakeRepo) seedTransaction(contactID int64, typ core.TransactionType, amount string, date time.Time) core.Transaction {
	f.nextTxID++
	t := core.Transaction{
		ID:              f.nextTxID,
		ContactID:       contactID,
		Type:            typ,
		Amount:          mustDecimal(amount),
		TransactionDate: core.DateOnly(date),
	}
	f.transactions[t.ID] = t
	return t
}

func mustDecimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// fakeReceipts records Save/Remove calls without touching the disk.
type fakeReceipts struct {
	saveErr   error
	removeErr error
	saved     []string
	removed   []string
	counter   int
}

func (f *fakeReceipts) Save(_ context.Context, originalName string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	_, _ = io.Copy(io.Discard, r)
	f.counter++
	name := fmt.Sprintf("stored-%d-%s", f.counter, originalName)
	f.saved = append(f.saved, name)
	return name, nil
}

func (f *fakeReceipts) Remove(name string) error {
	f.removed = append(f.removed, name)
	return f.removeErr
}

// fakePublisher captures published ledger events.
type fakePublisher struct {
	err       error
	published []*events.LedgerEventMessage
}

func (f *fakePublisher) Publish(_ context.Context, msg *events.LedgerEventMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}
