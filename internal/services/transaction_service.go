package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/events"
	"khata/internal/receipts"
)

// LedgerView is everything the ledger page needs for one contact: the
// contact itself, its transactions newest first, and the current balance.
type LedgerView struct {
	Contact      core.Contact
	Transactions []core.Transaction
	Balance      decimal.Decimal
}

// TransactionService records and amends monetary movements. Receipt files go
// through the ReceiptStore collaborator; the database row stays the single
// source of truth.
type TransactionService struct {
	repo     TransactionRepository
	receipts ReceiptStore
	events   EventPublisher
	validate *validator.Validate
	trans    ut.Translator
	now      func() time.Time
}

func NewTransactionService(repo TransactionRepository, store ReceiptStore, publisher EventPublisher) *TransactionService {
	v, trans := newValidate()
	return &TransactionService{
		repo:     repo,
		receipts: store,
		events:   publisher,
		validate: v,
		trans:    trans,
		now:      time.Now,
	}
}

// Add validates and records a transaction against an existing active
// contact. When a receipt is supplied its file is stored first; a store
// failure aborts the add. A database failure after the file write removes
// the stored file again so nothing dangles.
func (s *TransactionService) Add(ctx context.Context, in core.TransactionInput, receipt *ReceiptUpload) (core.Transaction, error) {
	in.Normalize(s.now())
	if err := asValidationError(s.validate.StructCtx(ctx, in), s.trans); err != nil {
		return core.Transaction{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	contact, err := s.repo.GetContact(ctx, in.ContactID)
	if err != nil {
		return core.Transaction{}, err
	}
	if !contact.IsActive {
		return core.Transaction{}, fmt.Errorf("contact %d inactive: %w", in.ContactID, core.ErrNotFound)
	}

	photoName, err := s.storeReceipt(ctx, receipt)
	if err != nil {
		return core.Transaction{}, err
	}

	created, err := s.repo.CreateTransaction(ctx, core.Transaction{
		ContactID:       in.ContactID,
		Amount:          in.Amount,
		Type:            in.Type,
		Details:         in.Details,
		TransactionDate: in.TransactionDate,
		PhotoFileName:   photoName,
	})
	if err != nil {
		s.discardReceipt(ctx, photoName)
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", created.ID,
		"contact_id", created.ContactID,
		"type", created.Type,
		"amount", created.Amount)
	s.publish(ctx, events.NewTransactionRecorded(created.ID, created.ContactID))
	return created, nil
}

// Update replaces amount, type, details and date of an existing transaction.
// A new receipt is stored before the row is committed; the old file is
// removed afterwards, and a failure of that removal is logged, never
// surfaced, because the row no longer references it.
func (s *TransactionService) Update(ctx context.Context, id int64, in core.TransactionInput, receipt *ReceiptUpload) (core.Transaction, error) {
	existing, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	in.ContactID = existing.ContactID
	in.Normalize(s.now())
	if err := asValidationError(s.validate.StructCtx(ctx, in), s.trans); err != nil {
		return core.Transaction{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	newPhoto, err := s.storeReceipt(ctx, receipt)
	if err != nil {
		return core.Transaction{}, err
	}

	oldPhoto := existing.PhotoFileName
	existing.Amount = in.Amount
	existing.Type = in.Type
	existing.Details = in.Details
	existing.TransactionDate = in.TransactionDate
	if newPhoto != "" {
		existing.PhotoFileName = newPhoto
	}

	if err := s.repo.UpdateTransaction(ctx, existing); err != nil {
		s.discardReceipt(ctx, newPhoto)
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	// The row committed; the replaced file is garbage now. Best effort.
	if newPhoto != "" && oldPhoto != "" {
		if err := s.receipts.Remove(oldPhoto); err != nil {
			slog.ErrorContext(ctx, "Failed to remove replaced receipt",
				"transaction_id", id,
				"file", oldPhoto,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "contact_id", existing.ContactID)
	s.publish(ctx, events.NewTransactionUpdated(id, existing.ContactID))
	return existing, nil
}

// Get fetches a single transaction, feeding the edit form.
func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// ListForContact returns the contact's transactions newest first.
func (s *TransactionService) ListForContact(ctx context.Context, contactID int64) ([]core.Transaction, error) {
	return s.repo.ListTransactionsByContact(ctx, contactID)
}

// View assembles the ledger page for one active contact.
func (s *TransactionService) View(ctx context.Context, contactID int64) (LedgerView, error) {
	contact, err := s.repo.GetContact(ctx, contactID)
	if err != nil {
		return LedgerView{}, err
	}
	if !contact.IsActive {
		return LedgerView{}, fmt.Errorf("contact %d inactive: %w", contactID, core.ErrNotFound)
	}

	txs, err := s.repo.ListTransactionsByContact(ctx, contactID)
	if err != nil {
		return LedgerView{}, fmt.Errorf("ledger view for contact %d: %w", contactID, err)
	}
	entries, err := s.repo.EntriesByContact(ctx, contactID)
	if err != nil {
		return LedgerView{}, fmt.Errorf("ledger balance for contact %d: %w", contactID, err)
	}

	return LedgerView{
		Contact:      contact,
		Transactions: txs,
		Balance:      core.BalanceOf(entries),
	}, nil
}

func (s *TransactionService) storeReceipt(ctx context.Context, receipt *ReceiptUpload) (string, error) {
	if receipt == nil {
		return "", nil
	}
	name, err := s.receipts.Save(ctx, receipt.Filename, receipt.Data)
	if err != nil {
		if errors.Is(err, receipts.ErrUnsupportedFormat) {
			return "", core.NewValidationError("photo", "invalid image format")
		}
		return "", fmt.Errorf("store receipt: %w", err)
	}
	return name, nil
}

func (s *TransactionService) discardReceipt(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.receipts.Remove(name); err != nil {
		slog.ErrorContext(ctx, "Failed to remove orphaned receipt", "file", name, "error", err)
	}
}

func (s *TransactionService) publish(ctx context.Context, msg *events.LedgerEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", msg.Event,
			"transaction_id", msg.TransactionID,
			"error", err)
	}
}
