package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/events"
)

const createdDateLayout = "02-01-2006"

// ContactSummary is one row of the accounts table. Field names are fixed by
// the DataTable that renders them.
type ContactSummary struct {
	ContactID            int64           `json:"ContactId"`
	Name                 string          `json:"name"`
	PhoneNumber          string          `json:"phoneNumber"`
	CreatedDateFormatted string          `json:"createdDateFormatted"`
	DueDate              string          `json:"dueDate"`
	Balance              decimal.Decimal `json:"balance"`
}

// Totals is the receive/give pair shown above the accounts table.
type Totals struct {
	TotalReceive     decimal.Decimal `json:"totalReceive"`
	TotalGive        decimal.Decimal `json:"totalGive"`
	FormattedReceive string          `json:"formattedReceive"`
	FormattedGive    string          `json:"formattedGive"`
}

// ContactService owns the contact lifecycle: create, edit, cascade delete,
// and the balance-annotated listings.
type ContactService struct {
	repo     ContactRepository
	events   EventPublisher
	validate *validator.Validate
	trans    ut.Translator
	now      func() time.Time
}

func NewContactService(repo ContactRepository, publisher EventPublisher) *ContactService {
	v, trans := newValidate()
	return &ContactService{
		repo:     repo,
		events:   publisher,
		validate: v,
		trans:    trans,
		now:      time.Now,
	}
}

// Create validates the input and persists a new active contact with audit
// stamps. Validation failures write nothing.
func (s *ContactService) Create(ctx context.Context, in core.ContactInput) (core.Contact, error) {
	in.Normalize()
	if err := asValidationError(s.validate.StructCtx(ctx, in), s.trans); err != nil {
		return core.Contact{}, err
	}

	contact := core.Contact{
		Name:        in.Name,
		PhoneNumber: in.PhoneNumber,
		ContactType: in.ContactType,
		Email:       in.Email,
		Address:     in.Address,
		Notes:       in.Notes,
		IsActive:    true,
		CreatedAt:   s.now(),
		CreatedBy:   in.Actor,
	}

	created, err := s.repo.CreateContact(ctx, contact)
	if err != nil {
		return core.Contact{}, fmt.Errorf("create contact: %w", err)
	}

	slog.InfoContext(ctx, "Contact created",
		"id", created.ID,
		"name", created.Name,
		"type", created.ContactType)
	return created, nil
}

// Edit replaces the mutable fields of an existing contact and stamps the
// update audit columns. The active flag is not touched here.
func (s *ContactService) Edit(ctx context.Context, id int64, in core.ContactInput) (core.Contact, error) {
	existing, err := s.repo.GetContact(ctx, id)
	if err != nil {
		return core.Contact{}, err
	}

	in.Normalize()
	if err := asValidationError(s.validate.StructCtx(ctx, in), s.trans); err != nil {
		return core.Contact{}, err
	}

	existing.Name = in.Name
	existing.PhoneNumber = in.PhoneNumber
	existing.ContactType = in.ContactType
	existing.Email = in.Email
	existing.Address = in.Address
	existing.Notes = in.Notes
	existing.UpdatedAt = s.now()
	existing.UpdatedBy = in.Actor

	if err := s.repo.UpdateContact(ctx, existing); err != nil {
		return core.Contact{}, fmt.Errorf("edit contact %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Contact updated", "id", id, "by", in.Actor)
	return existing, nil
}

// Delete removes the contact and all of its transactions in one atomic
// store operation, returning how many transactions went with it.
func (s *ContactService) Delete(ctx context.Context, id int64) (int64, error) {
	deleted, err := s.repo.DeleteContactCascade(ctx, id)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Contact deleted with cascade",
		"id", id,
		"removed_transactions", deleted)
	s.publish(ctx, events.NewContactDeleted(id, deleted))
	return deleted, nil
}

// HasTransactions is the pre-delete probe the confirmation dialog uses.
func (s *ContactService) HasTransactions(ctx context.Context, id int64) (bool, error) {
	return s.repo.HasTransactions(ctx, id)
}

// Get returns an active contact; inactive or missing ids read as not found.
func (s *ContactService) Get(ctx context.Context, id int64) (core.Contact, error) {
	contact, err := s.repo.GetContact(ctx, id)
	if err != nil {
		return core.Contact{}, err
	}
	if !contact.IsActive {
		return core.Contact{}, fmt.Errorf("contact %d inactive: %w", id, core.ErrNotFound)
	}
	return contact, nil
}

// List returns active contacts of exactly the given type with their current
// balances. Any other type string yields an empty list, not an error; the
// filter is the defensive default of the accounts page.
func (s *ContactService) List(ctx context.Context, contactType string) ([]ContactSummary, error) {
	t := core.ContactType(contactType)
	if !t.Valid() {
		return []ContactSummary{}, nil
	}

	contacts, err := s.repo.ListContacts(ctx, t, true)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	entries, err := s.repo.Entries(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("list contact entries: %w", err)
	}
	balances := make(map[int64]decimal.Decimal, len(contacts))
	for _, e := range entries {
		balances[e.ContactID] = balances[e.ContactID].Add(e.Type.Signed(e.Amount))
	}

	summaries := make([]ContactSummary, 0, len(contacts))
	for _, c := range contacts {
		phone := c.PhoneNumber
		if phone == "" {
			phone = "-"
		}
		summaries = append(summaries, ContactSummary{
			ContactID:            c.ID,
			Name:                 c.Name,
			PhoneNumber:          phone,
			CreatedDateFormatted: c.CreatedAt.Format(createdDateLayout),
			DueDate:              "-",
			Balance:              balances[c.ID],
		})
	}
	return summaries, nil
}

// PortfolioTotals buckets active contacts by the sign of their net balance.
// An invalid type filter means no filter, matching the totals cards that sit
// above both account tabs.
func (s *ContactService) PortfolioTotals(ctx context.Context, contactType string) (Totals, error) {
	t := core.ContactType(contactType)
	if !t.Valid() {
		t = ""
	}

	entries, err := s.repo.Entries(ctx, t)
	if err != nil {
		return Totals{}, fmt.Errorf("portfolio entries: %w", err)
	}

	totals := core.ComputePortfolioTotals(entries)
	return Totals{
		TotalReceive:     totals.Receivable,
		TotalGive:        totals.Payable,
		FormattedReceive: core.FormatGrouped(totals.Receivable),
		FormattedGive:    core.FormatGrouped(totals.Payable),
	}, nil
}

func (s *ContactService) publish(ctx context.Context, msg *events.LedgerEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", msg.Event,
			"contact_id", msg.ContactID,
			"error", err)
	}
}
