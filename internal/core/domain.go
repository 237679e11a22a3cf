package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Customer ContactType = "Customer"
	Supplier ContactType = "Supplier"

	Received TransactionType = "Received"
	Given    TransactionType = "Given"
)

type (
	// ContactType distinguishes the two counterparty kinds. The string values
	// are part of the wire format consumed by the dashboard.
	ContactType string

	// TransactionType is the direction of a monetary movement.
	TransactionType string

	Contact struct {
		ID          int64
		Name        string
		PhoneNumber string
		ContactType ContactType
		Email       string
		Address     string
		Notes       string
		IsActive    bool
		CreatedAt   time.Time
		CreatedBy   string
		UpdatedAt   time.Time // zero when never edited
		UpdatedBy   string
	}

	Transaction struct {
		ID              int64
		ContactID       int64
		Amount          decimal.Decimal
		Type            TransactionType
		Details         string
		TransactionDate time.Time // date-only, midnight UTC
		PhotoFileName   string
	}
)

func (t ContactType) Valid() bool {
	return t == Customer || t == Supplier
}

func (t TransactionType) Valid() bool {
	return t == Received || t == Given
}

// Signed applies the ledger sign convention: Received contributes positively
// to a contact's balance, Given negatively.
func (t TransactionType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == Given {
		return amount.Neg()
	}
	return amount
}

// DateOnly truncates a timestamp to its calendar date in UTC. Transaction
// dates carry no time component.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ContactInput carries the mutable contact fields through create and edit.
type ContactInput struct {
	Name        string      `validate:"required,max=150"`
	PhoneNumber string      `validate:"omitempty,phone,max=20"`
	ContactType ContactType `validate:"required,contacttype"`
	Email       string      `validate:"omitempty,email,max=100"`
	Address     string      `validate:"omitempty,max=500"`
	Notes       string      `validate:"-"`
	Actor       string      `validate:"-"` // audit stamp, defaults to "System"
}

// Normalize trims free-text fields the way the entry forms submit them.
func (in *ContactInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.Notes = strings.TrimSpace(in.Notes)
	if strings.TrimSpace(in.Actor) == "" {
		in.Actor = "System"
	}
}

// TransactionInput carries the mutable transaction fields through add and update.
type TransactionInput struct {
	ContactID       int64           `validate:"required,gt=0"`
	Amount          decimal.Decimal `validate:"-"` // positivity checked separately, see Validate
	Type            TransactionType `validate:"required,transactiontype"`
	Details         string          `validate:"omitempty,max=500"`
	TransactionDate time.Time       `validate:"-"`
}

// Normalize trims details and defaults the transaction date to today.
func (in *TransactionInput) Normalize(now time.Time) {
	in.Details = strings.TrimSpace(in.Details)
	if in.TransactionDate.IsZero() {
		in.TransactionDate = DateOnly(now)
	} else {
		in.TransactionDate = DateOnly(in.TransactionDate)
	}
}

// Validate enforces the amount invariant the validator tags cannot express:
// zero and negative amounts are rejected at the boundary.
func (in TransactionInput) Validate() error {
	if !in.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be greater than zero")
	}
	return nil
}
