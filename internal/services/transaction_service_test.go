package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"khata/internal/core"
	"khata/internal/events"
	"khata/internal/receipts"
)

func newTestTransactionService(repo *fakeRepo, store *fakeReceipts, pub *fakePublisher) *TransactionService {
	var publisher EventPublisher
	if pub != nil {
		publisher = pub
	}
	svc := NewTransactionService(repo, store, publisher)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestTransactionAdd(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := newTestTransactionService(repo, &fakeReceipts{}, pub)
	c := repo.seedContact("Asha", core.Customer, true)

	created, err := svc.Add(context.Background(), core.TransactionInput{
		ContactID: c.ID,
		Amount:    mustDecimal("250.50"),
		Type:      core.Received,
		Details:   "  advance  ",
	}, nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected assigned id")
	}
	if created.Details != "advance" {
		t.Errorf("details not trimmed: %q", created.Details)
	}
	if !created.TransactionDate.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("missing date should default to today, got %v", created.TransactionDate)
	}

	if len(pub.published) != 1 || pub.published[0].Event != events.EventTransactionRecorded {
		t.Errorf("expected transaction.recorded event, got %+v", pub.published)
	}
}

func TestTransactionAddValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)
	c := repo.seedContact("Asha", core.Customer, true)

	tests := []struct {
		name  string
		input core.TransactionInput
		field string
	}{
		{
			name:  "zero amount",
			input: core.TransactionInput{ContactID: c.ID, Amount: mustDecimal("0"), Type: core.Received},
			field: "amount",
		},
		{
			name:  "negative amount",
			input: core.TransactionInput{ContactID: c.ID, Amount: mustDecimal("-5"), Type: core.Given},
			field: "amount",
		},
		{
			name:  "unknown type",
			input: core.TransactionInput{ContactID: c.ID, Amount: mustDecimal("10"), Type: "received"},
			field: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), tt.input, nil)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, found := verr.Fields[tt.field]; !found {
				t.Errorf("expected field %q in %v", tt.field, verr.Fields)
			}
			if len(repo.transactions) != 0 {
				t.Error("validation failure must not persist anything")
			}
		})
	}
}

func TestTransactionAddSmallestAmount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)
	c := repo.seedContact("Asha", core.Customer, true)

	if _, err := svc.Add(context.Background(), core.TransactionInput{
		ContactID: c.ID,
		Amount:    mustDecimal("0.01"),
		Type:      core.Given,
	}, nil); err != nil {
		t.Fatalf("0.01 is a valid amount: %v", err)
	}
}

func TestTransactionAddContactMissing(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)

	_, err := svc.Add(context.Background(), core.TransactionInput{
		ContactID: 99,
		Amount:    mustDecimal("10"),
		Type:      core.Received,
	}, nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionAddContactInactive(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)
	c := repo.seedContact("Gone", core.Customer, false)

	_, err := svc.Add(context.Background(), core.TransactionInput{
		ContactID: c.ID,
		Amount:    mustDecimal("10"),
		Type:      core.Received,
	}, nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive contact, got %v", err)
	}
}

func TestTransactionAddWithReceipt(t *testing.T) {
	repo := newFakeRepo()
	store := &fakeReceipts{}
	svc := newTestTransactionService(repo, store, nil)
	c := repo.seedContact("Asha", core.Customer, true)

	created, err := svc.Add(context.Background(), core.TransactionInput{
		ContactID: c.ID,
		Amount:    mustDecimal("100"),
		Type:      core.Received,
	}, &ReceiptUpload{Filename: "bill.jpg", Data: strings.NewReader("jpeg bytes")})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if created.PhotoFileName == "" {
		t.Fatal("expected stored photo name on the row")
	}
	if len(store.saved) != 1 || store.saved[0] != created.PhotoFileName {
		t.Errorf("store mismatch: saved=%v row=%q", store.saved, created.PhotoFileName)
	}
}

func TestTransactionAddBadReceiptFormat(t *testing.T) {
	repo := newFakeRepo()
	store := &fakeReceipts{saveErr: receipts.ErrUnsupportedFormat}
	svc := newTestTransactionService(repo, store, nil)
	c := repo.seedContact("Asha", core.Customer, true)

	_, err := svc.Add(context.Background(), core.TransactionInput{
		ContactID: c.ID,
		Amount:    mustDecimal("100"),
		Type:      core.Received,
	}, &ReceiptUpload{Filename: "bill.pdf", Data: strings.NewReader("%PDF")})

	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, found := verr.Fields["photo"]; !found {
		t.Errorf("expected photo field, got %v", verr.Fields)
	}
	if len(repo.transactions) != 0 {
		t.Error("rejected receipt must not persist a row")
	}
}

func TestTransactionAddDBFailureDiscardsReceipt(t *testing.T) {
	repo := newFakeRepo()
	repo.createTxErr = errors.New("disk full")
	store := &fakeReceipts{}
	svc := newTestTransactionService(repo, store, nil)
	c := repo.seedContact("Asha", core.Customer, true)

	_, err := svc.Add(context.Background(), core.TransactionInput{
		ContactID: c.ID,
		Amount:    mustDecimal("100"),
		Type:      core.Received,
	}, &ReceiptUpload{Filename: "bill.png", Data: strings.NewReader("png bytes")})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.saved) != 1 || len(store.removed) != 1 || store.removed[0] != store.saved[0] {
		t.Errorf("stored file must be removed after db failure: saved=%v removed=%v", store.saved, store.removed)
	}
}

func TestTransactionUpdateNotFound(t *testing.T) {
	svc := newTestTransactionService(newFakeRepo(), &fakeReceipts{}, nil)

	_, err := svc.Update(context.Background(), 7, core.TransactionInput{
		Amount: mustDecimal("10"),
		Type:   core.Received,
	}, nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionUpdateTypeFlipShiftsBalance(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)
	c := repo.seedContact("Asha", core.Customer, true)
	tx := repo.seedTransaction(c.ID, core.Received, "500", time.Now())
	repo.seedTransaction(c.ID, core.Given, "200", time.Now())

	before, err := svc.View(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if !before.Balance.Equal(mustDecimal("300")) {
		t.Fatalf("expected balance 300 before flip, got %s", before.Balance)
	}

	_, err = svc.Update(context.Background(), tx.ID, core.TransactionInput{
		Amount: mustDecimal("500"),
		Type:   core.Given,
	}, nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	after, err := svc.View(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	// Flipping Received 500 to Given 500 moves the balance by twice the amount.
	if !after.Balance.Equal(mustDecimal("-700")) {
		t.Errorf("expected balance -700 after flip, got %s", after.Balance)
	}
}

func TestTransactionUpdateKeepsContact(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)
	c := repo.seedContact("Asha", core.Customer, true)
	other := repo.seedContact("Mill", core.Supplier, true)
	tx := repo.seedTransaction(c.ID, core.Received, "100", time.Now())

	updated, err := svc.Update(context.Background(), tx.ID, core.TransactionInput{
		ContactID: other.ID, // must be ignored
		Amount:    mustDecimal("150"),
		Type:      core.Received,
	}, nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ContactID != c.ID {
		t.Errorf("update must not move the transaction to another contact, got %d", updated.ContactID)
	}
}

func TestTransactionUpdateReplacesReceipt(t *testing.T) {
	repo := newFakeRepo()
	store := &fakeReceipts{}
	pub := &fakePublisher{}
	svc := newTestTransactionService(repo, store, pub)
	c := repo.seedContact("Asha", core.Customer, true)
	tx := repo.seedTransaction(c.ID, core.Received, "100", time.Now())
	tx.PhotoFileName = "old.jpg"
	repo.transactions[tx.ID] = tx

	updated, err := svc.Update(context.Background(), tx.ID, core.TransactionInput{
		Amount: mustDecimal("100"),
		Type:   core.Received,
	}, &ReceiptUpload{Filename: "new.webp", Data: strings.NewReader("webp bytes")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.PhotoFileName == "old.jpg" {
		t.Error("expected replaced photo name")
	}
	if len(store.removed) != 1 || store.removed[0] != "old.jpg" {
		t.Errorf("old photo must be removed after commit, removed=%v", store.removed)
	}
	if len(pub.published) != 1 || pub.published[0].Event != events.EventTransactionUpdated {
		t.Errorf("expected transaction.updated event, got %+v", pub.published)
	}
}

func TestTransactionUpdateWithoutReceiptKeepsPhoto(t *testing.T) {
	repo := newFakeRepo()
	store := &fakeReceipts{}
	svc := newTestTransactionService(repo, store, nil)
	c := repo.seedContact("Asha", core.Customer, true)
	tx := repo.seedTransaction(c.ID, core.Received, "100", time.Now())
	tx.PhotoFileName = "keep.jpg"
	repo.transactions[tx.ID] = tx

	updated, err := svc.Update(context.Background(), tx.ID, core.TransactionInput{
		Amount: mustDecimal("120"),
		Type:   core.Received,
	}, nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.PhotoFileName != "keep.jpg" {
		t.Errorf("photo must survive an update without upload, got %q", updated.PhotoFileName)
	}
	if len(store.removed) != 0 {
		t.Errorf("nothing should be removed, removed=%v", store.removed)
	}
}

func TestTransactionUpdateOldPhotoRemovalFailureIsSwallowed(t *testing.T) {
	repo := newFakeRepo()
	store := &fakeReceipts{removeErr: errors.New("permission denied")}
	svc := newTestTransactionService(repo, store, nil)
	c := repo.seedContact("Asha", core.Customer, true)
	tx := repo.seedTransaction(c.ID, core.Received, "100", time.Now())
	tx.PhotoFileName = "old.jpg"
	repo.transactions[tx.ID] = tx

	if _, err := svc.Update(context.Background(), tx.ID, core.TransactionInput{
		Amount: mustDecimal("100"),
		Type:   core.Received,
	}, &ReceiptUpload{Filename: "new.png", Data: strings.NewReader("png")}); err != nil {
		t.Fatalf("old photo cleanup failure must not surface: %v", err)
	}
}

func TestTransactionView(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)
	c := repo.seedContact("Asha", core.Customer, true)
	repo.seedTransaction(c.ID, core.Received, "500", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	repo.seedTransaction(c.ID, core.Given, "200", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	repo.seedTransaction(c.ID, core.Received, "100", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	view, err := svc.View(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if view.Contact.ID != c.ID {
		t.Errorf("unexpected contact %d", view.Contact.ID)
	}
	if !view.Balance.Equal(mustDecimal("400")) {
		t.Errorf("expected balance 400, got %s", view.Balance)
	}
	if len(view.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(view.Transactions))
	}
	// Newest first, id breaks the date tie.
	if view.Transactions[0].ID != 3 || view.Transactions[1].ID != 2 || view.Transactions[2].ID != 1 {
		t.Errorf("unexpected ordering: %d %d %d",
			view.Transactions[0].ID, view.Transactions[1].ID, view.Transactions[2].ID)
	}
}

func TestTransactionViewInactiveContact(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestTransactionService(repo, &fakeReceipts{}, nil)
	c := repo.seedContact("Gone", core.Customer, false)

	_, err := svc.View(context.Background(), c.ID)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
