package events

import (
	"encoding/json"
	"time"
)

// Event names carried on the routing envelope.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionUpdated  = "transaction.updated"
	EventContactDeleted      = "contact.deleted"
)

// LedgerEventMessage is the envelope published for every ledger mutation.
// It carries identifiers only; consumers fetch the full rows themselves.
type LedgerEventMessage struct {
	Event         string    `json:"event"`
	ContactID     int64     `json:"contact_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	RemovedCount  int64     `json:"removed_count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecorded(transactionID, contactID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:         EventTransactionRecorded,
		ContactID:     contactID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func NewTransactionUpdated(transactionID, contactID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:         EventTransactionUpdated,
		ContactID:     contactID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func NewContactDeleted(contactID, removedCount int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:        EventContactDeleted,
		ContactID:    contactID,
		RemovedCount: removedCount,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
