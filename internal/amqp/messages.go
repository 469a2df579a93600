package amqp

import (
	"encoding/json"
	"time"

	"duit/internal/core"
)

// TransactionCreatedMessage carries the full record payload so the worker
// can mirror it without reading the ledger. Records are immutable, so the
// payload can never go stale between publish and consume.
type TransactionCreatedMessage struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Note        string    `json:"note,omitempty"`
	OccurredOn  string    `json:"occurred_on"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionCreatedMessage builds a message from an appended record.
func NewTransactionCreatedMessage(t core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Kind:        string(t.Kind),
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Note:        t.Note,
		OccurredOn:  t.OccurredOn.String(),
		Timestamp:   time.Now(),
	}
}

// Transaction reconstructs the record the message describes.
func (m *TransactionCreatedMessage) Transaction() (core.Transaction, error) {
	occurredOn, err := core.ParseDate(m.OccurredOn)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Kind:       core.Kind(m.Kind),
		Amount:     core.Money{Cents: m.AmountCents},
		Category:   m.Category,
		Note:       m.Note,
		OccurredOn: occurredOn,
		CreatedAt:  m.Timestamp,
	}, nil
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON parses a message from JSON bytes.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
