package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"viaggi/internal/core"
)

// ExpenseCommittedMessage announces a ledger row written by a keypad commit.
// Consumers load the full row by Ref; the rest is for routing and logs.
type ExpenseCommittedMessage struct {
	Ref         string    `json:"ref"`
	TripID      string    `json:"trip_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseCommittedMessage(ref string, e core.Expense) *ExpenseCommittedMessage {
	return &ExpenseCommittedMessage{
		Ref:         ref,
		TripID:      e.TripID,
		Kind:        string(e.Kind),
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *ExpenseCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCommittedMessageFromJSON decodes a message and rejects one without
// a reference, since nothing could be done with it.
func ExpenseCommittedMessageFromJSON(data []byte) (*ExpenseCommittedMessage, error) {
	var msg ExpenseCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Ref == "" {
		return nil, errors.New("message has no expense reference")
	}
	return &msg, nil
}
