package amqp

import (
	"encoding/json"
	"time"
)

// TransactionEvent tells the archive worker that a transaction needs
// archiving. It carries only the ID; the worker fetches the row from the
// database, so stale events are harmless.
type TransactionEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(id, userID int64) *TransactionEvent {
	return &TransactionEvent{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
