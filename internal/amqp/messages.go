package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrEmptySnapshot = errors.New("message carries no snapshot")
	// ErrPermanent marks a handler failure that retrying cannot fix.
	ErrPermanent = errors.New("permanent failure")
)

// SnapshotSavedMessage announces a saved ledger snapshot. It carries the
// snapshot document itself so consumers do not need access to the store.
type SnapshotSavedMessage struct {
	Church       string          `json:"church"`
	SavedAt      time.Time       `json:"saved_at"`
	Transactions int             `json:"transactions"`
	Snapshot     json.RawMessage `json:"snapshot"`
}

func NewSnapshotSavedMessage(church string, savedAt time.Time, transactions int, snapshot []byte) *SnapshotSavedMessage {
	return &SnapshotSavedMessage{
		Church:       church,
		SavedAt:      savedAt.UTC(),
		Transactions: transactions,
		Snapshot:     snapshot,
	}
}

func (m *SnapshotSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotSavedMessageFromJSON decodes a message and rejects one without a snapshot.
func SnapshotSavedMessageFromJSON(data []byte) (*SnapshotSavedMessage, error) {
	var msg SnapshotSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if len(msg.Snapshot) == 0 || string(msg.Snapshot) == "null" {
		return nil, ErrEmptySnapshot
	}
	return &msg, nil
}
