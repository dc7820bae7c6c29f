package amqp

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
)

// RoutingKeyEntriesChanged is the routing key of refresh events.
const RoutingKeyEntriesChanged = "entries.changed"

// RefreshMessage announces that time entries changed and cached snapshots
// should be dropped. It carries no rows: consumers re-read the source.
type RefreshMessage struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message stamped with a fresh ID and
// the local host name.
func NewRefreshMessage(reason string) *RefreshMessage {
	host, _ := os.Hostname()
	return &RefreshMessage{
		ID:        uuid.NewString(),
		Reason:    reason,
		Origin:    host,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes a message and checks it carries an ID.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("refresh message without id")
	}
	return &msg, nil
}
