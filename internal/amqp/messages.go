package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage announces that month data changed in a shared store.
// Receivers drop their cached reads for the listed months, or every
// calendar cache when MonthKeys is empty.
type RefreshMessage struct {
	Source    string    `json:"source"`
	MonthKeys []string  `json:"month_keys,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message stamped with the current time
func NewRefreshMessage(source string, monthKeys []string) *RefreshMessage {
	return &RefreshMessage{
		Source:    source,
		MonthKeys: monthKeys,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
