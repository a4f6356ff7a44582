package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// ChangeMessage is the JSON body of a row change published on the exchange.
// It carries only enough to route and log; consumers refetch on arrival.
type ChangeMessage struct {
	Table     core.Table        `json:"table"`
	Kind      remote.ChangeKind `json:"kind"`
	CoupleID  string            `json:"couple_id"`
	RecordID  string            `json:"record_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewChangeMessage(c remote.Change) *ChangeMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{
		Table:     c.Table,
		Kind:      c.Kind,
		CoupleID:  c.CoupleID,
		RecordID:  c.RecordID,
		Timestamp: ts.UTC(),
	}
}

// Change converts the message back into the port type.
func (m *ChangeMessage) Change() remote.Change {
	return remote.Change{Table: m.Table, Kind: m.Kind, CoupleID: m.CoupleID, RecordID: m.RecordID, At: m.Timestamp}
}

// RoutingKey is "<table>.<couple>", so a queue binds per table and tenant.
func (m *ChangeMessage) RoutingKey() string {
	return RoutingKey(m.Table, m.CoupleID)
}

func RoutingKey(table core.Table, coupleID string) string {
	return fmt.Sprintf("%s.%s", table, coupleID)
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects bodies without routing fields.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Table == "" || msg.CoupleID == "" {
		return nil, fmt.Errorf("change message without table or couple")
	}
	return &msg, nil
}
