package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

// Message is the wire frame carried over the pub/sub channel between the
// outbox publisher and every API instance's hub. Payload is the stored
// outbox envelope, forwarded untouched to subscribed clients.
type Message struct {
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
}

// Topic derives the hub topic the message fans out on.
func (m Message) Topic() string {
	return fmt.Sprintf("%s:%s", m.AggregateType, m.AggregateID)
}

// SequenceVersion extracts the per-aggregate version used to drop stale
// frames. Returns 0 when the payload carries none; 0 is never dropped.
func (m Message) SequenceVersion() int64 {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(m.Payload, &envelope); err != nil {
		return 0
	}
	var data struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return 0
	}
	return data.Version
}

// ClientFrame is what a dashboard session receives: the event name plus the
// stored envelope.
type ClientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode renders the frame sent to websocket clients.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(ClientFrame{Type: m.EventType, Payload: m.Payload})
}
