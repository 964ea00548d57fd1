package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the RFQ adapter.
const (
	EventRFQDiscovered = "rfq.discovered"
	EventRFQCreated    = "rfq.created"
)

// Envelope is the canonical event envelope published to the event bus.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Source        string          `json:"source"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
	Context       Context         `json:"context,omitempty"`
}

// Context carries routing hints that consumers can filter on without decoding the payload.
type Context struct {
	RFQID int64  `json:"rfq_id,omitempty"`
	Port  string `json:"port,omitempty"`
	Feed  string `json:"feed,omitempty"`
}

// NewEnvelope wraps payload in an envelope with fresh ids and a UTC timestamp.
func NewEnvelope(source, topic, eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Source:        source,
		Topic:         topic,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}, nil
}
