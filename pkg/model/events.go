package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted after a successful submission to eTims.
const (
	EventSalesSubmitted   = "sales.submitted"
	EventStockMasterSaved = "stock.master_saved"
	EventItemSaved        = "item.saved"
)

// Envelope is the canonical event envelope published to the event bus.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID string          `json:"correlation_id"`
	TIN           string          `json:"tin"`
	BranchID      string          `json:"bhf_id,omitempty"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope with fresh ids and a UTC timestamp. Callers
// that know the originating request overwrite CorrelationID.
func NewEnvelope(source, topic, eventType, tin, bhfID string, payload json.RawMessage) *Envelope {
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.NewString(),
		TIN:           tin,
		BranchID:      bhfID,
		Topic:         topic,
		EventType:     eventType,
		Version:       "1.0.0",
		Source:        source,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
}

// SubmissionPayload is the payload of submission events: what was sent and what eTims answered.
type SubmissionPayload struct {
	Request  json.RawMessage `json:"request"`
	Response json.RawMessage `json:"response"`
}
