package models

import "time"

// EventMessage is the message published for every appended traceability event.
// Used across ingestion, messaging and the anchor engine
type EventMessage struct {
	EventID   string    `json:"EventID"`
	BatchID   string    `json:"BatchID"`
	BatchCode string    `json:"BatchCode,omitempty"`
	EventType EventType `json:"EventType"`
	EventHash string    `json:"EventHash"`
	ActorID   string    `json:"ActorID,omitempty"`
	CreatedAt string    `json:"CreatedAt"` // Use string for easy JSON serialization
}

// NewEventMessage builds the published form of a stored event
func NewEventMessage(ev *TraceabilityEvent, batchCode string) *EventMessage {
	return &EventMessage{
		EventID:   ev.ID,
		BatchID:   ev.BatchID,
		BatchCode: batchCode,
		EventType: ev.EventType,
		EventHash: ev.EventHash,
		ActorID:   ev.Actor.ID,
		CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
