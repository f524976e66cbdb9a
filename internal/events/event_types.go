package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/safe2go/support-import/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketImported  EventType = "ticket_imported"
	EventImportCompleted EventType = "import_completed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Name string              `json:"name"`
	Role domain.OperatorRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ImportID  string      `json:"import_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, importID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ImportID:  importID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketImportedPayload payload.
type TicketImportedPayload struct {
	ExternalID  string                `json:"external_id"`
	Title       string                `json:"title"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Responsible string                `json:"responsible"`
	Insurer     *string               `json:"insurer,omitempty"`
	Source      domain.TicketSource   `json:"source"`
}

// ImportCompletedPayload payload.
type ImportCompletedPayload struct {
	Source     domain.TicketSource `json:"source"`
	Found      int                 `json:"found"`
	Created    int                 `json:"created"`
	Duplicates int                 `json:"duplicates"`
	Failed     int                 `json:"failed"`
}
