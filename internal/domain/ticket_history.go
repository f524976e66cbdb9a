package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeImported TicketChangeType = "IMPORTED"
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangedBy  string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}

// TicketTrail is a stored ticket together with its audit entries, oldest
// first.
type TicketTrail struct {
	Ticket  *Ticket
	History []TicketHistory
}
