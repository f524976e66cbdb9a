package dto

import (
	"time"

	"github.com/safe2go/support-import/internal/domain"
)

// TicketResponse is a stored ticket as returned by the API.
type TicketResponse struct {
	ID          string                `json:"id"`
	ExternalID  string                `json:"external_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Responsible string                `json:"responsible"`
	Insurer     *string               `json:"insurer"`
	Category    *string               `json:"category"`
	Source      domain.TicketSource   `json:"source"`
	ImportID    *string               `json:"import_id"`
	CreatorName string                `json:"creator_name"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// HistoryEntryResponse is one audit entry of a ticket.
type HistoryEntryResponse struct {
	ID         string                  `json:"id"`
	ChangedBy  string                  `json:"changed_by"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	OldValue   map[string]any          `json:"old_value,omitempty"`
	NewValue   map[string]any          `json:"new_value,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// TicketTrailResponse pairs a ticket with its history.
type TicketTrailResponse struct {
	Ticket  TicketResponse         `json:"ticket"`
	History []HistoryEntryResponse `json:"history"`
}

// NewTicketTrailResponse maps the domain trail onto the wire shape.
func NewTicketTrailResponse(trail *domain.TicketTrail) TicketTrailResponse {
	t := trail.Ticket
	resp := TicketTrailResponse{
		Ticket: TicketResponse{
			ID:          t.ID,
			ExternalID:  t.ExternalID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			Responsible: t.Responsible,
			Insurer:     t.Insurer,
			Category:    t.Category,
			Source:      t.Source,
			ImportID:    t.ImportID,
			CreatorName: t.CreatorName,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		},
		History: make([]HistoryEntryResponse, 0, len(trail.History)),
	}
	for _, h := range trail.History {
		resp.History = append(resp.History, HistoryEntryResponse{
			ID:         h.ID,
			ChangedBy:  h.ChangedBy,
			ChangeType: h.ChangeType,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return resp
}
