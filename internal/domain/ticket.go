package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Values are the labels
// the support desk stores and displays.
type TicketStatus string

const (
	TicketStatusPending              TicketStatus = "Pendente"
	TicketStatusInDevelopment        TicketStatus = "Em Desenvolvimento"
	TicketStatusWaitingResponse      TicketStatus = "Aguardando resposta"
	TicketStatusWaitingConfiguration TicketStatus = "Aguardando Configuração"
	TicketStatusCompleted            TicketStatus = "Concluído"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInDevelopment, TicketStatusWaitingResponse,
		TicketStatusWaitingConfiguration, TicketStatusCompleted:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Baixa"
	TicketPriorityMedium TicketPriority = "Média"
	TicketPriorityHigh   TicketPriority = "Alta"
	TicketPriorityUrgent TicketPriority = "Urgente"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketSource records how a ticket entered the store.
type TicketSource string

const (
	TicketSourceOCR  TicketSource = "ocr"
	TicketSourceText TicketSource = "text"
	TicketSourceJSON TicketSource = "json"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	ExternalID  string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Responsible string
	Insurer     *string
	Category    *string
	Source      TicketSource
	ImportID    *string
	CreatorName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
