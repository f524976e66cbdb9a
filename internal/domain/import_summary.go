package domain

import "time"

// ImportFailure describes one candidate the store rejected.
type ImportFailure struct {
	ExternalID string `json:"external_id"`
	Reason     string `json:"reason"`
}

// ImportSummary is the outcome of one import batch: what was recognized,
// created, skipped as already present, and what failed.
type ImportSummary struct {
	ID           string          `json:"id"`
	Source       TicketSource    `json:"source"`
	FileName     string          `json:"file_name,omitempty"`
	OperatorName string          `json:"operator_name"`
	Found        int             `json:"found"`
	Created      int             `json:"created"`
	Duplicates   int             `json:"duplicates"`
	Failed       int             `json:"failed"`
	CreatedIDs   []string        `json:"created_ids"`
	DuplicateIDs []string        `json:"duplicate_ids"`
	Failures     []ImportFailure `json:"failures"`
	Confidence   *float64        `json:"confidence,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}
