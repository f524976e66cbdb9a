package dto

import (
	"github.com/safe2go/support-import/internal/extraction"
)

// TextImportRequest carries text that was already recognized.
type TextImportRequest struct {
	Text string `json:"text"`
}

// ExtractResponse lists the candidates found in a dry run.
type ExtractResponse struct {
	Found      int                    `json:"found"`
	Candidates []extraction.Candidate `json:"candidates"`
}
