package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/safe2go/support-import/internal/domain"
	"github.com/safe2go/support-import/internal/events"
	"github.com/safe2go/support-import/internal/extraction"
	"github.com/safe2go/support-import/internal/observability"
	"github.com/safe2go/support-import/internal/ocr"
	"github.com/safe2go/support-import/internal/repository"
	apperrors "github.com/safe2go/support-import/pkg/util/errorutil"
)

// ImportService turns screenshots, recognized text and JSON backups into
// stored tickets.
type ImportService struct {
	extractor  *extraction.Extractor
	recognizer ocr.Recognizer
	languages  []string
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	summaries  repository.ImportSummaryRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ImportDependencies bundles collaborators for the import service.
type ImportDependencies struct {
	Extractor   *extraction.Extractor
	Recognizer  ocr.Recognizer
	Languages   []string
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	SummaryRepo repository.ImportSummaryRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// JSONCase is one record of a cases backup file.
type JSONCase struct {
	JiraID      string `json:"jira_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Responsible string `json:"responsible"`
	Seguradora  string `json:"seguradora"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

type jsonBackup struct {
	Cases []JSONCase `json:"cases"`
}

// NewImportService constructs the service.
func NewImportService(deps ImportDependencies) *ImportService {
	extractor := deps.Extractor
	if extractor == nil {
		extractor = extraction.New(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		extractor:  extractor,
		recognizer: deps.Recognizer,
		languages:  deps.Languages,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		summaries:  deps.SummaryRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Preview extracts candidates from text without storing anything.
func (s *ImportService) Preview(op domain.Operator, text string) ([]extraction.Candidate, error) {
	candidates, err := s.extractor.ExtractFrom(strings.NewReader(text), op.Name)
	if err != nil {
		return nil, mapExtractionError(err)
	}
	return candidates, nil
}

// ImportText extracts candidates from already recognized text and submits
// them.
func (s *ImportService) ImportText(ctx context.Context, op domain.Operator, text string) (*domain.ImportSummary, error) {
	started := time.Now().UTC()
	candidates, err := s.extractor.ExtractFrom(strings.NewReader(text), op.Name)
	if err != nil {
		return nil, mapExtractionError(err)
	}
	return s.submit(ctx, op, batch{
		source:    domain.TicketSourceText,
		startedAt: started,
		tickets:   candidateTickets(candidates),
	})
}

// ImportImage recognizes the text of a screenshot and submits the tickets
// found in it.
func (s *ImportService) ImportImage(ctx context.Context, op domain.Operator, fileName string, image []byte) (*domain.ImportSummary, error) {
	started := time.Now().UTC()
	if len(image) == 0 {
		return nil, apperrors.NewValidationError("image is empty", map[string]any{"file": fileName})
	}
	if s.recognizer == nil {
		return nil, apperrors.NewInternalError(errors.New("text recognition is not configured"))
	}

	normalized, err := ocr.Normalize(image)
	if err != nil {
		if errors.Is(err, ocr.ErrUnsupportedImage) {
			return nil, apperrors.NewUnsupportedMedia("file is not a supported image", map[string]any{"file": fileName})
		}
		return nil, apperrors.NewInternalError(err)
	}

	result, err := s.recognizer.Recognize(ctx, ocr.Input{Image: normalized, Languages: s.languages})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("recognize %s: %w", fileName, err))
	}
	s.logger.Info("image recognized",
		zap.String("file", fileName),
		zap.String("engine", result.Engine),
		zap.Float64("confidence", result.Confidence),
		zap.Int("chars", utf8.RuneCountInString(result.Text)))

	candidates, err := s.extractor.ExtractFrom(strings.NewReader(result.Text), op.Name)
	if err != nil {
		return nil, mapExtractionError(err)
	}
	confidence := result.Confidence
	return s.submit(ctx, op, batch{
		source:     domain.TicketSourceOCR,
		fileName:   fileName,
		startedAt:  started,
		confidence: &confidence,
		tickets:    candidateTickets(candidates),
	})
}

// ImportJSON submits the cases of a backup file shaped as
// {"cases": [...]}. A payload without a cases array is rejected.
func (s *ImportService) ImportJSON(ctx context.Context, op domain.Operator, fileName string, r io.Reader) (*domain.ImportSummary, error) {
	started := time.Now().UTC()
	if r == nil {
		return nil, apperrors.NewInvalidArgument("backup payload is required", extraction.ErrInvalidArgument)
	}

	var backup jsonBackup
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, apperrors.NewValidationError("backup is not valid JSON", map[string]any{"error": err.Error()})
	}
	if backup.Cases == nil {
		return nil, apperrors.NewValidationError("backup must contain a \"cases\" array", nil)
	}

	tickets := make([]*domain.Ticket, 0, len(backup.Cases))
	var rejected []domain.ImportFailure
	for _, c := range backup.Cases {
		ticket, reason := c.ticket(s.extractor.Rules(), op.Name)
		if reason != "" {
			rejected = append(rejected, domain.ImportFailure{ExternalID: strings.TrimSpace(c.JiraID), Reason: reason})
			continue
		}
		tickets = append(tickets, ticket)
	}

	return s.submit(ctx, op, batch{
		source:    domain.TicketSourceJSON,
		fileName:  fileName,
		startedAt: started,
		tickets:   tickets,
		rejected:  rejected,
	})
}

// Summary returns a stored import summary.
func (s *ImportService) Summary(ctx context.Context, id string) (*domain.ImportSummary, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("import id is required", nil)
	}
	if s.summaries == nil {
		return nil, apperrors.NewNotFound("import", map[string]any{"id": id})
	}
	summary, err := s.summaries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NewNotFound("import", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return summary, nil
}

// TicketTrail returns a stored ticket and its history, looked up by the
// identifier it was imported under.
func (s *ImportService) TicketTrail(ctx context.Context, externalID string) (*domain.TicketTrail, error) {
	externalID = strings.ToUpper(strings.TrimSpace(externalID))
	if externalID == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	ticket, err := s.tickets.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"external_id": externalID})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load ticket %s: %w", externalID, err))
	}

	trail := &domain.TicketTrail{Ticket: ticket, History: []domain.TicketHistory{}}
	if s.history == nil {
		return trail, nil
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load history of %s: %w", externalID, err))
	}
	if history != nil {
		trail.History = history
	}
	return trail, nil
}

// reasonNotStored is reported for tickets the store refused. The store
// error itself is only logged.
const reasonNotStored = "ticket could not be stored"

type batch struct {
	source     domain.TicketSource
	fileName   string
	startedAt  time.Time
	confidence *float64
	tickets    []*domain.Ticket
	rejected   []domain.ImportFailure
}

// submit stores the tickets of a batch. Identifiers already in the store or
// seen earlier in the batch count as duplicates. A ticket the store rejects
// is recorded as a failure and the batch goes on.
func (s *ImportService) submit(ctx context.Context, op domain.Operator, b batch) (*domain.ImportSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &domain.ImportSummary{
		ID:           uuid.NewString(),
		Source:       b.source,
		FileName:     b.fileName,
		OperatorName: op.Name,
		Found:        len(b.tickets) + len(b.rejected),
		CreatedIDs:   []string{},
		DuplicateIDs: []string{},
		Failures:     append([]domain.ImportFailure{}, b.rejected...),
		Confidence:   b.confidence,
		StartedAt:    b.startedAt,
	}

	existing, err := s.tickets.ExistingExternalIDs(ctx, externalIDs(b.tickets))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("check existing tickets: %w", err))
	}

	actor := events.Actor{Name: op.Name, Role: op.Role}
	seen := make(map[string]struct{}, len(b.tickets))
	for _, ticket := range b.tickets {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("import interrupted",
				zap.String("import_id", summary.ID),
				zap.Int("created", len(summary.CreatedIDs)),
				zap.Error(err))
			return nil, err
		}

		if _, dup := existing[ticket.ExternalID]; dup {
			summary.DuplicateIDs = append(summary.DuplicateIDs, ticket.ExternalID)
			continue
		}
		if _, dup := seen[ticket.ExternalID]; dup {
			summary.DuplicateIDs = append(summary.DuplicateIDs, ticket.ExternalID)
			continue
		}
		seen[ticket.ExternalID] = struct{}{}

		ticket.Source = b.source
		ticket.ImportID = &summary.ID
		ticket.CreatorName = op.Name
		if err := s.tickets.Create(ctx, ticket); err != nil {
			if errors.Is(err, repository.ErrDuplicateExternalID) {
				summary.DuplicateIDs = append(summary.DuplicateIDs, ticket.ExternalID)
				continue
			}
			s.logger.Warn("ticket import failed",
				zap.String("import_id", summary.ID),
				zap.String("external_id", ticket.ExternalID),
				zap.Error(err))
			summary.Failures = append(summary.Failures, domain.ImportFailure{ExternalID: ticket.ExternalID, Reason: reasonNotStored})
			continue
		}
		summary.CreatedIDs = append(summary.CreatedIDs, ticket.ExternalID)

		s.recordImported(ctx, op, summary.ID, ticket)
		event := events.NewEvent(events.EventTicketImported, summary.ID, actor, events.TicketImportedPayload{
			ExternalID:  ticket.ExternalID,
			Title:       ticket.Title,
			Status:      ticket.Status,
			Priority:    ticket.Priority,
			Responsible: ticket.Responsible,
			Insurer:     ticket.Insurer,
			Source:      ticket.Source,
		})
		event.TicketID = ticket.ID
		s.publishEvent(ctx, event)
	}

	summary.Created = len(summary.CreatedIDs)
	summary.Duplicates = len(summary.DuplicateIDs)
	summary.Failed = len(summary.Failures)
	summary.FinishedAt = time.Now().UTC()

	if s.summaries != nil {
		if err := s.summaries.Save(ctx, summary); err != nil {
			s.logger.Warn("import summary not saved", zap.String("import_id", summary.ID), zap.Error(err))
		}
	}
	s.publishEvent(ctx, events.NewEvent(events.EventImportCompleted, summary.ID, actor, events.ImportCompletedPayload{
		Source:     summary.Source,
		Found:      summary.Found,
		Created:    summary.Created,
		Duplicates: summary.Duplicates,
		Failed:     summary.Failed,
	}))
	s.metrics.RecordImport(string(summary.Source), summary.Created, summary.Duplicates, summary.Failed)

	s.logger.Info("import completed",
		zap.String("import_id", summary.ID),
		zap.String("source", string(summary.Source)),
		zap.String("operator", op.Name),
		zap.Int("found", summary.Found),
		zap.Int("created", summary.Created),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (s *ImportService) recordImported(ctx context.Context, op domain.Operator, importID string, ticket *domain.Ticket) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  op.Name,
		ChangeType: domain.ChangeTypeImported,
		NewValue: map[string]any{
			"import_id":   importID,
			"source":      string(ticket.Source),
			"external_id": ticket.ExternalID,
			"status":      string(ticket.Status),
		},
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket history not recorded", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *ImportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// ticket validates a backup record and converts it. A non-empty reason
// means the record was rejected.
func (c JSONCase) ticket(rules *extraction.Rules, operatorName string) (*domain.Ticket, string) {
	externalID := strings.ToUpper(strings.TrimSpace(c.JiraID))
	if externalID == "" {
		return nil, "jira_id is required"
	}
	title := strings.TrimSpace(c.Title)
	if utf8.RuneCountInString(title) < 5 {
		return nil, "title must have at least 5 characters"
	}

	status := domain.TicketStatus(strings.TrimSpace(c.Status))
	if status == "" {
		status = domain.TicketStatusPending
	}
	if !status.Valid() {
		return nil, fmt.Sprintf("unknown status %q", c.Status)
	}
	priority := domain.TicketPriority(strings.TrimSpace(c.Priority))
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Sprintf("unknown priority %q", c.Priority)
	}

	responsible := strings.TrimSpace(c.Responsible)
	if responsible == "" {
		responsible = strings.TrimSpace(operatorName)
	}
	if responsible == "" {
		responsible = rules.Unassigned
	}
	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = rules.DefaultDescription
	}
	title, description = extraction.ClampText(title, description)

	return &domain.Ticket{
		ExternalID:  externalID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		Responsible: responsible,
		Insurer:     optional(c.Seguradora),
		Category:    optional(c.Category),
	}, ""
}

func candidateTickets(candidates []extraction.Candidate) []*domain.Ticket {
	tickets := make([]*domain.Ticket, 0, len(candidates))
	for _, c := range candidates {
		tickets = append(tickets, c.Ticket())
	}
	return tickets
}

func externalIDs(tickets []*domain.Ticket) []string {
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ExternalID)
	}
	return ids
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func mapExtractionError(err error) error {
	if errors.Is(err, extraction.ErrInvalidArgument) {
		return apperrors.NewInvalidArgument("text must be valid UTF-8", err)
	}
	return apperrors.NewInternalError(err)
}
