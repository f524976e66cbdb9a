package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safe2go/support-import/internal/domain"
)

// ErrDuplicateExternalID is returned by Create when another ticket already
// carries the identifier.
var ErrDuplicateExternalID = errors.New("ticket external id already exists")

// ErrTicketNotFound is returned by GetByExternalID for an unknown identifier.
var ErrTicketNotFound = errors.New("ticket not found")

const uniqueViolation = "23505"

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByExternalID(ctx context.Context, externalID string) (*domain.Ticket, error)
	ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]struct{}, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_id, title, description, status, priority, responsible,
                             insurer, category, source, import_id, creator_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ExternalID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Responsible,
		ticket.Insurer,
		ticket.Category,
		ticket.Source,
		ticket.ImportID,
		ticket.CreatorName,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateExternalID
	}
	return err
}

func (r *ticketRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, external_id, title, description, status, priority, responsible,
               insurer, category, source, import_id::text, creator_name, created_at, updated_at
        FROM tickets WHERE external_id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&ticket.ID,
		&ticket.ExternalID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Responsible,
		&ticket.Insurer,
		&ticket.Category,
		&ticket.Source,
		&ticket.ImportID,
		&ticket.CreatorName,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// ExistingExternalIDs returns the subset of externalIDs already stored.
func (r *ticketRepository) ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(externalIDs) == 0 {
		return existing, nil
	}

	const query = `SELECT external_id FROM tickets WHERE external_id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}
