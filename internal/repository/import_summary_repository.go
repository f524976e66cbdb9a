package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safe2go/support-import/internal/domain"
)

const importSummaryKeyPrefix = "safe2go:import:"

// ImportSummaryRepository keeps recent import outcomes for the operator to
// review. Entries expire; a missing summary surfaces as redis.Nil.
type ImportSummaryRepository interface {
	Save(ctx context.Context, summary *domain.ImportSummary) error
	Get(ctx context.Context, id string) (*domain.ImportSummary, error)
}

type importSummaryRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewImportSummaryRepository builds a redis-backed repository.
func NewImportSummaryRepository(client *redis.Client, ttl time.Duration) ImportSummaryRepository {
	return &importSummaryRepository{client: client, ttl: ttl}
}

func (r *importSummaryRepository) Save(ctx context.Context, summary *domain.ImportSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode import summary: %w", err)
	}
	return r.client.Set(ctx, importSummaryKey(summary.ID), payload, r.ttl).Err()
}

func (r *importSummaryRepository) Get(ctx context.Context, id string) (*domain.ImportSummary, error) {
	payload, err := r.client.Get(ctx, importSummaryKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var summary domain.ImportSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("decode import summary: %w", err)
	}
	return &summary, nil
}

func importSummaryKey(id string) string {
	return importSummaryKeyPrefix + id
}
