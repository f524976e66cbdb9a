package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safe2go/support-import/internal/domain"
)

func newSummaryRepo(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, ImportSummaryRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewImportSummaryRepository(client, ttl)
}

func TestImportSummaryRoundTrip(t *testing.T) {
	mr, repo := newSummaryRepo(t, time.Hour)
	ctx := context.Background()
	confidence := 87.5
	summary := &domain.ImportSummary{
		ID:           "7f1c",
		Source:       domain.TicketSourceOCR,
		FileName:     "painel.png",
		OperatorName: "Ana Souza",
		Found:        2,
		Created:      1,
		Duplicates:   1,
		CreatedIDs:   []string{"SGSS-101"},
		DuplicateIDs: []string{"SGSS-100"},
		Confidence:   &confidence,
		StartedAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2026, 3, 2, 10, 0, 3, 0, time.UTC),
	}

	require.NoError(t, repo.Save(ctx, summary))
	assert.True(t, mr.Exists("safe2go:import:7f1c"))
	assert.Equal(t, time.Hour, mr.TTL("safe2go:import:7f1c"))

	got, err := repo.Get(ctx, "7f1c")
	require.NoError(t, err)
	assert.Equal(t, summary, got)
}

func TestImportSummaryExpires(t *testing.T) {
	mr, repo := newSummaryRepo(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &domain.ImportSummary{ID: "old"}))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "old")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestImportSummaryMissing(t *testing.T) {
	_, repo := newSummaryRepo(t, time.Minute)
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestImportSummaryCorrupt(t *testing.T) {
	mr, repo := newSummaryRepo(t, time.Minute)
	require.NoError(t, mr.Set("safe2go:import:bad", "{not json"))
	_, err := repo.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, redis.Nil)
}
