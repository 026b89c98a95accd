package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealradar/internal/domain"
	"dealradar/internal/storage"
)

func obsAt(t time.Time, runID, queryKey, listingID string, price float64) *domain.PriceObservation {
	return &domain.PriceObservation{
		RunID:      runID,
		QueryKey:   queryKey,
		ListingID:  listingID,
		Price:      price,
		Currency:   "SGD",
		ObservedAt: t.UnixMilli(),
	}
}

func TestObservationStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewObservationStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	err = store.InsertBulk(ctx, []*domain.PriceObservation{
		obsAt(day, "2026-03-10_09-00", "x399-taichi", "id-1", 250),
		obsAt(day, "2026-03-10_09-00", "x399-taichi", "id-2", 310),
	})
	require.NoError(t, err)

	points, err := store.TrendByDay(ctx, "x399-taichi")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-03-10", points[0].Day)
	assert.Equal(t, "x399-taichi", points[0].QueryKey)
	assert.Equal(t, 2, points[0].Count)
	assert.Equal(t, 280.0, points[0].Mean)
	assert.Equal(t, 250.0, points[0].Min)
	assert.Equal(t, 310.0, points[0].Max)
}

func TestObservationStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewObservationStore(conn)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	err := store.InsertBulk(ctx, []*domain.PriceObservation{
		obsAt(day, "run-1", "x399-taichi", "id-1", 250),
		obsAt(day, "run-1", "x399-taichi", "id-1", 250),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestObservationStore_TrendByDay_OrderAndScope(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewObservationStore(conn)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	err := store.InsertBulk(ctx, []*domain.PriceObservation{
		obsAt(day2, "run-2", "x399-taichi", "id-1", 240),
		obsAt(day1, "run-1", "x399-taichi", "id-1", 250),
		obsAt(day1, "run-1", "msi-meg-creation", "id-9", 999),
	})
	require.NoError(t, err)

	points, err := store.TrendByDay(ctx, "x399-taichi")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-03-10", points[0].Day)
	assert.Equal(t, "2026-03-11", points[1].Day)

	// No history for the key means no rows, not an error
	points, err = store.TrendByDay(ctx, "unknown-key")
	require.NoError(t, err)
	assert.Empty(t, points)
}
