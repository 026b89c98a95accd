package memory

import (
	"context"
	"testing"
	"time"

	"dealradar/internal/domain"
)

func obs(runID, listingID string, price float64, at time.Time) *domain.PriceObservation {
	return &domain.PriceObservation{
		RunID:      runID,
		QueryKey:   "q",
		ListingID:  listingID,
		Price:      price,
		Currency:   "SGD",
		ObservedAt: at.UnixMilli(),
	}
}

func TestObservationStore_TrendByDay(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	day1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	err := store.InsertBulk(ctx, []*domain.PriceObservation{
		obs("run-1", "a", 100, day1),
		obs("run-1", "b", 300, day1),
		obs("run-2", "a", 90, day2),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	trend, err := store.TrendByDay(ctx, "q")
	if err != nil {
		t.Fatalf("TrendByDay failed: %v", err)
	}
	if len(trend) != 2 {
		t.Fatalf("expected 2 days, got %d", len(trend))
	}

	first := trend[0]
	if first.Day != "2025-03-01" || first.Count != 2 || first.Mean != 200 || first.Min != 100 || first.Max != 300 {
		t.Errorf("day 1 aggregate wrong: %+v", first)
	}
	if trend[1].Day != "2025-03-02" || trend[1].Count != 1 {
		t.Errorf("day 2 aggregate wrong: %+v", trend[1])
	}
}

func TestObservationStore_TrendScopedByQueryKey(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	o := obs("run-1", "a", 100, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	o.QueryKey = "other"
	if err := store.InsertBulk(ctx, []*domain.PriceObservation{o}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	trend, err := store.TrendByDay(ctx, "q")
	if err != nil {
		t.Fatalf("TrendByDay failed: %v", err)
	}
	if len(trend) != 0 {
		t.Error("trend must be scoped by query key")
	}
}
