package memory

import (
	"context"
	"testing"
	"time"

	"dealradar/internal/domain"
	"dealradar/internal/storage"
)

func snap(runID, queryKey string, generatedAt int64, prices ...float64) *domain.Snapshot {
	s := &domain.Snapshot{RunID: runID, QueryKey: queryKey, GeneratedAt: generatedAt}
	for i, p := range prices {
		s.Listings = append(s.Listings, domain.Listing{
			ID:       runID + "-l" + string(rune('a'+i)),
			QueryKey: queryKey,
			Price:    p,
		})
	}
	return s
}

func TestSnapshotStore_LoadLatestEmptyHistory(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	latest, err := store.LoadLatest(ctx, "q")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if !latest.Empty() {
		t.Error("a query with no history should load an empty snapshot")
	}
}

func TestSnapshotStore_PersistAndLoadLatest(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Persist(ctx, "run-1", []*domain.Snapshot{snap("run-1", "q", 1000, 100)}, nil); err != nil {
		t.Fatalf("Persist run-1 failed: %v", err)
	}
	if err := store.Persist(ctx, "run-2", []*domain.Snapshot{snap("run-2", "q", 2000, 150)}, nil); err != nil {
		t.Fatalf("Persist run-2 failed: %v", err)
	}

	latest, err := store.LoadLatest(ctx, "q")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if latest.RunID != "run-2" {
		t.Errorf("latest run = %s, want run-2", latest.RunID)
	}
}

func TestSnapshotStore_DuplicateRun(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Persist(ctx, "run-1", []*domain.Snapshot{snap("run-1", "q", 1000, 100)}, nil); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	err := store.Persist(ctx, "run-1", []*domain.Snapshot{snap("run-1", "q", 1000, 100)}, nil)
	if err != storage.ErrDuplicateRun {
		t.Errorf("expected ErrDuplicateRun, got %v", err)
	}
}

func TestSnapshotStore_LoadHistoryOrderAndWindow(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	for i := 0; i < 5; i++ {
		runID := "run-" + string(rune('1'+i))
		s := snap(runID, "q", base+int64(i)*86400_000, float64(100+i))
		if err := store.Persist(ctx, runID, []*domain.Snapshot{s}, nil); err != nil {
			t.Fatalf("Persist %s failed: %v", runID, err)
		}
	}

	all, err := store.LoadHistory(ctx, "q", domain.BaselineWindow{})
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 snapshots, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].GeneratedAt > all[i].GeneratedAt {
			t.Fatal("history must be ordered oldest..newest")
		}
	}

	lastTwo, err := store.LoadHistory(ctx, "q", domain.BaselineWindow{Runs: 2})
	if err != nil {
		t.Fatalf("LoadHistory windowed failed: %v", err)
	}
	if len(lastTwo) != 2 || lastTwo[0].RunID != "run-4" || lastTwo[1].RunID != "run-5" {
		t.Errorf("runs window should keep the 2 newest, got %d snapshots", len(lastTwo))
	}

	spanned, err := store.LoadHistory(ctx, "q", domain.BaselineWindow{Span: 48 * time.Hour})
	if err != nil {
		t.Fatalf("LoadHistory span failed: %v", err)
	}
	if len(spanned) != 3 {
		t.Errorf("48h span from newest should keep 3 snapshots, got %d", len(spanned))
	}
}

func TestSnapshotStore_HistoryScopedByQueryKey(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	err := store.Persist(ctx, "run-1", []*domain.Snapshot{
		snap("run-1", "q1", 1000, 100),
		snap("run-1", "q2", 1000, 999),
	}, nil)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	history, err := store.LoadHistory(ctx, "q1", domain.BaselineWindow{})
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].QueryKey != "q1" {
		t.Errorf("history must contain q1 only, got %+v", history)
	}
}

func TestSnapshotStore_AlertedIDs(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	rec1 := domain.AlertRecord{ListingID: "l1", QueryKey: "q", RunID: "run-1", Price: 100, Reason: domain.AlertReasonNew}
	if err := store.Persist(ctx, "run-1", []*domain.Snapshot{snap("run-1", "q", 1000, 100)}, []domain.AlertRecord{rec1}); err != nil {
		t.Fatalf("Persist run-1 failed: %v", err)
	}

	// Same listing re-alerted later at a new price; the later record wins.
	rec2 := domain.AlertRecord{ListingID: "l1", QueryKey: "q", RunID: "run-2", Price: 80, Reason: domain.AlertReasonAnomaly}
	if err := store.Persist(ctx, "run-2", []*domain.Snapshot{snap("run-2", "q", 2000, 80)}, []domain.AlertRecord{rec2}); err != nil {
		t.Fatalf("Persist run-2 failed: %v", err)
	}

	alerted, err := store.AlertedIDs(ctx, "q")
	if err != nil {
		t.Fatalf("AlertedIDs failed: %v", err)
	}
	if len(alerted) != 1 {
		t.Fatalf("expected 1 alerted id, got %d", len(alerted))
	}
	if alerted["l1"].Price != 80 || alerted["l1"].RunID != "run-2" {
		t.Errorf("latest record should win, got %+v", alerted["l1"])
	}

	other, err := store.AlertedIDs(ctx, "other")
	if err != nil {
		t.Fatalf("AlertedIDs(other) failed: %v", err)
	}
	if len(other) != 0 {
		t.Error("alert log must be scoped by query key")
	}
}

func TestSnapshotStore_CopiesOnReadAndWrite(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	original := snap("run-1", "q", 1000, 100)
	if err := store.Persist(ctx, "run-1", []*domain.Snapshot{original}, nil); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	// Mutating the caller's snapshot after persist must not leak in.
	original.Listings[0].Price = 1

	latest, _ := store.LoadLatest(ctx, "q")
	if latest.Listings[0].Price != 100 {
		t.Error("store must keep its own copy of persisted listings")
	}

	// Mutating a loaded snapshot must not corrupt the store.
	latest.Listings[0].Price = 2
	again, _ := store.LoadLatest(ctx, "q")
	if again.Listings[0].Price != 100 {
		t.Error("store must return defensive copies")
	}
}
