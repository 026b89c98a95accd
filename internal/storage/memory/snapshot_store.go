package memory

import (
	"context"
	"sort"
	"sync"

	"dealradar/internal/domain"
	"dealradar/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	runs   []string                             // persisted run ids, in persist order
	snaps  map[string]map[string]*domain.Snapshot // run_id -> query_key -> snapshot
	alerts map[string][]domain.AlertRecord      // run_id -> alert records
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snaps:  make(map[string]map[string]*domain.Snapshot),
		alerts: make(map[string][]domain.AlertRecord),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Persist records the run's snapshots and alerts. Returns ErrDuplicateRun
// if runID was already persisted.
func (s *SnapshotStore) Persist(_ context.Context, runID string, snapshots []*domain.Snapshot, alerts []domain.AlertRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snaps[runID]; exists {
		return storage.ErrDuplicateRun
	}

	byQuery := make(map[string]*domain.Snapshot, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.QueryKey == "" {
			return storage.ErrInvalidInput
		}
		// Store copies to prevent external mutation.
		snapCopy := *snap
		snapCopy.Listings = append([]domain.Listing(nil), snap.Listings...)
		byQuery[snap.QueryKey] = &snapCopy
	}

	s.snaps[runID] = byQuery
	s.alerts[runID] = append([]domain.AlertRecord(nil), alerts...)
	s.runs = append(s.runs, runID)
	return nil
}

// LoadLatest returns the newest snapshot for a query key, or an empty
// snapshot when the query has no history.
func (s *SnapshotStore) LoadLatest(_ context.Context, queryKey string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.runs) - 1; i >= 0; i-- {
		if snap, ok := s.snaps[s.runs[i]][queryKey]; ok {
			return copySnapshot(snap), nil
		}
	}
	return &domain.Snapshot{QueryKey: queryKey}, nil
}

// LoadHistory returns snapshots for a query key ordered oldest..newest,
// bounded by the window.
func (s *SnapshotStore) LoadHistory(_ context.Context, queryKey string, window domain.BaselineWindow) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var history []*domain.Snapshot
	for _, runID := range s.runs {
		if snap, ok := s.snaps[runID][queryKey]; ok {
			history = append(history, copySnapshot(snap))
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].GeneratedAt < history[j].GeneratedAt
	})

	return storage.ApplyWindow(history, window), nil
}

// AlertedIDs returns the latest alert record per listing id for a query key.
func (s *SnapshotStore) AlertedIDs(_ context.Context, queryKey string) (map[string]domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.AlertRecord)
	for _, runID := range s.runs {
		for _, rec := range s.alerts[runID] {
			if rec.QueryKey == queryKey {
				result[rec.ListingID] = rec
			}
		}
	}
	return result, nil
}

func copySnapshot(snap *domain.Snapshot) *domain.Snapshot {
	snapCopy := *snap
	snapCopy.Listings = append([]domain.Listing(nil), snap.Listings...)
	return &snapCopy
}
