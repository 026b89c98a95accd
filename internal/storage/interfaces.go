package storage

import (
	"context"

	"dealradar/internal/domain"
)

// SnapshotStore is the append-only history of run snapshots plus the alert
// log persisted alongside them. Snapshots and alert records for a run are
// written together because at-most-once alerting depends on them being
// visible (or not) as a unit.
type SnapshotStore interface {
	// LoadLatest returns the most recent persisted snapshot for a query key.
	// For a query with no history it returns an empty snapshot, never an error:
	// the first-ever run classifies everything as new.
	LoadLatest(ctx context.Context, queryKey string) (*domain.Snapshot, error)

	// LoadHistory returns persisted snapshots for a query key ordered
	// oldest..newest, bounded by the window. The window's span is measured
	// against the newest snapshot in history, not the wall clock, so the
	// result is a pure function of the stored state.
	LoadHistory(ctx context.Context, queryKey string, window domain.BaselineWindow) ([]*domain.Snapshot, error)

	// Persist durably records the run's snapshots and alert records as one
	// atomic unit: either everything is visible to the next run or nothing
	// is. Returns ErrDuplicateRun if runID was already persisted; history is
	// never edited or deleted.
	Persist(ctx context.Context, runID string, snapshots []*domain.Snapshot, alerts []domain.AlertRecord) error

	// AlertedIDs returns the most recent alert record per listing id for a
	// query key, the previously-alerted set for at-most-once selection.
	AlertedIDs(ctx context.Context, queryKey string) (map[string]domain.AlertRecord, error)
}

// ObservationStore is an append-only analytics sink of per-run price points,
// feeding the trend report. Optional: runs work without one.
type ObservationStore interface {
	// InsertBulk appends price observations for a run.
	InsertBulk(ctx context.Context, observations []*domain.PriceObservation) error

	// TrendByDay aggregates observed prices per UTC day for a query key,
	// ordered by day ascending.
	TrendByDay(ctx context.Context, queryKey string) ([]domain.PriceTrendPoint, error)
}
