package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dealradar/internal/domain"
	"dealradar/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Persist runs in a single transaction, which gives the all-or-nothing
// visibility the pipeline requires.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Persist records the run's snapshots and alert records in one transaction.
// Returns ErrDuplicateRun if run_id exists.
func (s *SnapshotStore) Persist(ctx context.Context, runID string, snapshots []*domain.Snapshot, alerts []domain.AlertRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin persist tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var persistedAt int64
	for _, snap := range snapshots {
		if snap.GeneratedAt > persistedAt {
			persistedAt = snap.GeneratedAt
		}
	}

	if _, err := tx.Exec(ctx, `INSERT INTO runs (run_id, persisted_at) VALUES ($1, $2)`, runID, persistedAt); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateRun
		}
		return fmt.Errorf("insert run: %w", err)
	}

	for _, snap := range snapshots {
		if snap == nil || snap.QueryKey == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO snapshots (run_id, query_key, generated_at) VALUES ($1, $2, $3)
		`, runID, snap.QueryKey, snap.GeneratedAt); err != nil {
			return fmt.Errorf("insert snapshot header: %w", err)
		}

		rows := make([][]any, 0, len(snap.Listings))
		for _, l := range snap.Listings {
			rows = append(rows, []any{
				runID, snap.QueryKey, l.ID, string(l.Platform), l.Title,
				l.Price, l.Currency, l.URL, l.Seller, l.Location, l.ObservedAt,
			})
		}
		if len(rows) > 0 {
			_, err := tx.CopyFrom(ctx,
				pgx.Identifier{"snapshot_listings"},
				[]string{"run_id", "query_key", "listing_id", "platform", "title", "price", "currency", "url", "seller", "location", "observed_at"},
				pgx.CopyFromRows(rows),
			)
			if err != nil {
				return fmt.Errorf("copy listings: %w", err)
			}
		}
	}

	for _, rec := range alerts {
		var z *float64
		boundary := false
		if rec.Score != nil && rec.Score.Defined {
			v := rec.Score.Z
			z = &v
			boundary = rec.Score.Boundary
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO alert_log (run_id, query_key, listing_id, reason, price, z, z_boundary, alerted_at, delivered)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, rec.RunID, rec.QueryKey, rec.ListingID, string(rec.Reason), rec.Price, z, boundary, rec.AlertedAt, rec.Delivered); err != nil {
			return fmt.Errorf("insert alert record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit persist tx: %w", err)
	}
	return nil
}

// LoadLatest returns the newest snapshot for a query key, or an empty
// snapshot when the query has no history.
func (s *SnapshotStore) LoadLatest(ctx context.Context, queryKey string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{QueryKey: queryKey}

	row := s.pool.QueryRow(ctx, `
		SELECT run_id, generated_at FROM snapshots
		WHERE query_key = $1
		ORDER BY generated_at DESC, run_id DESC
		LIMIT 1
	`, queryKey)
	if err := row.Scan(&snap.RunID, &snap.GeneratedAt); err != nil {
		if isNotFoundError(err) {
			return snap, nil
		}
		return nil, fmt.Errorf("load latest snapshot header: %w", err)
	}

	listings, err := s.loadListings(ctx, snap.RunID, queryKey)
	if err != nil {
		return nil, err
	}
	snap.Listings = listings
	return snap, nil
}

// LoadHistory returns snapshots for a query key ordered oldest..newest,
// bounded by the window.
func (s *SnapshotStore) LoadHistory(ctx context.Context, queryKey string, window domain.BaselineWindow) ([]*domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, generated_at FROM snapshots
		WHERE query_key = $1
		ORDER BY generated_at ASC, run_id ASC
	`, queryKey)
	if err != nil {
		return nil, fmt.Errorf("load snapshot headers: %w", err)
	}
	defer rows.Close()

	var history []*domain.Snapshot
	for rows.Next() {
		snap := &domain.Snapshot{QueryKey: queryKey}
		if err := rows.Scan(&snap.RunID, &snap.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot header: %w", err)
		}
		history = append(history, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot headers: %w", err)
	}

	history = storage.ApplyWindow(history, window)

	for _, snap := range history {
		listings, err := s.loadListings(ctx, snap.RunID, queryKey)
		if err != nil {
			return nil, err
		}
		snap.Listings = listings
	}
	return history, nil
}

// AlertedIDs returns the latest alert record per listing id for a query key.
func (s *SnapshotStore) AlertedIDs(ctx context.Context, queryKey string) (map[string]domain.AlertRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (listing_id)
			run_id, query_key, listing_id, reason, price, z, z_boundary, alerted_at, delivered
		FROM alert_log
		WHERE query_key = $1
		ORDER BY listing_id, alerted_at DESC, run_id DESC
	`, queryKey)
	if err != nil {
		return nil, fmt.Errorf("load alert log: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.AlertRecord)
	for rows.Next() {
		var rec domain.AlertRecord
		var reason string
		var z *float64
		var boundary bool

		err := rows.Scan(&rec.RunID, &rec.QueryKey, &rec.ListingID, &reason, &rec.Price, &z, &boundary, &rec.AlertedAt, &rec.Delivered)
		if err != nil {
			return nil, fmt.Errorf("scan alert record: %w", err)
		}
		rec.Reason = domain.AlertReason(reason)
		if z != nil {
			rec.Score = &domain.Score{Z: *z, Defined: true, Boundary: boundary}
		}
		result[rec.ListingID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert records: %w", err)
	}
	return result, nil
}

// loadListings loads one snapshot's listings ordered by listing id.
func (s *SnapshotStore) loadListings(ctx context.Context, runID, queryKey string) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT listing_id, platform, title, price, currency, url, seller, location, observed_at
		FROM snapshot_listings
		WHERE run_id = $1 AND query_key = $2
		ORDER BY listing_id ASC
	`, runID, queryKey)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var platform string

		err := rows.Scan(&l.ID, &platform, &l.Title, &l.Price, &l.Currency, &l.URL, &l.Seller, &l.Location, &l.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		l.Platform = domain.Platform(platform)
		l.QueryKey = queryKey
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}
	return listings, nil
}
