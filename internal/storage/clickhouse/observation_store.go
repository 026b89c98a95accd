package clickhouse

import (
	"context"
	"fmt"

	"dealradar/internal/domain"
	"dealradar/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk appends price observations for a run. A duplicate
// (run_id, query_key, listing_id) inside the batch fails the entire batch.
func (s *ObservationStore) InsertBulk(ctx context.Context, observations []*domain.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	type key struct {
		runID     string
		queryKey  string
		listingID string
	}
	seen := make(map[key]struct{})
	for _, o := range observations {
		k := key{o.RunID, o.QueryKey, o.ListingID}
		if _, exists := seen[k]; exists {
			return storage.ErrInvalidInput
		}
		seen[k] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_observations (
			run_id, query_key, listing_id, price, currency, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range observations {
		err = batch.Append(
			o.RunID, o.QueryKey, o.ListingID,
			o.Price, o.Currency, uint64(o.ObservedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// TrendByDay aggregates observed prices per UTC day for a query key,
// ordered by day ascending.
func (s *ObservationStore) TrendByDay(ctx context.Context, queryKey string) ([]domain.PriceTrendPoint, error) {
	query := `
		SELECT
			toString(toDate(fromUnixTimestamp64Milli(observed_at))) AS day,
			count() AS cnt,
			avg(price) AS mean,
			min(price) AS min_price,
			max(price) AS max_price
		FROM price_observations
		WHERE query_key = ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.conn.Query(ctx, query, queryKey)
	if err != nil {
		return nil, fmt.Errorf("query trend by day: %w", err)
	}
	defer rows.Close()

	var points []domain.PriceTrendPoint
	for rows.Next() {
		var p domain.PriceTrendPoint
		var count uint64

		err := rows.Scan(&p.Day, &count, &p.Mean, &p.Min, &p.Max)
		if err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}

		p.QueryKey = queryKey
		p.Count = int(count)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend rows: %w", err)
	}

	return points, nil
}
