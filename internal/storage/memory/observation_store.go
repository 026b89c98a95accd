package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dealradar/internal/domain"
	"dealradar/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data []*domain.PriceObservation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk appends price observations.
func (s *ObservationStore) InsertBulk(_ context.Context, observations []*domain.PriceObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range observations {
		if o == nil || o.ListingID == "" || o.QueryKey == "" {
			return storage.ErrInvalidInput
		}
		obsCopy := *o
		s.data = append(s.data, &obsCopy)
	}
	return nil
}

// TrendByDay aggregates observed prices per UTC day, ordered by day ASC.
func (s *ObservationStore) TrendByDay(_ context.Context, queryKey string) ([]domain.PriceTrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string][]float64)
	for _, o := range s.data {
		if o.QueryKey != queryKey {
			continue
		}
		day := time.UnixMilli(o.ObservedAt).UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], o.Price)
	}

	var result []domain.PriceTrendPoint
	for day, prices := range byDay {
		p := domain.PriceTrendPoint{Day: day, QueryKey: queryKey, Count: len(prices), Min: prices[0], Max: prices[0]}
		sum := 0.0
		for _, v := range prices {
			sum += v
			if v < p.Min {
				p.Min = v
			}
			if v > p.Max {
				p.Max = v
			}
		}
		p.Mean = sum / float64(len(prices))
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result, nil
}
