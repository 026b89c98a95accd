package fetch

import (
	"context"

	"dealradar/internal/domain"
)

// StaticSource serves fixed records per query key. It backs dry runs and
// tests the same way the in-memory stores back the storage interfaces.
type StaticSource struct {
	Records map[string][]domain.RawRecord
	Errs    map[string]error
}

// Compile-time interface check.
var _ Fetcher = (*StaticSource)(nil)

func (s *StaticSource) Fetch(ctx context.Context, target domain.Target) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Errs[target.QueryKey]; err != nil {
		return nil, err
	}
	return s.Records[target.QueryKey], nil
}
