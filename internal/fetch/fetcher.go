// Package fetch produces raw records for configured targets. Fetchers are
// collaborators: the pipeline treats their output as untrusted text and a
// failed fetch for one target never aborts the run.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"dealradar/internal/domain"
)

// ErrNoFetcher is returned when no fetcher is registered for a platform.
var ErrNoFetcher = errors.New("no fetcher registered for platform")

// Fetcher retrieves the current raw records for one target.
type Fetcher interface {
	Fetch(ctx context.Context, target domain.Target) ([]domain.RawRecord, error)
}

// Registry routes targets to the fetcher registered for their platform.
type Registry struct {
	fetchers map[domain.Platform]Fetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[domain.Platform]Fetcher)}
}

// Register installs a fetcher for a platform, replacing any previous one.
func (r *Registry) Register(platform domain.Platform, f Fetcher) {
	r.fetchers[platform] = f
}

// For returns the fetcher for a platform.
func (r *Registry) For(platform domain.Platform) (Fetcher, error) {
	f, ok := r.fetchers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFetcher, platform)
	}
	return f, nil
}

// Fetch implements Fetcher by routing on the target's platform.
func (r *Registry) Fetch(ctx context.Context, target domain.Target) ([]domain.RawRecord, error) {
	f, err := r.For(target.Platform)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, target)
}

// Compile-time interface check.
var _ Fetcher = (*Registry)(nil)
