// Package runner orchestrates one batch run.
// It coordinates: fetch → normalize → diff → score → select → dispatch → persist.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dealradar/internal/alert"
	"dealradar/internal/anomaly"
	"dealradar/internal/dedup"
	"dealradar/internal/domain"
	"dealradar/internal/fetch"
	"dealradar/internal/normalize"
	"dealradar/internal/observability"
	"dealradar/internal/storage"
)

// runIDLayout names runs by capture time, minute precision. Two runs in the
// same minute collide on purpose: the second is a duplicate by definition.
const runIDLayout = "2006-01-02_15-04"

// Runner executes the pipeline for a set of configured targets.
type Runner struct {
	targets      []domain.Target
	fetcher      fetch.Fetcher
	snapshots    storage.SnapshotStore
	observations storage.ObservationStore
	dispatcher   alert.Dispatcher
	realert      alert.RealertPolicy
	concurrency  int
	dryRun       bool
	metrics      *observability.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// Options for creating a Runner.
type Options struct {
	Targets       []domain.Target
	Fetcher       fetch.Fetcher
	SnapshotStore storage.SnapshotStore

	// ObservationStore is the optional analytics sink; nil disables it.
	ObservationStore storage.ObservationStore

	// Dispatcher delivers selected alerts; nil falls back to NopDispatcher.
	Dispatcher alert.Dispatcher

	// Realert picks the re-eligibility policy, default price_change.
	Realert alert.RealertPolicy

	// Concurrency bounds the per-target worker pool, default 4.
	Concurrency int

	// DryRun runs the full pipeline but neither dispatches nor persists.
	DryRun bool

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics

	Logger zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a Runner.
func New(opts Options) *Runner {
	r := &Runner{
		targets:      opts.Targets,
		fetcher:      opts.Fetcher,
		snapshots:    opts.SnapshotStore,
		observations: opts.ObservationStore,
		dispatcher:   opts.Dispatcher,
		realert:      opts.Realert,
		concurrency:  opts.Concurrency,
		dryRun:       opts.DryRun,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if r.dispatcher == nil {
		r.dispatcher = alert.NopDispatcher{}
	}
	if r.realert == "" {
		r.realert = alert.RealertPriceChange
	}
	if r.concurrency <= 0 {
		r.concurrency = 4
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// targetResult carries one target's pipeline output back to the single writer.
type targetResult struct {
	outcome      domain.TargetOutcome
	snapshot     *domain.Snapshot
	alertRecords []domain.AlertRecord
	observations []*domain.PriceObservation
}

// Run executes one batch run. Per-target failures are isolated and
// summarized; only a persist failure or cancellation is fatal. Nothing is
// visible to the next run unless the final persist commits.
func (r *Runner) Run(ctx context.Context) (*domain.RunSummary, error) {
	started := r.now().UTC()
	runID := started.Format(runIDLayout)
	observedAt := started.UnixMilli()

	summary := &domain.RunSummary{RunID: runID, StartedAt: observedAt}
	r.logger.Info().Str("run_id", runID).Int("targets", len(r.targets)).Msg("run started")

	results := make([]targetResult, len(r.targets))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for i, target := range r.targets {
		wg.Add(1)
		go func(i int, target domain.Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.processTarget(ctx, runID, observedAt, target)
		}(i, target)
	}
	wg.Wait()

	// An interrupted run persists nothing; the retry re-derives the same
	// result from the untouched prior snapshot.
	if err := ctx.Err(); err != nil {
		r.countRun("cancelled")
		return nil, fmt.Errorf("run cancelled before persist: %w", err)
	}

	var snapshots []*domain.Snapshot
	var alertRecords []domain.AlertRecord
	var observations []*domain.PriceObservation
	for _, res := range results {
		summary.Merge(res.outcome)
		if res.snapshot != nil {
			snapshots = append(snapshots, res.snapshot)
			alertRecords = append(alertRecords, res.alertRecords...)
			observations = append(observations, res.observations...)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].QueryKey < snapshots[j].QueryKey })

	if r.dryRun {
		summary.FinishedAt = r.now().UnixMilli()
		r.countRun("dry_run")
		r.logRunDone(summary, "dry run, nothing persisted")
		return summary, nil
	}

	if len(snapshots) > 0 {
		if err := r.snapshots.Persist(ctx, runID, snapshots, alertRecords); err != nil {
			r.countRun("persist_failed")
			return nil, fmt.Errorf("persist run %s: %w", runID, err)
		}
	}

	// The analytics sink is best-effort: the run's correctness never
	// depends on it.
	if r.observations != nil && len(observations) > 0 {
		if err := r.observations.InsertBulk(ctx, observations); err != nil {
			r.logger.Warn().Err(err).Msg("observation sink insert failed")
		}
	}

	summary.FinishedAt = r.now().UnixMilli()
	r.countRun("ok")
	if r.metrics != nil {
		r.metrics.LastSuccessfulRun.SetToCurrentTime()
		r.metrics.RunDuration.Observe(float64(summary.FinishedAt-summary.StartedAt) / 1000)
	}
	r.logRunDone(summary, "run persisted")
	return summary, nil
}

// processTarget runs the per-query pipeline. Every failure is folded into
// the outcome; no error escapes to abort sibling targets.
func (r *Runner) processTarget(ctx context.Context, runID string, observedAt int64, target domain.Target) targetResult {
	log := r.logger.With().Str("query_key", target.QueryKey).Logger()
	res := targetResult{outcome: domain.TargetOutcome{QueryKey: target.QueryKey}}

	fetchStart := r.now()
	records, err := r.fetcher.Fetch(ctx, target)
	if r.metrics != nil {
		r.metrics.FetchDuration.WithLabelValues(target.QueryKey).Observe(r.now().Sub(fetchStart).Seconds())
	}
	if err != nil {
		log.Warn().Err(err).Msg("fetch failed, target skipped")
		res.outcome.FetchFailed = true
		res.outcome.FetchError = err.Error()
		if r.metrics != nil {
			r.metrics.TargetsFailed.Inc()
		}
		return res
	}
	res.outcome.RecordsFetched = len(records)
	if r.metrics != nil {
		r.metrics.TargetsFetched.Inc()
	}

	snapshot := r.buildSnapshot(runID, observedAt, target, records, &res.outcome, log)

	previous, err := r.snapshots.LoadLatest(ctx, target.QueryKey)
	if err != nil {
		log.Error().Err(err).Msg("load latest snapshot failed, target skipped")
		res.outcome.FetchFailed = true
		res.outcome.FetchError = err.Error()
		return res
	}
	diff := dedup.Diff(previous, snapshot)
	res.outcome.New = len(diff.New)
	res.outcome.Updated = len(diff.Updated)
	res.outcome.Unchanged = len(diff.Unchanged)
	res.outcome.Removed = len(diff.Removed)
	r.countDiff(diff)

	history, err := r.snapshots.LoadHistory(ctx, target.QueryKey, target.BaselineWindow)
	if err != nil {
		log.Error().Err(err).Msg("load history failed, target skipped")
		res.outcome.FetchFailed = true
		res.outcome.FetchError = err.Error()
		return res
	}
	baseline := anomaly.ComputeBaseline(target.QueryKey, history)
	res.outcome.BaselineSamples = baseline.Count

	scores := make(map[string]domain.Score)
	for _, l := range diff.New {
		scores[l.ID] = anomaly.Score(l, baseline, target.MinBaselineSamples)
	}
	for _, u := range diff.Updated {
		scores[u.New.ID] = anomaly.Score(u.New, baseline, target.MinBaselineSamples)
	}

	previouslyAlerted, err := r.snapshots.AlertedIDs(ctx, target.QueryKey)
	if err != nil {
		log.Error().Err(err).Msg("load alert log failed, target skipped")
		res.outcome.FetchFailed = true
		res.outcome.FetchError = err.Error()
		return res
	}

	selector := alert.Selector{Threshold: target.AnomalyThreshold, Realert: r.realert}
	selected := selector.Select(diff, scores, previouslyAlerted)
	res.outcome.AlertsSelected = len(selected)

	res.alertRecords = r.dispatch(ctx, runID, observedAt, target, selected, &res.outcome, log)
	res.snapshot = snapshot
	res.observations = buildObservations(runID, snapshot)
	return res
}

// buildSnapshot normalizes and filters raw records into the run's snapshot.
// Records mapping to an id already in the snapshot are dropped: one listing,
// one observation per run.
func (r *Runner) buildSnapshot(runID string, observedAt int64, target domain.Target, records []domain.RawRecord, outcome *domain.TargetOutcome, log zerolog.Logger) *domain.Snapshot {
	snapshot := &domain.Snapshot{RunID: runID, QueryKey: target.QueryKey, GeneratedAt: observedAt}
	seen := make(map[string]bool)

	for _, raw := range records {
		listing, rejection := normalize.Normalize(raw, target.QueryKey, observedAt)
		if rejection != nil {
			outcome.Rejected++
			if r.metrics != nil {
				r.metrics.RecordsRejected.WithLabelValues(string(rejection.Reason)).Inc()
			}
			log.Debug().Str("reason", string(rejection.Reason)).Str("detail", rejection.Detail).Msg("record rejected")
			continue
		}
		outcome.Normalized++
		if r.metrics != nil {
			r.metrics.RecordsNormalized.Inc()
		}

		if !target.PriceFilters.Accepts(listing.Price) {
			outcome.Filtered++
			continue
		}
		if seen[listing.ID] {
			continue
		}
		seen[listing.ID] = true
		snapshot.Listings = append(snapshot.Listings, listing)
	}

	sort.Slice(snapshot.Listings, func(i, j int) bool {
		return snapshot.Listings[i].ID < snapshot.Listings[j].ID
	})
	return snapshot
}

// dispatch delivers selected alerts in order. A delivery failure is logged
// and the listing is still recorded as alerted, trading a missed
// notification for never spamming on a flaky endpoint.
func (r *Runner) dispatch(ctx context.Context, runID string, alertedAt int64, target domain.Target, selected []domain.Alert, outcome *domain.TargetOutcome, log zerolog.Logger) []domain.AlertRecord {
	records := make([]domain.AlertRecord, 0, len(selected))
	for _, a := range selected {
		delivered := true
		if r.dryRun {
			delivered = false
		} else if err := r.dispatcher.Send(ctx, a); err != nil {
			delivered = false
			outcome.DeliveryFailures++
			if r.metrics != nil {
				r.metrics.AlertsFailed.Inc()
			}
			log.Warn().Err(err).Str("listing_id", a.Listing.ID).Msg("alert delivery failed")
		}
		if delivered {
			outcome.AlertsDelivered++
			if r.metrics != nil {
				r.metrics.AlertsSent.Inc()
			}
			log.Info().
				Str("listing_id", a.Listing.ID).
				Str("reason", string(a.Reason)).
				Float64("price", a.Listing.Price).
				Msg("alert sent")
		}

		records = append(records, domain.AlertRecord{
			ListingID: a.Listing.ID,
			QueryKey:  target.QueryKey,
			RunID:     runID,
			Reason:    a.Reason,
			Price:     a.Listing.Price,
			Score:     a.Score,
			AlertedAt: alertedAt,
			Delivered: delivered,
		})
	}
	return records
}

func buildObservations(runID string, snapshot *domain.Snapshot) []*domain.PriceObservation {
	obs := make([]*domain.PriceObservation, 0, len(snapshot.Listings))
	for _, l := range snapshot.Listings {
		obs = append(obs, &domain.PriceObservation{
			RunID:      runID,
			QueryKey:   snapshot.QueryKey,
			ListingID:  l.ID,
			Price:      l.Price,
			Currency:   l.Currency,
			ObservedAt: l.ObservedAt,
		})
	}
	return obs
}

func (r *Runner) countDiff(diff dedup.DiffResult) {
	if r.metrics == nil {
		return
	}
	r.metrics.ListingsNew.Add(float64(len(diff.New)))
	r.metrics.ListingsUpdated.Add(float64(len(diff.Updated)))
	r.metrics.ListingsUnchanged.Add(float64(len(diff.Unchanged)))
	r.metrics.ListingsRemoved.Add(float64(len(diff.Removed)))
}

func (r *Runner) countRun(outcome string) {
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}
}

func (r *Runner) logRunDone(s *domain.RunSummary, msg string) {
	r.logger.Info().
		Str("run_id", s.RunID).
		Int("targets_fetched", s.TargetsFetched).
		Int("targets_failed", s.TargetsFailed).
		Int("normalized", s.Normalized).
		Int("rejected", s.Rejected).
		Int("new", s.ListingsNew).
		Int("updated", s.ListingsUpdated).
		Int("removed", s.ListingsRemoved).
		Int("alerts_sent", s.AlertsSent).
		Int("alerts_failed", s.AlertsFailed).
		Msg(msg)
}
