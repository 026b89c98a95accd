// Package alert decides which listings are forwarded and delivers them.
// Selection is pure; delivery goes through the Dispatcher interface so the
// pipeline can run with a webhook, a log sink or a test fake.
package alert

import (
	"sort"

	"dealradar/internal/dedup"
	"dealradar/internal/domain"
)

// RealertPolicy controls when a previously alerted listing becomes
// eligible again.
type RealertPolicy string

const (
	// RealertPriceChange re-arms a listing id once its price moves from
	// the price recorded at alert time.
	RealertPriceChange RealertPolicy = "price_change"
	// RealertNever alerts each listing id at most once, ever.
	RealertNever RealertPolicy = "never"
)

// Selector applies the inclusion rule and the at-most-once invariant.
type Selector struct {
	// Threshold is the Z magnitude at which a below-mean score counts as
	// anomalous.
	Threshold float64
	// Realert picks the re-eligibility policy for already-alerted ids.
	Realert RealertPolicy
}

// Select returns the listings to forward, best deal first: defined scores
// ascending by Z, then listings alerted on the new path without a defined
// score, ties broken by listing id.
//
// A listing is included if it is new, or if it is new or updated and its
// score is anomalous below the mean. Unchanged and removed listings never
// alert. An id present in previouslyAlerted is skipped unless the realert
// policy re-arms it.
func (s Selector) Select(diff dedup.DiffResult, scores map[string]domain.Score, previouslyAlerted map[string]domain.AlertRecord) []domain.Alert {
	var alerts []domain.Alert

	for _, l := range diff.New {
		if !s.eligible(l, previouslyAlerted) {
			continue
		}
		alerts = append(alerts, s.build(l, scores, domain.AlertReasonNew))
	}

	for _, u := range diff.Updated {
		score, ok := scores[u.New.ID]
		if !ok || !score.AnomalousLow(s.Threshold) {
			continue
		}
		if !s.eligible(u.New, previouslyAlerted) {
			continue
		}
		alerts = append(alerts, s.build(u.New, scores, domain.AlertReasonAnomaly))
	}

	sort.Slice(alerts, func(i, j int) bool {
		zi, zj := sortZ(alerts[i].Score), sortZ(alerts[j].Score)
		if zi != zj {
			return zi < zj
		}
		return alerts[i].Listing.ID < alerts[j].Listing.ID
	})

	return alerts
}

// build attaches the score when one is defined and upgrades the reason to
// anomaly when a new listing also scores anomalous-low.
func (s Selector) build(l domain.Listing, scores map[string]domain.Score, reason domain.AlertReason) domain.Alert {
	a := domain.Alert{Listing: l, Reason: reason}
	if score, ok := scores[l.ID]; ok && score.Defined {
		sc := score
		a.Score = &sc
		if score.AnomalousLow(s.Threshold) {
			a.Reason = domain.AlertReasonAnomaly
		}
	}
	return a
}

// eligible applies the at-most-once invariant.
func (s Selector) eligible(l domain.Listing, previouslyAlerted map[string]domain.AlertRecord) bool {
	rec, seen := previouslyAlerted[l.ID]
	if !seen {
		return true
	}
	if s.Realert == RealertNever {
		return false
	}
	return l.Price != rec.Price
}

// sortZ maps a score to its ordering key. Listings without a defined score
// sort after every defined one.
func sortZ(score *domain.Score) float64 {
	if score == nil || !score.Defined {
		return domain.BoundaryZ + 1
	}
	return score.Z
}
