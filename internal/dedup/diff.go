// Package dedup classifies freshly observed listings against the last
// persisted snapshot. Diff is a pure function: identical inputs always
// produce identical outputs, nothing here reads the clock.
package dedup

import (
	"sort"

	"dealradar/internal/domain"
)

// Update pairs the previous and current observation of one listing id.
type Update struct {
	Old domain.Listing
	New domain.Listing
}

// PriceChanged reports whether this update moved the price. Price-only
// changes are the common case and drive re-scoring and alert re-eligibility.
func (u Update) PriceChanged() bool {
	return u.Old.Price != u.New.Price
}

// DiffResult classifies every listing id seen in either snapshot.
// All slices are sorted by listing id.
type DiffResult struct {
	New       []domain.Listing
	Updated   []Update
	Unchanged []domain.Listing
	Removed   []domain.Listing // reported for observability, never alerted
}

// Diff compares the new snapshot against the previous one for the same
// query key. Ids from different query keys are never compared; callers diff
// one query at a time. An empty previous snapshot (first run) classifies
// everything as new.
func Diff(previous, current *domain.Snapshot) DiffResult {
	prev := previous.ByID()

	var result DiffResult
	if current != nil {
		for _, cur := range current.Listings {
			old, existed := prev[cur.ID]
			switch {
			case !existed:
				result.New = append(result.New, cur)
			case changed(old, cur):
				result.Updated = append(result.Updated, Update{Old: old, New: cur})
			default:
				result.Unchanged = append(result.Unchanged, cur)
			}
			delete(prev, cur.ID)
		}
	}

	for _, old := range prev {
		result.Removed = append(result.Removed, old)
	}

	sortListings(result.New)
	sortListings(result.Unchanged)
	sortListings(result.Removed)
	sort.Slice(result.Updated, func(i, j int) bool {
		return result.Updated[i].New.ID < result.Updated[j].New.ID
	})

	return result
}

// changed reports whether an observation differs in the fields that matter:
// price or title. Seller, location and URL churn is ignored.
func changed(old, cur domain.Listing) bool {
	return old.Price != cur.Price || old.Title != cur.Title
}

func sortListings(ls []domain.Listing) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].ID < ls[j].ID })
}
