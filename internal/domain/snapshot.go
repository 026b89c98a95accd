package domain

// Snapshot is the complete set of listings observed for one query in one run.
// Listings are unique by ID and sorted by ID for deterministic artifacts.
// Built in memory during a run, persisted once, immutable afterward.
type Snapshot struct {
	RunID       string    `json:"run_id"`
	QueryKey    string    `json:"query_key"`
	GeneratedAt int64     `json:"generated_at"` // Unix timestamp in milliseconds
	Listings    []Listing `json:"listings"`
}

// Empty reports whether the snapshot carries no listings. LoadLatest returns an
// empty snapshot for the first-ever run of a query.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Listings) == 0
}

// ByID returns the snapshot's listings indexed by listing ID.
func (s *Snapshot) ByID() map[string]Listing {
	if s == nil {
		return map[string]Listing{}
	}
	m := make(map[string]Listing, len(s.Listings))
	for _, l := range s.Listings {
		m[l.ID] = l
	}
	return m
}
