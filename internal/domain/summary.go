package domain

// TargetOutcome summarizes one target's pipeline inside a run.
type TargetOutcome struct {
	QueryKey         string
	FetchFailed      bool
	FetchError       string
	RecordsFetched   int
	Normalized       int
	Rejected         int
	Filtered         int // dropped by price filters
	New              int
	Updated          int
	Unchanged        int
	Removed          int
	BaselineSamples  int
	AlertsSelected   int
	AlertsDelivered  int
	DeliveryFailures int
}

// RunSummary is the user-visible result of one batch run, the required
// observability surface.
type RunSummary struct {
	RunID           string
	StartedAt       int64 // Unix timestamp in milliseconds
	FinishedAt      int64
	TargetsFetched  int
	TargetsFailed   int
	RecordsFetched  int
	Normalized      int
	Rejected        int
	Filtered        int
	ListingsNew     int
	ListingsUpdated int
	ListingsRemoved int
	AlertsSent      int
	AlertsFailed    int
	Targets         []TargetOutcome
}

// Merge folds one target's outcome into the run totals. Counts are
// accumulated even for failed targets: a target can fetch and normalize
// records and still fail at a later stage, and those records were
// processed.
func (s *RunSummary) Merge(o TargetOutcome) {
	s.Targets = append(s.Targets, o)
	s.RecordsFetched += o.RecordsFetched
	s.Normalized += o.Normalized
	s.Rejected += o.Rejected
	s.Filtered += o.Filtered
	s.ListingsNew += o.New
	s.ListingsUpdated += o.Updated
	s.ListingsRemoved += o.Removed
	s.AlertsSent += o.AlertsDelivered
	s.AlertsFailed += o.DeliveryFailures
	if o.FetchFailed {
		s.TargetsFailed++
		return
	}
	s.TargetsFetched++
}
