package storage

import "dealradar/internal/domain"

// ApplyWindow bounds ordered history (oldest..newest) by the baseline
// window. Runs keeps the last N snapshots per run; Span keeps snapshots no
// older than the span measured back from the newest snapshot's generated_at,
// which keeps the result independent of when the caller looks. When both are
// set, both apply.
func ApplyWindow(history []*domain.Snapshot, window domain.BaselineWindow) []*domain.Snapshot {
	out := history

	if window.Span > 0 && len(out) > 0 {
		newest := out[len(out)-1].GeneratedAt
		cutoff := newest - window.Span.Milliseconds()
		i := 0
		for i < len(out) && out[i].GeneratedAt < cutoff {
			i++
		}
		out = out[i:]
	}

	if window.Runs > 0 && len(out) > window.Runs {
		out = out[len(out)-window.Runs:]
	}

	return out
}
