// Package report renders run summaries and trend data for humans.
package report

import (
	"fmt"
	"strings"
	"time"

	"dealradar/internal/domain"
)

// RenderMarkdown renders a run summary as Markdown string.
func RenderMarkdown(s *domain.RunSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Run %s\n\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Started: %s | Finished: %s\n\n",
		time.UnixMilli(s.StartedAt).UTC().Format(time.RFC3339),
		time.UnixMilli(s.FinishedAt).UTC().Format(time.RFC3339)))

	sb.WriteString("## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Targets Fetched | %d |\n", s.TargetsFetched))
	sb.WriteString(fmt.Sprintf("| Targets Failed | %d |\n", s.TargetsFailed))
	sb.WriteString(fmt.Sprintf("| Records Fetched | %d |\n", s.RecordsFetched))
	sb.WriteString(fmt.Sprintf("| Records Normalized | %d |\n", s.Normalized))
	sb.WriteString(fmt.Sprintf("| Records Rejected | %d |\n", s.Rejected))
	sb.WriteString(fmt.Sprintf("| Filtered by Price | %d |\n", s.Filtered))
	sb.WriteString(fmt.Sprintf("| Listings New | %d |\n", s.ListingsNew))
	sb.WriteString(fmt.Sprintf("| Listings Updated | %d |\n", s.ListingsUpdated))
	sb.WriteString(fmt.Sprintf("| Listings Removed | %d |\n", s.ListingsRemoved))
	sb.WriteString(fmt.Sprintf("| Alerts Sent | %d |\n", s.AlertsSent))
	sb.WriteString(fmt.Sprintf("| Alerts Failed | %d |\n", s.AlertsFailed))
	sb.WriteString("\n")

	sb.WriteString("## Targets\n\n")
	if len(s.Targets) > 0 {
		sb.WriteString("| Query | Fetched | Normalized | Rejected | New | Updated | Removed | Baseline | Alerts | Status |\n")
		sb.WriteString("|-------|---------|------------|----------|-----|---------|---------|----------|--------|--------|\n")
		for _, t := range s.Targets {
			status := "ok"
			if t.FetchFailed {
				status = "FAILED: " + t.FetchError
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %d | %d | %d | %s |\n",
				t.QueryKey, t.RecordsFetched, t.Normalized, t.Rejected,
				t.New, t.Updated, t.Removed, t.BaselineSamples, t.AlertsDelivered, status))
		}
	} else {
		sb.WriteString("No targets configured.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderTrendMarkdown renders daily price aggregates as Markdown string.
func RenderTrendMarkdown(queryKey string, points []domain.PriceTrendPoint) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Price Trend: %s\n\n", queryKey))
	if len(points) == 0 {
		sb.WriteString("No observations recorded.\n")
		return sb.String()
	}

	sb.WriteString("| Day | Samples | Mean | Min | Max |\n")
	sb.WriteString("|-----|---------|------|-----|-----|\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f |\n",
			p.Day, p.Count, p.Mean, p.Min, p.Max))
	}
	sb.WriteString("\n")

	return sb.String()
}
