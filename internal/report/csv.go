package report

import (
	"fmt"
	"strings"

	"dealradar/internal/domain"
)

// RenderAlertsCSV renders the run's alert records as CSV string, one row
// per forwarded listing.
func RenderAlertsCSV(records []domain.AlertRecord) string {
	var sb strings.Builder

	sb.WriteString("run_id,query_key,listing_id,reason,price,z,delivered\n")

	for _, r := range records {
		z := ""
		if r.Score != nil && r.Score.Defined {
			z = fmt.Sprintf("%.4f", r.Score.Z)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.2f,%s,%t\n",
			r.RunID, r.QueryKey, r.ListingID, r.Reason, r.Price, z, r.Delivered))
	}

	return sb.String()
}

// RenderTrendCSV renders daily price aggregates as CSV string.
func RenderTrendCSV(points []domain.PriceTrendPoint) string {
	var sb strings.Builder

	sb.WriteString("day,query_key,count,mean,min,max\n")

	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%.2f,%.2f,%.2f\n",
			p.Day, p.QueryKey, p.Count, p.Mean, p.Min, p.Max))
	}

	return sb.String()
}
