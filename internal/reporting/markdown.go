package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Answer History\n\n")
	sb.WriteString(fmt.Sprintf("Account: `%s`\n\n", r.Address))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Snapshots | %d |\n", r.Summary.Count))
	if r.Summary.Count > 0 {
		sb.WriteString(fmt.Sprintf("| Schemas | %s |\n", strings.Join(r.Summary.Schemas, ", ")))
		sb.WriteString(fmt.Sprintf("| First Update | %s |\n", updatedAt(r.Summary.FirstUpdate).Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Last Update | %s |\n", updatedAt(r.Summary.LastUpdate).Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Latest Price | %s |\n", withUnit(r.Summary.LatestPrice, r.Summary.Unit)))
		sb.WriteString(fmt.Sprintf("| Min Price | %s |\n", withUnit(r.Summary.MinPrice, r.Summary.Unit)))
		sb.WriteString(fmt.Sprintf("| Max Price | %s |\n", withUnit(r.Summary.MaxPrice, r.Summary.Unit)))
	}
	if r.Series.Points > 0 {
		sb.WriteString(fmt.Sprintf("| Series Points | %d |\n", r.Series.Points))
		sb.WriteString(fmt.Sprintf("| Series Change | %.2f%% |\n", r.Series.ChangePct))
	}
	sb.WriteString("\n")

	sb.WriteString("## Snapshots\n\n")
	if len(r.Snapshots) == 0 {
		sb.WriteString("No snapshots recorded.\n")
		return sb.String()
	}

	sb.WriteString("| Updated | Slot | Asset | Name | Price | Snapshot |\n")
	sb.WriteString("|---------|------|-------|------|-------|----------|\n")
	for _, row := range r.Snapshots {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s |\n",
			row.UpdatedAt.Format(time.RFC3339),
			row.Slot,
			row.Asset,
			row.Name,
			withUnit(row.Price, row.Unit),
			shortID(row.SnapshotID),
		))
	}

	return sb.String()
}

func withUnit(price, unit string) string {
	if unit == "" {
		return price
	}
	return price + " " + unit
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
