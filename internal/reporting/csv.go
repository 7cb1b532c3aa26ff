package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// RenderCSV renders the snapshot rows as CSV.
func RenderCSV(r *Report) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"updated_at", "slot", "asset", "name", "price", "unit", "snapshot_id"}); err != nil {
		return "", err
	}

	for _, row := range r.Snapshots {
		rec := []string{
			row.UpdatedAt.Format(time.RFC3339),
			strconv.FormatUint(row.Slot, 10),
			row.Asset,
			row.Name,
			row.Price,
			row.Unit,
			row.SnapshotID,
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
