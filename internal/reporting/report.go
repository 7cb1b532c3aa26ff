package reporting

import "time"

// Report is the answer history of one account.
type Report struct {
	GeneratedAt time.Time
	Address     string

	Summary Summary

	// Snapshots sorted by (time, slot, snapshot_id).
	Snapshots []SnapshotRow

	// Series is empty when no price store is configured.
	Series SeriesSummary
}

// Summary describes the snapshot set.
type Summary struct {
	Count       int
	Schemas     []string
	FirstUpdate uint64 // Unix seconds
	LastUpdate  uint64 // Unix seconds
	MinPrice    string
	MaxPrice    string
	LatestPrice string
	Unit        string
}

// SnapshotRow is one line of the history table.
type SnapshotRow struct {
	SnapshotID string
	Slot       uint64
	UpdatedAt  time.Time
	Asset      string
	Name       string
	Price      string // exact decimal
	Unit       string
}

// SeriesSummary is computed from stored price points.
type SeriesSummary struct {
	Points    int
	First     float64
	Last      float64
	ChangePct float64 // (last - first) / first * 100, 0 if first == 0
}
