package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-oracle-client/internal/domain"
	"solana-oracle-client/internal/storage/memory"
)

const addr = "7bZdZK1zqXTb1pCGp7oQ9dXW14SZmBgzpa9ooARbi4Hb"

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func setupTestData(t *testing.T) (*memory.AnswerSnapshotStore, *memory.AnswerPriceStore) {
	t.Helper()
	ctx := context.Background()

	snaps := memory.NewAnswerSnapshotStore()
	prices := memory.NewAnswerPriceStore()

	rows := []*domain.AnswerSnapshot{
		{SnapshotID: "bbbbbbbbbbbbbbbbbbbb", Address: addr, Schema: "feed-v1", Slot: 20, Asset: "feed", Name: "SOL", Price: 150000, Decimal: 2, Time: 1700000100, PriceType: "USD"},
		{SnapshotID: "aaaaaaaaaaaaaaaaaaaa", Address: addr, Schema: "feed-v1", Slot: 10, Asset: "feed", Name: "SOL", Price: 123456, Decimal: 2, Time: 1700000000, PriceType: "USD"},
		{SnapshotID: "cccccccccccccccccccc", Address: addr, Schema: "feed-v1", Slot: 30, Asset: "feed", Name: "SOL", Price: 99, Decimal: 0, Time: 1700000200, PriceType: "USD"},
		{SnapshotID: "other", Address: "other", Schema: "code-v1", Slot: 1, Price: 1, Time: 1700000000},
	}
	for _, s := range rows {
		require.NoError(t, snaps.Insert(ctx, s))
	}

	points := []*domain.AnswerPricePoint{
		{Address: addr, TimestampMs: 1700000000000, Slot: 10, Price: 1234.56, Unit: "USD"},
		{Address: addr, TimestampMs: 1700000100000, Slot: 20, Price: 1500, Unit: "USD"},
		{Address: addr, TimestampMs: 1700000200000, Slot: 30, Price: 99, Unit: "USD"},
	}
	require.NoError(t, prices.InsertBulk(ctx, points))

	return snaps, prices
}

func TestGenerator_Generate(t *testing.T) {
	snaps, prices := setupTestData(t)
	gen := NewGenerator(snaps, prices).WithClock(func() time.Time { return fixedNow })

	r, err := gen.Generate(context.Background(), addr, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, r.GeneratedAt)
	assert.Equal(t, 3, r.Summary.Count)
	assert.Equal(t, []string{"feed-v1"}, r.Summary.Schemas)
	assert.Equal(t, uint64(1700000000), r.Summary.FirstUpdate)
	assert.Equal(t, uint64(1700000200), r.Summary.LastUpdate)
	assert.Equal(t, "99", r.Summary.LatestPrice)
	assert.Equal(t, "99", r.Summary.MinPrice)
	assert.Equal(t, "1500", r.Summary.MaxPrice)

	require.Len(t, r.Snapshots, 3)
	assert.Equal(t, uint64(10), r.Snapshots[0].Slot)
	assert.Equal(t, "1234.56", r.Snapshots[0].Price)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), r.Snapshots[0].UpdatedAt)

	assert.Equal(t, 3, r.Series.Points)
	assert.Equal(t, 1234.56, r.Series.First)
	assert.Equal(t, 99.0, r.Series.Last)
	assert.Less(t, r.Series.ChangePct, 0.0)
}

func TestGenerator_TimeRange(t *testing.T) {
	snaps, prices := setupTestData(t)
	gen := NewGenerator(snaps, prices)

	r, err := gen.Generate(context.Background(), addr, 1700000050, 1700000150)
	require.NoError(t, err)

	require.Len(t, r.Snapshots, 1)
	assert.Equal(t, uint64(20), r.Snapshots[0].Slot)
	assert.Equal(t, 1, r.Series.Points)
	assert.Zero(t, r.Series.ChangePct)
}

func TestGenerator_NoPriceStore(t *testing.T) {
	snaps, _ := setupTestData(t)

	r, err := NewGenerator(snaps, nil).Generate(context.Background(), addr, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, r.Series.Points)
}

func TestGenerator_Empty(t *testing.T) {
	gen := NewGenerator(memory.NewAnswerSnapshotStore(), nil)

	r, err := gen.Generate(context.Background(), addr, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, r.Summary.Count)
	assert.Empty(t, r.Snapshots)

	md := RenderMarkdown(r)
	assert.Contains(t, md, "No snapshots recorded.")
}

func TestRenderMarkdown(t *testing.T) {
	snaps, prices := setupTestData(t)
	gen := NewGenerator(snaps, prices).WithClock(func() time.Time { return fixedNow })

	r, err := gen.Generate(context.Background(), addr, 0, 0)
	require.NoError(t, err)

	md := RenderMarkdown(r)
	assert.Contains(t, md, "# Answer History")
	assert.Contains(t, md, "Account: `"+addr+"`")
	assert.Contains(t, md, "Generated: 2024-01-15T12:00:00Z")
	assert.Contains(t, md, "| Snapshots | 3 |")
	assert.Contains(t, md, "| Max Price | 1500 USD |")
	assert.Contains(t, md, "| 2023-11-14T22:13:20Z | 10 | feed | SOL | 1234.56 USD | aaaaaaaaaaaa |")

	// Rows in chronological order.
	assert.Less(t, strings.Index(md, "| 10 |"), strings.Index(md, "| 20 |"))
	assert.Less(t, strings.Index(md, "| 20 |"), strings.Index(md, "| 30 |"))
}

func TestRenderCSV(t *testing.T) {
	snaps, _ := setupTestData(t)

	r, err := NewGenerator(snaps, nil).Generate(context.Background(), addr, 0, 0)
	require.NoError(t, err)

	out, err := RenderCSV(r)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "updated_at,slot,asset,name,price,unit,snapshot_id", lines[0])
	assert.Equal(t, "2023-11-14T22:13:20Z,10,feed,SOL,1234.56,USD,aaaaaaaaaaaaaaaaaaaa", lines[1])
}

func TestRenderCSV_Quoting(t *testing.T) {
	r := &Report{Snapshots: []SnapshotRow{{Name: "a,b", Price: "1", UpdatedAt: time.Unix(0, 0).UTC()}}}

	out, err := RenderCSV(r)
	require.NoError(t, err)
	assert.Contains(t, out, `"a,b"`)
}
