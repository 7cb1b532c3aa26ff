package reporting

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-oracle-client/internal/domain"
	"solana-oracle-client/internal/storage"
)

// Generator produces reports from stored answer history.
type Generator struct {
	snapshots storage.AnswerSnapshotStore
	prices    storage.AnswerPriceStore // optional
	now       func() time.Time         // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. prices may be nil.
func NewGenerator(snapshots storage.AnswerSnapshotStore, prices storage.AnswerPriceStore) *Generator {
	return &Generator{
		snapshots: snapshots,
		prices:    prices,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the history report for address. A zero end means no upper bound.
func (g *Generator) Generate(ctx context.Context, address string, start, end uint64) (*Report, error) {
	if end == 0 {
		end = math.MaxUint64
	}

	snaps, err := g.snapshots.GetByTimeRange(ctx, address, start, end)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Address:     address,
		Summary:     summarize(snaps),
		Snapshots:   make([]SnapshotRow, 0, len(snaps)),
	}

	for _, s := range snaps {
		report.Snapshots = append(report.Snapshots, SnapshotRow{
			SnapshotID: s.SnapshotID,
			Slot:       s.Slot,
			UpdatedAt:  updatedAt(s.Time),
			Asset:      s.Asset,
			Name:       s.Name,
			Price:      priceString(s),
			Unit:       s.PriceType,
		})
	}

	if g.prices != nil {
		series, err := g.loadSeries(ctx, address, start, end)
		if err != nil {
			return nil, err
		}
		report.Series = series
	}

	return report, nil
}

func (g *Generator) loadSeries(ctx context.Context, address string, start, end uint64) (SeriesSummary, error) {
	lo, hi := toMillis(start), toMillis(end)
	points, err := g.prices.GetByTimeRange(ctx, address, lo, hi)
	if err != nil {
		return SeriesSummary{}, fmt.Errorf("load price series: %w", err)
	}
	if len(points) == 0 {
		return SeriesSummary{}, nil
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].TimestampMs != points[j].TimestampMs {
			return points[i].TimestampMs < points[j].TimestampMs
		}
		return points[i].Slot < points[j].Slot
	})

	s := SeriesSummary{
		Points: len(points),
		First:  points[0].Price,
		Last:   points[len(points)-1].Price,
	}
	if s.First != 0 {
		s.ChangePct = (s.Last - s.First) / s.First * 100
	}
	return s, nil
}

func summarize(snaps []*domain.AnswerSnapshot) Summary {
	sum := Summary{Count: len(snaps)}
	if len(snaps) == 0 {
		return sum
	}

	schemaSet := make(map[string]struct{})
	var lo, hi decimal.Decimal
	haveRange := false

	for _, s := range snaps {
		schemaSet[s.Schema] = struct{}{}

		v, ok := value(s)
		if !ok {
			continue
		}
		if !haveRange || v.LessThan(lo) {
			lo = v
		}
		if !haveRange || v.GreaterThan(hi) {
			hi = v
		}
		haveRange = true
	}

	for name := range schemaSet {
		sum.Schemas = append(sum.Schemas, name)
	}
	sort.Strings(sum.Schemas)

	first, last := snaps[0], snaps[len(snaps)-1]
	sum.FirstUpdate = first.Time
	sum.LastUpdate = last.Time
	sum.LatestPrice = priceString(last)
	sum.Unit = last.PriceType
	if haveRange {
		sum.MinPrice = lo.String()
		sum.MaxPrice = hi.String()
	}
	return sum
}

// value scales the raw price; false when the exponent is out of range.
func value(s *domain.AnswerSnapshot) (decimal.Decimal, bool) {
	if s.Decimal > math.MaxInt32 {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(s.Price), -int32(s.Decimal)), true
}

func priceString(s *domain.AnswerSnapshot) string {
	if v, ok := value(s); ok {
		return v.String()
	}
	return fmt.Sprintf("%d/10^%d", s.Price, s.Decimal)
}

func updatedAt(unix uint64) time.Time {
	if unix > math.MaxInt64 {
		unix = math.MaxInt64
	}
	return time.Unix(int64(unix), 0).UTC()
}

func toMillis(sec uint64) int64 {
	if sec > math.MaxInt64/1000 {
		return math.MaxInt64
	}
	return int64(sec) * 1000
}
