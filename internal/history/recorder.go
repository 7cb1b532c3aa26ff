// Package history persists decoded answers as snapshots and price points.
package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-oracle-client/internal/answer"
	"solana-oracle-client/internal/domain"
	"solana-oracle-client/internal/idhash"
	"solana-oracle-client/internal/logger"
	"solana-oracle-client/internal/observability"
	"solana-oracle-client/internal/storage"
)

// Recorder writes every answer to a snapshot store and, when configured,
// a price store. Re-recording an answer already stored is a no-op.
type Recorder struct {
	snapshots storage.AnswerSnapshotStore
	prices    storage.AnswerPriceStore
	snapDB    string
	priceDB   string
	now       func() time.Time
	log       *logger.Entry
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPriceStore adds a price series sink labelled db in metrics.
func WithPriceStore(store storage.AnswerPriceStore, db string) Option {
	return func(r *Recorder) {
		r.prices = store
		r.priceDB = db
	}
}

// WithClock overrides the observation clock.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithLogger sets the log entry.
func WithLogger(l *logger.Entry) Option {
	return func(r *Recorder) { r.log = l }
}

// NewRecorder creates a Recorder writing snapshots to store, labelled db in metrics.
func NewRecorder(store storage.AnswerSnapshotStore, db string, opts ...Option) *Recorder {
	r := &Recorder{
		snapshots: store,
		snapDB:    db,
		now:       time.Now,
		log:       logger.GetLogger().WithComponent("history"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stores a as read from addr at slot.
func (r *Recorder) Record(ctx context.Context, addr solanago.PublicKey, slot uint64, schema answer.Schema, a *answer.Answer) error {
	if a == nil {
		return storage.ErrInvalidInput
	}

	snap := NewSnapshot(addr.String(), slot, schema, a, r.now())

	start := time.Now()
	err := r.snapshots.Insert(ctx, snap)
	observability.RecordDBQuery(r.snapDB, "insert_snapshot", time.Since(start).Seconds(), ignoreDuplicate(err))
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		r.log.WithFields(logger.Fields{"snapshot_id": snap.SnapshotID}).Debug("snapshot already recorded")
		return nil
	case err != nil:
		return fmt.Errorf("store snapshot: %w", err)
	}
	observability.RecordSnapshotStored(r.snapDB)

	if r.prices == nil {
		return nil
	}

	point, err := PricePoint(snap)
	if err != nil {
		r.log.WithError(err).WithFields(logger.Fields{"snapshot_id": snap.SnapshotID}).Warn("price not representable, skipping series")
		return nil
	}

	start = time.Now()
	err = r.prices.InsertBulk(ctx, []*domain.AnswerPricePoint{point})
	observability.RecordDBQuery(r.priceDB, "insert_price", time.Since(start).Seconds(), ignoreDuplicate(err))
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("store price point: %w", err)
	}
	if err == nil {
		observability.RecordSnapshotStored(r.priceDB)
	}
	return nil
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

// NewSnapshot converts a decoded answer into a storable snapshot.
func NewSnapshot(address string, slot uint64, schema answer.Schema, a *answer.Answer, observed time.Time) *domain.AnswerSnapshot {
	asset := ""
	switch {
	case schema.Has(answer.FieldCode):
		asset = a.Code
	case schema.Has(answer.FieldAddr):
		asset = a.Addr.String()
	}

	return &domain.AnswerSnapshot{
		SnapshotID: idhash.ComputeSnapshotID(address, slot, a.Time, a.Price),
		Address:    address,
		Schema:     schema.Name,
		Slot:       slot,
		Asset:      asset,
		Chain:      a.Chain,
		Name:       a.Name,
		Price:      a.Price,
		Decimal:    a.Decimal,
		Time:       a.Time,
		PriceType:  a.PriceType,
		ObservedAt: observed.UnixMilli(),
	}
}

// PricePoint scales a snapshot's price for the time series.
func PricePoint(s *domain.AnswerSnapshot) (*domain.AnswerPricePoint, error) {
	a := answer.Answer{Price: s.Price, Decimal: s.Decimal, Time: s.Time}
	v, err := a.Value()
	if err != nil {
		return nil, err
	}
	if s.Time > math.MaxInt64/1000 {
		return nil, fmt.Errorf("update time %d out of range", s.Time)
	}

	return &domain.AnswerPricePoint{
		Address:     s.Address,
		TimestampMs: int64(s.Time) * 1000,
		Slot:        s.Slot,
		Price:       v.InexactFloat64(),
		Unit:        s.PriceType,
	}, nil
}
