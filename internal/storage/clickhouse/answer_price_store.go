package clickhouse

import (
	"context"
	"fmt"

	"solana-oracle-client/internal/domain"
	"solana-oracle-client/internal/storage"
)

// AnswerPriceStore implements storage.AnswerPriceStore using ClickHouse.
type AnswerPriceStore struct {
	conn *Conn
}

// NewAnswerPriceStore creates a new AnswerPriceStore.
func NewAnswerPriceStore(conn *Conn) *AnswerPriceStore {
	return &AnswerPriceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnswerPriceStore = (*AnswerPriceStore)(nil)

type pointKey struct {
	address     string
	timestampMs int64
	slot        uint64
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (address, timestamp_ms, slot).
// MergeTree does not enforce keys, so duplicates are checked before the batch is sent.
func (s *AnswerPriceStore) InsertBulk(ctx context.Context, points []*domain.AnswerPricePoint) error {
	if len(points) == 0 {
		return nil
	}

	seen := make(map[pointKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Address == "" || p.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		k := pointKey{p.Address, p.TimestampMs, p.Slot}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for k := range seen {
		exists, err := s.exists(ctx, k)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO answer_prices (address, timestamp_ms, slot, price, unit)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.Address, uint64(p.TimestampMs), p.Slot, p.Price, p.Unit); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByAddress retrieves all points of an answer account, ordered by timestamp ASC.
func (s *AnswerPriceStore) GetByAddress(ctx context.Context, address string) ([]*domain.AnswerPricePoint, error) {
	query := `
		SELECT address, timestamp_ms, slot, price, unit
		FROM answer_prices
		WHERE address = ?
		ORDER BY timestamp_ms ASC, slot ASC
	`

	rows, err := s.conn.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query by address: %w", err)
	}
	defer rows.Close()

	return scanAnswerPrices(rows)
}

// GetByTimeRange retrieves points within [start, end] (inclusive).
func (s *AnswerPriceStore) GetByTimeRange(ctx context.Context, address string, start, end int64) ([]*domain.AnswerPricePoint, error) {
	if start > end {
		return nil, storage.ErrInvalidInput
	}
	if end < 0 {
		return nil, nil
	}
	if start < 0 {
		start = 0
	}

	query := `
		SELECT address, timestamp_ms, slot, price, unit
		FROM answer_prices
		WHERE address = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, slot ASC
	`

	rows, err := s.conn.Query(ctx, query, address, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanAnswerPrices(rows)
}

func (s *AnswerPriceStore) exists(ctx context.Context, k pointKey) (bool, error) {
	query := `
		SELECT count(*) FROM answer_prices
		WHERE address = ? AND timestamp_ms = ? AND slot = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, k.address, uint64(k.timestampMs), k.slot).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanAnswerPrices(rows chRows) ([]*domain.AnswerPricePoint, error) {
	var points []*domain.AnswerPricePoint

	for rows.Next() {
		var p domain.AnswerPricePoint
		var timestampMs uint64

		if err := rows.Scan(&p.Address, &timestampMs, &p.Slot, &p.Price, &p.Unit); err != nil {
			return nil, fmt.Errorf("scan answer price row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer price rows: %w", err)
	}
	return points, nil
}
