package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"solana-oracle-client/internal/domain"
	"solana-oracle-client/internal/storage"
)

// AnswerSnapshotStore implements storage.AnswerSnapshotStore using PostgreSQL.
type AnswerSnapshotStore struct {
	pool *Pool
}

// NewAnswerSnapshotStore creates a new AnswerSnapshotStore.
func NewAnswerSnapshotStore(pool *Pool) *AnswerSnapshotStore {
	return &AnswerSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnswerSnapshotStore = (*AnswerSnapshotStore)(nil)

const snapshotColumns = `snapshot_id, address, schema_name, slot, asset, chain, name,
	price, price_decimal, update_time, price_type, observed_at, created_at`

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
// Values above the BIGINT range are rejected with ErrInvalidInput.
func (s *AnswerSnapshotStore) Insert(ctx context.Context, a *domain.AnswerSnapshot) error {
	if a == nil || a.SnapshotID == "" || a.Address == "" {
		return storage.ErrInvalidInput
	}

	var ints [5]int64
	for i, v := range []uint64{a.Slot, a.Chain, a.Price, a.Decimal, a.Time} {
		n, ok := toBigint(v)
		if !ok {
			return fmt.Errorf("%w: value %d exceeds bigint", storage.ErrInvalidInput, v)
		}
		ints[i] = n
	}

	query := `
		INSERT INTO answer_snapshots (
			snapshot_id, address, schema_name, slot, asset, chain, name,
			price, price_decimal, update_time, price_type, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		a.SnapshotID,
		a.Address,
		a.Schema,
		ints[0],
		a.Asset,
		ints[1],
		a.Name,
		ints[2],
		ints[3],
		ints[4],
		a.PriceType,
		a.ObservedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert answer snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *AnswerSnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.AnswerSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM answer_snapshots
		WHERE snapshot_id = $1
	`

	a, err := scanSnapshot(s.pool.QueryRow(ctx, query, snapshotID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get answer snapshot by id: %w", err)
	}
	return a, nil
}

// GetByAddress retrieves all snapshots of an answer account, ordered by time ASC, slot ASC.
func (s *AnswerSnapshotStore) GetByAddress(ctx context.Context, address string) ([]*domain.AnswerSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM answer_snapshots
		WHERE address = $1
		ORDER BY update_time ASC, slot ASC, snapshot_id ASC
	`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("get answer snapshots by address: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots whose on-chain time is within [start, end] (inclusive).
func (s *AnswerSnapshotStore) GetByTimeRange(ctx context.Context, address string, start, end uint64) ([]*domain.AnswerSnapshot, error) {
	if start > end {
		return nil, storage.ErrInvalidInput
	}
	lo, ok := toBigint(start)
	if !ok {
		return nil, nil // no stored row can be that late
	}
	hi, ok := toBigint(end)
	if !ok {
		hi = math.MaxInt64
	}

	query := `SELECT ` + snapshotColumns + `
		FROM answer_snapshots
		WHERE address = $1 AND update_time >= $2 AND update_time <= $3
		ORDER BY update_time ASC, slot ASC, snapshot_id ASC
	`

	rows, err := s.pool.Query(ctx, query, address, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("get answer snapshots by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshot scans a single row into an AnswerSnapshot.
func scanSnapshot(row pgx.Row) (*domain.AnswerSnapshot, error) {
	var a domain.AnswerSnapshot
	var slot, chain, price, dec, updateTime int64

	err := row.Scan(
		&a.SnapshotID,
		&a.Address,
		&a.Schema,
		&slot,
		&a.Asset,
		&chain,
		&a.Name,
		&price,
		&dec,
		&updateTime,
		&a.PriceType,
		&a.ObservedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Slot = uint64(slot)
	a.Chain = uint64(chain)
	a.Price = uint64(price)
	a.Decimal = uint64(dec)
	a.Time = uint64(updateTime)
	return &a, nil
}

// scanSnapshots scans multiple rows into a slice.
func scanSnapshots(rows pgx.Rows) ([]*domain.AnswerSnapshot, error) {
	var out []*domain.AnswerSnapshot
	for rows.Next() {
		a, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer snapshot: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer snapshots: %w", err)
	}
	return out, nil
}
