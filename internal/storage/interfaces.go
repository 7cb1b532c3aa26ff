package storage

import (
	"context"

	"solana-oracle-client/internal/domain"
)

// AnswerSnapshotStore provides access to answer_snapshots storage.
type AnswerSnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.AnswerSnapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.AnswerSnapshot, error)

	// GetByAddress retrieves all snapshots of an answer account, ordered by time ASC, slot ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.AnswerSnapshot, error)

	// GetByTimeRange retrieves snapshots whose on-chain time is within [start, end] (inclusive, Unix seconds).
	GetByTimeRange(ctx context.Context, address string, start, end uint64) ([]*domain.AnswerSnapshot, error)
}

// AnswerPriceStore provides access to answer_prices storage.
type AnswerPriceStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (address, timestamp_ms, slot).
	InsertBulk(ctx context.Context, points []*domain.AnswerPricePoint) error

	// GetByAddress retrieves all points of an answer account, ordered by timestamp ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.AnswerPricePoint, error)

	// GetByTimeRange retrieves points within [start, end] (inclusive, Unix milliseconds).
	GetByTimeRange(ctx context.Context, address string, start, end int64) ([]*domain.AnswerPricePoint, error)
}
