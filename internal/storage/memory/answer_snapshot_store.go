package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-oracle-client/internal/domain"
	"solana-oracle-client/internal/storage"
)

// AnswerSnapshotStore is an in-memory implementation of storage.AnswerSnapshotStore.
type AnswerSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AnswerSnapshot // keyed by snapshot_id
}

// NewAnswerSnapshotStore creates a new in-memory answer snapshot store.
func NewAnswerSnapshotStore() *AnswerSnapshotStore {
	return &AnswerSnapshotStore{
		data: make(map[string]*domain.AnswerSnapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *AnswerSnapshotStore) Insert(_ context.Context, a *domain.AnswerSnapshot) error {
	if a == nil || a.SnapshotID == "" || a.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	snapCopy := *a
	if snapCopy.CreatedAt == 0 {
		snapCopy.CreatedAt = time.Now().UnixMilli()
	}
	s.data[a.SnapshotID] = &snapCopy
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *AnswerSnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.AnswerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	snapCopy := *a
	return &snapCopy, nil
}

// GetByAddress retrieves all snapshots of an answer account, ordered by time ASC, slot ASC.
func (s *AnswerSnapshotStore) GetByAddress(_ context.Context, address string) ([]*domain.AnswerSnapshot, error) {
	return s.filter(func(a *domain.AnswerSnapshot) bool {
		return a.Address == address
	}), nil
}

// GetByTimeRange retrieves snapshots whose on-chain time is within [start, end] (inclusive).
func (s *AnswerSnapshotStore) GetByTimeRange(_ context.Context, address string, start, end uint64) ([]*domain.AnswerSnapshot, error) {
	if start > end {
		return nil, storage.ErrInvalidInput
	}
	return s.filter(func(a *domain.AnswerSnapshot) bool {
		return a.Address == address && a.Time >= start && a.Time <= end
	}), nil
}

func (s *AnswerSnapshotStore) filter(keep func(*domain.AnswerSnapshot) bool) []*domain.AnswerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnswerSnapshot
	for _, a := range s.data {
		if keep(a) {
			snapCopy := *a
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Time != result[j].Time {
			return result[i].Time < result[j].Time
		}
		if result[i].Slot != result[j].Slot {
			return result[i].Slot < result[j].Slot
		}
		return result[i].SnapshotID < result[j].SnapshotID
	})
	return result
}

var _ storage.AnswerSnapshotStore = (*AnswerSnapshotStore)(nil)
