package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-oracle-client/internal/domain"
	"solana-oracle-client/internal/storage"
)

// AnswerPriceStore is an in-memory implementation of storage.AnswerPriceStore.
type AnswerPriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AnswerPricePoint // keyed by (address, timestamp_ms, slot)
}

// NewAnswerPriceStore creates a new in-memory answer price store.
func NewAnswerPriceStore() *AnswerPriceStore {
	return &AnswerPriceStore{
		data: make(map[string]*domain.AnswerPricePoint),
	}
}

func priceKey(p *domain.AnswerPricePoint) string {
	return fmt.Sprintf("%s|%d|%d", p.Address, p.TimestampMs, p.Slot)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *AnswerPriceStore) InsertBulk(_ context.Context, points []*domain.AnswerPricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Address == "" || p.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		key := priceKey(p)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[priceKey(p)] = &pointCopy
	}
	return nil
}

// GetByAddress retrieves all points of an answer account, ordered by timestamp ASC.
func (s *AnswerPriceStore) GetByAddress(_ context.Context, address string) ([]*domain.AnswerPricePoint, error) {
	return s.filter(func(p *domain.AnswerPricePoint) bool {
		return p.Address == address
	}), nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive).
func (s *AnswerPriceStore) GetByTimeRange(_ context.Context, address string, start, end int64) ([]*domain.AnswerPricePoint, error) {
	if start > end {
		return nil, storage.ErrInvalidInput
	}
	return s.filter(func(p *domain.AnswerPricePoint) bool {
		return p.Address == address && p.TimestampMs >= start && p.TimestampMs <= end
	}), nil
}

func (s *AnswerPriceStore) filter(keep func(*domain.AnswerPricePoint) bool) []*domain.AnswerPricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnswerPricePoint
	for _, p := range s.data {
		if keep(p) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs < result[j].TimestampMs
		}
		return result[i].Slot < result[j].Slot
	})
	return result
}

var _ storage.AnswerPriceStore = (*AnswerPriceStore)(nil)
