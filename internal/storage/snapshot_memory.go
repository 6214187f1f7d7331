package storage

import (
	"context"
	"sync"

	"ai-portfolio-go/internal/storage/models"
	"ai-portfolio-go/internal/types"
)

// InMemorySnapshotStore 进程内快照存储，保存序列化后的快照行
type InMemorySnapshotStore struct {
	mu        sync.Mutex
	snapshots []*models.PortfolioSnapshot
}

// NewInMemorySnapshotStore 创建进程内快照存储
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{}
}

// SaveSnapshot 追加快照
func (s *InMemorySnapshotStore) SaveSnapshot(_ context.Context, record *types.PortfolioRecord, version uint64, source string) (*models.PortfolioSnapshot, error) {
	snapshot, err := NewSnapshot(record, version, source)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshots = append(s.snapshots, snapshot)
	s.mu.Unlock()
	return snapshot, nil
}

// LatestSnapshot 返回最后保存的快照
func (s *InMemorySnapshotStore) LatestSnapshot(_ context.Context) (*types.PortfolioRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil, ErrSnapshotNotFound
	}
	return DecodeSnapshot(s.snapshots[len(s.snapshots)-1])
}

// Snapshots 返回全部快照行
func (s *InMemorySnapshotStore) Snapshots() []*models.PortfolioSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.PortfolioSnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

var _ SnapshotStore = (*InMemorySnapshotStore)(nil)
