package mocks

import (
	"context"
	"strconv"
	"sync"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

var _ driven.BlobStore = (*MockBlobStore)(nil)

// MockBlobStore keeps blobs in memory
type MockBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	next  int

	StoreFn func(data []byte) (string, error)
}

// NewMockBlobStore creates a new MockBlobStore
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{blobs: make(map[string][]byte)}
}

func (m *MockBlobStore) Store(ctx context.Context, data []byte) (string, error) {
	if m.StoreFn != nil {
		return m.StoreFn(data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	ref := "mem:" + strconv.Itoa(m.next)
	m.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (m *MockBlobStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[ref]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete drops a blob to simulate lost storage
func (m *MockBlobStore) Delete(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref)
}

// Count returns the number of stored blobs
func (m *MockBlobStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
