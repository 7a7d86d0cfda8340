package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*MockDocumentStore)(nil)

// MockDocumentStore is an in-memory DocumentStore with real compare-and-set semantics
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	history   map[string][]domain.DocumentStatus
	now       func() time.Time

	// Custom behavior hooks (optional)
	CreateFn func(doc *domain.Document) error
	UpdateFn func(id string, expected domain.DocumentStatus) error
	PingFn   func() error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
		history:   make(map[string][]domain.DocumentStatus),
		now:       time.Now,
	}
}

func (m *MockDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(doc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[doc.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.documents[doc.ID] = doc.Clone()
	m.history[doc.ID] = []domain.DocumentStatus{doc.Status}
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *MockDocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]*domain.Document, 0, len(m.documents))
	for _, doc := range m.documents {
		docs = append(docs, doc.Clone())
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

func (m *MockDocumentStore) Update(ctx context.Context, id string, expected domain.DocumentStatus, mutation driven.DocumentMutation) (*domain.Document, error) {
	if m.UpdateFn != nil {
		if err := m.UpdateFn(id, expected); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if current.Status != expected {
		return nil, domain.ErrConflict
	}

	next := current.Clone()
	if err := mutation(next); err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(current, next); err != nil {
		return nil, err
	}
	next.Touch(m.now())

	m.documents[id] = next
	m.history[id] = append(m.history[id], next.Status)
	return next.Clone(), nil
}

func (m *MockDocumentStore) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Helper methods for testing

// Put stores doc as-is, bypassing state machine checks
func (m *MockDocumentStore) Put(doc *domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc.Clone()
	m.history[doc.ID] = append(m.history[doc.ID], doc.Status)
}

// History returns every status the document has held, in order
func (m *MockDocumentStore) History(id string) []domain.DocumentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.DocumentStatus(nil), m.history[id]...)
}

// Count returns the number of stored documents
func (m *MockDocumentStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}

func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = make(map[string]*domain.Document)
	m.history = make(map[string][]domain.DocumentStatus)
}
