package driven

import (
	"context"

	"github.com/custodia-labs/digest-core/internal/core/domain"
)

// DocumentMutation edits a copy of the stored document. Returning an error aborts the update.
type DocumentMutation func(doc *domain.Document) error

// DocumentStore is the durable keyed record of every document's lifecycle.
// Implementations: PostgreSQL (preferred), Redis, Firestore.
type DocumentStore interface {
	// Create stores a new document.
	// Returns ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns every document ordered by updated_at descending.
	List(ctx context.Context) ([]*domain.Document, error)

	// Update applies mutation only if the stored status still equals expected.
	// The change and a refreshed updated_at are written atomically.
	// Returns ErrNotFound, ErrConflict (status moved on), or ErrInvalidTransition.
	Update(ctx context.Context, id string, expected domain.DocumentStatus, mutation DocumentMutation) (*domain.Document, error)

	// Ping checks if the store backend is healthy.
	Ping(ctx context.Context) error
}
