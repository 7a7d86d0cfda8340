// Package firestore implements driven.DocumentStore on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DefaultCollection is used when no collection name is configured
const DefaultCollection = "documents"

// NewClient creates a Firestore client for projectID
func NewClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: GCP project ID not set", domain.ErrInvalidInput)
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return client, nil
}

// documentRecord is the stored shape of a domain.Document
type documentRecord struct {
	Filename       string    `firestore:"filename"`
	Status         string    `firestore:"status"`
	ExtractionMode string    `firestore:"extractionMode"`
	ExtractedText  *string   `firestore:"extractedText"`
	Summary        *string   `firestore:"summary"`
	ErrorDetail    *string   `firestore:"errorDetails"`
	PageCount      int       `firestore:"pageCount,omitempty"`
	RawContentRef  string    `firestore:"rawContentRef"`
	CreatedAt      time.Time `firestore:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt"`
}

func toRecord(doc *domain.Document) *documentRecord {
	return &documentRecord{
		Filename:       doc.Filename,
		Status:         string(doc.Status),
		ExtractionMode: string(doc.ExtractionMode),
		ExtractedText:  doc.ExtractedText,
		Summary:        doc.Summary,
		ErrorDetail:    doc.ErrorDetail,
		PageCount:      doc.PageCount,
		RawContentRef:  doc.RawContentRef,
		CreatedAt:      doc.CreatedAt.UTC(),
		UpdatedAt:      doc.UpdatedAt.UTC(),
	}
}

func (r *documentRecord) toDomain(id string) *domain.Document {
	return &domain.Document{
		ID:             id,
		Filename:       r.Filename,
		Status:         domain.DocumentStatus(r.Status),
		ExtractionMode: domain.ExtractionMode(r.ExtractionMode),
		ExtractedText:  r.ExtractedText,
		Summary:        r.Summary,
		ErrorDetail:    r.ErrorDetail,
		PageCount:      r.PageCount,
		RawContentRef:  r.RawContentRef,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

// DocumentStore implements driven.DocumentStore using one Firestore collection.
// Update runs inside a transaction, which gives the status compare-and-set.
type DocumentStore struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

// NewDocumentStore creates a store over collection
func NewDocumentStore(client *firestore.Client, collection string) *DocumentStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &DocumentStore{client: client, collection: collection, now: time.Now}
}

func (s *DocumentStore) docs() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Create stores a new document
func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	_, err := s.docs().Doc(doc.ID).Create(ctx, toRecord(doc))
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	snap, err := s.docs().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decode(snap)
}

// List returns every document, most recently updated first
func (s *DocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	iter := s.docs().OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var docs []*domain.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		doc, err := decode(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Update applies mutation in a transaction guarded by the expected status
func (s *DocumentStore) Update(ctx context.Context, id string, expected domain.DocumentStatus, mutation driven.DocumentMutation) (*domain.Document, error) {
	ref := s.docs().Doc(id)
	var updated *domain.Document

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		before, err := decode(snap)
		if err != nil {
			return err
		}
		if before.Status != expected {
			return fmt.Errorf("%w: status is %s, expected %s", domain.ErrConflict, before.Status, expected)
		}

		after := before.Clone()
		if err := mutation(after); err != nil {
			return err
		}
		if err := domain.CheckTransition(before, after); err != nil {
			return err
		}
		after.Touch(s.now())

		if err := tx.Set(ref, toRecord(after)); err != nil {
			return err
		}
		updated = after
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return updated, nil
}

// Ping checks that the collection can be read
func (s *DocumentStore) Ping(ctx context.Context) error {
	iter := s.docs().Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func decode(snap *firestore.DocumentSnapshot) (*domain.Document, error) {
	var rec documentRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", snap.Ref.ID, err)
	}
	return rec.toDomain(snap.Ref.ID), nil
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrInvalidTransition)
}
