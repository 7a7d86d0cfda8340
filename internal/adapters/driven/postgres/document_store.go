package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

const documentColumns = `id, filename, status, extraction_mode, extracted_text, summary,
	error_detail, page_count, raw_content_ref, created_at, updated_at`

// DocumentStore implements driven.DocumentStore using PostgreSQL.
// Update locks the row, re-checks the expected status and writes in one transaction.
type DocumentStore struct {
	db  *DB
	now func() time.Time
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db, now: time.Now}
}

// Create inserts a new document
func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.Status,
		doc.ExtractionMode,
		NullString(doc.ExtractedText),
		NullString(doc.Summary),
		NullString(doc.ErrorDetail),
		doc.PageCount,
		doc.RawContentRef,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns every document, most recently updated first
func (s *DocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Update applies mutation if the stored status still equals expected
func (s *DocumentStore) Update(ctx context.Context, id string, expected domain.DocumentStatus, mutation driven.DocumentMutation) (*domain.Document, error) {
	var updated *domain.Document

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
		current, err := scanDocument(tx.QueryRowContext(ctx, query, id))
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if current.Status != expected {
			return domain.ErrConflict
		}

		next := current.Clone()
		if err := mutation(next); err != nil {
			return err
		}
		if err := domain.CheckTransition(current, next); err != nil {
			return err
		}
		next.Touch(s.now())

		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET
				status = $3,
				extraction_mode = $4,
				extracted_text = $5,
				summary = $6,
				error_detail = $7,
				page_count = $8,
				updated_at = $9
			WHERE id = $1 AND status = $2
		`,
			id,
			expected,
			next.Status,
			next.ExtractionMode,
			NullString(next.ExtractedText),
			NullString(next.Summary),
			NullString(next.ErrorDetail),
			next.PageCount,
			next.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Ping checks if the database is reachable
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var text, summary, detail sql.NullString

	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.Status,
		&doc.ExtractionMode,
		&text,
		&summary,
		&detail,
		&doc.PageCount,
		&doc.RawContentRef,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.ExtractedText = StringPtr(text)
	doc.Summary = StringPtr(summary)
	doc.ErrorDetail = StringPtr(detail)
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}
