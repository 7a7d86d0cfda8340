package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

const (
	// Key prefixes for Redis
	documentPrefix = "digest:doc:"
	documentIndex  = "digest:docs:by_updated"
)

// documentRecord is the stored form. RawContentRef is hidden from API JSON
// but must survive the round trip here.
type documentRecord struct {
	domain.Document
	RawContentRef string `json:"raw_content_ref"`
}

// DocumentStore implements driven.DocumentStore using Redis.
// Each document is a JSON value; a sorted set scored by updated_at keeps list order.
// Updates use WATCH/MULTI so a concurrent writer aborts the transaction.
type DocumentStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewDocumentStore creates a new Redis-backed DocumentStore
func NewDocumentStore(client *redis.Client) *DocumentStore {
	return &DocumentStore{client: client, now: time.Now}
}

// Create stores a new document
func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	key := documentPrefix + doc.ID
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return domain.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, documentIndex, redis.Z{Score: score(doc.UpdatedAt), Member: doc.ID})
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrAlreadyExists
	}
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return err
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	data, err := s.client.Get(ctx, documentPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return decodeDocument(data)
}

// List returns every document, most recently updated first
func (s *DocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	ids, err := s.client.ZRevRange(ctx, documentIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = documentPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	docs := make([]*domain.Document, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		doc, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Update applies mutation if the stored status still equals expected
func (s *DocumentStore) Update(ctx context.Context, id string, expected domain.DocumentStatus, mutation driven.DocumentMutation) (*domain.Document, error) {
	key := documentPrefix + id
	var updated *domain.Document

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeDocument(data)
		if err != nil {
			return err
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

		encoded, err := encodeDocument(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.ZAdd(ctx, documentIndex, redis.Z{Score: score(next.UpdatedAt), Member: id})
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}, key)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, redis.TxFailedErr):
		return nil, domain.ErrConflict
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		return nil, err
	default:
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
}

// Ping checks if the Redis backend is healthy
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func encodeDocument(doc *domain.Document) ([]byte, error) {
	data, err := json.Marshal(documentRecord{Document: *doc, RawContentRef: doc.RawContentRef})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

func decodeDocument(data []byte) (*domain.Document, error) {
	var rec documentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	doc := rec.Document
	doc.RawContentRef = rec.RawContentRef
	return &doc, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}
