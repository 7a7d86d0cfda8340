package driven

import "context"

// BlobStore holds the raw PDF bytes. The pipeline keeps only the returned reference.
type BlobStore interface {
	// Store saves data and returns a reference to it.
	Store(ctx context.Context, data []byte) (string, error)

	// Fetch returns the bytes behind ref.
	// Returns ErrBlobNotFound if the reference no longer resolves.
	Fetch(ctx context.Context, ref string) ([]byte, error)
}
