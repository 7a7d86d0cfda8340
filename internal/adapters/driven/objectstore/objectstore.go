// Package objectstore implements driven.BlobStore on cloud object storage.
// Objects are named by content hash, so a repeated Store of the same PDF is a no-op.
package objectstore

import (
	"path"

	"github.com/custodia-labs/digest-core/internal/adapters/driven/blobref"
)

// DefaultPrefix is the key prefix used when none is configured
const DefaultPrefix = "pdfs"

// objectKey maps a blob reference to an object name under prefix.
// It reports false for references blobref did not produce.
func objectKey(prefix, ref string) (string, bool) {
	digest, ok := blobref.Digest(ref)
	if !ok {
		return "", false
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return path.Join(prefix, digest[:2], digest+".pdf"), true
}
