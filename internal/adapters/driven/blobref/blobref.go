// Package blobref derives content-addressed references for stored PDF bytes.
// Identical uploads share one stored object, which makes every Store idempotent.
package blobref

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const scheme = "blake2b:"

// For returns the reference for data, e.g. "blake2b:9f86d0..."
func For(data []byte) string {
	sum := blake2b.Sum256(data)
	return scheme + hex.EncodeToString(sum[:])
}

// Digest extracts the hex digest from a reference.
// It reports false for references this package did not produce.
func Digest(ref string) (string, bool) {
	digest, ok := strings.CutPrefix(ref, scheme)
	if !ok || len(digest) != blake2b.Size256*2 {
		return "", false
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", false
	}
	return digest, true
}
