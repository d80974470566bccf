package id

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/oklog/ulid/v2"
)

// New generates a ULID string. ULIDs sort by creation time, so verification
// records keyed by them list newest-last without a separate sort key.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Content returns the hex SHA-256 of b. Identical uploads map to the same key.
func Content(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
