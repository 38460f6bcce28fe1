package search

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ProvenanceHash digests the query text and the final ordered id list.
// The payload is the query text followed by the ids rendered as a
// bracketed ", "-joined list, so an empty result hashes `query[]`. The
// rendering is fixed: identical request and hit order always produce a
// byte-equal digest.
func ProvenanceHash(queryText string, docIDs []string) string {
	var b strings.Builder
	b.WriteString(queryText)
	b.WriteByte('[')
	b.WriteString(strings.Join(docIDs, ", "))
	b.WriteByte(']')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
