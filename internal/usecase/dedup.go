package usecase

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashPrefix tags content hashes stored in record metadata.
const HashPrefix = "sha256:"

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Deduplicator remembers chunk hashes for the duration of one run.
type Deduplicator struct {
	seen map[string]struct{}
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Seen reports whether hash was already recorded, recording it if not.
func (d *Deduplicator) Seen(hash string) bool {
	if _, ok := d.seen[hash]; ok {
		return true
	}
	d.seen[hash] = struct{}{}
	return false
}

func (d *Deduplicator) Len() int {
	return len(d.seen)
}
