package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random identifier like "post_9f86d081a3b2c401d4e5f6a7".
// The prefix keeps an id's origin readable in KV keys and logs; 12 random
// bytes is plenty for a single-admin content store.
func NewID(prefix string) string {
	raw := make([]byte, 12)
	_, _ = rand.Read(raw)
	id := hex.EncodeToString(raw)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
