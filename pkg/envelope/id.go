package envelope

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 128-bit hex identifier for exchanges and messages.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
