package testutil

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
)

func RandomBytes(size int) []byte {
	bytes := make([]byte, size)
	_, _ = crand.Read(bytes)
	return bytes
}

// RandomHash returns a capability hash in the 64 lowercase hex character form
// the service accepts.
func RandomHash() string {
	return hex.EncodeToString(RandomBytes(32))
}

// RandomKey returns an object key made of valid path characters.
func RandomKey() string {
	return fmt.Sprintf("dir-%d/file_%s.txt", rand.IntN(1000), hex.EncodeToString(RandomBytes(4)))
}

// RandomAlias returns a valid requester alias.
func RandomAlias() string {
	return "user" + hex.EncodeToString(RandomBytes(4))
}
