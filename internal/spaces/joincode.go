package spaces

import (
	"crypto/rand"
	"fmt"
)

// joinCodeAlphabet deliberately omits 0/O and 1/I to keep codes readable
// when shared verbally.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const joinCodeLength = 6

// newJoinCode returns a random 6-character join code. Uniqueness is not
// checked here; the store's unique constraint is authoritative and callers
// retry on conflict.
func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate join code: %w", err)
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}
