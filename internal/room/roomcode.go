package room

import rand "math/rand/v2"

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// newCode returns a 6 character room code. Collision handling is the
// caller's job; the space is large enough that retries are rare.
func newCode(rng *rand.Rand) string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rng.IntN(len(codeAlphabet))]
	}
	return string(buf)
}
