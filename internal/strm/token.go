package strm

import "math/rand/v2"

// DefaultTokenLength is the length of the body written into each file.
const DefaultTokenLength = 20

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewToken returns n characters drawn uniformly from [A-Za-z0-9].
// The value is a placeholder, not a secret.
func NewToken(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.IntN(len(alphanumeric))]
	}
	return string(b)
}
