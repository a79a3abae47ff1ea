// Package randid provides random ID generation utilities.
package randid

import "math/rand/v2"

const (
	// Alphanumeric is lowercase letters and digits.
	Alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"
	// UpperHex is the alphabet used for message tag prefixes.
	UpperHex = "0123456789ABCDEF"
)

// Generate creates a random alphanumeric ID of the specified length.
func Generate(length int) string {
	return GenerateFrom(Alphanumeric, length)
}

// GenerateFrom creates a random ID of the specified length drawn from
// alphabet. An empty alphabet yields an empty string.
func GenerateFrom(alphabet string, length int) string {
	if alphabet == "" || length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
