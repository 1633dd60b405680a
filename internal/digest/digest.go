// Package digest computes the content addresses used by the object stores.
package digest

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// Size is the length of a hex digest
const Size = 32

// Sum returns the xxh3-128 digest of data as lowercase hex
func Sum(data []byte) string {
	h := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(h[:])
}

// SumString is Sum for strings
func SumString(s string) string {
	return Sum([]byte(s))
}

// Valid reports whether s looks like a digest produced by Sum
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
