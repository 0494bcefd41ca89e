// Package stringutil provides some string based helpers.
package stringutil

import (
	"crypto/rand"
	"math/big"
)

// SecureRandomString generates a random string of len n.
func SecureRandomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	ret := make([]byte, n)

	for currentChar := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return ""
		}

		ret[currentChar] = letters[num.Int64()]
	}

	return string(ret)
}
