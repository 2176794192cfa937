package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// HashString returns the hex md5 digest of input. It keys the search
// response cache, where collision resistance does not matter.
func HashString(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
