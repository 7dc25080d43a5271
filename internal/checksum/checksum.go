// Package checksum computes the content digests used for If-Match checks.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether want (an ETag-style value, quotes optional) equals
// the digest of data. An empty want always matches.
func Matches(want string, data []byte) bool {
	want = strings.Trim(strings.TrimSpace(want), `"`)
	if want == "" {
		return true
	}
	return strings.EqualFold(want, Sum(data))
}
