package boardingpass

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ETag returns a strong HTTP entity tag for artifact bytes.
func ETag(data []byte) string {
	sum := blake3.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
