// Package util provides small shared helpers (timestamps, content digests).
package util

import (
	"encoding/hex"
	"time"

	"lukechampine.com/blake3"
)

// NowMs returns the current time in milliseconds since the Unix epoch.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// Blake3HashHex returns the BLAKE3-256 digest of content as a hex string.
func Blake3HashHex(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
