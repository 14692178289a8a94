// Package cas provides content-addressing helpers.
package cas

import (
	"encoding/hex"
	"time"

	"lukechampine.com/blake3"
)

// NowMs returns the current time in milliseconds since epoch.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// Blake3Hash computes the BLAKE3-256 hash of data.
func Blake3Hash(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

// Blake3HashHex computes the BLAKE3-256 hash of data as a hex string.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}
