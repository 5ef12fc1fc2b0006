// Package checksum derives stable fingerprints for adjustment runs.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Run fingerprints the parameters of an adjustment run. Filter order does not matter.
func Run(hours int, cutoff time.Time, filters map[string]any) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := fmt.Appendf(nil, "hours=%d\ncutoff=%s\n", hours, cutoff.Format(time.RFC3339Nano))
	for _, k := range keys {
		buf = fmt.Appendf(buf, "filter=%s:%v\n", k, filters[k])
	}
	return Sum(buf)
}
