package inventory

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeConfigDigest hashes a set of staged files independent of map order.
// Keys are "<secret id>/<file name>".
func ComputeConfigDigest(files map[string][]byte) string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s\x00%d\x00", k, len(files[k]))
		h.Write(files[k])
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil))
}
