package inventory

import (
	"crypto/sha1" //nolint:gosec // change fingerprint, not security
	"fmt"
	"strconv"
)

// ComputeChangeID derives "change-sha1-<8hex>" from a promotion's service,
// version and config digest. Re-promoting the same version with the same
// configuration yields the same ID.
func ComputeChangeID(service string, version int, digest string) string {
	h := sha1.New() //nolint:gosec // change fingerprint, not security
	h.Write([]byte(service))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(version)))
	h.Write([]byte{0})
	h.Write([]byte(digest))
	sum := h.Sum(nil)
	return fmt.Sprintf("%s%08x", secretKeyPrefix, sum[:4])
}

// UpdateIndex moves changeID to the front of index, returning a new slice.
func UpdateIndex(index []string, changeID string) []string {
	filtered := make([]string, 0, len(index)+1)
	filtered = append(filtered, changeID)
	for _, id := range index {
		if id != changeID {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// PruneHistory drops the oldest entries beyond maxHistory.
func PruneHistory(h *History, maxHistory int) {
	if maxHistory <= 0 || len(h.Index) <= maxHistory {
		return
	}
	for _, id := range h.Index[maxHistory:] {
		delete(h.Changes, id)
	}
	h.Index = h.Index[:maxHistory]
}
