package store

import (
	"encoding/json"
	"strings"

	"promptlib/internal/logging"
)

// NormalizeTags trims each entry, drops empties, and deduplicates on a
// lower-cased key while preserving first-seen casing and first-seen order.
// The function is idempotent.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))

	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, trimmed)
	}

	return normalized
}

// encodeTags serializes a normalized tag list into the stored representation,
// a JSON array in a TEXT column.
func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		logging.StoreDebug("Failed to encode tags %v: %v", tags, err)
		return "[]"
	}
	return string(data)
}

// decodeTags parses the stored tag blob. Corrupt blobs decode to an empty
// list rather than failing the read.
func decodeTags(blob string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(blob), &tags); err != nil {
		logging.StoreDebug("Failed to decode tag blob %q: %v", blob, err)
		return nil
	}
	return tags
}

// tagSetContains reports whether the decoded tag set holds the filter value
// as a whole tag. Comparison is case-insensitive, matching tag identity
// under normalization; this is a whole-tag match, never a substring one.
func tagSetContains(tags []string, filter string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, filter) {
			return true
		}
	}
	return false
}
