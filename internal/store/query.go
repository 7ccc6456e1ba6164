package store

import (
	"fmt"
	"sort"
	"strings"

	"promptlib/internal/logging"
)

// ListPrompts returns prompts matching the given filters, which AND-compose.
//
// Search is simple substring containment (SQL LIKE, so the operator's case
// rules apply) over title, content, and the encoded tag blob. The tag filter
// matches against the decoded tag set as a whole tag, never as a substring:
// filtering on "ai" does not match a prompt tagged only "ai-ml".
func (s *Store) ListPrompts(opts ListOptions) ([]Prompt, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "ListPrompts")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("SELECT " + promptColumns + " FROM prompts WHERE 1 = 1")
	var args []interface{}

	if search := strings.TrimSpace(opts.Search); search != "" {
		sb.WriteString(" AND (title LIKE ? OR content LIKE ? OR tags LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	switch opts.SortBy {
	case "score":
		sb.WriteString(" ORDER BY score_avg DESC, updated_at DESC")
	case "created":
		sb.WriteString(" ORDER BY created_at DESC")
	default:
		sb.WriteString(" ORDER BY updated_at DESC")
	}

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		logging.Get(logging.CategoryQuery).Error("Failed to list prompts: %v", err)
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	tagFilter := strings.TrimSpace(opts.Tag)

	var prompts []Prompt
	for rows.Next() {
		p, err := scanPromptRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt row: %w", err)
		}
		if tagFilter != "" && !tagSetContains(p.Tags, tagFilter) {
			continue
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompt rows: %w", err)
	}

	logging.QueryDebug("ListPrompts: search=%q tag=%q sort=%q -> %d rows",
		opts.Search, opts.Tag, opts.SortBy, len(prompts))
	return prompts, nil
}

// ListTags aggregates tag occurrence counts across all prompts, sorted by
// count descending, then name ascending.
func (s *Store) ListTags() ([]TagCount, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "ListTags")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT tags FROM prompts")
	if err != nil {
		logging.Get(logging.CategoryQuery).Error("Failed to scan tags: %v", err)
		return nil, fmt.Errorf("failed to scan tags: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan tag blob: %w", err)
		}
		for _, tag := range decodeTags(blob) {
			counts[tag]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	tags := make([]TagCount, 0, len(counts))
	for name, count := range counts {
		tags = append(tags, TagCount{Name: name, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})

	logging.QueryDebug("ListTags: %d distinct tags", len(tags))
	return tags, nil
}
