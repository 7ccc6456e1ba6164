package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"promptlib/internal/logging"
)

// Default change notes for imported material. Distinct from the live-edit
// defaults in prompt.go on purpose.
const (
	noteImportedVersion = "imported version"
	noteImported        = "imported"
)

// ExportVersionItem is one version entry in the snapshot wire format.
// IDs are omitted; they are re-assigned on import.
type ExportVersionItem struct {
	Content    string `json:"content"`
	ChangeNote string `json:"changeNote"`
	CreatedAt  string `json:"createdAt"`
}

// ExportPromptItem is one prompt entry in the snapshot wire format.
type ExportPromptItem struct {
	Title      string              `json:"title"`
	Content    string              `json:"content"`
	Tags       []string            `json:"tags"`
	IsFavorite bool                `json:"isFavorite"`
	ScoreAvg   float64             `json:"scoreAvg"`
	ScoreCount int64               `json:"scoreCount"`
	Versions   []ExportVersionItem `json:"versions"`
}

// ExportPayload is the complete self-describing snapshot.
type ExportPayload struct {
	ExportedAt string             `json:"exportedAt"`
	Prompts    []ExportPromptItem `json:"prompts"`
}

// Import-side shapes. Pointer fields distinguish "absent" from zero values.
type importVersionItem struct {
	Content    string  `json:"content"`
	ChangeNote *string `json:"changeNote"`
	CreatedAt  *string `json:"createdAt"`
}

type importPromptItem struct {
	Title      string              `json:"title"`
	Content    string              `json:"content"`
	Tags       []string            `json:"tags"`
	IsFavorite *bool               `json:"isFavorite"`
	ScoreAvg   *float64            `json:"scoreAvg"`
	ScoreCount *int64              `json:"scoreCount"`
	Versions   []importVersionItem `json:"versions"`
}

// ExportJSON serializes the full store, prompts ordered by updated_at
// descending, each with its complete version history.
func (s *Store) ExportJSON() (string, error) {
	timer := logging.StartTimer(logging.CategorySnapshot, "ExportJSON")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT " + promptColumns + " FROM prompts ORDER BY updated_at DESC")
	if err != nil {
		logging.Get(logging.CategorySnapshot).Error("Failed to query prompts for export: %v", err)
		return "", fmt.Errorf("failed to query prompts for export: %w", err)
	}

	var prompts []Prompt
	for rows.Next() {
		p, err := scanPromptRow(rows.Scan)
		if err != nil {
			rows.Close()
			return "", fmt.Errorf("failed to scan prompt row: %w", err)
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return "", fmt.Errorf("error iterating prompt rows: %w", err)
	}
	rows.Close()

	items := make([]ExportPromptItem, 0, len(prompts))
	for _, p := range prompts {
		versions, err := listVersions(s.db, p.ID)
		if err != nil {
			return "", err
		}
		versionItems := make([]ExportVersionItem, 0, len(versions))
		for _, v := range versions {
			versionItems = append(versionItems, ExportVersionItem{
				Content:    v.Content,
				ChangeNote: v.ChangeNote,
				CreatedAt:  v.CreatedAt.UTC().Format(time.RFC3339Nano),
			})
		}
		items = append(items, ExportPromptItem{
			Title:      p.Title,
			Content:    p.Content,
			Tags:       p.Tags,
			IsFavorite: p.IsFavorite,
			ScoreAvg:   p.ScoreAvg,
			ScoreCount: p.ScoreCount,
			Versions:   versionItems,
		})
	}

	payload := ExportPayload{ExportedAt: nowStamp(), Prompts: items}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	logging.Snapshot("Exported %d prompts", len(items))
	return string(data), nil
}

// ImportJSON merges a snapshot into the store. It accepts either the wrapped
// object form ({"exportedAt": ..., "prompts": [...]}) or a bare list of
// prompt items; the variant is resolved once at parse time.
//
// The whole batch runs in a single transaction: items failing validation are
// silently skipped, but any storage failure rolls back every insert. Returns
// the count of prompts imported.
func (s *Store) ImportJSON(data string) (int, error) {
	timer := logging.StartTimer(logging.CategorySnapshot, "ImportJSON")
	defer timer.Stop()

	items, err := parseSnapshot([]byte(data))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	imported := 0
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" || strings.TrimSpace(item.Content) == "" {
			logging.SnapshotDebug("Skipping invalid import item: title=%q", item.Title)
			continue
		}

		tagsBlob := encodeTags(NormalizeTags(item.Tags))
		now := nowStamp()

		scoreCount := int64(0)
		if item.ScoreCount != nil && *item.ScoreCount > 0 {
			scoreCount = *item.ScoreCount
		}
		scoreAvg := 0.0
		if scoreCount > 0 && item.ScoreAvg != nil {
			scoreAvg = *item.ScoreAvg
		}
		favorite := item.IsFavorite != nil && *item.IsFavorite

		// Imported content is newly arriving data: original timestamps are
		// not carried onto the prompt row.
		res, err := tx.Exec(`
			INSERT INTO prompts (title, content, tags, is_favorite, score_avg, score_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			title, item.Content, tagsBlob, boolToInt(favorite), scoreAvg, scoreCount, now, now)
		if err != nil {
			logging.Get(logging.CategorySnapshot).Error("Import insert failed: %v", err)
			return 0, fmt.Errorf("failed to insert imported prompt: %w", err)
		}
		promptID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read imported prompt id: %w", err)
		}

		insertedVersion := false
		for _, v := range item.Versions {
			if strings.TrimSpace(v.Content) == "" {
				continue
			}
			note := noteImportedVersion
			if v.ChangeNote != nil {
				note = *v.ChangeNote
			}
			createdAt := nowStamp()
			if v.CreatedAt != nil {
				if t := parseStamp(*v.CreatedAt); !t.IsZero() {
					createdAt = t.UTC().Format(time.RFC3339Nano)
				}
			}
			if err := insertVersion(tx, promptID, v.Content, note, createdAt); err != nil {
				return 0, err
			}
			insertedVersion = true
		}

		// Every prompt carries at least one version.
		if !insertedVersion {
			if err := insertVersion(tx, promptID, item.Content, noteImported, nowStamp()); err != nil {
				return 0, err
			}
		}

		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import transaction: %w", err)
	}

	logging.Snapshot("Imported %d prompts", imported)
	return imported, nil
}

// parseSnapshot resolves the wrapped-vs-flat payload variant. No mutation
// happens before this returns.
func parseSnapshot(data []byte) ([]importPromptItem, error) {
	var wrapped struct {
		Prompts []importPromptItem `json:"prompts"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Prompts != nil {
		return wrapped.Prompts, nil
	}

	var flat []importPromptItem
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	return nil, fmt.Errorf("%w: expected an object with a prompts list or a bare list", ErrBadSnapshot)
}
