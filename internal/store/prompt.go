package store

import (
	"database/sql"
	"fmt"
	"strings"

	"promptlib/internal/logging"
)

const promptColumns = "id, title, content, tags, is_favorite, score_avg, score_count, created_at, updated_at"

// Default change notes. The create/update asymmetry is deliberate.
const (
	noteInitialVersion = "initial version"
	noteContentUpdated = "content updated"
)

// SavePrompt creates a prompt when the input carries no ID, otherwise updates
// the existing one. Returns the freshly read prompt.
//
// Versioning policy on update: a new version is appended iff the content
// changed or a non-empty change note was supplied (a note forces a checkpoint
// without a text change).
func (s *Store) SavePrompt(in SavePromptInput) (*Prompt, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SavePrompt")
	defer timer.Stop()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrValidation)
	}

	tagsBlob := encodeTags(NormalizeTags(in.Tags))
	note := strings.TrimSpace(in.ChangeNote)
	now := nowStamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID != nil {
		return s.updatePrompt(*in.ID, title, in.Content, tagsBlob, in.IsFavorite, note, now)
	}
	return s.createPrompt(title, in.Content, tagsBlob, in.IsFavorite, note, now)
}

func (s *Store) createPrompt(title, content, tagsBlob string, favorite bool, note, now string) (*Prompt, error) {
	logging.StoreDebug("Creating prompt: title=%q", title)

	res, err := s.db.Exec(`
		INSERT INTO prompts (title, content, tags, is_favorite, score_avg, score_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		title, content, tagsBlob, boolToInt(favorite), now, now)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to insert prompt: %v", err)
		return nil, fmt.Errorf("failed to insert prompt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new prompt id: %w", err)
	}

	if note == "" {
		note = noteInitialVersion
	}
	if err := insertVersion(s.db, id, content, note, now); err != nil {
		return nil, err
	}

	logging.Store("Created prompt id=%d", id)
	return s.mustFetchPrompt(id)
}

func (s *Store) updatePrompt(id int64, title, content, tagsBlob string, favorite bool, note, now string) (*Prompt, error) {
	logging.StoreDebug("Updating prompt id=%d", id)

	var oldContent string
	err := s.db.QueryRow("SELECT content FROM prompts WHERE id = ?", id).Scan(&oldContent)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt %d: %w", id, err)
	}

	_, err = s.db.Exec(`
		UPDATE prompts
		SET title = ?, content = ?, tags = ?, is_favorite = ?, updated_at = ?
		WHERE id = ?`,
		title, content, tagsBlob, boolToInt(favorite), now, id)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to update prompt %d: %v", id, err)
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}

	if oldContent != content || note != "" {
		if note == "" {
			note = noteContentUpdated
		}
		if err := insertVersion(s.db, id, content, note, now); err != nil {
			return nil, err
		}
	}

	logging.Store("Updated prompt id=%d", id)
	return s.mustFetchPrompt(id)
}

// GetPrompt returns the prompt with the given id, or (nil, nil) when absent.
func (s *Store) GetPrompt(id int64) (*Prompt, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetPrompt")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fetchPrompt(s.db, id)
}

// DeletePrompt removes the prompt and, via cascade, all of its versions and
// usage logs. Deleting an absent id is a no-op.
func (s *Store) DeletePrompt(id int64) error {
	timer := logging.StartTimer(logging.CategoryStore, "DeletePrompt")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM prompts WHERE id = ?", id)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to delete prompt %d: %v", id, err)
		return fmt.Errorf("failed to delete prompt: %w", err)
	}

	affected, _ := res.RowsAffected()
	logging.Store("Deleted prompt id=%d (existed=%v)", id, affected > 0)
	return nil
}

// ListVersions returns the prompt's version history, newest first. Timestamp
// collisions break the tie on id, also descending.
func (s *Store) ListVersions(promptID int64) ([]PromptVersion, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListVersions")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return listVersions(s.db, promptID)
}

func listVersions(q dbtx, promptID int64) ([]PromptVersion, error) {
	rows, err := q.Query(`
		SELECT id, prompt_id, content, change_note, created_at
		FROM prompt_versions
		WHERE prompt_id = ?
		ORDER BY created_at DESC, id DESC`, promptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var versions []PromptVersion
	for rows.Next() {
		var v PromptVersion
		var created string
		if err := rows.Scan(&v.ID, &v.PromptID, &v.Content, &v.ChangeNote, &created); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		v.CreatedAt = parseStamp(created)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating version rows: %w", err)
	}
	return versions, nil
}

func insertVersion(q dbtx, promptID int64, content, note, createdAt string) error {
	_, err := q.Exec(`
		INSERT INTO prompt_versions (prompt_id, content, change_note, created_at)
		VALUES (?, ?, ?, ?)`,
		promptID, content, note, createdAt)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to insert version for prompt %d: %v", promptID, err)
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

// fetchPrompt reads one prompt, returning (nil, nil) when absent.
func fetchPrompt(q dbtx, id int64) (*Prompt, error) {
	row := q.QueryRow("SELECT "+promptColumns+" FROM prompts WHERE id = ? LIMIT 1", id)
	p, err := scanPromptRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt %d: %w", id, err)
	}
	return p, nil
}

// mustFetchPrompt re-reads a prompt that was just written.
func (s *Store) mustFetchPrompt(id int64) (*Prompt, error) {
	p, err := fetchPrompt(s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("failed to re-read prompt %d after write", id)
	}
	return p, nil
}

// scanPromptRow maps one prompts row onto a Prompt.
func scanPromptRow(scan func(dest ...interface{}) error) (*Prompt, error) {
	var p Prompt
	var tagsBlob, created, updated string
	var favorite int64

	err := scan(&p.ID, &p.Title, &p.Content, &tagsBlob, &favorite,
		&p.ScoreAvg, &p.ScoreCount, &created, &updated)
	if err != nil {
		return nil, err
	}

	p.Tags = decodeTags(tagsBlob)
	p.IsFavorite = favorite == 1
	p.CreatedAt = parseStamp(created)
	p.UpdatedAt = parseStamp(updated)
	return &p, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
