package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"promptlib/internal/logging"
)

// LogUsage appends a usage event. When a rating is present the log insert and
// the score update commit in one transaction; a missing prompt rolls both
// back, so no orphaned rated log is ever visible.
//
// Scoring is a plain incremental mean: newAvg = (avg*count + r) / (count+1).
func (s *Store) LogUsage(in LogUsageInput) error {
	timer := logging.StartTimer(logging.CategoryUsage, "LogUsage")
	defer timer.Stop()

	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5, got %d", ErrValidation, *in.Rating)
	}

	payload := "{}"
	if len(in.InputVars) > 0 {
		if !json.Valid(in.InputVars) {
			return fmt.Errorf("%w: input payload is not valid JSON", ErrValidation)
		}
		payload = string(in.InputVars)
	}

	now := nowStamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Rating == nil {
		// No feedback: plain append, score fields untouched.
		_, err := s.db.Exec(`
			INSERT INTO usage_logs (prompt_id, input_vars, output_text, rating, used_at)
			VALUES (?, ?, ?, NULL, ?)`,
			in.PromptID, payload, in.OutputText, now)
		if err != nil {
			logging.Get(logging.CategoryUsage).Error("Failed to insert usage log for prompt %d: %v", in.PromptID, err)
			return fmt.Errorf("failed to insert usage log: %w", err)
		}
		logging.UsageDebug("Logged unrated usage for prompt %d", in.PromptID)
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer tx.Rollback()

	// Resolve the prompt before touching the ledger so a bad id surfaces as
	// a not-found rather than a constraint failure.
	var avg float64
	var count int64
	err = tx.QueryRow("SELECT score_avg, score_count FROM prompts WHERE id = ?", in.PromptID).Scan(&avg, &count)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: id=%d", ErrNotFound, in.PromptID)
	}
	if err != nil {
		return fmt.Errorf("failed to read score for prompt %d: %w", in.PromptID, err)
	}

	_, err = tx.Exec(`
		INSERT INTO usage_logs (prompt_id, input_vars, output_text, rating, used_at)
		VALUES (?, ?, ?, ?, ?)`,
		in.PromptID, payload, in.OutputText, *in.Rating, now)
	if err != nil {
		logging.Get(logging.CategoryUsage).Error("Failed to insert usage log for prompt %d: %v", in.PromptID, err)
		return fmt.Errorf("failed to insert usage log: %w", err)
	}

	nextCount := count + 1
	nextAvg := (avg*float64(count) + float64(*in.Rating)) / float64(nextCount)

	_, err = tx.Exec(`
		UPDATE prompts
		SET score_avg = ?, score_count = ?, updated_at = ?
		WHERE id = ?`,
		nextAvg, nextCount, now, in.PromptID)
	if err != nil {
		return fmt.Errorf("failed to update score for prompt %d: %w", in.PromptID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage transaction: %w", err)
	}

	logging.Usage("Logged usage for prompt %d: rating=%d avg=%.3f count=%d",
		in.PromptID, *in.Rating, nextAvg, nextCount)
	return nil
}
