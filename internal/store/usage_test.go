package store

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestLogUsage_IncrementalMean(t *testing.T) {
	s := newTestStore(t)

	p, err := s.SavePrompt(SavePromptInput{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("SavePrompt failed: %v", err)
	}

	for _, r := range []int64{4, 2} {
		rating := r
		if err := s.LogUsage(LogUsageInput{PromptID: p.ID, OutputText: "out", Rating: &rating}); err != nil {
			t.Fatalf("LogUsage(rating=%d) failed: %v", r, err)
		}
	}

	got, err := s.GetPrompt(p.ID)
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if got.ScoreCount != 2 {
		t.Errorf("ScoreCount = %d, want 2", got.ScoreCount)
	}
	if math.Abs(got.ScoreAvg-3.0) > 1e-9 {
		t.Errorf("ScoreAvg = %v, want 3.0", got.ScoreAvg)
	}
	if !got.UpdatedAt.After(p.UpdatedAt) && !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("rating did not refresh updated_at: %v -> %v", p.UpdatedAt, got.UpdatedAt)
	}
}

func TestLogUsage_RatingBounds(t *testing.T) {
	s := newTestStore(t)

	p, _ := s.SavePrompt(SavePromptInput{Title: "t", Content: "c"})

	for _, r := range []int64{0, 6, -1} {
		rating := r
		err := s.LogUsage(LogUsageInput{PromptID: p.ID, OutputText: "out", Rating: &rating})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("LogUsage(rating=%d) err = %v, want ErrValidation", r, err)
		}
	}

	stats, _ := s.Stats()
	if stats["usage_logs"] != 0 {
		t.Errorf("rejected ratings left %d log rows", stats["usage_logs"])
	}
	got, _ := s.GetPrompt(p.ID)
	if got.ScoreCount != 0 || got.ScoreAvg != 0 {
		t.Errorf("rejected ratings moved the score: avg=%v count=%d", got.ScoreAvg, got.ScoreCount)
	}
}

func TestLogUsage_UnratedLeavesScoreAlone(t *testing.T) {
	s := newTestStore(t)

	p, _ := s.SavePrompt(SavePromptInput{Title: "t", Content: "c"})
	rating := int64(5)
	if err := s.LogUsage(LogUsageInput{PromptID: p.ID, OutputText: "out", Rating: &rating}); err != nil {
		t.Fatalf("rated LogUsage failed: %v", err)
	}

	vars := json.RawMessage(`{"name":"world"}`)
	if err := s.LogUsage(LogUsageInput{PromptID: p.ID, InputVars: vars, OutputText: "out2"}); err != nil {
		t.Fatalf("unrated LogUsage failed: %v", err)
	}

	got, _ := s.GetPrompt(p.ID)
	if got.ScoreCount != 1 || got.ScoreAvg != 5 {
		t.Errorf("unrated usage changed the score: avg=%v count=%d", got.ScoreAvg, got.ScoreCount)
	}
	stats, _ := s.Stats()
	if stats["usage_logs"] != 2 {
		t.Errorf("expected 2 log rows, got %d", stats["usage_logs"])
	}
}

func TestLogUsage_InvalidPayload(t *testing.T) {
	s := newTestStore(t)

	p, _ := s.SavePrompt(SavePromptInput{Title: "t", Content: "c"})
	err := s.LogUsage(LogUsageInput{PromptID: p.ID, InputVars: json.RawMessage("{broken"), OutputText: "out"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("invalid payload err = %v, want ErrValidation", err)
	}
}

func TestLogUsage_RatedMissingPromptLeavesNoOrphan(t *testing.T) {
	s := newTestStore(t)

	rating := int64(3)
	err := s.LogUsage(LogUsageInput{PromptID: 404, OutputText: "out", Rating: &rating})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("rated usage for missing prompt err = %v, want ErrNotFound", err)
	}

	// The log insert from the failed transaction must not survive.
	stats, _ := s.Stats()
	if stats["usage_logs"] != 0 {
		t.Errorf("orphaned usage log committed: %d rows", stats["usage_logs"])
	}
}
