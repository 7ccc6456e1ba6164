package store

import (
	"encoding/json"
	"time"
)

// Prompt is a stored reusable text artifact with metadata.
// score_avg is meaningful only when score_count > 0; a prompt that has never
// been rated reports ScoreAvg 0.
type Prompt struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	IsFavorite bool      `json:"isFavorite"`
	ScoreAvg   float64   `json:"scoreAvg"`
	ScoreCount int64     `json:"scoreCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PromptVersion is an immutable snapshot of a prompt's content.
// Versions only ever append; they are never updated or deleted individually.
type PromptVersion struct {
	ID         int64     `json:"id"`
	PromptID   int64     `json:"promptId"`
	Content    string    `json:"content"`
	ChangeNote string    `json:"changeNote"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UsageLog records one invocation of a prompt with optional feedback.
type UsageLog struct {
	ID         int64           `json:"id"`
	PromptID   int64           `json:"promptId"`
	InputVars  json.RawMessage `json:"inputVars"`
	OutputText string          `json:"outputText"`
	Rating     *int64          `json:"rating,omitempty"`
	UsedAt     time.Time       `json:"usedAt"`
}

// TagCount is one entry of the tag-frequency summary.
type TagCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// SavePromptInput carries the fields of a create-or-update call.
// A nil ID means create.
type SavePromptInput struct {
	ID         *int64
	Title      string
	Content    string
	Tags       []string
	IsFavorite bool
	ChangeNote string
}

// LogUsageInput carries one usage event. A nil Rating means no feedback.
type LogUsageInput struct {
	PromptID   int64
	InputVars  json.RawMessage
	OutputText string
	Rating     *int64
}

// ListOptions filters and orders a prompt listing. Empty fields are ignored.
type ListOptions struct {
	Search string
	Tag    string
	SortBy string // "score", "created", anything else sorts by updated_at desc
}
