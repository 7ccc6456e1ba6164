package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestStore(t)

	a, err := src.SavePrompt(SavePromptInput{
		Title:      "Summarizer",
		Content:    "v1",
		Tags:       []string{"writing", "ai"},
		IsFavorite: true,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := src.SavePrompt(SavePromptInput{ID: &a.ID, Title: "Summarizer", Content: "v2", ChangeNote: "tightened"}); err != nil {
		t.Fatalf("seed update failed: %v", err)
	}
	rating := int64(4)
	if err := src.LogUsage(LogUsageInput{PromptID: a.ID, OutputText: "out", Rating: &rating}); err != nil {
		t.Fatalf("seed rating failed: %v", err)
	}
	if _, err := src.SavePrompt(SavePromptInput{Title: "Classifier", Content: "label the input"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	data, err := src.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	dst := newTestStore(t)
	imported, err := dst.ImportJSON(data)
	if err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}
	if imported != 2 {
		t.Fatalf("imported = %d, want 2", imported)
	}

	type shape struct {
		Title      string
		Content    string
		Tags       []string
		IsFavorite bool
		ScoreAvg   float64
		ScoreCount int64
		Versions   []string
		Notes      []string
	}
	snapshot := func(s *Store) []shape {
		t.Helper()
		prompts, err := s.ListPrompts(ListOptions{SortBy: "score"})
		if err != nil {
			t.Fatalf("ListPrompts failed: %v", err)
		}
		out := make([]shape, 0, len(prompts))
		for _, p := range prompts {
			versions, err := s.ListVersions(p.ID)
			if err != nil {
				t.Fatalf("ListVersions failed: %v", err)
			}
			sh := shape{
				Title:      p.Title,
				Content:    p.Content,
				Tags:       p.Tags,
				IsFavorite: p.IsFavorite,
				ScoreAvg:   p.ScoreAvg,
				ScoreCount: p.ScoreCount,
			}
			for _, v := range versions {
				sh.Versions = append(sh.Versions, v.Content)
				sh.Notes = append(sh.Notes, v.ChangeNote)
			}
			out = append(out, sh)
		}
		return out
	}

	if diff := cmp.Diff(snapshot(src), snapshot(dst)); diff != "" {
		t.Errorf("round trip diverged (-src +dst):\n%s", diff)
	}
}

func TestExportJSON_Shape(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SavePrompt(SavePromptInput{Title: "t", Content: "c", Tags: []string{"x"}}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	data, err := s.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var payload ExportPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if payload.ExportedAt == "" {
		t.Error("exportedAt missing")
	}
	if len(payload.Prompts) != 1 || len(payload.Prompts[0].Versions) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Prompts[0].Versions[0].ChangeNote != "initial version" {
		t.Errorf("version note = %q", payload.Prompts[0].Versions[0].ChangeNote)
	}
}

func TestImportJSON_AcceptsBothShapes(t *testing.T) {
	wrapped := `{"exportedAt":"2026-01-01T00:00:00Z","prompts":[{"title":"a","content":"b"}]}`
	flat := `[{"title":"a","content":"b"}]`

	for name, payload := range map[string]string{"wrapped": wrapped, "flat": flat} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			imported, err := s.ImportJSON(payload)
			if err != nil {
				t.Fatalf("ImportJSON failed: %v", err)
			}
			if imported != 1 {
				t.Fatalf("imported = %d, want 1", imported)
			}

			prompts, _ := s.ListPrompts(ListOptions{})
			if len(prompts) != 1 || prompts[0].Title != "a" {
				t.Fatalf("unexpected prompts: %+v", prompts)
			}
			// No version list in the item, so a single synthesized one.
			versions, _ := s.ListVersions(prompts[0].ID)
			if len(versions) != 1 || versions[0].ChangeNote != "imported" {
				t.Errorf("synthesized version = %+v", versions)
			}
		})
	}
}

func TestImportJSON_SkipsInvalidItems(t *testing.T) {
	s := newTestStore(t)

	payload := `[
		{"title":"", "content":"body"},
		{"title":"  ", "content":"body"},
		{"title":"ok", "content":""},
		{"title":"keeper", "content":"body", "tags":["A"," a ","b"]}
	]`
	imported, err := s.ImportJSON(payload)
	if err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}
	if imported != 1 {
		t.Errorf("imported = %d, want 1", imported)
	}

	prompts, _ := s.ListPrompts(ListOptions{})
	if len(prompts) != 1 || prompts[0].Title != "keeper" {
		t.Fatalf("unexpected prompts: %+v", prompts)
	}
	if diff := cmp.Diff([]string{"A", "b"}, prompts[0].Tags); diff != "" {
		t.Errorf("imported tags not normalized:\n%s", diff)
	}
}

func TestImportJSON_ScoreHygiene(t *testing.T) {
	s := newTestStore(t)

	payload := `[
		{"title":"negative count", "content":"c", "scoreAvg": 4.5, "scoreCount": -3},
		{"title":"avg without count", "content":"c", "scoreAvg": 4.5},
		{"title":"carried", "content":"c", "scoreAvg": 3.25, "scoreCount": 8}
	]`
	if _, err := s.ImportJSON(payload); err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}

	prompts, _ := s.ListPrompts(ListOptions{})
	byTitle := map[string]Prompt{}
	for _, p := range prompts {
		byTitle[p.Title] = p
	}

	if p := byTitle["negative count"]; p.ScoreAvg != 0 || p.ScoreCount != 0 {
		t.Errorf("negative count not zeroed: avg=%v count=%d", p.ScoreAvg, p.ScoreCount)
	}
	if p := byTitle["avg without count"]; p.ScoreAvg != 0 || p.ScoreCount != 0 {
		t.Errorf("dangling avg not zeroed: avg=%v count=%d", p.ScoreAvg, p.ScoreCount)
	}
	if p := byTitle["carried"]; p.ScoreAvg != 3.25 || p.ScoreCount != 8 {
		t.Errorf("consistent score not carried: avg=%v count=%d", p.ScoreAvg, p.ScoreCount)
	}
}

func TestImportJSON_VersionNoteDefaults(t *testing.T) {
	s := newTestStore(t)

	payload := `[{
		"title":"t", "content":"c",
		"versions":[
			{"content":"v1"},
			{"content":"v2", "changeNote":""},
			{"content":"v3", "changeNote":"named"},
			{"content":"   "}
		]
	}]`
	if _, err := s.ImportJSON(payload); err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}

	prompts, _ := s.ListPrompts(ListOptions{})
	versions, _ := s.ListVersions(prompts[0].ID)
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions (blank one dropped), got %d", len(versions))
	}

	notes := map[string]string{}
	for _, v := range versions {
		notes[v.Content] = v.ChangeNote
	}
	// Absent note defaults; a present-but-empty note is kept as written.
	if notes["v1"] != "imported version" {
		t.Errorf("v1 note = %q", notes["v1"])
	}
	if notes["v2"] != "" {
		t.Errorf("v2 note = %q, want empty", notes["v2"])
	}
	if notes["v3"] != "named" {
		t.Errorf("v3 note = %q", notes["v3"])
	}
}

func TestImportJSON_ParseErrorBeforeMutation(t *testing.T) {
	s := newTestStore(t)

	for _, payload := range []string{"not json", "{}", `{"prompts": null}`, `42`} {
		if _, err := s.ImportJSON(payload); !errors.Is(err, ErrBadSnapshot) {
			t.Errorf("ImportJSON(%q) err = %v, want ErrBadSnapshot", payload, err)
		}
	}

	stats, _ := s.Stats()
	if stats["prompts"] != 0 {
		t.Errorf("bad payloads left %d prompts", stats["prompts"])
	}
}

func TestImportJSON_StorageFailureRollsBackBatch(t *testing.T) {
	s := newTestStore(t)

	// Sabotage the version table so the second item's insert fails mid-batch.
	if _, err := s.db.Exec("DROP TABLE prompt_versions"); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	payload := `[{"title":"a","content":"b"},{"title":"c","content":"d"}]`
	if _, err := s.ImportJSON(payload); err == nil {
		t.Fatal("expected storage error")
	}

	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM prompts").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("partial import committed %d prompts", count)
	}
}
