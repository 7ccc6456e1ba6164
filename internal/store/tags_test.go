package store

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"case-insensitive dedupe keeps first casing", []string{"A", " a ", "b"}, []string{"A", "b"}},
		{"drops empty and whitespace-only", []string{"", "  ", "go"}, []string{"go"}},
		{"preserves first-seen order", []string{"zeta", "alpha", "ZETA"}, []string{"zeta", "alpha"}},
		{"trims entries", []string{"  sql  ", "sql"}, []string{"sql"}},
		{"empty input", nil, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTags(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeTags_Idempotent(t *testing.T) {
	in := []string{"A", " a ", "b", "", "C ", "c"}
	once := NormalizeTags(in)
	twice := NormalizeTags(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("normalize not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestEncodeDecodeTags(t *testing.T) {
	tags := []string{"Go", "sql", "prompt engineering"}
	blob := encodeTags(tags)

	got := decodeTags(blob)
	if !reflect.DeepEqual(got, tags) {
		t.Errorf("decode(encode(%v)) = %v", tags, got)
	}

	if encodeTags(nil) != "[]" {
		t.Errorf("encodeTags(nil) = %q, want []", encodeTags(nil))
	}
	if got := decodeTags("not json"); got != nil {
		t.Errorf("decodeTags of corrupt blob = %v, want nil", got)
	}
}

func TestTagSetContains(t *testing.T) {
	tags := []string{"AI", "ai-ml", "Go"}

	if !tagSetContains(tags, "ai") {
		t.Error("expected case-insensitive whole-tag match for \"ai\"")
	}
	if tagSetContains([]string{"ai-ml"}, "ai") {
		t.Error("\"ai\" must not match a prompt tagged only \"ai-ml\"")
	}
	if tagSetContains(tags, "a") {
		t.Error("substring \"a\" must not match any whole tag")
	}
}
