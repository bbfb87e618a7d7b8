package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func writeInput(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadRecords(t *testing.T) {
	path := writeInput(t, `{"word":"cat","emb":[1,0]}
{"word":"dog","emb":[0.9,0.1]}

{"word":"submarine","emb":[-1,0]}
`)
	records, err := readRecords(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[1].Word != "dog" || records[1].Emb[1] != 0.1 {
		t.Fatalf("record parsed wrong: %+v", records[1])
	}
}

func TestReadRecordsSchemaError(t *testing.T) {
	path := writeInput(t, `{"word":"cat","emb":[1,0]}
{"word": 12, "emb": "nope"}
`)
	if _, err := readRecords(path); err == nil {
		t.Fatal("expected a schema error")
	}
}

func TestExactMatcherOrdersByDotProduct(t *testing.T) {
	records := []inRecord{
		{Word: "cat", Emb: []float32{1, 0}},
		{Word: "dog", Emb: []float32{0.9, 0.1}},
		{Word: "submarine", Emb: []float32{-1, 0}},
	}
	nearestK = 3
	nearestDist = 0 // dot product

	matchesFor, err := exactMatcher(records, 2)
	if err != nil {
		t.Fatal(err)
	}
	matches, err := matchesFor(records[0].Emb)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	// A word matches itself first; the most dissimilar word comes last.
	if matches[0] != "cat" || matches[2] != "submarine" {
		t.Fatalf("matches out of order: %v", matches)
	}
}
