package kbstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tatce/ObecRAG/internal/domain/kbModel"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunks.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeFile(t, `[
		{"chunk_id":"chunk_000001","source_url":"https://www.tatce.cz/a","source_title":"A","source_date":"2025-03-15","source_kind":"content","text":"první odstavec","embedding":[0.1,0.2]},
		{"chunk_id":"chunk_000002","source_url":"https://www.tatce.cz/a","source_title":"A","source_date":null,"source_kind":"image_ocr","text":"druhý odstavec","embedding":[0.3,0.4],"image_url":"https://www.tatce.cz/img.jpg"}
	]`)

	s := New()
	if err := s.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	chunks := s.Chunks()
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].SourceDate == nil || *chunks[0].SourceDate != "2025-03-15" {
		t.Errorf("first chunk date: %v", chunks[0].SourceDate)
	}
	if chunks[1].SourceDate != nil {
		t.Errorf("null date should decode to nil, got %v", *chunks[1].SourceDate)
	}
	if chunks[1].ImageURL != "https://www.tatce.cz/img.jpg" {
		t.Errorf("extra attribute lost: %q", chunks[1].ImageURL)
	}
}

func TestLoad_MalformedYieldsEmptyStore(t *testing.T) {
	path := writeFile(t, `{"not":"an array"`)

	s := New()
	s.Swap([]kbModel.Chunk{{ID: "chunk_000001"}})

	if err := s.Load(path); err == nil {
		t.Fatal("expected error for malformed file")
	}
	if s.Len() != 0 {
		t.Errorf("store not emptied after failed load: %d chunks", s.Len())
	}
}

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	s := New()
	if err := s.Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if s.Len() != 0 {
		t.Errorf("store should be empty, has %d chunks", s.Len())
	}
}

func TestAppendAndPersist_ConcurrentIngests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.json")
	s := New()
	s.Swap([]kbModel.Chunk{{ID: kbModel.ChunkID(1), Text: "základ"}})

	var wg sync.WaitGroup
	for _, text := range []string{"zápis a", "zápis b"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			if err := s.AppendAndPersist(path, []kbModel.Chunk{{Text: text}}); err != nil {
				t.Errorf("AppendAndPersist(%q) failed: %v", text, err)
			}
		}(text)
	}
	wg.Wait()

	if s.Len() != 3 {
		t.Fatalf("store has %d chunks, want 3", s.Len())
	}
	seen := make(map[string]bool)
	for _, c := range s.Chunks() {
		if seen[c.ID] {
			t.Errorf("duplicate chunk id %s", c.ID)
		}
		seen[c.ID] = true
	}

	reloaded := New()
	if err := reloaded.Load(path); err != nil {
		t.Fatalf("Load after concurrent appends failed: %v", err)
	}
	if reloaded.Len() != 3 {
		t.Errorf("persisted base has %d chunks, want 3", reloaded.Len())
	}
}

func TestPersist_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.json")
	date := "2025-04-01"
	chunks := []kbModel.Chunk{
		{ID: "chunk_000001", SourceKind: kbModel.KindContent, Text: "obsah", SourceDate: &date, Embedding: []float64{1, 0}},
	}
	if err := Persist(path, chunks); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	s := New()
	if err := s.Load(path); err != nil {
		t.Fatalf("Load after Persist failed: %v", err)
	}
	got := s.Chunks()
	if len(got) != 1 || got[0].ID != "chunk_000001" || got[0].Text != "obsah" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}
