package kbstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

// Store holds the whole knowledge base in memory. It is read-only between
// swaps, so any number of requests can retrieve against it concurrently.
// Refresh is a whole-store replace, never an in-place mutation.
type Store struct {
	mu       sync.RWMutex
	appendMu sync.Mutex
	chunks   []kbModel.Chunk
	logger   *logger_i.Logger
}

func New() *Store {
	return &Store{logger: logger_i.NewLogger("KnowledgeBase")}
}

// Load reads the serialized chunk collection. All-or-nothing: a missing or
// malformed file leaves the store empty and returns the error. Callers treat
// an empty store as "no context available", not as a fatal condition.
// Embedding dimensionality is not validated here - a single corrupt chunk
// should not invalidate the whole base, mismatches surface per-chunk at
// retrieval time.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		s.replace(nil)
		s.logger.Error("Failed to read knowledge base file", "path", path, "error", err)
		return fmt.Errorf("read knowledge base %s: %w", path, err)
	}

	var chunks []kbModel.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		s.replace(nil)
		s.logger.Error("Failed to parse knowledge base file", "path", path, "error", err)
		return fmt.Errorf("parse knowledge base %s: %w", path, err)
	}

	s.replace(chunks)
	s.logger.Info("Knowledge base loaded", "path", path, "chunks", len(chunks))
	return nil
}

// Chunks returns the current collection. The slice must be treated as
// read-only; it may be shared by concurrent retrievals.
func (s *Store) Chunks() []kbModel.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Swap replaces the whole collection after a rebuild. In-flight retrievals
// keep reading the slice they already hold.
func (s *Store) Swap(chunks []kbModel.Chunk) {
	s.replace(chunks)
	s.logger.Info("Knowledge base swapped", "chunks", len(chunks))
}

// AppendAndPersist merges new chunks into the base, renumbers them to
// continue the existing ids, writes the merged collection and swaps it in.
// The whole merge is serialized: concurrent ingests would otherwise drop
// each other's chunks, collide on ids and race the tmp file rename.
func (s *Store) AppendAndPersist(path string, chunks []kbModel.Chunk) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	current := s.Chunks()
	merged := make([]kbModel.Chunk, 0, len(current)+len(chunks))
	merged = append(merged, current...)
	for i, chunk := range chunks {
		chunk.ID = kbModel.ChunkID(len(current) + i + 1)
		merged = append(merged, chunk)
	}

	if err := Persist(path, merged); err != nil {
		return err
	}
	s.replace(merged)
	s.logger.Info("Knowledge base extended", "added", len(chunks), "chunks", len(merged))
	return nil
}

func (s *Store) replace(chunks []kbModel.Chunk) {
	s.mu.Lock()
	s.chunks = chunks
	s.mu.Unlock()
}

// Persist writes the collection next to the live file and renames it into
// place, so a crashed write never corrupts the base.
func Persist(path string, chunks []kbModel.Chunk) error {
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("encode knowledge base: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write knowledge base: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace knowledge base: %w", err)
	}
	return nil
}
