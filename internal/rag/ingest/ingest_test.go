package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

func TestMain(m *testing.M) {
	logger_i.Init()
	logger = logger_i.NewLogger("ingest_test")
	m.Run()
}

type mockEmbedder struct {
	batchFunc func(ctx context.Context, texts []string) ([][]float64, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	return nil, nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float64, error) {
	return m.batchFunc(ctx, texts)
}

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected docType
	}{
		{"test.pdf", docTypePDF},
		{"DOC.DOCX", docTypeText},
		{"notes.txt", docTypeText},
		{"zapis.rtf", docTypeText},
		{"image.png", docTypeErr},
	}

	for _, tt := range tests {
		if got := getDocType(tt.path); got != tt.expected {
			t.Errorf("getDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestPrepareChunks(t *testing.T) {
	pages := []rawPage{
		{Number: 1, Content: "Zápis ze zasedání zastupitelstva obce Tatce."},
		{Number: 2, Content: "Usnesení bylo přijato všemi hlasy přítomných."},
	}
	date := "2025-08-01"

	chunks := PrepareChunks(pages, "zapis.pdf", &date, 10)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks (one per page), got %d", len(chunks))
	}
	if chunks[0].ID != "chunk_000011" || chunks[1].ID != "chunk_000012" {
		t.Errorf("ids do not continue from seed: %s, %s", chunks[0].ID, chunks[1].ID)
	}
	if chunks[0].SourceKind != kbModel.KindFileExtraction {
		t.Errorf("kind = %s, want %s", chunks[0].SourceKind, kbModel.KindFileExtraction)
	}
	if chunks[0].FileURL != "zapis.pdf" || chunks[0].LinkText != "zapis.pdf" {
		t.Errorf("provenance mismatch: %+v", chunks[0])
	}
	if chunks[0].SourceDate == nil || *chunks[0].SourceDate != date {
		t.Errorf("date not carried: %+v", chunks[0].SourceDate)
	}
}

func TestBatchEmbed(t *testing.T) {
	chunks := make([]kbModel.Chunk, 150) // 2 batches (100 + 50)
	for i := range chunks {
		chunks[i] = kbModel.Chunk{Text: "test content"}
	}

	callCount := 0
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			callCount++
			vectors := make([][]float64, len(texts))
			for i := range vectors {
				vectors[i] = []float64{0.1, 0.2}
			}
			return vectors, nil
		},
	}

	if err := BatchEmbed(context.Background(), chunks, emb); err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 batches, got %d", callCount)
	}
	for i, c := range chunks {
		if len(c.Embedding) != 2 {
			t.Fatalf("chunk %d missing embedding", i)
		}
	}
}

func TestBatchEmbed_Error(t *testing.T) {
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			return nil, errors.New("embedding failed")
		},
	}

	err := BatchEmbed(context.Background(), []kbModel.Chunk{{Text: "hi"}}, emb)
	if err == nil {
		t.Error("expected error from BatchEmbed, got nil")
	}
}

func TestBatchEmbed_CountMismatch(t *testing.T) {
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			return [][]float64{}, nil
		},
	}

	err := BatchEmbed(context.Background(), []kbModel.Chunk{{Text: "hi"}}, emb)
	if err == nil {
		t.Error("expected error on vector count mismatch, got nil")
	}
}
