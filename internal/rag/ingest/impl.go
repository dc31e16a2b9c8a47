package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/internal/rag/chunker"
	"github.com/tatce/ObecRAG/internal/rag/embedding"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

type docType string

const (
	docTypePDF  docType = "PDF"
	docTypeText docType = "TEXT"
	docTypeErr  docType = "ERROR"
)

const embeddingBatchSize = 100

func getDocType(docPath string) docType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return docTypePDF
	case ".docx", ".txt", ".rtf", ".odt":
		return docTypeText
	default:
		return docTypeErr
	}
}

func extractText(path string, contentType docType) ([]rawPage, error) {
	switch contentType {
	case docTypePDF:
		return extractPDF(path)
	case docTypeText:
		return extractPlainDocument(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// PrepareChunks turns extracted pages into file-extraction chunks. The id
// counter is seeded from the current store size; the store assigns the
// final ids when the chunks are merged in.
func PrepareChunks(pages []rawPage, docName string, ingestDate *string, counterSeed int) []kbModel.Chunk {
	c := chunker.NewAt(counterSeed)

	var allChunks []kbModel.Chunk
	for _, page := range pages {
		allChunks = append(allChunks, c.ChunkDocument(page.Content, docName, docName, ingestDate)...)
	}
	return allChunks
}

// BatchEmbed fills in the embedding of every chunk, in place. One failed
// batch fails the whole ingest; a partially embedded base would be
// unsearchable for the missing chunks.
func BatchEmbed(ctx context.Context, chunks []kbModel.Chunk, embedder embedding.Embedder) error {
	logger = logger_i.NewLogger("Batch Embedding ")
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		currentBatch := chunks[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Text
		}

		logger.Debug("Starting embedding call", "batch length", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(currentBatch) {
			return fmt.Errorf("embedding batch returned %d vectors for %d chunks", len(vectors), len(currentBatch))
		}
		for j := range currentBatch {
			currentBatch[j].Embedding = vectors[j]
		}
	}
	return nil
}
