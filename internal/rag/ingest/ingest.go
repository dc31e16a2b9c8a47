package ingest

import (
	"context"
	"os"
	"time"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/rag/embedding"
	"github.com/tatce/ObecRAG/internal/rag/kbstore"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

var logger *logger_i.Logger

// ProcessDocumentIngestion extracts an uploaded document, chunks and embeds
// it, and merges the result into the live knowledge base. The new base is
// persisted before the in-memory store is swapped, so a crash mid-ingest
// never leaves the two out of sync.
func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, e embedding.Embedder, store *kbstore.Store, kbPath string) jobModel.Job {
	logger = logger_i.NewLogger("Document Ingestion ")
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		logger = logger.With("traceId", traceId)
	}

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL

	logger.Debug("Processing document", "filename", docName, "path", docPath)

	job.CurrentStep = jobModel.IngestProcessing
	docType := getDocType(docPath)
	logger.Debug("Processing document", "type", docType)
	if docType == docTypeErr {
		logger.Error("Unsupported document type", "path", docPath)
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Unsupported document type"
		return job
	}

	rawPages, err := extractText(docPath, docType)
	if err != nil {
		logger.Error("Error processing document", "error", err)
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Error extracting document content"
		return job
	}

	logger.Debug("Processing document", "Number of raw pages: ", len(rawPages))
	ingestDate := time.Now().Format("2006-01-02")
	chunks := PrepareChunks(rawPages, docName, &ingestDate, store.Len())
	if len(chunks) == 0 {
		logger.Error("Document produced no chunks", "filename", docName)
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Document is empty"
		return job
	}

	logger.Debug("Processing document", "Number of chunks: ", len(chunks))
	if err := BatchEmbed(ctx, chunks, e); err != nil {
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Error embedding document content"
		logger.Error("Error processing document", "error", err)
		return job
	}

	if err := store.AppendAndPersist(kbPath, chunks); err != nil {
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Error persisting knowledge base"
		logger.Error("Error persisting knowledge base", "error", err)
		return job
	}

	if err := os.Remove(docPath); err != nil {
		logger.Error("Error removing file", "error", err)
	}
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}
