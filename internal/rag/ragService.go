package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/internal/metrics"
	"github.com/tatce/ObecRAG/internal/rag/assemble"
	"github.com/tatce/ObecRAG/internal/rag/embedding"
	"github.com/tatce/ObecRAG/internal/rag/ingest"
	"github.com/tatce/ObecRAG/internal/rag/kbstore"
	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/internal/rag/stream"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract.
  - Handlers and workers call this without knowing which model, embedder
    or knowledge base sits behind it.

2. service (Private Struct):
  - This is the PRIVATE implementation.
  - It holds the state (knowledge bases, LLM client, embedders).
  - Lowercase so external packages cannot reach the dependencies directly.

3. Pointer Receiver (*service):
  - By defining methods on (*service), the struct IMPLICITLY satisfies
    the Service interface.

4. Dependency Injection (NewService):
  - The constructor links the private struct to the public interface, so
    tests swap real clients for mocks without touching caller code.
*/

// DateExtractor infers an optional date window from a question.
type DateExtractor interface {
	Extract(ctx context.Context, query string, referenceTime time.Time) *kbModel.DateWindow
}

// Service is all the handlers and the worker pool ever see.
type Service interface {
	ProcessQuery(ctx context.Context, job jobModel.Job, history string, sink stream.Sink) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type service struct {
	knowledgeBase    *kbstore.Store
	altKnowledgeBase *kbstore.Store
	llmProvider      llm.Provider
	dateParser       DateExtractor
	embedder         embedding.Embedder
	altEmbedder      embedding.Embedder
	kbPath           string
	logger           *logger_i.Logger
}

// NewService constructor. The alt pair (Czech model embedder plus its own
// base) may be nil; requests asking for it then fall back to the primary.
func NewService(kb *kbstore.Store, altKB *kbstore.Store, provider llm.Provider, dates DateExtractor, em embedding.Embedder, altEm embedding.Embedder, kbPath string) Service {
	return &service{
		knowledgeBase:    kb,
		altKnowledgeBase: altKB,
		llmProvider:      provider,
		dateParser:       dates,
		embedder:         em,
		altEmbedder:      altEm,
		kbPath:           kbPath,
		logger:           logger_i.NewLogger("RAG Service :"),
	}
}

// ProcessQuery runs the full pipeline for one question: date extraction,
// query embedding, retrieval, context assembly, then the streamed
// completion through the sink. Date extraction and embedding failures
// degrade (no window, no context); only a streaming failure fails the job.
func (s *service) ProcessQuery(ctx context.Context, jobt jobModel.Job, history string, sink stream.Sink) jobModel.Job {
	inMethodLogger := s.logger
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		inMethodLogger = s.logger.With("traceId", traceId, "JobId", jobt.Id)
	}

	processContext, cancel := context.WithTimeout(ctx, config.QueryProcessTimeout)
	defer cancel()

	now := time.Now()
	jobt.Status = jobModel.JobStatusRunning

	// Date window (degrades to an empty window)
	window := s.executeDateParseStep(processContext, inMethodLogger, &jobt, now)

	// The model answers relative to "now", so the question carries it
	timedPrompt := fmt.Sprintf("The current time is %s. %s", now.Format("02/01/2006 15:04:05"), jobt.JobPayload.Question)

	embedder, base := s.selectBackend(jobt.JobPayload.UseAltEmbedding)

	// Embedding failure degrades to the no-context sentinel instead of
	// failing the request
	contextText := assemble.NoContextSentinel
	queryEmbedding, err := s.executeEmbeddingStep(processContext, inMethodLogger, &jobt, embedder, timedPrompt)
	if err != nil {
		inMethodLogger.Warn("Embedding failed, answering without context", "error", err)
	} else {
		ranked := s.executeRetrievalStep(inMethodLogger, &jobt, queryEmbedding, base, window)
		jobt.JobPayload.Sources = assemble.SourceURLs(ranked)
		contextText = s.executeContextBuildStep(inMethodLogger, &jobt, ranked)
	}

	answer, err := s.executeStreamStep(processContext, inMethodLogger, &jobt, contextText, history, timedPrompt, sink)
	jobt.JobPayload.Answer = answer
	if err != nil {
		return s.jobError(jobt, err, "LLM_STREAM_FAILURE", true)
	}
	return returnOutput(jobt, answer)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	ingestContext, cancel := context.WithTimeout(ctx, config.IngestProcessTimeout)
	defer cancel()

	j := ingest.ProcessDocumentIngestion(ingestContext, job, s.embedder, s.knowledgeBase, s.kbPath)
	if j.Status != jobModel.JobStatusComplete {
		return s.jobError(j, errors.New("ingest Document Failed"), "INGESTION_FAILURE", true)
	}
	metrics.SetKnowledgeBaseSize("primary", s.knowledgeBase.Len())
	return j
}

func (s *service) selectBackend(useAlt bool) (embedding.Embedder, *kbstore.Store) {
	if useAlt && s.altEmbedder != nil && s.altKnowledgeBase != nil {
		return s.altEmbedder, s.altKnowledgeBase
	}
	return s.embedder, s.knowledgeBase
}
