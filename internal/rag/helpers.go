package rag

import (
	"context"
	"net/http"
	"time"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/internal/metrics"
	"github.com/tatce/ObecRAG/internal/rag/assemble"
	"github.com/tatce/ObecRAG/internal/rag/embedding"
	"github.com/tatce/ObecRAG/internal/rag/kbstore"
	"github.com/tatce/ObecRAG/internal/rag/retriever"
	"github.com/tatce/ObecRAG/internal/rag/stream"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessQuery", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeDateParseStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, now time.Time) *kbModel.DateWindow {
	*job = logOutput(*job, jobModel.DateParseCall, log)

	if s.dateParser == nil {
		return nil
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("date_extraction", time.Since(start)) }()

	return s.dateParser.Extract(ctx, job.JobPayload.Question, now)
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, embedder embedding.Embedder, prompt string) ([]float64, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return embedder.GetEmbedding(ctx, prompt)
}

func (s *service) executeRetrievalStep(log *logger_i.Logger, job *jobModel.Job, queryEmbedding []float64, base *kbstore.Store, window *kbModel.DateWindow) []kbModel.ScoredChunk {
	*job = logOutput(*job, jobModel.Retrieval, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	ranked := retriever.Retrieve(queryEmbedding, base.Chunks(), config.TopNChunks, config.SimilarityThreshold, window)
	log.Debug("ProcessQuery", "retrieved chunks", len(ranked))
	return ranked
}

func (s *service) executeContextBuildStep(log *logger_i.Logger, job *jobModel.Job, ranked []kbModel.ScoredChunk) string {
	*job = logOutput(*job, jobModel.ContextBuild, log)
	return assemble.Context(ranked)
}

func (s *service) executeStreamStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, contextText string, history string, prompt string, sink stream.Sink) (string, error) {
	*job = logOutput(*job, jobModel.LLMStreamCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_stream", time.Since(start)) }()

	streamer := stream.New(s.llmProvider)
	messages := stream.ComposeMessages(contextText, history, prompt)
	return streamer.Stream(ctx, messages, countingSink{sink})
}

// countingSink feeds the segment counter without the streamer knowing
// about metrics.
type countingSink struct {
	stream.Sink
}

func (c countingSink) Send(segment string) error {
	metrics.CountStreamedSegment()
	return c.Sink.Send(segment)
}
