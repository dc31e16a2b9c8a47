package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tatce/ObecRAG/internal/config"
	jobmodel "github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/metrics"
)

// executeJob runs one queued ingest job end to end. Only ingest jobs land
// here; chat queries stream synchronously on the request goroutine.
func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.IngestProcessTimeout)
	defer cancel()
	jobLogger := logger.With("trace Id ", job.TraceId)
	jobLogger.Debug("Processing job:", "job Id:", job.Id)

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job)

	job.CurrentStep = jobmodel.IngestProcessing
	job = _ragService.IngestDocument(ctx, job)

	job.EndTime = time.Now()
	saveJobState(ctx, job)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job status", "err", err)
	}
}
