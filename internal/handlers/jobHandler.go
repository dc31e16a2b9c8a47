package handlers

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tatce/ObecRAG/internal/adapter"
	"github.com/tatce/ObecRAG/internal/adapter/utils"
	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/job"
	"github.com/tatce/ObecRAG/internal/metrics"
	"github.com/tatce/ObecRAG/internal/rag"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
}

func InitJobHandler(jobService *job.Service, ragService rag.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// queueIngestJob hands the uploaded document to the worker pool and tells
// the caller where to poll. Only ingest runs through the queue; chat streams
// on the request goroutine.
func queueIngestJob(r *http.Request, w http.ResponseWriter, newJob newJobData) {
	newJob.id = utils.GetNewUUID()
	logJH.Info("To create new ingest job", "traceId", newJob.traceId, "job id", newJob.id)
	handlerInstance.pushToJobChannel(newJob)
	res := adapter.ToInitJobResponse(newJob.id)
	writeJsonResponse(w, http.StatusAccepted, res)
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.CurrentStep = jobModel.IngestInit
	_job.JobType = jobModel.JobTypeIngest
	_job.JobPayload.IngestFileName = newJob.documentName
	_job.JobPayload.IngestURL = newJob.documentSource

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new ingest job")

	//ingestion involves batch embedding calls which take a while, so every
	//queued document may bring up an extra worker; idle workers retire on
	//their own
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count ", "count", accurateCount)
		h.service.DispatcherChannel <- true
	}
}
