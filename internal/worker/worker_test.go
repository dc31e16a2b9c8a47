package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/job"
	"github.com/tatce/ObecRAG/internal/rag/stream"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

// MockRagService tracks whether jobs are executed
type MockRagService struct {
	ProcessedCount int32
}

func (m *MockRagService) ProcessQuery(ctx context.Context, j jobModel.Job, history string, sink stream.Sink) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	j.Status = jobModel.JobStatusComplete
	return j
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error

	mu    sync.Mutex
	saved []jobModel.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

type MockMessageStore struct{}

func (m *MockMessageStore) ValidateChatId(ctx context.Context, id string) bool { return true }
func (m *MockMessageStore) InitNewChat(ctx context.Context, id string) error   { return nil }
func (m *MockMessageStore) AppendExchange(ctx context.Context, id string, q string, a string) error {
	return nil
}
func (m *MockMessageStore) History(ctx context.Context, id string) (string, error) { return "", nil }

func TestMain(m *testing.M) {
	logger_i.Init()
	m.Run()
}

func TestWorkerPool_Flow(t *testing.T) {
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
		MessageStore:      &MockMessageStore{},
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true

		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes an ingest job", func(t *testing.T) {
		testJob := jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeIngest}
		jobSvc.JobChannel <- testJob

		time.Sleep(50 * time.Millisecond)

		processed := atomic.LoadInt32(&mockRag.ProcessedCount)
		if processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 1)
	logger = logger_i.NewLogger("TestWorkerPool")
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	// staggered so the idle timers never fire together
	createWorker()
	time.Sleep(200 * time.Millisecond)
	createWorker()

	time.Sleep(config.IdleWorkerTimeout + 500*time.Millisecond)
	count := atomic.LoadInt64(&currentWorkerCount)
	if count != 1 {
		t.Errorf("Pool should have retired down to the minimum, but count is %d", count)
	}

	close(stopChan)
}
