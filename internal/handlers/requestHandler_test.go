package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/job"
	"github.com/tatce/ObecRAG/internal/metrics"
	"github.com/tatce/ObecRAG/internal/rag/stream"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

// the middleware hands every handler the status recorder, so streaming
// only works if the recorder forwards Flush
var _ http.Flusher = (*metrics.HttpStatusRecorder)(nil)

type mockRagService struct {
	Segments []string
}

func (m *mockRagService) ProcessQuery(ctx context.Context, j jobModel.Job, history string, sink stream.Sink) jobModel.Job {
	var answer strings.Builder
	for _, segment := range m.Segments {
		if err := sink.Send(segment); err != nil {
			break
		}
		answer.WriteString(segment)
	}
	j.JobPayload.Answer = answer.String()
	j.Status = jobModel.JobStatusComplete
	return j
}

func (m *mockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	j.Status = jobModel.JobStatusComplete
	return j
}

type mockJobStore struct{}

func (m *mockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}
func (m *mockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error { return nil }
func (m *mockJobStore) DeleteJob(ctx context.Context, jobID string)       {}

type mockMessageStore struct {
	Appended []string
}

func (m *mockMessageStore) ValidateChatId(ctx context.Context, id string) bool { return true }
func (m *mockMessageStore) InitNewChat(ctx context.Context, id string) error   { return nil }
func (m *mockMessageStore) AppendExchange(ctx context.Context, id string, q string, a string) error {
	m.Appended = append(m.Appended, q+"|"+a)
	return nil
}
func (m *mockMessageStore) History(ctx context.Context, id string) (string, error) { return "", nil }

var testMessageStore = &mockMessageStore{}

func TestMain(m *testing.M) {
	logger_i.Init()
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 1),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          &mockJobStore{},
		MessageStore:      testMessageStore,
	}
	InitJobHandler(jobSvc, &mockRagService{Segments: []string{"Zasedání ", "je v úterý."}})
	m.Run()
}

func TestChatHandler_StreamsThroughStatusRecorder(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"prompt":"Kdy je zasedání?"}`))
	rec := httptest.NewRecorder()
	writer := &metrics.HttpStatusRecorder{ResponseWriter: rec, Status: 200}

	ChatHandler(writer, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if strings.Contains(body, "Streaming unsupported") {
		t.Fatalf("streaming rejected through the status recorder: %q", body)
	}
	if body != "Zasedání je v úterý." {
		t.Errorf("streamed body = %q, want the relayed segments", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Header().Get("X-Chat-Id") == "" {
		t.Error("X-Chat-Id header missing")
	}
	if !rec.Flushed {
		t.Error("segments were never flushed to the client")
	}

	found := false
	for _, saved := range testMessageStore.Appended {
		if saved == "Kdy je zasedání?|Zasedání je v úterý." {
			found = true
		}
	}
	if !found {
		t.Errorf("exchange not saved to history: %v", testMessageStore.Appended)
	}
}

func TestChatHandler_EmptyPrompt(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"prompt":"   "}`))
	rec := httptest.NewRecorder()
	writer := &metrics.HttpStatusRecorder{ResponseWriter: rec, Status: 200}

	ChatHandler(writer, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "Prompt is required") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
