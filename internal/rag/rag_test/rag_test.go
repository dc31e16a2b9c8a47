package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/internal/rag"
	"github.com/tatce/ObecRAG/internal/rag/assemble"
	"github.com/tatce/ObecRAG/internal/rag/kbstore"
	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

func TestMain(m *testing.M) {
	logger_i.Init()
	m.Run()
}

func strPtr(s string) *string { return &s }

func testBase() *kbstore.Store {
	base := kbstore.New()
	base.Swap([]kbModel.Chunk{
		{ID: "chunk_000001", SourceURL: "https://tatce.cz/brezen", SourceTitle: "Zasedání zastupitelstva",
			SourceDate: strPtr("2025-03-15"), Text: "Zasedání zastupitelstva 15. března v 18:00.", Embedding: []float64{1, 0}},
		{ID: "chunk_000002", SourceURL: "https://tatce.cz/unor", SourceTitle: "Únorová aktualita",
			SourceDate: strPtr("2025-02-01"), Text: "Únorový svoz odpadu proběhne beze změn.", Embedding: []float64{0.9, 0.1}},
		{ID: "chunk_000003", SourceURL: "https://tatce.cz/duben", SourceTitle: "Dubnová aktualita",
			SourceDate: strPtr("2025-04-05"), Text: "Dubnové posvícení na návsi.", Embedding: []float64{0.8, 0.2}},
		{ID: "chunk_000004", SourceURL: "https://tatce.cz/bez-data", SourceTitle: "Bez data",
			Text: "Obecná informace o obci bez data.", Embedding: []float64{0.7, 0.3}},
		{ID: "chunk_000005", SourceURL: "https://tatce.cz/nesouvisi", SourceTitle: "Nesouvisející",
			SourceDate: strPtr("2025-03-10"), Text: "Tohle se dotazu vůbec netýká.", Embedding: []float64{0, 1}},
	})
	return base
}

func newTestService(base *kbstore.Store, p *MockProvider, d *MockDateExtractor, e *MockEmbedder, kbPath string) rag.Service {
	return rag.NewService(base, nil, p, d, e, nil, kbPath)
}

func queryJob() jobModel.Job {
	return jobModel.Job{
		Id:      "test-job",
		JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{
			Question: "kdy je zasedání zastupitelstva?",
		},
	}
}

func traceCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func userMessage(t *testing.T, p *MockProvider) string {
	t.Helper()
	if len(p.LastMessages) != 2 {
		t.Fatalf("provider got %d messages, want 2", len(p.LastMessages))
	}
	return p.LastMessages[1].Content
}

func TestProcessQuery_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(e *MockEmbedder, p *MockProvider, d *MockDateExtractor)
		expectedStatus jobModel.JobStatus
		expectedAnswer string
		expectSegments int
		expectFailures int
	}{
		{
			name:           "Success_Full_Flow",
			setupMocks:     func(e *MockEmbedder, p *MockProvider, d *MockDateExtractor) {},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: "mocked answer",
			expectSegments: 2,
		},
		{
			name: "Embedding_Failure_Degrades_To_No_Context",
			setupMocks: func(e *MockEmbedder, p *MockProvider, d *MockDateExtractor) {
				e.OnGetEmbedding = func(ctx context.Context, text string) ([]float64, error) {
					return nil, errors.New("api limit")
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: "mocked answer",
			expectSegments: 2,
		},
		{
			name: "Failure_LLM_Stream_After_Two_Segments",
			setupMocks: func(e *MockEmbedder, p *MockProvider, d *MockDateExtractor) {
				p.OnStreamCompletion = func(ctx context.Context, _ []llm.Message, _ float64, relay func(string) error) (string, error) {
					_ = relay("first ")
					_ = relay("second")
					return "first second", errors.New("provider down")
				}
			},
			expectedStatus: jobModel.JobStatusError,
			expectedAnswer: "first second",
			expectSegments: 2,
			expectFailures: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mEmbed := &MockEmbedder{}
			mProvider := &MockProvider{}
			mDates := &MockDateExtractor{}
			tt.setupMocks(mEmbed, mProvider, mDates)

			sink := &MockSink{}
			s := newTestService(testBase(), mProvider, mDates, mEmbed, "")

			result := s.ProcessQuery(traceCtx(), queryJob(), "", sink)

			if result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
			if tt.expectedAnswer != "" && result.JobPayload.Answer != tt.expectedAnswer {
				t.Errorf("Answer got %q, want %q", result.JobPayload.Answer, tt.expectedAnswer)
			}
			if len(sink.Segments) != tt.expectSegments {
				t.Errorf("sink got %d segments, want %d", len(sink.Segments), tt.expectSegments)
			}
			if len(sink.Failures) != tt.expectFailures {
				t.Errorf("sink got %d failures, want %d", len(sink.Failures), tt.expectFailures)
			}
			if tt.expectedStatus == jobModel.JobStatusError && result.Error.Code != http.StatusInternalServerError {
				t.Errorf("Error code got %d, want %d", result.Error.Code, http.StatusInternalServerError)
			}
		})
	}
}

func TestProcessQuery_ContextComposition(t *testing.T) {
	mEmbed := &MockEmbedder{}
	mProvider := &MockProvider{}
	s := newTestService(testBase(), mProvider, &MockDateExtractor{}, mEmbed, "")

	result := s.ProcessQuery(traceCtx(), queryJob(), "User: ahoj\nBot: dobrý den\n", &MockSink{})

	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %v", result.Status)
	}

	user := userMessage(t, mProvider)
	if !strings.Contains(user, "Zasedání zastupitelstva 15. března v 18:00.") {
		t.Errorf("context missing best chunk: %q", user)
	}
	if strings.Contains(user, "Tohle se dotazu vůbec netýká.") {
		t.Errorf("below-threshold chunk leaked into context: %q", user)
	}
	if !strings.Contains(user, "User: ahoj\nBot: dobrý den\n") {
		t.Errorf("history block missing: %q", user)
	}
	if !strings.Contains(user, "User Question: The current time is ") {
		t.Errorf("question not time-stamped: %q", user)
	}
	if !strings.HasSuffix(user, "kdy je zasedání zastupitelstva?") {
		t.Errorf("question not last: %q", user)
	}

	// embedding sees the time-stamped prompt too
	if !strings.HasPrefix(mEmbed.LastQuery, "The current time is ") {
		t.Errorf("embedded query not time-stamped: %q", mEmbed.LastQuery)
	}

	wantSources := []string{"https://tatce.cz/brezen", "https://tatce.cz/unor", "https://tatce.cz/duben", "https://tatce.cz/bez-data"}
	if len(result.JobPayload.Sources) != len(wantSources) {
		t.Fatalf("Sources = %v", result.JobPayload.Sources)
	}
	if result.JobPayload.Sources[0] != wantSources[0] {
		t.Errorf("best source not first: %v", result.JobPayload.Sources)
	}
}

func TestProcessQuery_DateWindowFiltersContext(t *testing.T) {
	mProvider := &MockProvider{}
	mDates := &MockDateExtractor{
		OnExtract: func(ctx context.Context, query string, referenceTime time.Time) *kbModel.DateWindow {
			return &kbModel.DateWindow{Start: strPtr("2025-03-01"), End: strPtr("2025-03-31")}
		},
	}
	s := newTestService(testBase(), mProvider, mDates, &MockEmbedder{}, "")

	result := s.ProcessQuery(traceCtx(), queryJob(), "", &MockSink{})
	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %v", result.Status)
	}

	user := userMessage(t, mProvider)
	if !strings.Contains(user, "Zasedání zastupitelstva 15. března v 18:00.") {
		t.Errorf("March chunk missing from context: %q", user)
	}
	for _, excluded := range []string{
		"Únorový svoz odpadu proběhne beze změn.", // before the window
		"Dubnové posvícení na návsi.",             // after the window
		"Obecná informace o obci bez data.",       // undated
	} {
		if strings.Contains(user, excluded) {
			t.Errorf("chunk outside window leaked into context: %q", excluded)
		}
	}
	if len(result.JobPayload.Sources) != 1 || result.JobPayload.Sources[0] != "https://tatce.cz/brezen" {
		t.Errorf("Sources = %v", result.JobPayload.Sources)
	}
}

func TestProcessQuery_EmptyBaseUsesSentinel(t *testing.T) {
	mProvider := &MockProvider{}
	s := newTestService(kbstore.New(), mProvider, &MockDateExtractor{}, &MockEmbedder{}, "")

	result := s.ProcessQuery(traceCtx(), queryJob(), "", &MockSink{})
	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %v", result.Status)
	}
	if !strings.HasPrefix(userMessage(t, mProvider), assemble.NoContextSentinel) {
		t.Errorf("empty base did not produce the sentinel: %q", userMessage(t, mProvider))
	}
	if len(result.JobPayload.Sources) != 0 {
		t.Errorf("Sources = %v, want none", result.JobPayload.Sources)
	}
}

func TestProcessQuery_AltBackendSelection(t *testing.T) {
	primary := &MockEmbedder{}
	alt := &MockEmbedder{}
	altBase := kbstore.New()
	altBase.Swap([]kbModel.Chunk{
		{ID: "chunk_000001", SourceURL: "https://tatce.cz/alt", SourceTitle: "Alt",
			Text: "Chunk z alternativní báze s českým modelem.", Embedding: []float64{1, 0}},
	})
	mProvider := &MockProvider{}
	s := rag.NewService(testBase(), altBase, mProvider, &MockDateExtractor{}, primary, alt, "")

	job := queryJob()
	job.JobPayload.UseAltEmbedding = true
	result := s.ProcessQuery(traceCtx(), job, "", &MockSink{})

	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %v", result.Status)
	}
	if alt.LastQuery == "" {
		t.Error("alt embedder was not used")
	}
	if primary.LastQuery != "" {
		t.Error("primary embedder called despite use_alt_embedding")
	}
	if !strings.Contains(userMessage(t, mProvider), "Chunk z alternativní báze") {
		t.Errorf("context not built from alt base: %q", userMessage(t, mProvider))
	}
}

func TestIngestDocument_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(e *MockEmbedder)
		expectedStatus jobModel.JobStatus
		expectGrowth   bool
	}{
		{
			name:           "Ingestion_Success",
			setupMocks:     func(e *MockEmbedder) {},
			expectedStatus: jobModel.JobStatusComplete,
			expectGrowth:   true,
		},
		{
			name: "Failure_Batch_Embedding",
			setupMocks: func(e *MockEmbedder) {
				e.OnBatchEmbedding = func(ctx context.Context, texts []string) ([][]float64, error) {
					return nil, errors.New("api limit")
				}
			},
			expectedStatus: jobModel.JobStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			docPath := filepath.Join(dir, "zapis.txt")
			if err := os.WriteFile(docPath, []byte("Zápis ze zasedání zastupitelstva obce Tatce ze dne 12. 8. 2025."), 0o644); err != nil {
				t.Fatal(err)
			}
			kbPath := filepath.Join(dir, "kb.json")

			mEmbed := &MockEmbedder{}
			tt.setupMocks(mEmbed)

			base := testBase()
			before := base.Len()
			s := rag.NewService(base, nil, &MockProvider{}, &MockDateExtractor{}, mEmbed, nil, kbPath)

			job := jobModel.Job{
				Id:      "ingest-job-1",
				JobType: jobModel.JobTypeIngest,
				JobPayload: jobModel.JobPayload{
					IngestFileName: "zapis.txt",
					IngestURL:      docPath,
				},
			}

			result := s.IngestDocument(traceCtx(), job)

			if result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
			if tt.expectGrowth {
				if base.Len() <= before {
					t.Errorf("base did not grow: %d -> %d", before, base.Len())
				}
				if _, err := os.Stat(kbPath); err != nil {
					t.Errorf("knowledge base not persisted: %v", err)
				}
				if _, err := os.Stat(docPath); !os.IsNotExist(err) {
					t.Errorf("uploaded file not cleaned up")
				}
			} else if base.Len() != before {
				t.Errorf("failed ingest mutated the base")
			}
		})
	}
}
