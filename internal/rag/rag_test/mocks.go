package rag_test

import (
	"context"
	"time"

	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/internal/rag/llm"
)

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float64, error)
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float64, error)

	LastQuery string
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	m.LastQuery = text
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	return []float64{1, 0}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float64, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	vectors := make([][]float64, len(texts))
	for i := range vectors {
		vectors[i] = []float64{1, 0}
	}
	return vectors, nil
}

// MockProvider implements llm.Provider
type MockProvider struct {
	OnComplete         func(ctx context.Context, messages []llm.Message, temperature float64) (string, error)
	OnStreamCompletion func(ctx context.Context, messages []llm.Message, temperature float64, relay func(string) error) (string, error)

	LastMessages []llm.Message
}

func (m *MockProvider) Complete(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	m.LastMessages = messages
	if m.OnComplete != nil {
		return m.OnComplete(ctx, messages, temperature)
	}
	return `{"start_date": null, "end_date": null}`, nil
}

func (m *MockProvider) StreamCompletion(ctx context.Context, messages []llm.Message, temperature float64, relay func(string) error) (string, error) {
	m.LastMessages = messages
	if m.OnStreamCompletion != nil {
		return m.OnStreamCompletion(ctx, messages, temperature, relay)
	}
	for _, segment := range []string{"mocked ", "answer"} {
		if err := relay(segment); err != nil {
			return "", err
		}
	}
	return "mocked answer", nil
}

// MockDateExtractor implements rag.DateExtractor
type MockDateExtractor struct {
	OnExtract func(ctx context.Context, query string, referenceTime time.Time) *kbModel.DateWindow
}

func (m *MockDateExtractor) Extract(ctx context.Context, query string, referenceTime time.Time) *kbModel.DateWindow {
	if m.OnExtract != nil {
		return m.OnExtract(ctx, query, referenceTime)
	}
	return &kbModel.DateWindow{}
}

// MockSink implements stream.Sink
type MockSink struct {
	Segments []string
	Failures []error
	SendErr  error
}

func (m *MockSink) Send(segment string) error {
	m.Segments = append(m.Segments, segment)
	return m.SendErr
}

func (m *MockSink) Fail(err error) {
	m.Failures = append(m.Failures, err)
}
