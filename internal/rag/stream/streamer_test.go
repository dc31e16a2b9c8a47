package stream

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

func TestMain(m *testing.M) {
	logger_i.Init()
	m.Run()
}

type mockProvider struct {
	OnStreamCompletion func(messages []llm.Message, temperature float64, relay func(string) error) (string, error)
}

func (m *mockProvider) Complete(_ context.Context, _ []llm.Message, _ float64) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockProvider) StreamCompletion(_ context.Context, messages []llm.Message, temperature float64, relay func(string) error) (string, error) {
	return m.OnStreamCompletion(messages, temperature, relay)
}

type recordingSink struct {
	segments []string
	failures []error
	sendErr  error
}

func (r *recordingSink) Send(segment string) error {
	r.segments = append(r.segments, segment)
	return r.sendErr
}

func (r *recordingSink) Fail(err error) {
	r.failures = append(r.failures, err)
}

func segmentsProvider(segments []string, finalErr error) *mockProvider {
	return &mockProvider{
		OnStreamCompletion: func(_ []llm.Message, _ float64, relay func(string) error) (string, error) {
			var answer string
			for _, segment := range segments {
				if err := relay(segment); err != nil {
					return answer, err
				}
				answer += segment
			}
			return answer, finalErr
		},
	}
}

func TestStreamSuccess(t *testing.T) {
	streamer := New(segmentsProvider([]string{"Dobrý ", "den", "!"}, nil))
	sink := &recordingSink{}

	answer, err := streamer.Stream(context.Background(), ComposeMessages("ctx\n", "", "ahoj"), sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Dobrý den!" {
		t.Errorf("accumulated answer = %q", answer)
	}
	if len(sink.segments) != 3 || sink.segments[0] != "Dobrý " {
		t.Errorf("sink received %v", sink.segments)
	}
	if len(sink.failures) != 0 {
		t.Errorf("unexpected failures: %v", sink.failures)
	}
	if streamer.State() != StateCompleted {
		t.Errorf("state = %s, want COMPLETED", streamer.State())
	}
}

func TestStreamFailureAfterTwoSegments(t *testing.T) {
	upstreamErr := errors.New("connection reset")
	streamer := New(segmentsProvider([]string{"first ", "second"}, upstreamErr))
	sink := &recordingSink{}

	answer, err := streamer.Stream(context.Background(), ComposeMessages("", "", "q"), sink)
	if !errors.Is(err, upstreamErr) {
		t.Fatalf("error = %v, want %v", err, upstreamErr)
	}
	if len(sink.segments) != 2 {
		t.Fatalf("sink received %d segments, want 2", len(sink.segments))
	}
	if len(sink.failures) != 1 {
		t.Fatalf("sink received %d failures, want exactly 1", len(sink.failures))
	}
	if answer != "first second" {
		t.Errorf("partial answer = %q", answer)
	}
	if streamer.State() != StateFailed {
		t.Errorf("state = %s, want FAILED", streamer.State())
	}
}

func TestStreamStateTransitions(t *testing.T) {
	var streamer *Streamer
	var observed []State

	provider := &mockProvider{
		OnStreamCompletion: func(_ []llm.Message, _ float64, relay func(string) error) (string, error) {
			observed = append(observed, streamer.State())
			_ = relay("a")
			observed = append(observed, streamer.State())
			_ = relay("b")
			observed = append(observed, streamer.State())
			return "ab", nil
		},
	}
	streamer = New(provider)

	if streamer.State() != StateIdle {
		t.Fatalf("initial state = %s, want IDLE", streamer.State())
	}
	if _, err := streamer.Stream(context.Background(), nil, &recordingSink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []State{StateRequested, StateStreaming, StateStreaming}
	for i, state := range want {
		if observed[i] != state {
			t.Errorf("observed[%d] = %s, want %s", i, observed[i], state)
		}
	}
	if streamer.State() != StateCompleted {
		t.Errorf("final state = %s, want COMPLETED", streamer.State())
	}
}

func TestStreamSinkAbort(t *testing.T) {
	streamer := New(segmentsProvider([]string{"one", "two", "three"}, nil))
	sink := &recordingSink{sendErr: errors.New("client gone")}

	_, err := streamer.Stream(context.Background(), nil, sink)
	if err == nil {
		t.Fatal("expected error when sink rejects segments")
	}
	if len(sink.segments) != 1 {
		t.Errorf("sink received %d segments after abort, want 1", len(sink.segments))
	}
	if len(sink.failures) != 1 {
		t.Errorf("sink received %d failures, want 1", len(sink.failures))
	}
}

func TestStreamNilProvider(t *testing.T) {
	sink := &recordingSink{}
	if _, err := New(nil).Stream(context.Background(), nil, sink); err == nil {
		t.Fatal("expected error without a provider")
	}
	if len(sink.failures) != 1 {
		t.Errorf("failures = %d, want 1", len(sink.failures))
	}
}

func TestComposeMessages(t *testing.T) {
	messages := ComposeMessages("Relevant context from knowledge base:\n----\n", "User: ahoj\nBot: dobrý den\n", "kdy je zastupitelstvo?")
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != "system" || messages[0].Content == "" {
		t.Errorf("system message = %+v", messages[0])
	}
	user := messages[1].Content
	if !strings.HasPrefix(user, "Relevant context from knowledge base:") {
		t.Errorf("user message does not start with context: %q", user)
	}
	if !strings.Contains(user, "Conversation so far:\nUser: ahoj\nBot: dobrý den\n") {
		t.Errorf("user message missing history block: %q", user)
	}
	if !strings.HasSuffix(user, "User Question: kdy je zastupitelstvo?") {
		t.Errorf("user message does not end with the question: %q", user)
	}

	bare := ComposeMessages("ctx", "", "q")
	if bare[1].Content != "ctxUser Question: q" {
		t.Errorf("user message without history = %q", bare[1].Content)
	}
}
