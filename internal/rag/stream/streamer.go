package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

// State tracks a single completion request. Transitions only move forward:
// Idle -> Requested -> Streaming -> Completed or Failed.
type State int

const (
	StateIdle State = iota
	StateRequested
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRequested:
		return "REQUESTED"
	case StateStreaming:
		return "STREAMING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Sink receives the stream on the caller's side. Send must deliver the
// segment before the next one is pulled from upstream; Fail is called at
// most once and terminates the stream.
type Sink interface {
	Send(segment string) error
	Fail(err error)
}

// Streamer drives one completion request end to end. Not safe for
// concurrent use; create one per request.
type Streamer struct {
	provider llm.Provider
	state    State
	logger   *logger_i.Logger
}

func New(provider llm.Provider) *Streamer {
	return &Streamer{
		provider: provider,
		state:    StateIdle,
		logger:   logger_i.NewLogger("Streamer"),
	}
}

func (s *Streamer) State() State {
	return s.state
}

// ComposeMessages builds the fixed two-message exchange: the assistant
// policy as system, and the assembled context plus the literal question as
// user. A non-empty history block sits between context and question.
func ComposeMessages(contextText string, history string, prompt string) []llm.Message {
	user := contextText
	if history != "" {
		user += "Conversation so far:\n" + history + "\n"
	}
	user += "User Question: " + prompt
	return []llm.Message{
		llm.System(config.SystemPrompt),
		llm.User(user),
	}
}

// Stream relays each upstream segment to the sink and returns the
// accumulated answer. On any failure the sink gets exactly one Fail call
// and the partial answer is still returned for history.
func (s *Streamer) Stream(ctx context.Context, messages []llm.Message, sink Sink) (string, error) {
	if s.provider == nil {
		err := errors.New("no completion provider configured")
		s.state = StateFailed
		sink.Fail(err)
		return "", err
	}

	s.state = StateRequested
	answer, err := s.provider.StreamCompletion(ctx, messages, config.AnswerTemperature, func(segment string) error {
		if s.state == StateRequested {
			s.state = StateStreaming
		}
		return sink.Send(segment)
	})
	if err != nil {
		s.state = StateFailed
		s.logger.Error("Completion stream failed", "error", err, "partialLength", len(answer))
		sink.Fail(fmt.Errorf("completion stream: %w", err))
		return answer, err
	}

	s.state = StateCompleted
	return answer, nil
}
