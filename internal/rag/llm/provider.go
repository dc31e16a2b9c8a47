package llm

import "context"

type Message struct {
	Role    string
	Content string
}

func System(content string) Message { return Message{Role: "system", Content: content} }
func User(content string) Message   { return Message{Role: "user", Content: content} }

// Provider is the chat-completion boundary. StreamCompletion calls relay for
// every segment as it arrives, before pulling the next one, and returns the
// accumulated reply. A relay error aborts the stream.
type Provider interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
	StreamCompletion(ctx context.Context, messages []Message, temperature float64, relay func(segment string) error) (string, error)
}
