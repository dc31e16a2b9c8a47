package openaiLLM

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tatce/ObecRAG/internal/customHttpClient"
	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

type llmClient struct {
	client    openai.Client
	modelName string
}

var logger *logger_i.Logger
var baseClient *openai.Client
var once sync.Once

// GetOpenAIClient returns a provider bound to the given model. The
// underlying API client and its connection pool are shared, so the chat
// model and the date parser model reuse one transport.
func GetOpenAIClient(modelName string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		newOpenAIClient()
	})

	if baseClient == nil {
		return nil
	}
	return &llmClient{client: *baseClient, modelName: modelName}
}

func newOpenAIClient() {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Error("OPENAI_API_KEY is not set")
		return
	}

	c := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.Pooled()),
	)
	baseClient = &c
	logger.Info("OpenAI client created")
}

func (c *llmClient) params(messages []llm.Message, temperature float64) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			converted = append(converted, openai.SystemMessage(m.Content))
		} else {
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Messages:    converted,
		Model:       openai.ChatModel(c.modelName),
		Temperature: openai.Float(temperature),
	}
}

func (c *llmClient) Complete(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	result, err := c.client.Chat.Completions.New(ctx, c.params(messages, temperature))
	if err != nil {
		logger.Error("Chat completion failed", "error", err)
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *llmClient) StreamCompletion(ctx context.Context, messages []llm.Message, temperature float64, relay func(string) error) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages, temperature))
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 {
			continue
		}
		segment := chunk.Choices[0].Delta.Content
		if segment == "" {
			continue
		}
		if err := relay(segment); err != nil {
			// downstream went away, let the upstream call die with us
			logger.Warn("Relay aborted mid-stream", "error", err)
			return accumulated(acc), err
		}
	}
	if err := stream.Err(); err != nil {
		logger.Error("Completion stream failed", "error", err)
		return accumulated(acc), err
	}
	if len(acc.Choices) == 0 {
		return "", errors.New("completion stream returned no choices")
	}
	return acc.Choices[0].Message.Content, nil
}

func accumulated(acc openai.ChatCompletionAccumulator) string {
	if len(acc.Choices) == 0 {
		return ""
	}
	return acc.Choices[0].Message.Content
}
