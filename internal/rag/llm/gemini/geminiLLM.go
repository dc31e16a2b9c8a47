package gemini

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName)
	})

	if geminiClient == nil {
		return nil
	}
	return geminiClient
}

func newGeminiClient(ctx context.Context, modelName string) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logger.Error("GEMINI_API_KEY is not set")
		return
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
}

func (c *llmClient) config(messages []llm.Message, temperature float64) (*genai.GenerateContentConfig, string) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	var user string
	for _, m := range messages {
		if m.Role == "system" {
			cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
			continue
		}
		if user != "" {
			user += "\n"
		}
		user += m.Content
	}
	return cfg, user
}

func (c *llmClient) Complete(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	cfg, user := c.config(messages, temperature)
	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(user), cfg)
	if err != nil {
		logger.Error("Gemini generation failed", "error", err)
		return "", err
	}
	if result == nil {
		return "", errors.New("gemini returned no response")
	}
	return result.Text(), nil
}

func (c *llmClient) StreamCompletion(ctx context.Context, messages []llm.Message, temperature float64, relay func(string) error) (string, error) {
	cfg, user := c.config(messages, temperature)

	var answer string
	for result, err := range c.client.Models.GenerateContentStream(ctx, c.modelName, genai.Text(user), cfg) {
		if err != nil {
			logger.Error("Gemini stream failed", "error", err)
			return answer, err
		}
		segment := result.Text()
		if segment == "" {
			continue
		}
		answer += segment
		if err := relay(segment); err != nil {
			logger.Warn("Relay aborted mid-stream", "error", err)
			return answer, err
		}
	}
	return answer, nil
}
