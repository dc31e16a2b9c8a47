package openaiEmbedding

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tatce/ObecRAG/internal/customHttpClient"
	"github.com/tatce/ObecRAG/internal/rag/embedding"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	openAI openai.Client
	model  string
}

func GetOpenAIEmbeddingClient(modelName string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		newOpenAIEmbedder(modelName)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func newOpenAIEmbedder(modelName string) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Error("OPENAI_API_KEY is not set")
		return
	}
	embeddingClient = &client{
		openAI: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(customHttpClient.Pooled()),
		),
		model: modelName,
	}
	logger.Info("OpenAI embedding client created", "model", modelName)
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	result, err := c.openAI.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		logger.Error("Error getting embedding from OpenAI", "error", err)
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, errors.New("embedding response missing data")
	}
	return result.Data[0].Embedding, nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result, err := c.openAI.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		logger.Error("Error getting batch embeddings from OpenAI", "error", err)
		return nil, err
	}
	if len(result.Data) != len(texts) {
		return nil, errors.New("embedding response count mismatch")
	}
	vectors := make([][]float64, len(result.Data))
	for i, d := range result.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
