package localEmbedding

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/tatce/ObecRAG/pkg/logger_i"
)

// Embedder shells out to the Czech sentence-embedding script. The script
// reads the text as an argument and prints {"embedding": [...]} on stdout.
// One blocking subprocess per call - the alternate knowledge base was built
// with the same model, so dimensions line up.
type Embedder struct {
	python string
	script string
	logger *logger_i.Logger
}

type scriptOutput struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func New(python string, script string) *Embedder {
	return &Embedder{
		python: python,
		script: script,
		logger: logger_i.NewLogger("local_embedding"),
	}
}

func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	cmd := exec.CommandContext(ctx, e.python, e.script, text)
	output, err := cmd.Output()
	if err != nil {
		e.logger.Error("Embedding script failed to execute", "error", err)
		return nil, fmt.Errorf("embedding script: %w", err)
	}

	var parsed scriptOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		e.logger.Error("Embedding script returned invalid JSON", "output", string(output))
		return nil, fmt.Errorf("embedding script output: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("embedding script: %s", parsed.Error)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding script returned no vector")
	}
	return parsed.Embedding, nil
}

func (e *Embedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for _, text := range texts {
		vector, err := e.GetEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
