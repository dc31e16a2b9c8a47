package embedding

import "context"

// Embedder is the text-in/vector-out boundary. Failure is a nil vector plus
// an error, never a vector of zeros.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float64, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float64, error)
}
