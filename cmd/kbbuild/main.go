// Command kbbuild runs the offline knowledge-base build: it reads the
// scraped articles export, chunks every article, embeds the chunks and
// writes the serialized base the API loads at startup.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/internal/rag/chunker"
	"github.com/tatce/ObecRAG/internal/rag/embedding"
	"github.com/tatce/ObecRAG/internal/rag/embedding/localEmbedding"
	"github.com/tatce/ObecRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/tatce/ObecRAG/internal/rag/ingest"
	"github.com/tatce/ObecRAG/internal/rag/kbstore"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

var (
	articlesPath string
	outputPath   string
	useLocal     bool
	chunksOnly   bool
)

func main() {
	logger_i.Init()
	logger := logger_i.NewLogger("kbbuild")

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using process environment")
	}

	flag.StringVar(&articlesPath, "articles", "data/aktuality_data.json", "scraped articles JSON file")
	flag.StringVar(&outputPath, "out", config.KnowledgeBaseFile, "output knowledge base file")
	flag.BoolVar(&useLocal, "local", false, "embed with the local Czech model instead of the OpenAI API")
	flag.BoolVar(&chunksOnly, "chunks-only", false, "write chunks without embeddings, for inspection")
	flag.Parse()

	articles, err := loadArticles(articlesPath)
	if err != nil {
		logger.Error("Failed to load articles", "path", articlesPath, "error", err)
		os.Exit(1)
	}
	logger.Info("Articles loaded", "path", articlesPath, "articles", len(articles))

	c := chunker.New()
	var chunks []kbModel.Chunk
	for _, article := range articles {
		chunks = append(chunks, c.ChunkArticle(article)...)
	}
	logger.Info("Articles chunked", "chunks", len(chunks))

	if !chunksOnly {
		embedder := selectEmbedder()
		if embedder == nil {
			logger.Error("Embedding service failed to initialize")
			os.Exit(1)
		}
		if err := ingest.BatchEmbed(context.Background(), chunks, embedder); err != nil {
			logger.Error("Embedding failed, nothing written", "error", err)
			os.Exit(1)
		}
		logger.Info("Chunks embedded")
	}

	if err := kbstore.Persist(outputPath, chunks); err != nil {
		logger.Error("Failed to write knowledge base", "path", outputPath, "error", err)
		os.Exit(1)
	}
	logger.Info("Knowledge base written", "path", outputPath, "chunks", len(chunks))
}

func loadArticles(path string) ([]kbModel.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var articles []kbModel.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func selectEmbedder() embedding.Embedder {
	if useLocal {
		return localEmbedding.New(config.PythonBinary, config.LocalEmbeddingScript)
	}
	return openaiEmbedding.GetOpenAIEmbeddingClient(config.EmbeddingModel)
}
