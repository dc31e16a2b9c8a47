// @title           Obec Tatce RAG API
// @version         1.0
// @description     Streaming question answering over the municipality knowledge base, with document ingestion.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/data/store"
	jobmodel "github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/handlers"
	"github.com/tatce/ObecRAG/internal/job"
	"github.com/tatce/ObecRAG/internal/metrics"
	"github.com/tatce/ObecRAG/internal/rag"
	"github.com/tatce/ObecRAG/internal/rag/dateparse"
	"github.com/tatce/ObecRAG/internal/rag/embedding/localEmbedding"
	"github.com/tatce/ObecRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/tatce/ObecRAG/internal/rag/kbstore"
	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/internal/rag/llm/gemini"
	"github.com/tatce/ObecRAG/internal/rag/llm/openaiLLM"
	"github.com/tatce/ObecRAG/internal/server"
	"github.com/tatce/ObecRAG/internal/worker"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using process environment")
	}
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	if jobStore := store.GetRedisJobStore(serviceContext); jobStore != nil {
		serviceConfig.JobStore = jobStore
	} else {
		logger.Error("Redis job store is offline, falling back to in-memory")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
	}
	if messageStore := store.GetRedisMessageStore(serviceContext); messageStore != nil {
		serviceConfig.MessageStore = messageStore
	} else {
		logger.Error("Redis message store is offline, falling back to in-memory")
		serviceConfig.MessageStore = store.InitMessageStore()
	}
	service := job.InitJobService(serviceConfig)

	//knowledge bases - an empty base degrades answers, it does not stop the server
	knowledgeBase := kbstore.New()
	if err := knowledgeBase.Load(config.KnowledgeBaseFile); err != nil {
		logger.Warn("Primary knowledge base unavailable", "error", err)
	}
	metrics.SetKnowledgeBaseSize("primary", knowledgeBase.Len())

	altKnowledgeBase := kbstore.New()
	if err := altKnowledgeBase.Load(config.AltKnowledgeBaseFile); err != nil {
		logger.Warn("Alt knowledge base unavailable", "error", err)
	}
	metrics.SetKnowledgeBaseSize("alt", altKnowledgeBase.Len())

	llmProvider := openaiLLM.GetOpenAIClient(config.ChatModel)
	embeddingService := openaiEmbedding.GetOpenAIEmbeddingClient(config.EmbeddingModel)

	if llmProvider == nil || embeddingService == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	var dateProvider llm.Provider
	switch config.DateParserProvider {
	case "gemini":
		dateProvider = gemini.GetGeminiClient(serviceContext, config.GeminiModelName)
	default:
		dateProvider = openaiLLM.GetOpenAIClient(config.DateParserModel)
	}
	if dateProvider == nil {
		logger.Warn("Date parser provider unavailable, queries run without date filtering")
	}

	altEmbeddingService := localEmbedding.New(config.PythonBinary, config.LocalEmbeddingScript)

	ragService := rag.NewService(
		knowledgeBase,
		altKnowledgeBase,
		llmProvider,
		dateparse.New(dateProvider),
		embeddingService,
		altEmbeddingService,
		config.KnowledgeBaseFile,
	)

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
