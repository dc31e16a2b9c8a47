package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tatce/ObecRAG/internal/adapter"
	"github.com/tatce/ObecRAG/internal/adapter/utils"
	"github.com/tatce/ObecRAG/internal/api"
	"github.com/tatce/ObecRAG/internal/domain/jobModel"
	"github.com/tatce/ObecRAG/internal/rag/stream"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logRH.Error("Error encoding response", "err", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "err", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func toStatusResponse(job jobModel.Job) api.JobResponse {
	return adapter.ToAPIResponse(job)
}

func getURLParam(r *http.Request, key string) string {
	return utils.GetChiURLParam(r, key)
}

func jobStatusError() jobModel.JobStatus {
	return jobModel.JobStatusError
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, "temporary_data")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

// sseSink relays answer segments straight to the client connection, flushing
// after every segment so the browser renders them as they arrive. A failure
// is reported as a single data frame carrying an error object, matching what
// the web client parses.
type sseSink struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(segment string) error {
	if _, err := fmt.Fprint(s.writer, segment); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Fail(err error) {
	logRH.Error("Stream failed mid-flight", "err", err)
	payload, _ := json.Marshal(api.ErrorResponse{Error: "Internal Server Error"})
	fmt.Fprintf(s.writer, "data: %s\n\n", payload)
	s.flusher.Flush()
}

// collectSink buffers the stream for the non-streaming /ask variant.
type collectSink struct {
	answer []byte
}

func (s *collectSink) Send(segment string) error {
	s.answer = append(s.answer, segment...)
	return nil
}

func (s *collectSink) Fail(err error) {
	logRH.Error("Buffered completion failed", "err", err)
}

func chatHistory(r *http.Request, chatId string) string {
	history, err := handlerInstance.service.MessageStore.History(r.Context(), chatId)
	if err != nil {
		logRH.Error("Failed to get message history", "err", err)
		return ""
	}
	return history
}

func saveExchange(r *http.Request, chatId string, result jobModel.Job) {
	if result.Status == jobModel.JobStatusError || result.JobPayload.Answer == "" {
		return
	}
	if err := handlerInstance.service.MessageStore.AppendExchange(r.Context(), chatId, result.JobPayload.Question, result.JobPayload.Answer); err != nil {
		logRH.Error("Failed to save chat history", "err", err)
	}
}

// resolveChat returns the chat id for this request, creating a new chat when
// none was supplied. An unknown supplied id is a client error.
func resolveChat(w http.ResponseWriter, r *http.Request, requestData api.ChatRequest) (string, bool) {
	chatId := requestData.ChatID
	if chatId == "" {
		chatId = utils.GetNewUUID()
		logRH.Debug("New chat", "chatId:", chatId)
		if err := handlerInstance.service.MessageStore.InitNewChat(r.Context(), chatId); err != nil {
			logRH.Error("Error initiating new chat", "chatId", chatId, "err", err)
		}
		return chatId, true
	}
	if !handlerInstance.service.MessageStore.ValidateChatId(r.Context(), chatId) {
		writeJsonResponse(w, http.StatusBadRequest, api.ErrorResponse{Error: "Unknown chat id"})
		return "", false
	}
	return chatId, true
}

func runQuery(r *http.Request, requestData api.ChatRequest, chatId string, history string, sink stream.Sink) jobModel.Job {
	queryJob := jobModel.Job{
		Id:          utils.GetNewUUID(),
		ChatId:      chatId,
		TraceId:     traceOf(r),
		JobType:     jobModel.JobTypeQuery,
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.UserQueryInit,
		JobPayload: jobModel.JobPayload{
			Question:        requestData.Prompt,
			UseAltEmbedding: requestData.UseAltEmbedding,
		},
	}
	queryJob.CreatedTime = time.Now()
	return handlerInstance.ragService.ProcessQuery(r.Context(), queryJob, history, sink)
}
