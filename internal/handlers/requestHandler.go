package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tatce/ObecRAG/internal/api"
	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id             string
	traceId        string
	documentName   string
	documentSource string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Ask a question, streamed
// @Description  Runs retrieval over the knowledge base and streams the model's answer incrementally. The response is a text/event-stream of raw answer segments; a mid-stream failure is reported as a single data frame carrying an error object.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body  api.ChatRequest  true  "Question, optional chat id and embedding selector"
// @Success      200  {string}  string  "Streamed answer segments"
// @Failure      400  {object}  api.ErrorResponse  "Missing prompt or unknown chat id"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request ", "addr", request.RemoteAddr)
		return
	}

	requestData, ok := decodeChatRequest(w, request)
	if !ok {
		return
	}

	chatId, ok := resolveChat(w, request, requestData)
	if !ok {
		return
	}
	history := chatHistory(request, chatId)

	flusher, isFlusher := w.(http.Flusher)
	if !isFlusher {
		writeJsonResponse(w, http.StatusInternalServerError, api.ErrorResponse{Error: "Streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Chat-Id", chatId)

	sink := &sseSink{writer: w, flusher: flusher}
	result := runQuery(request, requestData, chatId, history, sink)
	saveExchange(request, chatId, result)
}

// AskHandler godoc
// @Summary      Ask a question, buffered
// @Description  Same pipeline as /chat but the whole answer is collected and returned as one JSON object.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest  true  "Question, optional chat id and embedding selector"
// @Success      200      {object}  api.AskResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing prompt or unknown chat id"
// @Failure      500      {object}  api.ErrorResponse  "Completion failure"
// @Router       /ask [post]
func AskHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request ", "addr", request.RemoteAddr)
		return
	}

	requestData, ok := decodeChatRequest(w, request)
	if !ok {
		return
	}

	chatId, ok := resolveChat(w, request, requestData)
	if !ok {
		return
	}
	history := chatHistory(request, chatId)

	sink := &collectSink{}
	result := runQuery(request, requestData, chatId, history, sink)
	if result.Status == jobStatusError() {
		writeJsonResponse(w, http.StatusInternalServerError, api.ErrorResponse{Error: "Internal Server Error"})
		return
	}
	saveExchange(request, chatId, result)
	writeJsonResponse(w, http.StatusOK, api.AskResponse{
		Response: result.JobPayload.Answer,
		ChatID:   chatId,
		Sources:  result.JobPayload.Sources,
	})
}

func decodeChatRequest(w http.ResponseWriter, request *http.Request) (api.ChatRequest, bool) {
	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the chat handler reader", "err", err)
		}
	}(request.Body)

	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
		logRH.Warn("Bad Chat Request: ", "error:", err)
		writeJsonResponse(w, http.StatusBadRequest, api.ErrorResponse{Error: "Bad Request"})
		return requestData, false
	}
	requestData.Prompt = strings.TrimSpace(requestData.Prompt)
	if requestData.Prompt == "" {
		logRH.Warn("Empty prompt")
		writeJsonResponse(w, http.StatusBadRequest, api.ErrorResponse{Error: "Prompt is required"})
		return requestData, false
	}
	return requestData, true
}

// GetStatusHandler godoc
// @Summary      Get ingest job status
// @Description  Retrieves the current status of a queued document ingestion using its job ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "The current status of the job"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := getURLParam(r, "id")
	result, isFound := validateId(idString, traceOf(r))

	logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, toStatusResponse(result))
}

// PostIngestHandler handles the uploading of PDF or DOCX documents for knowledge-base ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job that extends the knowledge base.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  true  "The display name of the document"
// @Param        document       formData  file    true  "The PDF, DOCX, RTF or TXT file to upload"
// @Success      202  {object}  api.InitJobResponse  "Accepted - returns the job id"
// @Failure      400  {object}  api.JobResponse  "Bad Request - Missing fields or file too large"
// @Failure      500  {object}  api.JobResponse  "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "addr", r.RemoteAddr)
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		logRH.Error("Couldn't get target directory :", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	const maxUploadSize = 32 << 20 //32mb
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	docName := r.FormValue("document_name")
	if docName == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
	tempFilePath := filepath.Join(targetDir, filename)
	destinationFileWriter, err := os.Create(tempFilePath)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
		return
	}

	queueIngestJob(r, w, newJobData{
		traceId:        traceOf(r),
		documentName:   docName,
		documentSource: tempFilePath,
	})
}

func traceOf(r *http.Request) string {
	if traceId, ok := r.Context().Value(config.TRACE_ID_KEY).(string); ok {
		return traceId
	}
	return ""
}
