package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type IngestResponse struct {
	FileName string `json:"file_name"`
}

type Result struct {
	Status         string          `json:"status"`
	IngestResponse *IngestResponse `json:"ingest_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// ErrorResponse is the flat error shape of the chat endpoints.
type ErrorResponse struct {
	Error string `json:"error" example:"Prompt is required"`
}

// requests---------------------

type ChatRequest struct {
	Prompt          string `json:"prompt" validate:"required"`
	UseAltEmbedding bool   `json:"use_alt_embedding,omitempty"`
	ChatID          string `json:"chat_id,omitempty"`
}

type AskResponse struct {
	Response string   `json:"response"`
	ChatID   string   `json:"chat_id,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

type IngestDocumentRequest struct {
	DocumentName string `json:"document_name" validate:"required"`
}
