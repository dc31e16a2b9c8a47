package dateparse

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/kbModel"
	"github.com/tatce/ObecRAG/internal/rag/llm"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

// models love wrapping JSON in prose; grab the first brace-delimited object
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Extractor infers an optional [start, end] date window from the query via a
// deterministic LLM call. Every failure mode degrades to an empty window -
// "no temporal constraint" - and never aborts the request.
type Extractor struct {
	provider llm.Provider
	logger   *logger_i.Logger
}

type dateReply struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

func New(provider llm.Provider) *Extractor {
	return &Extractor{
		provider: provider,
		logger:   logger_i.NewLogger("DateParser"),
	}
}

// Extract returns the inferred window for the query at the given reference
// time. Both bounds nil means no temporal constraint.
func (e *Extractor) Extract(ctx context.Context, query string, referenceTime time.Time) *kbModel.DateWindow {
	empty := &kbModel.DateWindow{}
	if e.provider == nil {
		return empty
	}

	queryWithTime := fmt.Sprintf("%s The current time is %s.", query, referenceTime.Format("2006-01-02"))
	messages := []llm.Message{
		llm.System(config.DateParserSystemPrompt),
		llm.User(fmt.Sprintf(config.DateParserPromptTemplate, queryWithTime)),
	}

	reply, err := e.provider.Complete(ctx, messages, 0.0)
	if err != nil {
		e.logger.Warn("Date extraction call failed, skipping temporal filter", "error", err)
		return empty
	}

	window, ok := parseReply(reply)
	if !ok {
		e.logger.Warn("Date extraction reply not parseable, skipping temporal filter", "reply", reply)
		return empty
	}
	e.logger.Debug("Extracted date window", "start", window.Start, "end", window.End)
	return window
}

// parseReply tries strict decoding of the whole reply first, then a pattern
// search for an embedded JSON object. Both keys must be present.
func parseReply(reply string) (*kbModel.DateWindow, bool) {
	if window, ok := decodeWindow([]byte(reply)); ok {
		return window, true
	}
	if match := jsonObjectPattern.FindString(reply); match != "" {
		return decodeWindow([]byte(match))
	}
	return nil, false
}

func decodeWindow(data []byte) (*kbModel.DateWindow, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, false
	}
	if _, ok := keys["start_date"]; !ok {
		return nil, false
	}
	if _, ok := keys["end_date"]; !ok {
		return nil, false
	}

	var reply dateReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, false
	}
	return &kbModel.DateWindow{
		Start: validDate(reply.StartDate),
		End:   validDate(reply.EndDate),
	}, true
}

func validDate(date *string) *string {
	if date == nil {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *date); err != nil {
		return nil
	}
	return date
}
