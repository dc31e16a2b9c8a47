package assemble

import (
	"strings"

	"github.com/tatce/ObecRAG/internal/domain/kbModel"
)

// NoContextSentinel is forwarded to the model instead of aborting, so the
// assistant can still give a best-effort answer without grounding.
const NoContextSentinel = "No relevant context found in the knowledge base for this query.\n\n"

const header = "Relevant context from knowledge base:\n"
const separator = "----\n"

// Context renders the ranked chunks into the grounding block fed to the
// chat model, in ranked order.
func Context(ranked []kbModel.ScoredChunk) string {
	if len(ranked) == 0 {
		return NoContextSentinel
	}

	var b strings.Builder
	b.WriteString(header)
	for _, sc := range ranked {
		chunk := sc.Chunk
		b.WriteString(separator)
		b.WriteString("Source Title: " + orNA(chunk.SourceTitle) + "\n")
		b.WriteString("Source URL: " + orNA(chunk.SourceURL) + "\n")
		if chunk.ImageURL != "" {
			b.WriteString("Image URL: " + chunk.ImageURL + "\n")
		}
		if chunk.SourceDate != nil {
			b.WriteString("Source Date: " + *chunk.SourceDate + "\n")
		}
		b.WriteString("Content:\n" + chunk.Text + "\n")
	}
	b.WriteString(separator)
	b.WriteString("\n")
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// SourceURLs lists the distinct source links of the ranked chunks, in rank
// order, for the response metadata.
func SourceURLs(ranked []kbModel.ScoredChunk) []string {
	seen := make(map[string]bool, len(ranked))
	var urls []string
	for _, sc := range ranked {
		url := sc.Chunk.SourceURL
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		urls = append(urls, url)
	}
	return urls
}
