package kbModel

import "fmt"

type SourceKind string

const (
	KindContent        SourceKind = "content"
	KindImageOCR       SourceKind = "image_ocr"
	KindFileExtraction SourceKind = "file_extraction"
)

// Chunk is the unit of retrievable knowledge. Created once by the offline
// build, immutable afterwards - the live system only reads chunks.
type Chunk struct {
	ID          string     `json:"chunk_id"`
	SourceURL   string     `json:"source_url"`
	SourceTitle string     `json:"source_title"`
	SourceDate  *string    `json:"source_date"` //ISO YYYY-MM-DD, nil when the article had no date
	SourceKind  SourceKind `json:"source_kind"`
	Text        string     `json:"text"`
	Embedding   []float64  `json:"embedding,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	FileURL     string     `json:"file_url,omitempty"`
	LinkText    string     `json:"link_text,omitempty"`
}

// ChunkID renders the zero-padded id of the n-th chunk of a build.
func ChunkID(n int) string {
	return fmt.Sprintf("chunk_%06d", n)
}

// ScoredChunk only lives for the duration of one retrieval.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// DateWindow is an inferred [start, end] range, either side optional.
type DateWindow struct {
	Start *string
	End   *string
}

func (w *DateWindow) IsZero() bool {
	return w == nil || (w.Start == nil && w.End == nil)
}

// Contains reports whether an ISO date string falls inside the window.
// ISO dates compare correctly as plain strings.
func (w *DateWindow) Contains(date string) bool {
	if w.Start != nil && date < *w.Start {
		return false
	}
	if w.End != nil && date > *w.End {
		return false
	}
	return true
}

// Article is the ingestion-boundary record produced by the scraper.
type Article struct {
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Date      string     `json:"date"` //Czech "j. n. Y" or ISO, normalized by the chunker
	Content   string     `json:"content"`
	ImagesOCR []OCRText  `json:"images_ocr_text,omitempty"`
	Files     []FileText `json:"files_extracted_text,omitempty"`
}

type OCRText struct {
	ImageURL string `json:"image_url"`
	Text     string `json:"ocr_text"`
}

type FileText struct {
	FileURL  string `json:"file_url"`
	LinkText string `json:"link_text"`
	Text     string `json:"extracted_text"`
}
