package chunker

import (
	"regexp"
	"strings"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/domain/kbModel"
)

var paragraphSplitter = regexp.MustCompile(`\n{2,}`)

// Chunker splits article text into paragraph chunks with provenance. The id
// counter is shared across every document of one knowledge-base build so ids
// stay globally unique within the build.
type Chunker struct {
	counter   int
	minLength int
}

func New() *Chunker {
	return NewAt(0)
}

// NewAt seeds the counter, for builds that append to an existing base.
func NewAt(counter int) *Chunker {
	return &Chunker{counter: counter, minLength: config.MinChunkLength}
}

// Count returns how many chunks this chunker has produced so far.
func (c *Chunker) Count() int {
	return c.counter
}

// ChunkArticle fans an article out into content, OCR and file-extraction
// chunks, each carrying the article's provenance.
func (c *Chunker) ChunkArticle(article kbModel.Article) []kbModel.Chunk {
	date := NormalizeDate(article.Date)

	var chunks []kbModel.Chunk
	chunks = append(chunks, c.ChunkText(article.Content, provenance{
		url: article.URL, title: article.Title, date: date, kind: kbModel.KindContent,
	})...)

	for _, ocr := range article.ImagesOCR {
		chunks = append(chunks, c.ChunkText(ocr.Text, provenance{
			url: article.URL, title: article.Title, date: date,
			kind: kbModel.KindImageOCR, imageURL: ocr.ImageURL,
		})...)
	}

	for _, file := range article.Files {
		// extraction failures were recorded inline by the scraper, skip them
		if strings.HasPrefix(file.Text, "OCR Error:") {
			continue
		}
		chunks = append(chunks, c.ChunkText(file.Text, provenance{
			url: article.URL, title: article.Title, date: date,
			kind: kbModel.KindFileExtraction, fileURL: file.FileURL, linkText: file.LinkText,
		})...)
	}
	return chunks
}

// ChunkDocument splits standalone document text into file-extraction chunks,
// for documents ingested outside the article scrape.
func (c *Chunker) ChunkDocument(text string, fileURL string, linkText string, date *string) []kbModel.Chunk {
	return c.ChunkText(text, provenance{
		title: linkText, date: date,
		kind: kbModel.KindFileExtraction, fileURL: fileURL, linkText: linkText,
	})
}

type provenance struct {
	url, title string
	date       *string
	kind       kbModel.SourceKind
	imageURL   string
	fileURL    string
	linkText   string
}

// ChunkText splits one text into paragraph chunks. Paragraphs shorter than
// the configured minimum are dropped, but a document with non-empty text
// never ends up with zero chunks: if filtering would remove everything, the
// paragraphs are kept as they are.
func (c *Chunker) ChunkText(text string, p provenance) []kbModel.Chunk {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if cleaned == "" {
		return nil
	}

	paragraphs := paragraphSplitter.Split(cleaned, -1)
	kept := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(paragraph) >= c.minLength {
			kept = append(kept, paragraph)
		}
	}
	if len(kept) == 0 {
		// everything was short; keep the trimmed paragraphs rather than
		// leaving the document unretrievable
		for _, paragraph := range paragraphs {
			paragraph = strings.TrimSpace(paragraph)
			if paragraph != "" {
				kept = append(kept, paragraph)
			}
		}
	}

	chunks := make([]kbModel.Chunk, 0, len(kept))
	for _, paragraph := range kept {
		c.counter++
		chunks = append(chunks, kbModel.Chunk{
			ID:          kbModel.ChunkID(c.counter),
			SourceURL:   p.url,
			SourceTitle: p.title,
			SourceDate:  p.date,
			SourceKind:  p.kind,
			Text:        paragraph,
			ImageURL:    p.imageURL,
			FileURL:     p.fileURL,
			LinkText:    p.linkText,
		})
	}
	return chunks
}
