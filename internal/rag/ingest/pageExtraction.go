package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

func extractPDF(path string) ([]rawPage, error) {
	logger.Debug("extractPDF", "attempting extraction", path)
	f, err := pdf.Open(path)
	if err != nil {
		logger.Error("failed opening of pdf file")
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			logger.Debug("extractPDF", "null page", i)
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// skip the bad page, keep the rest of the document
			logger.Error("Error parsing page content", "page", i, "Error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractPlainDocument reads a .odt, .docx, .rtf or plaintext file and
// returns its content as a single page.
func extractPlainDocument(path string) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Error extracting content from doc")
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	return []rawPage{
		{
			Number:  1,
			Content: text,
		},
	}, nil
}

// protectExtract guards against pdf pages that hang the text extractor.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		logger.Error("pageExtract", "timeout", true)
		return "", errors.New("timeout")
	}
}
