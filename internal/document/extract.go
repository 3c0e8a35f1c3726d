// Package document extracts plain text from PDF attachments.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// ExtractionError reports that an attachment could not be parsed as a PDF
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to read PDF: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor turns PDF bytes into page-delimited text
type Extractor struct {
	logger zerolog.Logger
}

func NewExtractor(logger zerolog.Logger) Extractor {
	return Extractor{logger: logger.With().Str("component", "extractor").Logger()}
}

// PageMarker returns the line that precedes the text of the given 1-based page
func PageMarker(page int) string {
	return fmt.Sprintf("--- Page %d ---", page)
}

// Extract returns the text of every page in order, each preceded by its page marker. Pages without text, or whose
// content cannot be read, are skipped with a warning. A document that cannot be parsed at all is reported as
// *ExtractionError
func (e Extractor) Extract(b []byte) (text string, err error) {
	// The parser panics on some kinds of corrupt input
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", &ExtractionError{Err: err}
	}

	var out strings.Builder
	numPages := reader.NumPage()
	for n := 1; n <= numPages; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			e.logger.Warn().Int("page", n).Msg("Page object missing from PDF")
			continue
		}
		pageText, err := plainText(page)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", n).Msg("Failed to extract text from page of the PDF")
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			e.logger.Warn().Int("page", n).Msg("No text found on page of the PDF")
			continue
		}
		out.WriteString(PageMarker(n))
		out.WriteString("\n")
		out.WriteString(pageText)
		out.WriteString("\n")
	}

	return out.String(), nil
}

// plainText extracts the text of a single page. A corrupt content stream fails only that page
func plainText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("content stream panic: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}
