package resume

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionFailedPrefix marks text that is an extraction error message rather than resume content.
const ExtractionFailedPrefix = "Error processing PDF"

// ExtractPDFText returns the plain text of a PDF document.
// It never fails: on error it returns a message starting with ExtractionFailedPrefix.
func ExtractPDFText(data []byte) string {
	text, err := extractPDF(data)
	if err != nil {
		return fmt.Sprintf("%s: %s", ExtractionFailedPrefix, err)
	}
	return text
}

// IsExtractionFailure reports whether text is empty or an extraction error marker.
func IsExtractionFailure(text string) bool {
	return strings.TrimSpace(text) == "" || strings.HasPrefix(text, ExtractionFailedPrefix)
}

func extractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", errors.New("empty document")
	}

	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}

	text = cleanText(builder.String())
	if text == "" {
		return "", errors.New("no text content found in pdf")
	}

	return text, nil
}

func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
