package resume

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoSource        = errors.New("resume source is required: set a file, url or text")
	ErrAmbiguousSource = errors.New("only one resume source can be used at a time")
)

// Source describes where the resume comes from. Exactly one field must be set.
type Source struct {
	File string
	URL  string
	Text string
}

// URLFetcher retrieves resume text for a URL-sourced resume.
type URLFetcher interface {
	FetchResumeText(ctx context.Context, sourceURL string) (string, error)
}

// Kind returns a short name of the configured source for logging.
func (s Source) Kind() string {
	switch {
	case strings.TrimSpace(s.File) != "":
		return "file"
	case strings.TrimSpace(s.URL) != "":
		return "url"
	case strings.TrimSpace(s.Text) != "":
		return "text"
	default:
		return ""
	}
}

// Validate checks that exactly one source is configured.
func (s Source) Validate() error {
	set := 0
	for _, v := range []string{s.File, s.URL, s.Text} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}

	switch set {
	case 0:
		return ErrNoSource
	case 1:
		return nil
	default:
		return ErrAmbiguousSource
	}
}

// Load resolves the resume text. PDF files that cannot be parsed do not fail here:
// the returned text carries the extraction failure marker instead.
func Load(ctx context.Context, src Source, fetcher URLFetcher) (string, error) {
	if err := src.Validate(); err != nil {
		return "", err
	}

	switch src.Kind() {
	case "file":
		return loadFile(strings.TrimSpace(src.File))
	case "url":
		if fetcher == nil {
			return "", errors.New("content fetcher is required for resume url")
		}
		text, err := fetcher.FetchResumeText(ctx, strings.TrimSpace(src.URL))
		if err != nil {
			return "", fmt.Errorf("fetch resume from %q: %w", src.URL, err)
		}
		return text, nil
	default:
		return src.Text, nil
	}
}

// FromBytes converts uploaded file content into resume text.
func FromBytes(name string, data []byte) string {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return ExtractPDFText(data)
	}
	return string(data)
}

func loadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading resume file %q: %w", path, err)
	}
	return FromBytes(path, data), nil
}
