package resume

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubFetcher struct {
	text string
	err  error
	url  string
}

func (s *stubFetcher) FetchResumeText(_ context.Context, sourceURL string) (string, error) {
	s.url = sourceURL
	return s.text, s.err
}

func TestLoadText(t *testing.T) {
	text, err := Load(context.Background(), Source{Text: "Go developer"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Go developer" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestLoadValidatesSource(t *testing.T) {
	if _, err := Load(context.Background(), Source{}, nil); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}

	_, err := Load(context.Background(), Source{Text: "a", URL: "https://example.com/cv.pdf"}, nil)
	if !errors.Is(err, ErrAmbiguousSource) {
		t.Fatalf("expected ErrAmbiguousSource, got %v", err)
	}
}

func TestLoadURL(t *testing.T) {
	fetcher := &stubFetcher{text: "# Jane Doe"}
	text, err := Load(context.Background(), Source{URL: " https://example.com/cv.pdf "}, fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "# Jane Doe" {
		t.Fatalf("unexpected text: %q", text)
	}
	if fetcher.url != "https://example.com/cv.pdf" {
		t.Fatalf("expected trimmed url, got %q", fetcher.url)
	}

	fetcher = &stubFetcher{err: errors.New("unauthorized")}
	if _, err := Load(context.Background(), Source{URL: "https://example.com"}, fetcher); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestLoadPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("Senior Go engineer"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	text, err := Load(context.Background(), Source{File: path}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Senior Go engineer" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestLoadBrokenPDFReturnsMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, []byte("definitely not a pdf"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	text, err := Load(context.Background(), Source{File: path}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(text, ExtractionFailedPrefix) {
		t.Fatalf("expected extraction failure marker, got %q", text)
	}
	if !IsExtractionFailure(text) {
		t.Fatal("expected IsExtractionFailure to detect the marker")
	}
}

func TestExtractPDFTextEmpty(t *testing.T) {
	text := ExtractPDFText(nil)
	if !strings.HasPrefix(text, ExtractionFailedPrefix) {
		t.Fatalf("expected marker for empty input, got %q", text)
	}
}

func TestIsExtractionFailure(t *testing.T) {
	cases := map[string]bool{
		"":                                 true,
		"   ":                              true,
		"Error processing PDF: bad header": true,
		"Experienced engineer":             false,
	}
	for input, expect := range cases {
		if got := IsExtractionFailure(input); got != expect {
			t.Fatalf("IsExtractionFailure(%q) = %v, expected %v", input, got, expect)
		}
	}
}
