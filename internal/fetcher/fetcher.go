// Package fetcher defines how job postings and resumes are retrieved.
package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/resume-matcher/internal/ai"
)

const (
	ProviderFirecrawl = "firecrawl"
	ProviderDirect    = "direct"
)

// ContentFetcher retrieves textual content for job postings and resumes.
type ContentFetcher interface {
	// FetchJobContent returns page text or markdown for a job posting URL.
	FetchJobContent(ctx context.Context, url string) (string, error)
	// FetchJobListings extracts job postings from every source page and flattens them.
	FetchJobListings(ctx context.Context, sourceURLs []string) ([]ai.JobPosting, error)
	// FetchResumeText returns resume text for a URL-sourced resume.
	FetchResumeText(ctx context.Context, sourceURL string) (string, error)
}

// NormalizeProvider maps a configured provider name to a known one.
// An empty name selects firecrawl.
func NormalizeProvider(name string) (string, error) {
	switch provider := strings.ToLower(strings.TrimSpace(name)); provider {
	case "", ProviderFirecrawl:
		return ProviderFirecrawl, nil
	case ProviderDirect:
		return ProviderDirect, nil
	default:
		return "", fmt.Errorf("unsupported fetcher provider: %s", name)
	}
}
