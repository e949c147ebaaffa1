// Package firecrawl implements the content fetcher on top of the Firecrawl scraping API.
package firecrawl

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/resume-matcher/internal/ai"
	"go.uber.org/zap"
)

const (
	apiURL       = "https://api.firecrawl.dev"
	userAgent    = "spigell/resume-matcher"
	pollInterval = 2 * time.Second
)

// ErrMissingAPIKey is returned when the client is built without a credential.
var ErrMissingAPIKey = errors.New("firecrawl api key is required")

type Client struct {
	token        string
	logger       *zap.Logger
	HTTPClient   *http.Client
	UserAgent    string
	APIURL       string
	PollInterval time.Duration
}

// New creates a Firecrawl client. The API key is passed in explicitly and
// never read from the process environment.
func New(apiKey string, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  apiKey,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:       logger,
		UserAgent:    userAgent,
		PollInterval: pollInterval,
	}, nil
}

// FetchJobContent returns the markdown of a job posting page.
func (c *Client) FetchJobContent(ctx context.Context, url string) (string, error) {
	return c.scrapeMarkdown(ctx, url)
}

// FetchResumeText returns the markdown of a resume document (HTML page or PDF).
func (c *Client) FetchResumeText(ctx context.Context, sourceURL string) (string, error) {
	return c.scrapeMarkdown(ctx, sourceURL)
}

// FetchJobListings extracts job postings from all source pages in one batch job.
func (c *Client) FetchJobListings(ctx context.Context, sourceURLs []string) ([]ai.JobPosting, error) {
	if len(sourceURLs) == 0 {
		return nil, nil
	}
	return c.batchExtractJobs(ctx, sourceURLs)
}
