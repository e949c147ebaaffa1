// Package direct fetches job pages and resumes with plain HTTP and local HTML extraction.
package direct

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/resume"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultRequestsPerSec   = 1
	defaultBurst            = 2
	defaultMaxContentLength = 20000
	defaultUserAgent        = "Mozilla/5.0 (compatible; resume-matcher/1.0)"

	maxBodySize      = 10 << 20
	listingWorkers   = 4
	truncationSuffix = "..."
)

type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxContentLength  int
	UserAgent         string
}

type Fetcher struct {
	httpClient       *http.Client
	limiter          *hostLimiter
	logger           *zap.Logger
	userAgent        string
	maxContentLength int
}

func New(opts Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = defaultRequestsPerSec
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = defaultMaxContentLength
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Fetcher{
		httpClient:       &http.Client{Timeout: opts.Timeout},
		limiter:          newHostLimiter(opts.RequestsPerSecond, opts.Burst),
		logger:           logger,
		userAgent:        opts.UserAgent,
		maxContentLength: opts.MaxContentLength,
	}
}

// FetchJobContent returns the main content of a job posting page as markdown.
func (f *Fetcher) FetchJobContent(ctx context.Context, rawURL string) (string, error) {
	page, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	content, err := extractContent(page.body, page.url, f.logger)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", rawURL, err)
	}

	return f.truncate(content), nil
}

// FetchResumeText returns the text of a resume published as a PDF or a web page.
func (f *Fetcher) FetchResumeText(ctx context.Context, rawURL string) (string, error) {
	page, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if page.isPDF() {
		return resume.ExtractPDFText(page.body), nil
	}

	if page.isPlainText() {
		return strings.TrimSpace(string(page.body)), nil
	}

	return extractContent(page.body, page.url, f.logger)
}

// FetchJobListings collects job links from every source page. Any failing
// source fails the whole batch.
func (f *Fetcher) FetchJobListings(ctx context.Context, sourceURLs []string) ([]ai.JobPosting, error) {
	found := make([][]ai.JobPosting, len(sourceURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listingWorkers)

	for i, sourceURL := range sourceURLs {
		g.Go(func() error {
			page, err := f.get(gctx, sourceURL)
			if err != nil {
				return err
			}

			postings, err := extractListings(page.body, page.url)
			if err != nil {
				return fmt.Errorf("parse listings %s: %w", sourceURL, err)
			}

			f.logger.Debug("listings parsed", zap.String("source", sourceURL), zap.Int("count", len(postings)))
			found[i] = postings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var postings []ai.JobPosting
	for _, list := range found {
		for _, posting := range list {
			if _, ok := seen[posting.URL]; ok {
				continue
			}
			seen[posting.URL] = struct{}{}
			postings = append(postings, posting)
		}
	}

	f.logger.Info("job listings extracted", zap.Int("sources", len(sourceURLs)), zap.Int("count", len(postings)))

	return postings, nil
}

type page struct {
	url         *url.URL
	contentType string
	body        []byte
}

func (p page) isPDF() bool {
	return p.contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(p.url.Path), ".pdf")
}

func (p page) isPlainText() bool {
	return p.contentType == "text/plain" || p.contentType == "text/markdown"
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (page, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return page{}, fmt.Errorf("invalid url: %q", rawURL)
	}

	if err := f.limiter.WaitURL(ctx, parsed.String()); err != nil {
		return page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	f.logger.Debug("make request", zap.String("url", parsed.String()))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, fmt.Errorf("fetch %s: bad status: %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	final := parsed
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	return page{url: final, contentType: mediaType, body: body}, nil
}

func (f *Fetcher) truncate(content string) string {
	if len(content) <= f.maxContentLength {
		return content
	}
	return content[:f.maxContentLength] + truncationSuffix
}
