package firecrawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/utils"
	"go.uber.org/zap"
)

const (
	batchScrapePath = "/v1/batch/scrape"
	extractPrompt   = "Extract information based on the schema provided"

	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// jobListingsSchema describes the extraction target: {"jobs": [{"title", "url"}]}.
var jobListingsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"jobs": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string"},
					"url":   map[string]any{"type": "string"},
				},
				"required": []string{"title", "url"},
			},
		},
	},
	"required": []string{"jobs"},
}

type extractOptions struct {
	Schema map[string]any `json:"schema"`
	Prompt string         `json:"prompt"`
}

type batchScrapeRequest struct {
	URLs    []string       `json:"urls"`
	Formats []string       `json:"formats"`
	Extract extractOptions `json:"extract"`
}

type batchScrapeResponse struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error"`
	ID          string   `json:"id"`
	InvalidURLs []string `json:"invalidURLs"`
}

type batchStatusResponse struct {
	Status    string          `json:"status"`
	Total     int             `json:"total"`
	Completed int             `json:"completed"`
	Error     string          `json:"error"`
	Next      string          `json:"next"`
	Data      []batchDocument `json:"data"`
}

type batchDocument struct {
	Extract  map[string]any `json:"extract"`
	Metadata scrapeMetadata `json:"metadata"`
}

func (c *Client) batchExtractJobs(ctx context.Context, sourceURLs []string) ([]ai.JobPosting, error) {
	var started batchScrapeResponse
	err := c.postJSON(ctx, batchScrapePath, batchScrapeRequest{
		URLs:    sourceURLs,
		Formats: []string{"extract"},
		Extract: extractOptions{Schema: jobListingsSchema, Prompt: extractPrompt},
	}, &started)
	if err != nil {
		return nil, fmt.Errorf("start batch scrape: %w", err)
	}

	if started.ID == "" {
		if started.Error != "" {
			return nil, fmt.Errorf("start batch scrape: %s", started.Error)
		}
		return nil, fmt.Errorf("start batch scrape: no job id returned")
	}

	if len(started.InvalidURLs) > 0 {
		c.logger.Warn("firecrawl rejected source urls", zap.Strings("urls", started.InvalidURLs))
	}

	c.logger.Info("batch scrape started", zap.String("id", started.ID), zap.Int("sources", len(sourceURLs)))

	documents, err := c.waitForBatch(ctx, started.ID)
	if err != nil {
		return nil, err
	}

	var postings []ai.JobPosting
	for _, doc := range documents {
		found, err := decodeJobs(doc)
		if err != nil {
			c.logger.Warn("skip malformed extraction",
				zap.String("source", doc.Metadata.SourceURL),
				zap.Error(err),
			)
			continue
		}
		postings = append(postings, found...)
	}

	c.logger.Info("job listings extracted", zap.Int("count", len(postings)))

	return postings, nil
}

func (c *Client) waitForBatch(ctx context.Context, id string) ([]batchDocument, error) {
	statusURL := batchScrapePath + "/" + url.PathEscape(id)

	for {
		var status batchStatusResponse
		if err := c.getJSON(ctx, statusURL, &status); err != nil {
			return nil, fmt.Errorf("check batch scrape %s: %w", id, err)
		}

		switch status.Status {
		case statusCompleted:
			return c.collectPages(ctx, status)
		case statusFailed, statusCancelled:
			if status.Error != "" {
				return nil, fmt.Errorf("batch scrape %s %s: %s", id, status.Status, status.Error)
			}
			return nil, fmt.Errorf("batch scrape %s %s", id, status.Status)
		}

		c.logger.Debug("batch scrape in progress",
			zap.String("id", id),
			zap.String("status", status.Status),
			zap.Int("completed", status.Completed),
			zap.Int("total", status.Total),
		)

		if err := utils.WaitFor(ctx, c.PollInterval); err != nil {
			return nil, err
		}
	}
}

// collectPages follows the "next" links of a completed batch.
func (c *Client) collectPages(ctx context.Context, status batchStatusResponse) ([]batchDocument, error) {
	documents := status.Data
	next := status.Next

	for next != "" {
		var page batchStatusResponse
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("fetch batch page: %w", err)
		}
		documents = append(documents, page.Data...)
		next = page.Next
	}

	return documents, nil
}

func decodeJobs(doc batchDocument) ([]ai.JobPosting, error) {
	raw, ok := doc.Extract["jobs"]
	if !ok || raw == nil {
		return nil, nil
	}

	var postings []ai.JobPosting
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &postings,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}

	base, _ := url.Parse(doc.Metadata.SourceURL)

	result := make([]ai.JobPosting, 0, len(postings))
	for _, posting := range postings {
		posting.Title = strings.TrimSpace(posting.Title)
		posting.URL = resolveURL(base, strings.TrimSpace(posting.URL))
		if posting.URL == "" {
			continue
		}
		result = append(result, posting)
	}

	return result, nil
}

func resolveURL(base *url.URL, link string) string {
	if link == "" {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	if ref.IsAbs() || base == nil || !base.IsAbs() {
		return link
	}
	return base.ResolveReference(ref).String()
}
