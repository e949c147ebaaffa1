package firecrawl

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const scrapePath = "/v1/scrape"

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Data    scrapeData `json:"data"`
}

type scrapeData struct {
	Markdown string         `json:"markdown"`
	Metadata scrapeMetadata `json:"metadata"`
}

type scrapeMetadata struct {
	Title      string `json:"title"`
	SourceURL  string `json:"sourceURL"`
	StatusCode int    `json:"statusCode"`
}

func (c *Client) scrapeMarkdown(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("url is required")
	}

	var resp scrapeResponse
	if err := c.postJSON(ctx, scrapePath, scrapeRequest{URL: url, Formats: []string{"markdown"}}, &resp); err != nil {
		return "", fmt.Errorf("scrape %s: %w", url, err)
	}

	if !resp.Success {
		if resp.Error != "" {
			return "", fmt.Errorf("scrape %s: %s", url, resp.Error)
		}
		return "", fmt.Errorf("scrape %s: request was not successful", url)
	}

	if strings.TrimSpace(resp.Data.Markdown) == "" {
		return "", fmt.Errorf("scrape %s: empty content", url)
	}

	c.logger.Debug("page scraped",
		zap.String("url", url),
		zap.String("title", resp.Data.Metadata.Title),
		zap.Int("length", len(resp.Data.Markdown)),
	)

	return resp.Data.Markdown, nil
}
