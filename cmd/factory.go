package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/ai/gemini"
	"github.com/spigell/resume-matcher/internal/fetcher"
	"github.com/spigell/resume-matcher/internal/fetcher/direct"
	"github.com/spigell/resume-matcher/internal/fetcher/firecrawl"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/secrets"
)

// newService wires the configured fetcher and matcher into a matching service.
func newService(ctx context.Context, config *Config, log *zap.Logger) (*matching.Service, error) {
	contentFetcher, provider, err := newFetcher(config, log)
	if err != nil {
		return nil, fmt.Errorf("building content fetcher: %w", err)
	}

	matcher, err := newAIMatcher(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building ai matcher: %w", err)
	}

	return matching.New(contentFetcher, matcher, matching.Options{
		Provider: provider,
		Filters: filtering.Config{
			ExcludeFile:  strings.TrimSpace(config.ExcludeFile),
			ExcludeHosts: config.ExcludeHosts,
			MaxJobs:      config.MaxJobs,
		},
	}, log), nil
}

func newFetcher(config *Config, log *zap.Logger) (fetcher.ContentFetcher, string, error) {
	provider, err := fetcher.NormalizeProvider(config.Fetcher.Provider)
	if err != nil {
		return nil, "", err
	}

	fetcherLogger := logger.WithFetcher(log, provider)

	switch provider {
	case fetcher.ProviderDirect:
		cfg := config.Fetcher.Direct
		return direct.New(direct.Options{
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
			MaxContentLength:  cfg.MaxContentLength,
			UserAgent:         config.UserAgent,
		}, fetcherLogger), provider, nil

	default:
		cfg := config.Fetcher.Firecrawl
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "firecrawl api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   "FIRECRAWL_API_KEY",
		})
		if err != nil {
			return nil, "", fmt.Errorf("%w (or set fetcher.firecrawl.api-key-file, FIRECRAWL_API_KEY_FILE)", err)
		}

		client, err := firecrawl.New(apiKey, fetcherLogger)
		if err != nil {
			return nil, "", err
		}
		if cfg.APIURL != "" {
			client.APIURL = cfg.APIURL
		}
		if cfg.PollInterval > 0 {
			client.PollInterval = cfg.PollInterval
		}
		if config.UserAgent != "" {
			client.UserAgent = config.UserAgent
		}

		return client, provider, nil
	}
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Matcher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set ai.gemini.api-key-file, GEMINI_API_KEY_FILE)", err)
	}

	aiLogger := logger.WithEvaluator(log, "gemini", cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, aiLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewMatcher(generator, cfg.Gemini.MaxLogLength, aiLogger), nil
}
