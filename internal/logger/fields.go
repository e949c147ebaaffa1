package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by every component that logs about a run.
const (
	FieldRunID    = "run_id"
	FieldFetcher  = "fetcher"
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldJobURL   = "job_url"
	FieldJobTitle = "job_title"
)

// WithRun tags a logger with the run it serves and the fetcher backend.
func WithRun(log *zap.Logger, runID, fetcher string) *zap.Logger {
	return with(log, FieldRunID, runID, FieldFetcher, fetcher)
}

// WithFetcher tags a logger with the content fetcher backend.
func WithFetcher(log *zap.Logger, fetcher string) *zap.Logger {
	return with(log, FieldFetcher, fetcher)
}

// WithEvaluator tags a logger with the AI provider and model scoring postings.
func WithEvaluator(log *zap.Logger, provider, model string) *zap.Logger {
	return with(log, FieldProvider, provider, FieldModel, model)
}

// WithJob tags a logger with the posting being evaluated.
func WithJob(log *zap.Logger, url, title string) *zap.Logger {
	return with(log, FieldJobURL, url, FieldJobTitle, title)
}

// with attaches key/value pairs, skipping blank values. A nil logger becomes a no-op one.
func with(log *zap.Logger, pairs ...string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}

	fields := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if value := strings.TrimSpace(pairs[i+1]); value != "" {
			fields = append(fields, zap.String(pairs[i], value))
		}
	}

	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
