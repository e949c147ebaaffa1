// Package matching runs one resume-to-postings matching session end to end.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/fetcher"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/jobs"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/pipeline"
	"github.com/spigell/resume-matcher/internal/resume"
)

// ListingError wraps a failure to collect postings from source pages.
type ListingError struct {
	Err error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("fetch job listings: %v", e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// IsBadRequest reports whether err was caused by the request rather than an upstream failure.
func IsBadRequest(err error) bool {
	return errors.Is(err, resume.ErrNoSource) || errors.Is(err, resume.ErrAmbiguousSource)
}

type Request struct {
	Resume  resume.Source
	Sources []string
	Jobs    []ai.JobPosting
}

type Outcome struct {
	RunID   string
	Results []ai.EvaluationResult
}

type Options struct {
	Provider string
	Filters  filtering.Config
	// Steps builds a fresh filter chain per run. Defaults to filtering.Default.
	Steps func() []filtering.Filter
}

type Service struct {
	fetcher fetcher.ContentFetcher
	matcher ai.Matcher
	opts    Options
	logger  *zap.Logger
}

func New(f fetcher.ContentFetcher, matcher ai.Matcher, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Steps == nil {
		opts.Steps = filtering.Default
	}

	return &Service{
		fetcher: f,
		matcher: matcher,
		opts:    opts,
		logger:  logger,
	}
}

// Run loads the resume, collects postings, filters them and scores every one that is left.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	runID := uuid.NewString()
	log := logger.WithRun(s.logger, runID, s.opts.Provider)

	if err := req.Resume.Validate(); err != nil {
		return nil, err
	}

	log.Info("loading resume", zap.String("source", req.Resume.Kind()))

	resumeText, err := resume.Load(ctx, req.Resume, s.fetcher)
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}

	if resume.IsExtractionFailure(resumeText) {
		log.Warn("resume text is unusable, every posting will be reported as not matching")
	}

	postings := jobs.NewPostings(req.Jobs)

	if len(req.Sources) > 0 {
		log.Info("fetching job listings", zap.Strings("sources", req.Sources))

		listed, err := s.fetcher.FetchJobListings(ctx, req.Sources)
		if err != nil {
			return nil, &ListingError{Err: err}
		}
		postings.Items = append(postings.Items, listed...)
	}

	log.Info("postings collected", zap.Int("count", postings.Len()))

	filters := s.opts.Filters
	filtered, err := filtering.Run(ctx, &filters, filtering.Deps{Logger: log}, s.opts.Steps(), postings)
	if err != nil {
		return nil, fmt.Errorf("filter postings: %w", err)
	}

	results := pipeline.New(s.fetcher, s.matcher, log).EvaluateAll(ctx, resumeText, filtered.Items)

	return &Outcome{RunID: runID, Results: results}, nil
}
