// Package pipeline scores a resume against a batch of job postings concurrently.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const jobErrorPrefix = "Error processing job"

// ContentFetcher is the part of fetcher.ContentFetcher the pipeline needs.
type ContentFetcher interface {
	FetchJobContent(ctx context.Context, url string) (string, error)
}

type Pipeline struct {
	fetcher ContentFetcher
	matcher ai.Matcher
	logger  *zap.Logger
}

func New(fetcher ContentFetcher, matcher ai.Matcher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		fetcher: fetcher,
		matcher: matcher,
		logger:  logger,
	}
}

// EvaluateAll returns exactly one result per job, sorted by score descending.
// A failure in one job never affects the others.
func (p *Pipeline) EvaluateAll(ctx context.Context, resume string, jobs []ai.JobPosting) []ai.EvaluationResult {
	if len(jobs) == 0 {
		return []ai.EvaluationResult{}
	}

	started := time.Now()
	results := make(chan ai.EvaluationResult, len(jobs))

	var g errgroup.Group
	for _, job := range jobs {
		g.Go(func() error {
			results <- ai.EvaluationResult{Job: job, Verdict: *p.evaluate(ctx, resume, job)}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	collected := make([]ai.EvaluationResult, 0, len(jobs))
	matches := 0
	for result := range results {
		if result.Verdict.IsMatch {
			matches++
		}
		collected = append(collected, result)
	}

	Sort(collected)

	p.logger.Info("evaluation finished",
		zap.Int("jobs", len(collected)),
		zap.Int("matches", matches),
		zap.Duration("took", time.Since(started)),
	)

	return collected
}

func (p *Pipeline) evaluate(ctx context.Context, resume string, job ai.JobPosting) (verdict *ai.MatchVerdict) {
	log := logger.WithJob(p.logger, job.URL, job.Title)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job evaluation panicked", zap.Any("panic", r))
			verdict = failed(fmt.Errorf("panic: %v", r))
		}
		verdict.Normalize()
		log.Debug("job evaluated",
			zap.Int("score", verdict.MatchScore),
			zap.Bool("match", verdict.IsMatch),
		)
	}()

	content, err := p.fetcher.FetchJobContent(ctx, job.URL)
	if err != nil {
		log.Warn("failed to fetch job content", zap.Error(err))
		return failed(err)
	}

	verdict = p.matcher.Evaluate(ctx, resume, content)
	if verdict == nil {
		return failed(fmt.Errorf("matcher returned no verdict"))
	}

	return verdict
}

func failed(err error) *ai.MatchVerdict {
	return ai.FailedVerdict(fmt.Sprintf("%s: %v", jobErrorPrefix, err))
}

// Sort orders results by score descending, breaking ties by URL.
func Sort(results []ai.EvaluationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Verdict.MatchScore != results[j].Verdict.MatchScore {
			return results[i].Verdict.MatchScore > results[j].Verdict.MatchScore
		}
		return results[i].Job.URL < results[j].Job.URL
	})
}
