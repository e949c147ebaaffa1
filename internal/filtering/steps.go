package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/jobs"
)

type dedupeURLFilter struct{}

// NewDedupeURL creates a filter that keeps the first posting for every URL.
func NewDedupeURL() Filter {
	return &dedupeURLFilter{}
}

func (f *dedupeURLFilter) Name() string { return "dedupe_url" }

func (f *dedupeURLFilter) Disable(string) {}

func (f *dedupeURLFilter) IsEnabled() bool { return true }

func (f *dedupeURLFilter) Validate(*Config) error { return nil }

func (f *dedupeURLFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()

	seen := make(map[string]struct{}, initial)
	kept := make([]ai.JobPosting, 0, initial)
	var dropped []string
	for _, posting := range p.Items {
		url := strings.TrimSpace(posting.URL)
		if url == "" {
			dropped = append(dropped, posting.Title)
			continue
		}
		if _, ok := seen[url]; ok {
			dropped = append(dropped, url)
			continue
		}
		seen[url] = struct{}{}
		posting.URL = url
		kept = append(kept, posting)
	}
	p.Items = kept

	if len(dropped) > 0 {
		deps.Logger.Info("dropping duplicate or empty posting urls",
			zap.Strings("dropped", dropped),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes postings listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	if f.path == "" {
		return p, unchanged(p), nil
	}

	initial := p.Len()
	excluded, err := jobs.GetExcludedFromFile(f.path)
	if err != nil {
		return p, Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	removed := p.Exclude(jobs.PostingURLField, excluded.URLs())
	if len(removed) > 0 {
		deps.Logger.Info("excluding postings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_postings", removed),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(removed), Left: p.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type excludeHostsFilter struct {
	hosts []string
}

// NewExcludeHosts creates a filter that removes postings published on configured hosts.
func NewExcludeHosts() Filter {
	return &excludeHostsFilter{}
}

func (f *excludeHostsFilter) Name() string { return "exclude_hosts" }

func (f *excludeHostsFilter) Disable(string) {}

func (f *excludeHostsFilter) IsEnabled() bool { return true }

func (f *excludeHostsFilter) Validate(cfg *Config) error {
	f.hosts = nil
	if cfg == nil {
		return nil
	}
	for _, host := range cfg.ExcludeHosts {
		if host = strings.TrimSpace(host); host != "" {
			f.hosts = append(f.hosts, host)
		}
	}
	return nil
}

func (f *excludeHostsFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	if len(f.hosts) == 0 {
		return p, unchanged(p), nil
	}

	initial := p.Len()
	removed := p.Exclude(jobs.PostingHostField, f.hosts)
	if len(removed) > 0 {
		deps.Logger.Info("excluding postings by host",
			zap.Strings("excluded_hosts", f.hosts),
			zap.Strings("excluded_postings", removed),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(removed), Left: p.Len()}, nil
}

func (f *excludeHostsFilter) Status() Status {
	details := map[string]string{}
	if len(f.hosts) > 0 {
		details["hosts"] = strings.Join(f.hosts, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type maxJobsFilter struct {
	disabled bool
	reason   string
	limit    int
}

// NewMaxJobs creates a filter that caps the number of postings sent to evaluation.
func NewMaxJobs() Filter {
	return &maxJobsFilter{}
}

func (f *maxJobsFilter) Name() string { return "max_jobs" }

func (f *maxJobsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *maxJobsFilter) IsEnabled() bool { return !f.disabled }

func (f *maxJobsFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg != nil {
		f.limit = cfg.MaxJobs
	}
	if f.limit < 0 {
		return fmt.Errorf("max jobs must not be negative, got %d", f.limit)
	}
	return nil
}

func (f *maxJobsFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.limit == 0 || initial <= f.limit {
		return p, unchanged(p), nil
	}

	dropped := p.Items[f.limit:]
	urls := make([]string, 0, len(dropped))
	for _, posting := range dropped {
		urls = append(urls, posting.URL)
	}
	p.Items = p.Items[:f.limit]

	deps.Logger.Info("limiting postings for evaluation",
		zap.Int("limit", f.limit),
		zap.Strings("skipped_postings", urls),
	)

	return p, Step{Initial: initial, Dropped: len(urls), Left: p.Len()}, nil
}

func (f *maxJobsFilter) Status() Status {
	details := map[string]string{}
	if f.limit > 0 {
		details["limit"] = strconv.Itoa(f.limit)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
