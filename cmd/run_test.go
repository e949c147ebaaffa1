package cmd

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/fetcher/direct"
	"github.com/spigell/resume-matcher/internal/fetcher/firecrawl"
	"github.com/spigell/resume-matcher/internal/jobs"
	"github.com/spigell/resume-matcher/internal/report"
)

func testConfig() *Config {
	return &Config{
		Fetcher: &FetcherConfig{Firecrawl: &FirecrawlConfig{}, Direct: &DirectConfig{}},
		AI:      &AIConfig{Gemini: &GeminiConfig{}},
		Server:  &ServerConfig{},
	}
}

func testDocument() report.Document {
	return report.NewDocument("run-1", []ai.EvaluationResult{
		{Job: ai.JobPosting{Title: "Go Engineer", URL: "https://jobs.example.com/1"}, Verdict: ai.MatchVerdict{IsMatch: true, MatchScore: 80}},
		{Job: ai.JobPosting{Title: "SRE", URL: "https://careers.example.org/2"}, Verdict: ai.MatchVerdict{MatchScore: 30}},
	})
}

func TestBuildRequestMergesConfigAndFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--resume-text", "Go developer",
		"--source", "https://example.com/careers",
		"--job", "https://example.com/jobs/1",
		"--job", "  ",
	}))

	config := testConfig()
	config.Sources = []string{"https://config.example.com/careers"}
	config.Jobs = []string{"https://config.example.com/jobs/7"}

	req := buildRequest(cmd, config)

	assert.Equal(t, "Go developer", req.Resume.Text)
	assert.Empty(t, req.Resume.File)
	assert.Equal(t, []string{"https://config.example.com/careers", "https://example.com/careers"}, req.Sources)
	assert.Equal(t, []ai.JobPosting{
		{Title: "https://config.example.com/jobs/7", URL: "https://config.example.com/jobs/7"},
		{Title: "https://example.com/jobs/1", URL: "https://example.com/jobs/1"},
	}, req.Jobs)
	assert.Equal(t, []string{"https://config.example.com/careers"}, config.Sources)
}

func TestRedactedMasksKeys(t *testing.T) {
	config := testConfig()
	config.Fetcher.Firecrawl.APIKey = "fc-secret"
	config.AI.Gemini.APIKey = "gm-secret"
	config.AI.Gemini.Model = "gemini-2.0-flash"

	masked := redacted(config)

	assert.Equal(t, "***", masked.Fetcher.Firecrawl.APIKey)
	assert.Equal(t, "***", masked.AI.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash", masked.AI.Gemini.Model)
	assert.Equal(t, "fc-secret", config.Fetcher.Firecrawl.APIKey)
	assert.Equal(t, "gm-secret", config.AI.Gemini.APIKey)
}

func TestHandleActionExitAndInvalid(t *testing.T) {
	doc := testDocument()

	err := handleAction(PromptExit, zap.NewNop(), testConfig(), doc, report.FormatText)
	assert.True(t, errors.Is(err, errExit))

	err = handleAction("Apply everywhere", zap.NewNop(), testConfig(), doc, report.FormatText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid action")
}

func TestAppendToExcludeFile(t *testing.T) {
	config := testConfig()
	config.ExcludeFile = filepath.Join(t.TempDir(), "reviewed.json")
	doc := testDocument()

	require.NoError(t, appendToExcludeFile(zap.NewNop(), config, doc))
	require.NoError(t, appendToExcludeFile(zap.NewNop(), config, doc))

	excluded, err := jobs.GetExcludedFromFile(config.ExcludeFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jobs.example.com/1", "https://careers.example.org/2"}, excluded.URLs())
	assert.Equal(t, reviewedReason, excluded.Items[0].Reason)
	assert.Equal(t, "careers.example.org", excluded.Items[1].Host)
}

func TestAppendToExcludeFileNotConfigured(t *testing.T) {
	assert.NoError(t, appendToExcludeFile(zap.NewNop(), testConfig(), testDocument()))
}

func TestNewFetcher(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		config := testConfig()
		config.Fetcher.Provider = "Direct"
		config.Fetcher.Direct.Timeout = 5 * time.Second

		f, provider, err := newFetcher(config, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "direct", provider)
		assert.IsType(t, &direct.Fetcher{}, f)
	})

	t.Run("firecrawl overrides", func(t *testing.T) {
		config := testConfig()
		config.UserAgent = "custom-agent"
		config.Fetcher.Firecrawl.APIKey = "fc-key"
		config.Fetcher.Firecrawl.APIURL = "http://127.0.0.1:3002"
		config.Fetcher.Firecrawl.PollInterval = time.Second

		f, provider, err := newFetcher(config, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "firecrawl", provider)

		client, ok := f.(*firecrawl.Client)
		require.True(t, ok)
		assert.Equal(t, "http://127.0.0.1:3002", client.APIURL)
		assert.Equal(t, time.Second, client.PollInterval)
		assert.Equal(t, "custom-agent", client.UserAgent)
	})

	t.Run("firecrawl without key", func(t *testing.T) {
		t.Setenv("FIRECRAWL_API_KEY", "")

		_, _, err := newFetcher(testConfig(), zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FIRECRAWL_API_KEY")
	})

	t.Run("unknown provider", func(t *testing.T) {
		config := testConfig()
		config.Fetcher.Provider = "selenium"

		_, _, err := newFetcher(config, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestNewAIMatcherRejectsUnknownProvider(t *testing.T) {
	cfg := &AIConfig{Provider: "openai", Gemini: &GeminiConfig{}}

	_, err := newAIMatcher(t.Context(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported ai provider")
}
