package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/jobs"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/report"
	"github.com/spigell/resume-matcher/internal/resume"
)

const (
	PromptShowMatches         = "Show matches only"
	PromptShowAll             = "Show all results"
	PromptReportByHost        = "Report by host"
	PromptResultsToFile       = "Dump results to file"
	PromptPostingsToFile      = "Dump postings to file"
	PromptAppendToExcludeFile = "Append reviewed postings to exclude file"
	PromptExit                = "Exit"

	reviewedReason = "reviewed"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{
		PromptShowMatches,
		PromptShowAll,
		PromptReportByHost,
		PromptResultsToFile,
		PromptPostingsToFile,
		PromptAppendToExcludeFile,
		PromptExit,
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score a resume against job postings and print the ranked report",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)

	viper.BindPFlag("format", runCmd.Flags().Lookup("format"))
	viper.BindPFlag("exclude-file", runCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("max-jobs", runCmd.Flags().Lookup("max-jobs"))
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("resume-file", "", "resume file (.pdf or plain text)")
	cmd.Flags().String("resume-url", "", "URL of a resume PDF or page")
	cmd.Flags().String("resume-text", "", "resume content as text")
	cmd.Flags().StringArray("source", nil, "career page to extract job postings from (repeatable)")
	cmd.Flags().StringArray("job", nil, "job posting URL to evaluate directly (repeatable)")
	cmd.Flags().StringP("format", "o", "", "report format: text, json or yaml")
	cmd.Flags().StringP("exclude-file", "e", "", "special file with postings to exclude. Default is unset.")
	cmd.Flags().Int("max-jobs", 0, "evaluate at most this many postings (0 means no limit)")
	cmd.Flags().BoolP("auto-approve", "y", false, "print the report and exit without the interactive menu")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-matcher", zap.String("version", version))

	// secrets are masked, the rest is safe to print
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	format, err := report.ParseFormat(config.Format)
	if err != nil {
		logger.Fatal("parsing report format", zap.Error(err))
	}

	req := buildRequest(cmd, config)
	if len(req.Sources) == 0 && len(req.Jobs) == 0 {
		logger.Fatal("nothing to evaluate", zap.String("hint", "pass --source/--job flags or set sources/jobs in the config"))
	}

	svc, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the matcher", zap.Error(err))
	}

	outcome, err := svc.Run(ctx, req)
	if err != nil {
		logger.Fatal("matching failed", zap.Error(err))
	}

	doc := report.NewDocument(outcome.RunID, outcome.Results)
	if err := report.Render(os.Stdout, doc, format); err != nil {
		logger.Fatal("rendering report", zap.Error(err))
	}

	if len(outcome.Results) == 0 || cmd.Flag("auto-approve").Value.String() == "true" {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, config, doc, format); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func buildRequest(cmd *cobra.Command, config *Config) matching.Request {
	flags := cmd.Flags()

	resumeFile, _ := flags.GetString("resume-file")
	resumeURL, _ := flags.GetString("resume-url")
	resumeText, _ := flags.GetString("resume-text")
	sources, _ := flags.GetStringArray("source")
	jobURLs, _ := flags.GetStringArray("job")

	req := matching.Request{
		Resume:  resume.Source{File: resumeFile, URL: resumeURL, Text: resumeText},
		Sources: append(append([]string(nil), config.Sources...), sources...),
	}

	for _, url := range append(append([]string(nil), config.Jobs...), jobURLs...) {
		if url = strings.TrimSpace(url); url != "" {
			req.Jobs = append(req.Jobs, ai.JobPosting{Title: url, URL: url})
		}
	}

	return req
}

func handleAction(action string, logger *zap.Logger, config *Config, doc report.Document, format report.Format) error {
	switch action {
	case PromptShowMatches:
		return report.Render(os.Stdout, report.NewDocument(doc.RunID, report.Matches(doc.Results)), format)
	case PromptShowAll:
		return report.Render(os.Stdout, doc, format)
	case PromptReportByHost:
		pretty, _ := json.MarshalIndent(postingsOf(doc).ReportByHost(), "", "  ")
		logger.Info(string(pretty), zap.Int("postings count", len(doc.Results)))
		return nil
	case PromptResultsToFile:
		filename, err := dumpResults(doc)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping results to file", zap.String("filename", filename))
		return nil
	case PromptPostingsToFile:
		filename, err := postingsOf(doc).DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump postings to file: %w", err)
		}
		logger.Info("dumping postings to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(logger, config, doc)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "requested from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func appendToExcludeFile(logger *zap.Logger, config *Config, doc report.Document) error {
	excludeFile := strings.TrimSpace(config.ExcludeFile)
	if excludeFile == "" {
		logger.Warn("exclude file is not configured", zap.String("hint", "pass --exclude-file or set exclude-file in the config"))
		return nil
	}

	excluded, err := jobs.GetExcludedFromFile(excludeFile)
	if err != nil {
		return err
	}

	excluded.Append(postingsOf(doc).ToExcluded(reviewedReason))

	if err := excluded.ToFile(excludeFile); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("entries", len(excluded.Items)))
	return nil
}

func dumpResults(doc report.Document) (string, error) {
	file, err := os.CreateTemp("", "results_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := report.Render(file, doc, report.FormatJSON); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func postingsOf(doc report.Document) *jobs.Postings {
	items := make([]ai.JobPosting, 0, len(doc.Results))
	for _, result := range doc.Results {
		items = append(items, result.Job)
	}
	return jobs.NewPostings(items)
}

func redacted(config *Config) Config {
	masked := *config

	fetcherCfg := *config.Fetcher
	firecrawlCfg := *config.Fetcher.Firecrawl
	if firecrawlCfg.APIKey != "" {
		firecrawlCfg.APIKey = "***"
	}
	fetcherCfg.Firecrawl = &firecrawlCfg
	masked.Fetcher = &fetcherCfg

	aiCfg := *config.AI
	geminiCfg := *config.AI.Gemini
	if geminiCfg.APIKey != "" {
		geminiCfg.APIKey = "***"
	}
	aiCfg.Gemini = &geminiCfg
	masked.AI = &aiCfg

	return masked
}
