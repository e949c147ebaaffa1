// Package report renders evaluation results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spigell/resume-matcher/internal/ai"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	ScoreLow    = "low"
	ScoreMedium = "medium"
	ScoreHigh   = "high"

	highScoreFrom = 75
)

// Summary aggregates a batch of results.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Matches  int `json:"matches" yaml:"matches"`
	Errors   int `json:"errors" yaml:"errors"`
	TopScore int `json:"top_score" yaml:"top_score"`
}

// Document is the machine-readable report layout.
type Document struct {
	RunID   string                `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Summary Summary               `json:"summary" yaml:"summary"`
	Results []ai.EvaluationResult `json:"results" yaml:"results"`
}

func ParseFormat(name string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(name))); format {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", name)
	}
}

func Summarize(results []ai.EvaluationResult) Summary {
	summary := Summary{Total: len(results)}
	for _, result := range results {
		if result.Verdict.IsMatch {
			summary.Matches++
		}
		if result.Verdict.Failed {
			summary.Errors++
		}
		if result.Verdict.MatchScore > summary.TopScore {
			summary.TopScore = result.Verdict.MatchScore
		}
	}
	return summary
}

// Matches keeps only results reported as a match, preserving order.
func Matches(results []ai.EvaluationResult) []ai.EvaluationResult {
	matches := make([]ai.EvaluationResult, 0, len(results))
	for _, result := range results {
		if result.Verdict.IsMatch {
			matches = append(matches, result)
		}
	}
	return matches
}

// ScoreClass buckets a score for display.
func ScoreClass(score int) string {
	switch {
	case score < ai.MatchThreshold:
		return ScoreLow
	case score < highScoreFrom:
		return ScoreMedium
	default:
		return ScoreHigh
	}
}

func NewDocument(runID string, results []ai.EvaluationResult) Document {
	if results == nil {
		results = []ai.EvaluationResult{}
	}
	return Document{RunID: runID, Summary: Summarize(results), Results: results}
}

func Render(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, doc)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func renderText(w io.Writer, doc Document) error {
	s := doc.Summary
	if _, err := fmt.Fprintf(w, "Evaluated %d postings: %d matches, %d errors, top score %d\n\n",
		s.Total, s.Matches, s.Errors, s.TopScore); err != nil {
		return err
	}

	if len(doc.Results) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tCLASS\tMATCH\tTITLE\tURL")
	for i, result := range doc.Results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			i+1,
			result.Verdict.MatchScore,
			ScoreClass(result.Verdict.MatchScore),
			yesNo(result.Verdict.IsMatch),
			result.Job.Title,
			result.Job.URL,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for i, result := range doc.Results {
		v := result.Verdict
		fmt.Fprintf(w, "\n#%d %s (%d/100, %s)\n", i+1, result.Job.Title, v.MatchScore, ScoreClass(v.MatchScore))
		fmt.Fprintf(w, "URL: %s\n", result.Job.URL)
		fmt.Fprintf(w, "Match: %s\n", yesNo(v.IsMatch))
		fmt.Fprintf(w, "Reason: %s\n", v.Reason)
		writeList(w, "Key strengths", v.KeyStrengths)
		writeList(w, "Missing skills", v.MissingSkills)
		writeList(w, "Improvement suggestions", v.ImprovementSuggestions)
	}

	return nil
}

func writeList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
