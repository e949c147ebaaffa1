package ai

import (
	"context"
)

const (
	// NotAvailable is the placeholder element used instead of an empty list.
	NotAvailable = "N/A"
	// MatchThreshold is the lowest score that can still be reported as a match.
	MatchThreshold = 50

	unusableResumeReason     = "Unable to extract content from the resume. Please try a different format or input method."
	unusableResumeSuggestion = "Try using the text input option"
)

// JobPosting is a single scraped job listing. URL is unique within a run.
type JobPosting struct {
	Title string `json:"title" yaml:"title" mapstructure:"title"`
	URL   string `json:"url" yaml:"url" mapstructure:"url"`
}

// MatchVerdict is the structured scoring output for one resume/job pair.
type MatchVerdict struct {
	IsMatch                bool     `json:"is_match" yaml:"is_match"`
	Reason                 string   `json:"reason" yaml:"reason"`
	MatchScore             int      `json:"match_score" yaml:"match_score"`
	KeyStrengths           []string `json:"key_strengths" yaml:"key_strengths"`
	MissingSkills          []string `json:"missing_skills" yaml:"missing_skills"`
	ImprovementSuggestions []string `json:"improvement_suggestions" yaml:"improvement_suggestions"`

	// RawScore keeps the score exactly as the backend sent it.
	RawScore string `json:"-" yaml:"-"`
	// Raw is the unparsed backend reply, empty for synthesized verdicts.
	Raw string `json:"-" yaml:"-"`
	// Failed marks verdicts synthesized because the evaluation could not complete.
	Failed bool `json:"-" yaml:"-"`
}

// EvaluationResult pairs a posting with its verdict.
type EvaluationResult struct {
	Job     JobPosting   `json:"job" yaml:"job"`
	Verdict MatchVerdict `json:"verdict" yaml:"verdict"`
}

// Matcher scores a resume against a job posting text.
// Implementations never fail: problems are reported through the returned verdict.
type Matcher interface {
	Evaluate(ctx context.Context, resume, jobPosting string) *MatchVerdict
}

// FailedVerdict builds the non-match verdict used whenever an evaluation cannot complete.
func FailedVerdict(reason string) *MatchVerdict {
	return &MatchVerdict{
		IsMatch:                false,
		Reason:                 reason,
		MatchScore:             0,
		RawScore:               "0",
		Failed:                 true,
		KeyStrengths:           []string{NotAvailable},
		MissingSkills:          []string{NotAvailable},
		ImprovementSuggestions: []string{NotAvailable},
	}
}

// UnusableResumeVerdict is returned without contacting the backend when the resume text is empty
// or carries an extraction failure marker.
func UnusableResumeVerdict() *MatchVerdict {
	v := FailedVerdict(unusableResumeReason)
	v.ImprovementSuggestions = []string{unusableResumeSuggestion}
	return v
}

// Normalize coerces the score into [0,100], enforces the match threshold and
// replaces empty lists with the sentinel. It is safe to call more than once.
func (v *MatchVerdict) Normalize() {
	if v == nil {
		return
	}

	score, ok := v.MatchScore, validScore(v.MatchScore)
	if v.RawScore != "" {
		score, ok = ParseScore(v.RawScore)
	}
	if !ok {
		score = 0
		v.RawScore = "0"
	}
	v.MatchScore = score

	v.IsMatch = v.IsMatch && v.MatchScore >= MatchThreshold

	v.KeyStrengths = orNotAvailable(v.KeyStrengths)
	v.MissingSkills = orNotAvailable(v.MissingSkills)
	v.ImprovementSuggestions = orNotAvailable(v.ImprovementSuggestions)
}

func orNotAvailable(items []string) []string {
	if len(items) == 0 {
		return []string{NotAvailable}
	}
	return items
}
