package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/resume"
	"github.com/spigell/resume-matcher/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

const (
	fieldIsMatch      = "is_match"
	fieldReason       = "reason"
	fieldScore        = "match_score"
	fieldStrengths    = "key_strengths"
	fieldMissing      = "missing_skills"
	fieldImprovements = "improvement_suggestions"
)

type responseField struct {
	name        string
	description string
	kind        genai.Type
	required    bool
}

var responseFields = []responseField{
	{fieldIsMatch, "Whether the candidate is a good fit for the job (true/false)", genai.TypeBoolean, true},
	{fieldReason, "Brief explanation of why the candidate is or isn't a good fit", genai.TypeString, true},
	{fieldScore, "A score from 0-100 representing how well the candidate matches the job requirements", genai.TypeInteger, true},
	{fieldStrengths, "List of 2-3 key strengths the candidate has for this position", genai.TypeArray, true},
	{fieldMissing, "List of 1-2 important skills or qualifications the candidate is missing (if any)", genai.TypeArray, true},
	{fieldImprovements, "List of 1-2 suggestions for how the candidate could improve their qualifications for this role", genai.TypeArray, false},
}

func NewMatcher(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Evaluate scores the resume against the job posting. It never returns nil and never panics:
// failures turn into a non-match verdict that carries the failure in its reason.
func (m *Matcher) Evaluate(ctx context.Context, resumeText, jobPosting string) (verdict *ai.MatchVerdict) {
	if resume.IsExtractionFailure(resumeText) {
		m.logger.Debug("skipping evaluation of unusable resume",
			zap.Int("resume_length", utf8.RuneCountInString(resumeText)),
		)
		return ai.UnusableResumeVerdict()
	}

	defer func() {
		if r := recover(); r != nil {
			verdict = failed(fmt.Errorf("panic: %v", r))
		}
	}()

	verdict, err := m.evaluate(ctx, resumeText, jobPosting)
	if err != nil {
		m.logger.Warn("match evaluation failed", zap.Error(err))
		return failed(err)
	}

	return verdict
}

func (m *Matcher) evaluate(ctx context.Context, resumeText, jobPosting string) (*ai.MatchVerdict, error) {
	if m.generator == nil {
		return nil, errors.New("content generator is not configured")
	}

	prompt := buildPrompt(resumeText, jobPosting)

	m.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, prompt, responseSchema())
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	verdict, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	verdict.Raw = raw
	return verdict, nil
}

func failed(err error) *ai.MatchVerdict {
	return ai.FailedVerdict(fmt.Sprintf("Unable to evaluate match: %s", err))
}

func buildPrompt(resumeText, jobPosting string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME}}\n\nJob Posting:\n{{JOB_POSTING}}\n\n{{FORMAT_INSTRUCTIONS}}"
	}
	// single pass, so placeholders inside the inputs stay untouched
	replacer := strings.NewReplacer(
		"{{RESUME}}", resumeText,
		"{{JOB_POSTING}}", jobPosting,
		"{{FORMAT_INSTRUCTIONS}}", formatInstructions(),
	)
	return replacer.Replace(template)
}

func formatInstructions() string {
	var builder strings.Builder
	builder.WriteString("The output should be a JSON object with the following fields:\n")
	for _, field := range responseFields {
		kind := strings.ToLower(string(field.kind))
		if field.kind == genai.TypeArray {
			kind = "array of strings"
		}
		fmt.Fprintf(&builder, "- %q (%s): %s\n", field.name, kind, field.description)
	}
	builder.WriteString("Return only the JSON object.")
	return builder.String()
}

func responseSchema() *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(responseFields)),
	}

	for _, field := range responseFields {
		property := &genai.Schema{Type: field.kind, Description: field.description}
		if field.kind == genai.TypeArray {
			property.Items = &genai.Schema{Type: genai.TypeString}
		}
		schema.Properties[field.name] = property
		schema.PropertyOrdering = append(schema.PropertyOrdering, field.name)
		if field.required {
			schema.Required = append(schema.Required, field.name)
		}
	}

	return schema
}

func parseResponse(raw string) (*ai.MatchVerdict, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var missing []string
	for _, field := range responseFields {
		if _, ok := data[field.name]; field.required && !ok {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("parse gemini response: missing fields %s", strings.Join(missing, ", "))
	}

	improvements := []string{ai.NotAvailable}
	if v, ok := data[fieldImprovements]; ok {
		improvements = coerceList(v)
	}

	rawScore := coerceString(data[fieldScore])
	score, ok := ai.ParseScore(data[fieldScore])
	if !ok {
		score = 0
	}

	return &ai.MatchVerdict{
		IsMatch:                coerceBool(data[fieldIsMatch]),
		Reason:                 coerceString(data[fieldReason]),
		MatchScore:             score,
		RawScore:               rawScore,
		KeyStrengths:           ai.RepairList(coerceList(data[fieldStrengths])),
		MissingSkills:          ai.RepairList(coerceList(data[fieldMissing])),
		ImprovementSuggestions: ai.RepairList(improvements),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// coerceList accepts a JSON array or a bare string. A bare string becomes a
// single element so the numbered-list repair can split it.
func coerceList(v any) []string {
	switch val := v.(type) {
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				items = append(items, s)
			}
		}
		return items
	case []string:
		return val
	case nil:
		return nil
	default:
		if s := coerceString(val); s != "" {
			return []string{s}
		}
		return nil
	}
}
