package gemini

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu    sync.Mutex
	calls []modelCall
	resp  *genai.GenerateContentResponse
	err   error
}

type modelCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelCall{model: model, contents: contents, config: config})
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestGeneratorRequestsJSONWithSchema(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"is_match": true}`)}
	g := &Generator{models: models, modelName: "gemini-test", logger: zap.NewNop()}

	output, err := g.GenerateContent(context.Background(), "  score this  ", responseSchema())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != `{"is_match": true}` {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}

	call := models.calls[0]
	if call.model != "gemini-test" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if call.config == nil || call.config.ResponseMIMEType != jsonMIMEType {
		t.Fatalf("expected json response mime type, got %+v", call.config)
	}
	if call.config.ResponseSchema == nil || call.config.ResponseSchema.Type != genai.TypeObject {
		t.Fatalf("expected object response schema")
	}
	if call.config.Temperature == nil || *call.config.Temperature != 0 {
		t.Fatalf("expected zero temperature")
	}
	if got := call.contents[0].Parts[0].Text; got != "score this" {
		t.Fatalf("expected trimmed prompt, got %q", got)
	}
}

func TestGeneratorWithoutSchemaSendsPlainText(t *testing.T) {
	models := &fakeModels{resp: textResponse("first", " ", "second")}
	g := &Generator{models: models, modelName: "gemini-test", logger: zap.NewNop()}

	output, err := g.GenerateContent(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}
	if models.calls[0].config.ResponseMIMEType != "" {
		t.Fatalf("did not expect a response mime type without schema")
	}
}

func TestGeneratorDoesNotRetry(t *testing.T) {
	models := &fakeModels{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}}
	g := &Generator{models: models, modelName: "gemini-test", logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "prompt", nil); err == nil {
		t.Fatal("expected error from backend")
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorRejectsEmptyResponse(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{}}
	g := &Generator{models: models, modelName: "gemini-test", logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "prompt", nil); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{}
	g := &Generator{models: models, modelName: "gemini-test", logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no backend calls, got %d", len(models.calls))
	}
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "  ", "", nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
