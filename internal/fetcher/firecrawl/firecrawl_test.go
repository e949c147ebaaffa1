package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New("fc-test", zap.NewNop())
	require.NoError(t, err)
	client.APIURL = server.URL
	client.PollInterval = time.Millisecond

	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("   ", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchJobContent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, scrapePath, r.URL.Path)
		assert.Equal(t, "Bearer fc-test", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		var req scrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://acme.dev/jobs/1", req.URL)
		assert.Equal(t, []string{"markdown"}, req.Formats)

		_, _ = w.Write([]byte(`{"success": true, "data": {"markdown": "# Senior Go Engineer", "metadata": {"title": "Acme"}}}`))
	}))

	content, err := client.FetchJobContent(context.Background(), "https://acme.dev/jobs/1")
	require.NoError(t, err)
	assert.Equal(t, "# Senior Go Engineer", content)
}

func TestFetchJobContentErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "bad status with api error", status: http.StatusPaymentRequired, body: `{"success": false, "error": "Insufficient credits"}`, message: "Insufficient credits"},
		{name: "bad status without body", status: http.StatusInternalServerError, body: ``, message: "bad status"},
		{name: "not successful", status: http.StatusOK, body: `{"success": false, "error": "blocked"}`, message: "blocked"},
		{name: "empty markdown", status: http.StatusOK, body: `{"success": true, "data": {"markdown": "  "}}`, message: "empty content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := client.FetchJobContent(context.Background(), "https://acme.dev/jobs/1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestFetchJobListingsPollsUntilCompleted(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+batchScrapePath, func(w http.ResponseWriter, r *http.Request) {
		var req batchScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"https://acme.dev/careers", "https://beta.io/jobs"}, req.URLs)
		assert.Equal(t, []string{"extract"}, req.Formats)
		assert.Equal(t, extractPrompt, req.Extract.Prompt)
		assert.NotEmpty(t, req.Extract.Schema)

		_, _ = w.Write([]byte(`{"success": true, "id": "batch-1"}`))
	})
	mux.HandleFunc("GET "+batchScrapePath+"/batch-1", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"status": "scraping", "total": 2, "completed": 1}`))
			return
		}
		_, _ = w.Write([]byte(`{
  "status": "completed",
  "total": 2,
  "completed": 2,
  "data": [
    {"extract": {"jobs": [{"title": "Backend Engineer", "url": "/careers/backend"}]}, "metadata": {"sourceURL": "https://acme.dev/careers"}},
    {"extract": {"jobs": [{"title": "SRE", "url": "https://beta.io/jobs/sre"}, {"title": "No link", "url": ""}]}, "metadata": {"sourceURL": "https://beta.io/jobs"}}
  ]
}`))
	})

	client := newTestClient(t, mux)

	postings, err := client.FetchJobListings(context.Background(), []string{"https://acme.dev/careers", "https://beta.io/jobs"})
	require.NoError(t, err)

	assert.Equal(t, []ai.JobPosting{
		{Title: "Backend Engineer", URL: "https://acme.dev/careers/backend"},
		{Title: "SRE", URL: "https://beta.io/jobs/sre"},
	}, postings)
	assert.EqualValues(t, 3, polls.Load())
}

func TestFetchJobListingsFollowsNextPage(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+batchScrapePath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "id": "batch-2"}`))
	})
	mux.HandleFunc("GET "+batchScrapePath+"/batch-2", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("skip") == "1" {
			_, _ = w.Write([]byte(`{"status": "completed", "data": [{"extract": {"jobs": [{"title": "Two", "url": "https://x.io/2"}]}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "completed", "next": "` + server.URL + batchScrapePath + `/batch-2?skip=1", "data": [{"extract": {"jobs": [{"title": "One", "url": "https://x.io/1"}]}}]}`))
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New("fc-test", zap.NewNop())
	require.NoError(t, err)
	client.APIURL = server.URL

	postings, err := client.FetchJobListings(context.Background(), []string{"https://x.io/careers"})
	require.NoError(t, err)
	assert.Len(t, postings, 2)
	assert.Equal(t, "https://x.io/2", postings[1].URL)
}

func TestFetchJobListingsKeepsTokenOnAPIHost(t *testing.T) {
	var foreignAuth atomic.Value
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status": "completed", "data": [{"extract": {"jobs": [{"title": "Two", "url": "https://x.io/2"}]}}]}`))
	}))
	t.Cleanup(foreign.Close)

	var apiAuth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+batchScrapePath, func(w http.ResponseWriter, r *http.Request) {
		apiAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success": true, "id": "batch-5"}`))
	})
	mux.HandleFunc("GET "+batchScrapePath+"/batch-5", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "completed", "next": "` + foreign.URL + `/page?skip=1", "data": [{"extract": {"jobs": [{"title": "One", "url": "https://x.io/1"}]}}]}`))
	})

	client := newTestClient(t, mux)

	postings, err := client.FetchJobListings(context.Background(), []string{"https://x.io/careers"})
	require.NoError(t, err)
	assert.Len(t, postings, 2)
	assert.Equal(t, "Bearer fc-test", apiAuth.Load())
	assert.Equal(t, "", foreignAuth.Load())
}

func TestFetchJobListingsFailedBatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+batchScrapePath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "id": "batch-3"}`))
	})
	mux.HandleFunc("GET "+batchScrapePath+"/batch-3", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "failed", "error": "site unreachable"}`))
	})

	client := newTestClient(t, mux)

	_, err := client.FetchJobListings(context.Background(), []string{"https://down.example"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site unreachable")
}

func TestFetchJobListingsStopsOnCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+batchScrapePath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "id": "batch-4"}`))
	})
	mux.HandleFunc("GET "+batchScrapePath+"/batch-4", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "scraping"}`))
	})

	client := newTestClient(t, mux)
	client.PollInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchJobListings(ctx, []string{"https://slow.example"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchJobListingsEmptySources(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	}))

	postings, err := client.FetchJobListings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, postings)
}

func TestDecodeJobsWeakTypes(t *testing.T) {
	postings, err := decodeJobs(batchDocument{Extract: map[string]any{
		"jobs": []any{map[string]any{"title": 42, "url": " https://x.io/42 "}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []ai.JobPosting{{Title: "42", URL: "https://x.io/42"}}, postings)
}
