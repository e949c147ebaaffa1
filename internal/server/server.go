// Package server exposes the matching session over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/report"
	"github.com/spigell/resume-matcher/internal/resume"
)

const (
	defaultBodyLimit = 10 << 20
	resumeFormField  = "resume"
)

// Runner executes a matching session.
type Runner interface {
	Run(ctx context.Context, req matching.Request) (*matching.Outcome, error)
}

type Options struct {
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	app    *fiber.App
	runner Runner
	logger *zap.Logger
}

type matchRequest struct {
	ResumeText string          `json:"resume_text" form:"resume_text"`
	ResumeURL  string          `json:"resume_url" form:"resume_url"`
	Sources    []string        `json:"sources" form:"sources"`
	Jobs       []ai.JobPosting `json:"jobs"`
}

type matchResponse struct {
	RunID   string                `json:"run_id"`
	Summary report.Summary        `json:"summary"`
	Results []ai.EvaluationResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(runner Runner, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}

	s := &Server{runner: runner, logger: logger}

	s.app = fiber.New(fiber.Config{
		AppName:               "resume-matcher",
		BodyLimit:             opts.BodyLimit,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/v1")
	api.Post("/match", s.handleMatch)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("starting http server", zap.String("listen", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleMatch(c *fiber.Ctx) error {
	req, err := s.parseRequest(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	outcome, err := s.runner.Run(c.UserContext(), req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(matchResponse{
		RunID:   outcome.RunID,
		Summary: report.Summarize(outcome.Results),
		Results: outcome.Results,
	})
}

func (s *Server) parseRequest(c *fiber.Ctx) (matching.Request, error) {
	var body matchRequest

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(&body); err != nil {
			return matching.Request{}, fmt.Errorf("invalid request body: %w", err)
		}
		return toRequest(body, "")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return matching.Request{}, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	body.ResumeText = firstValue(form.Value["resume_text"])
	body.ResumeURL = firstValue(form.Value["resume_url"])
	body.Sources = form.Value["sources"]
	for _, url := range form.Value["jobs"] {
		body.Jobs = append(body.Jobs, ai.JobPosting{Title: url, URL: url})
	}

	uploaded := ""
	if files := form.File[resumeFormField]; len(files) > 0 {
		file, err := files[0].Open()
		if err != nil {
			return matching.Request{}, fmt.Errorf("open uploaded resume: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return matching.Request{}, fmt.Errorf("read uploaded resume: %w", err)
		}
		uploaded = resume.FromBytes(files[0].Filename, data)
		if strings.TrimSpace(uploaded) == "" {
			uploaded = resume.ExtractionFailedPrefix + ": uploaded file is empty"
		}
	}

	return toRequest(body, uploaded)
}

func toRequest(body matchRequest, uploaded string) (matching.Request, error) {
	src := resume.Source{URL: body.ResumeURL, Text: body.ResumeText}
	if uploaded != "" {
		if src.Kind() != "" {
			return matching.Request{}, resume.ErrAmbiguousSource
		}
		src.Text = uploaded
	}

	jobs := make([]ai.JobPosting, 0, len(body.Jobs))
	for _, job := range body.Jobs {
		if strings.TrimSpace(job.Title) == "" {
			job.Title = job.URL
		}
		jobs = append(jobs, job)
	}

	return matching.Request{Resume: src, Sources: body.Sources, Jobs: jobs}, nil
}

func mapError(err error) error {
	var listingErr *matching.ListingError
	switch {
	case matching.IsBadRequest(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &listingErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
	}

	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}

	s.logger.Info("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(started)),
	)

	return err
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
