// Package server exposes the upload and ask flows over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/xhad/docqa/internal/models"
	"github.com/xhad/docqa/pkg/extract"
	"github.com/xhad/docqa/pkg/logger"
	"github.com/xhad/docqa/pkg/scraper"
)

// Service is the document QA backend the handlers call into.
type Service interface {
	Ingest(ctx context.Context, doc models.Document) (*models.IngestResult, error)
	Ask(ctx context.Context, question, documentID string) (*models.Answer, error)
}

type Config struct {
	ListenAddr     string
	UploadDir      string
	MaxUploadMB    int
	RequestTimeout time.Duration

	// Scraper configures URL ingestion; BaseURL is taken from each request.
	Scraper scraper.ScraperConfig

	// AllowHost, when set, must accept the host of a scrape URL.
	AllowHost func(host string) bool
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	config  Config
	service Service
	logger  *slog.Logger
	app     *fiber.App

	extractPDF func(path, filename string) (models.Document, error)
}

func NewServer(config Config, service Service, log *slog.Logger) *Server {
	if config.ListenAddr == "" {
		config.ListenAddr = ":5000"
	}
	if config.UploadDir == "" {
		config.UploadDir = "uploads"
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		config:     config,
		service:    service,
		logger:     log,
		extractPDF: extract.PDFFile,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.MaxUploadMB * 1024 * 1024,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.logRequests)

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Post("/api/upload", s.handleUpload)
	app.Post("/api/ask", s.handleAsk)
	app.Post("/api/scrape", s.handleScrape)

	s.app = app
	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)
	return err
}

// handleError renders errors that escape a handler, including recovered
// panics, as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message})
	}

	s.logger.Error("unhandled error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "Internal server error"})
}

func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
}
