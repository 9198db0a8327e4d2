package server

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/xhad/docqa/pkg/rag"
	"github.com/xhad/docqa/pkg/scraper"
)

type askRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"documentId"`
}

type uploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapedDocument struct {
	DocumentID string `json:"documentId"`
	URL        string `json:"url"`
	Chunks     int    `json:"chunks"`
}

type failedPage struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type scrapeResponse struct {
	Message   string            `json:"message"`
	Documents []scrapedDocument `json:"documents"`
	Failed    []failedPage      `json:"failed,omitempty"`
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.SendString("Doc QA Server Running")
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// handleUpload handles POST /api/upload with the PDF in the "pdf" form field.
// The temporary copy is removed whatever the outcome.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("pdf")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: rag.ErrNoFile.Error()})
	}

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		return s.internalError(c, "upload", err)
	}

	path := filepath.Join(s.config.UploadDir, uuid.NewString())
	if err := c.SaveFile(file, path); err != nil {
		return s.internalError(c, "upload", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove upload", "path", path, "error", err)
		}
	}()

	s.logger.Info("processing PDF", "filename", file.Filename, "size", file.Size)

	doc, err := s.extractPDF(path, file.Filename)
	if err != nil {
		return s.internalError(c, "upload", err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.service.Ingest(ctx, doc)
	if err != nil {
		return s.internalError(c, "upload", err)
	}

	return c.JSON(uploadResponse{
		Message:    "File processed successfully!",
		DocumentID: result.DocumentID,
	})
}

// handleAsk handles POST /api/ask with {question, documentId?}.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Invalid request body"})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	answer, err := s.service.Ask(ctx, req.Question, req.DocumentID)
	if err != nil {
		if errors.Is(err, rag.ErrQuestionRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		return s.internalError(c, "ask", err)
	}

	return c.JSON(answer)
}

// handleScrape handles POST /api/scrape with {url}. Every page scraped is
// ingested as its own document; pages that fail are reported and skipped.
// The request fails only when no page could be ingested.
func (s *Server) handleScrape(c *fiber.Ctx) error {
	var req scrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Invalid request body"})
	}

	target := strings.TrimSpace(req.URL)
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "URL is required"})
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Invalid URL"})
	}
	if s.config.AllowHost != nil && !s.config.AllowHost(u.Hostname()) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "URL host is not allowed"})
	}

	cfg := s.config.Scraper
	cfg.BaseURL = target
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	sc, err := scraper.NewWithConfig(cfg)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	docs, err := sc.Scrape(ctx, target)
	if err != nil {
		return s.internalError(c, "scrape", err)
	}

	resp := scrapeResponse{Documents: []scrapedDocument{}}
	for _, doc := range docs {
		result, err := s.service.Ingest(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return s.internalError(c, "scrape", ctx.Err())
			}
			s.logger.Warn("failed to ingest page", "url", doc.Filename, "error", err)
			resp.Failed = append(resp.Failed, failedPage{URL: doc.Filename, Error: err.Error()})
			continue
		}
		resp.Documents = append(resp.Documents, scrapedDocument{
			DocumentID: result.DocumentID,
			URL:        doc.Filename,
			Chunks:     result.Chunks,
		})
	}

	if len(resp.Documents) == 0 && len(resp.Failed) > 0 {
		s.logger.Error("scrape failed", "url", target, "pages", len(resp.Failed))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: resp.Failed[0].Error})
	}

	resp.Message = fmt.Sprintf("Processed %d pages", len(resp.Documents))
	if len(resp.Failed) > 0 {
		resp.Message += fmt.Sprintf(", %d failed", len(resp.Failed))
	}

	return c.JSON(resp)
}

func (s *Server) internalError(c *fiber.Ctx, op string, err error) error {
	s.logger.Error(op+" failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
}
