package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/docqa/internal/models"
	"github.com/xhad/docqa/pkg/extract"
	"github.com/xhad/docqa/pkg/rag"
	"github.com/xhad/docqa/pkg/scraper"
)

// chunkProgress feeds rag progress callbacks into one bar per document.
type chunkProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (p *chunkProgress) start(total int, description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = getProgressBar(total, description)
}

func (p *chunkProgress) report(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *chunkProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func newIngestCmd(opts *options) *cobra.Command {
	var (
		documentID string
		maxDepth   int
	)

	cmd := &cobra.Command{
		Use:   "ingest <file.pdf|url>...",
		Short: "Index PDF files or web pages",
		Long: `Extract, chunk, embed and store one or more sources.

PDF paths are read from disk. Arguments starting with http:// or https://
are scraped, following same-host links up to --max-depth.

Examples:
  docqa ingest paper.pdf
  docqa ingest --id handbook handbook.pdf
  docqa ingest --max-depth 1 https://example.com/docs/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if documentID != "" && len(args) > 1 {
				return fmt.Errorf("--id can only be used with a single source")
			}
			if cmd.Flags().Changed("max-depth") {
				opts.cfg.Scraper.MaxDepth = maxDepth
			}
			return runIngest(cmd.Context(), opts, args, documentID)
		},
	}

	cmd.Flags().StringVar(&documentID, "id", "", "Document id to store the chunks under (generated when empty)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Link depth to follow when scraping a URL")

	return cmd
}

func runIngest(ctx context.Context, opts *options, sources []string, documentID string) error {
	progress := &chunkProgress{}

	service, closeStore, err := opts.newService(ctx, progress.report)
	if err != nil {
		return err
	}
	defer closeStore()

	failed := 0
	for _, source := range sources {
		ok, err := ingestSource(ctx, opts, service, progress, source, documentID)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(sources))
	}
	return nil
}

// ingestSource reports whether every document of source was stored. Only a
// canceled context is returned as an error.
func ingestSource(ctx context.Context, opts *options, service *rag.Service, progress *chunkProgress, source, documentID string) (bool, error) {
	docs, err := loadSource(ctx, opts, source)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		color.Red("✗ %s: %v\n", source, err)
		return false, nil
	}

	ok := true
	for _, doc := range docs {
		doc.ID = documentID
		progress.start(-1, fmt.Sprintf("Embedding %s...", doc.Filename))

		result, err := service.Ingest(ctx, doc)
		progress.finish()
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			color.Red("\n✗ %s: %v\n", doc.Filename, err)
			ok = false
			continue
		}

		color.Green("\n✓ %s: %d/%d chunks stored in %d batches (document id %s)\n",
			doc.Filename, result.Embedded, result.Chunks, result.Batches, result.DocumentID)
	}

	return ok, nil
}

func loadSource(ctx context.Context, opts *options, source string) ([]models.Document, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		cfg := opts.cfg.Scraper
		sc, err := scraper.NewWithConfig(scraper.ScraperConfig{
			BaseURL:           source,
			MaxDepth:          cfg.MaxDepth,
			RateLimit:         cfg.RateLimit,
			Timeout:           cfg.Timeout,
			IgnorePatterns:    cfg.IgnorePatterns,
			AllowedExtensions: cfg.AllowedExtensions,
			Logger:            opts.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize scraper: %w", err)
		}

		spinner := getSpinner("Scraping " + source + "...")
		docs, err := sc.Scrape(ctx, source)
		_ = spinner.Finish()
		if err != nil {
			return nil, err
		}
		color.Blue("\nScraped %d pages from %s\n", len(docs), source)
		return docs, nil
	}

	doc, err := extract.PDFFile(source, filepath.Base(source))
	if err != nil {
		return nil, err
	}
	return []models.Document{doc}, nil
}
