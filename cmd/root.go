package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xhad/docqa/pkg/config"
	"github.com/xhad/docqa/pkg/llm"
	"github.com/xhad/docqa/pkg/logger"
	"github.com/xhad/docqa/pkg/processor"
	"github.com/xhad/docqa/pkg/rag"
	"github.com/xhad/docqa/pkg/store"
)

type options struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions about your PDF documents",
		Long: `docqa indexes PDF documents and web pages into a vector store and
answers questions about them with a hosted LLM.

Run "docqa serve" for the HTTP API, or use the ingest and ask commands
directly from the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newAskCmd(opts),
		newModelsCmd(opts),
	)

	return cmd
}

func (o *options) load() error {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Err(); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithLevel(cfg.Log.Level),
		logger.WithJSON(cfg.Log.JSON),
	}
	if o.debug {
		logOpts = append(logOpts, logger.WithDebug(true), logger.WithCaller(true))
	}

	o.cfg = cfg
	o.logger = logger.New(logOpts...)
	return nil
}

// newService wires the configured backends into a rag.Service. The returned
// close function releases the vector store.
func (o *options) newService(ctx context.Context, progress func(done, total int)) (*rag.Service, func() error, error) {
	cfg := o.cfg

	p, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})
	if err != nil {
		return nil, nil, err
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	chat, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:     cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		SystemPrompt: cfg.LLM.SystemPrompt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	vs, err := store.New(ctx, store.Config{
		Provider:   cfg.VectorStore.Provider,
		URL:        cfg.VectorStore.URL,
		APIKey:     cfg.VectorStore.APIKey,
		TableName:  cfg.VectorStore.TableName,
		Collection: cfg.VectorStore.Collection,
		Path:       cfg.VectorStore.Path,
		Dimension:  embedder.Dimension(),
		Logger:     o.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	service := rag.New(rag.Config{
		BatchSize: cfg.VectorStore.BatchSize,
		TopK:      cfg.VectorStore.TopK,
		Workers:   cfg.Embedding.Workers,
		RateLimit: cfg.Embedding.RateLimit,
		Progress:  progress,
	}, p, embedder, vs, chat, o.logger)

	return service, vs.Close, nil
}
