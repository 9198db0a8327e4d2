package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xhad/docqa/pkg/scraper"
	"github.com/xhad/docqa/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				opts.cfg.Server.Port = port
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config and PORT)")

	return cmd
}

func runServe(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, closeStore, err := opts.newService(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			opts.logger.Warn("failed to close vector store", "error", err)
		}
	}()

	cfg := opts.cfg
	srv := server.NewServer(server.Config{
		ListenAddr:     ":" + cfg.Server.Port,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		RequestTimeout: cfg.Server.RequestTimeout,
		Scraper: scraper.ScraperConfig{
			MaxDepth:          cfg.Scraper.MaxDepth,
			RateLimit:         cfg.Scraper.RateLimit,
			Timeout:           cfg.Scraper.Timeout,
			IgnorePatterns:    cfg.Scraper.IgnorePatterns,
			AllowedExtensions: cfg.Scraper.AllowedExtensions,
		},
		AllowHost: scraper.AllowPublicHost,
	}, service, opts.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	opts.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
