package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/docqa/pkg/llm"
)

func newModelsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models served by the configured LLM and embedding endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			endpoints := []struct {
				name, provider, baseURL, apiKey string
			}{
				{"llm", cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.APIKey},
				{"embedding", cfg.Embedding.Provider, cfg.Embedding.BaseURL, cfg.Embedding.APIKey},
			}

			out := cmd.OutOrStdout()
			for _, ep := range endpoints {
				color.New(color.FgBlue, color.Bold).Fprintf(out, "%s (%s)\n", ep.name, ep.baseURL)
				if ep.provider == "ollama" {
					fmt.Fprintln(out, "  model listing is only supported for OpenAI-compatible endpoints")
					continue
				}

				ids, err := llm.ListModels(cmd.Context(), ep.baseURL, ep.apiKey)
				if err != nil {
					color.New(color.FgRed).Fprintf(out, "  %v\n", err)
					continue
				}
				for _, id := range ids {
					fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return nil
		},
	}
}
