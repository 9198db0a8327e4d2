package llm

import (
	"context"
	"fmt"
	"sort"

	goopenai "github.com/sashabaranov/go-openai"
)

// ListModels returns the ids of the models served by an OpenAI-compatible
// endpoint, sorted.
func ListModels(ctx context.Context, baseURL, apiKey string) ([]string, error) {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := goopenai.NewClientWithConfig(cfg)

	list, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)

	return ids, nil
}
