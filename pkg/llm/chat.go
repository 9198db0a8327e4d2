package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/docqa/internal/models"
)

const (
	DefaultSystemPrompt = "You are a helpful and precise assistant. Answer the question based ONLY on the context provided."
	DefaultChatModel    = "llama-3.3-70b-versatile"

	NoInformationAnswer = "I couldn't find any relevant information in the document."
	NoAnswerGenerated   = "No answer generated."

	previewLength = 100
)

// ErrCompletion wraps failures of the completion service.
var ErrCompletion = errors.New("completion failed")

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider     string // "openai" or "ollama"
	Model        string
	BaseURL      string
	APIKey       string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// ChatEngine answers questions from retrieved context with an LLM.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := withChatDefaults(config)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "", "openai":
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		model, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// NewWithModel builds an engine around an already constructed model.
func NewWithModel(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	config, err := withChatDefaults(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

func withChatDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Model == "" {
		config.Model = DefaultChatModel
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	return config, nil
}

// Answer generates an answer to question grounded in fragments. With no
// fragments it returns a fixed reply without calling the model.
func (ce *ChatEngine) Answer(ctx context.Context, question string, fragments []string) (*models.Answer, error) {
	if len(fragments) == 0 {
		return &models.Answer{Answer: NoInformationAnswer}, nil
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, UserPrompt(BuildContext(fragments), question)),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithModel(ce.config.Model),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	answer := NoAnswerGenerated
	if response != nil && len(response.Choices) > 0 && response.Choices[0] != nil &&
		response.Choices[0].Content != "" {
		answer = response.Choices[0].Content
	}

	return &models.Answer{
		Answer:  answer,
		Sources: Previews(fragments),
	}, nil
}

// BuildContext joins fragments with a blank line between them.
func BuildContext(fragments []string) string {
	return strings.Join(fragments, "\n\n")
}

// UserPrompt formats the user turn sent with the retrieved context.
func UserPrompt(contextBlock, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)
}

// Previews returns the first 100 characters of each fragment followed by "...".
func Previews(fragments []string) []string {
	previews := make([]string, len(fragments))
	for i, f := range fragments {
		previews[i] = Preview(f)
	}
	return previews
}

func Preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + "..."
}
