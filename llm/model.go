// Package llm adapts langchaingo chat and embedding providers to zoningqa.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/flarexio/zoningqa"
)

const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

var (
	ErrMissingCredential   = errors.New("missing API credential")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrNoChoices           = errors.New("no response choices")
)

// APIKey reads the credential named by env. Providers that run locally
// need none.
func APIKey(provider, env string) (string, error) {
	if provider == ProviderOllama {
		return "", nil
	}

	if env == "" {
		return "", fmt.Errorf("%w: no environment variable configured for %s", ErrMissingCredential, provider)
	}

	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, env)
	}

	return key, nil
}

// Model wraps a langchaingo model as a zoningqa.ChatModel.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates a chat model based on configuration. Groq is reached
// through its OpenAI-compatible API.
func NewModel(cfg zoningqa.LLMConfig) (*Model, error) {
	key, err := APIKey(cfg.Provider, cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	var model llms.Model

	switch cfg.Provider {
	case ProviderGroq, ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(key),
			openai.WithModel(cfg.Model),
		}

		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}

		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
		}

	case ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(cfg.Model),
		}

		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}

		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderAnthropic:
		opts := []anthropic.Option{
			anthropic.WithToken(key),
			anthropic.WithModel(cfg.Model),
		}

		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}

		model, err = anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}

	return NewModelFrom(model, cfg.Model), nil
}

func NewModelFrom(model llms.Model, name string) *Model {
	return &Model{
		llm:       model,
		modelName: name,
	}
}

func messageType(role zoningqa.ChatRole) llms.ChatMessageType {
	switch role {
	case zoningqa.ChatRoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

// Complete sends the messages in order and returns the first choice.
func (m *Model) Complete(ctx context.Context, messages []zoningqa.ChatMessage, opts zoningqa.CompletionOptions) (string, error) {
	contents := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		contents[i] = llms.TextParts(messageType(msg.Role), msg.Content)
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
	}

	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	response, err := m.llm.GenerateContent(ctx, contents, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", ErrNoChoices
	}

	return response.Choices[0].Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}
