package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/flarexio/zoningqa"
)

var ErrNoEmbedding = errors.New("no embedding returned")

// Embedder wraps langchaingo embeddings. The index must be queried with
// the same model it was built with.
type Embedder struct {
	model     embeddings.Embedder
	modelName string
	log       *zap.Logger
}

// NewEmbedder creates an embedder based on configuration.
func NewEmbedder(cfg zoningqa.EmbeddingConfig) (*Embedder, error) {
	key, err := APIKey(cfg.Provider, cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	var client embeddings.EmbedderClient

	switch cfg.Provider {
	case ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(cfg.Model),
		}

		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}

		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}

		client = llm

	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(key),
			openai.WithEmbeddingModel(cfg.Model),
		}

		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}

		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}

		client = llm

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}

	return NewEmbedderFrom(client, cfg.Model)
}

func NewEmbedderFrom(client embeddings.EmbedderClient, name string) (*Embedder, error) {
	model, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Embedder{
		model:     model,
		modelName: name,
		log: zap.L().With(
			zap.String("component", "embedder"),
			zap.String("model", name),
		),
	}, nil
}

// Embed generates an embedding vector for text. It satisfies
// vector.EmbeddingFunc.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.model.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.log.Warn("embedding failed",
			zap.Int("text_len", len(text)),
			zap.Error(err),
		)

		return nil, fmt.Errorf("embed: %w", err)
	}

	if len(vectors) == 0 {
		return nil, ErrNoEmbedding
	}

	return vectors[0], nil
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.modelName
}
