package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"askpdf/internal/config"
	"askpdf/internal/models"
)

// Embedder must be the same instance for index build and query time.
type Embedder = embeddings.Embedder

// NewEmbedder creates an OpenAI-compatible embedder
func NewEmbedder(llmConfig *config.LLMConfig, batchSize int) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithEmbeddingModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	opts := []embeddings.Option{}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	return embeddings.NewEmbedder(llm, opts...)
}

// GenerateEmbeddings embeds texts in order, one vector per text
func GenerateEmbeddings(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %d chunks: %w", models.ErrProvider, len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", models.ErrProvider, len(vectors), len(texts))
	}

	log.Debug().Int("chunks", len(texts)).Int("dimension", len(vectors[0])).Msg("Generated embeddings")
	return vectors, nil
}

// EmbedQuery embeds a single question
func EmbedQuery(ctx context.Context, embedder Embedder, text string) ([]float32, error) {
	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", models.ErrProvider, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", models.ErrProvider)
	}
	return vector, nil
}
