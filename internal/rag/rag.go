package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"askpdf/internal/chromemdb"
	"askpdf/internal/config"
	"askpdf/internal/embedding"
	"askpdf/internal/helper"
	"askpdf/internal/models"
	"askpdf/internal/parser"
)

// Answerer produces an answer to question from the given context chunks.
type Answerer interface {
	Answer(ctx context.Context, question string, chunks []string) (string, error)
}

// Retrieve embeds question with the embedder that built idx and returns the
// k most relevant chunks, most relevant first.
func Retrieve(ctx context.Context, idx *chromemdb.Index, question string, embedder embedding.Embedder, k int) ([]models.Chunk, error) {
	if idx == nil {
		return nil, models.ErrEmptyIndex
	}
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question is empty")
	}

	queryEmbedding, err := embedding.EmbedQuery(ctx, embedder, question)
	if err != nil {
		return nil, err
	}

	results, err := idx.Search(ctx, queryEmbedding, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return chunks, nil
}

// Session is the state of one uploaded document. It is replaced on every
// upload and never modified while answering questions.
type Session struct {
	ID       string
	Filename string
	Document string
	Index    *chromemdb.Index

	embedder embedding.Embedder
	topK     int
}

// NewSession chunks document and builds its index.
func NewSession(ctx context.Context, filename, document string, cfg *config.RAGConfig, embedder embedding.Embedder) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("session_id", id).Str("file", filename).Logger()

	chunks, err := parser.Split(document, cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separator)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("chars", len(document)).Int("chunks", len(chunks)).Msg("Split document")

	idx, err := chromemdb.Build(ctx, chunks, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", filename, err)
	}
	logger.Info().Int("chunks", idx.Len()).Msg("Indexed document")

	return &Session{
		ID:       id,
		Filename: filename,
		Document: document,
		Index:    idx,
		embedder: embedder,
		topK:     cfg.TopK,
	}, nil
}

// Ask retrieves context for question and has answerer respond to it.
func (s *Session) Ask(ctx context.Context, question string, answerer Answerer) (*models.PromptResponse, error) {
	chunks, err := Retrieve(ctx, s.Index, question, s.embedder, s.topK)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}

	answer, err := answerer.Answer(ctx, question, contents)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("session_id", s.ID).Int("sources", len(chunks)).Msg("Question answered from session")

	return &models.PromptResponse{
		Query:   question,
		Sources: chunks,
		Content: answer,
	}, nil
}
