package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"

	"askpdf/internal/chromemdb"
	"askpdf/internal/config"
	"askpdf/internal/embedding/embeddingtest"
	"askpdf/internal/llmservice"
	"askpdf/internal/models"
)

const document = "apples grow on apple trees\n" +
	"bananas are yellow\n" +
	"cherries are small and red\n" +
	"zebras live in the savanna\n"

func ragConfig() *config.RAGConfig {
	return &config.RAGConfig{ChunkSize: 30, ChunkOverlap: 2, Separator: "\n", TopK: 2}
}

type stubAnswerer struct {
	questions []string
	contexts  [][]string
	err       error
}

func (s *stubAnswerer) Answer(_ context.Context, question string, chunks []string) (string, error) {
	s.questions = append(s.questions, question)
	s.contexts = append(s.contexts, chunks)
	if s.err != nil {
		return "", s.err
	}
	return "answer to " + question, nil
}

func TestRetrieve_MostRelevantFirst(t *testing.T) {
	e, _ := embeddingtest.NewLetterEmbedder()
	idx, err := chromemdb.Build(context.Background(), []string{"bananas", "zebra", "banana bread"}, e)
	require.NoError(t, err)

	chunks, err := Retrieve(context.Background(), idx, "banana", e, 2)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "banana"))
	assert.True(t, strings.HasPrefix(chunks[1].Content, "banana"))
}

func TestRetrieve_Errors(t *testing.T) {
	e, _ := embeddingtest.NewLetterEmbedder()

	_, err := Retrieve(context.Background(), nil, "q", e, 2)
	assert.ErrorIs(t, err, models.ErrEmptyIndex)

	idx, err := chromemdb.Build(context.Background(), []string{"x"}, e)
	require.NoError(t, err)
	_, err = Retrieve(context.Background(), idx, "   ", e, 2)
	assert.Error(t, err)
}

func TestNewSession_EmptyDocument(t *testing.T) {
	e, _ := embeddingtest.NewLetterEmbedder()

	s, err := NewSession(context.Background(), "empty.pdf", "", ragConfig(), e)
	assert.ErrorIs(t, err, models.ErrEmptyIndex)
	assert.Nil(t, s)
}

func TestNewSession_InvalidChunking(t *testing.T) {
	e, client := embeddingtest.NewLetterEmbedder()
	cfg := &config.RAGConfig{ChunkSize: 4, ChunkOverlap: 8, Separator: "\n"}

	_, err := NewSession(context.Background(), "doc.pdf", document, cfg, e)
	assert.ErrorIs(t, err, models.ErrConfig)
	assert.Zero(t, client.Calls)
}

func TestSession_AskTwiceWithoutRebuilding(t *testing.T) {
	e, client := embeddingtest.NewLetterEmbedder()
	s, err := NewSession(context.Background(), "fruit.pdf", document, ragConfig(), e)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	builtWith := client.Calls
	idx := s.Index

	answerer := &stubAnswerer{}
	first, err := s.Ask(context.Background(), "Which bananas are yellow?", answerer)
	require.NoError(t, err)
	second, err := s.Ask(context.Background(), "Zebra savanna?", answerer)
	require.NoError(t, err)

	assert.Same(t, idx, s.Index)
	assert.Equal(t, builtWith+2, client.Calls, "one embedding call per question, none for the index")

	require.Len(t, first.Sources, 2)
	assert.Contains(t, first.Sources[0].Content, "bananas")
	require.Len(t, second.Sources, 2)
	assert.Contains(t, second.Sources[0].Content, "zebras")

	assert.Equal(t, "answer to Zebra savanna?", second.Content)
	assert.Equal(t, []string{first.Sources[0].Content, first.Sources[1].Content}, answerer.contexts[0])
}

func TestSession_AnswererError(t *testing.T) {
	e, _ := embeddingtest.NewLetterEmbedder()
	s, err := NewSession(context.Background(), "fruit.pdf", document, ragConfig(), e)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Ask(context.Background(), "anything?", &stubAnswerer{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestSession_WithLangchainAnswerer(t *testing.T) {
	e, _ := embeddingtest.NewLetterEmbedder()
	s, err := NewSession(context.Background(), "fruit.pdf", document, ragConfig(), e)
	require.NoError(t, err)

	resp, err := s.Ask(context.Background(), "What colour are cherries?", llmservice.NewAnswerer(fake.NewFakeLLM([]string{"Red."})))
	require.NoError(t, err)
	assert.Equal(t, "Red.", resp.Content)
	assert.Equal(t, "What colour are cherries?", resp.Query)
}
