package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"

	"askpdf/internal/config"
	"askpdf/internal/models"
)

type recordingLLM struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (r *recordingLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	r.messages = messages
	for _, o := range options {
		o(&r.opts)
	}
	return r.resp, r.err
}

func (r *recordingLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, r, prompt, options...)
}

func TestAnswer_StuffsAllChunksIntoOnePrompt(t *testing.T) {
	llm := &recordingLLM{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "Forty-two.",
		GenerationInfo: map[string]any{"PromptTokens": 10, "CompletionTokens": 2, "TotalTokens": 12},
	}}}}
	a := NewAnswerer(llm)

	answer, err := a.Answer(context.Background(), "What is the answer?", []string{"first chunk", "second chunk"})
	require.NoError(t, err)
	assert.Equal(t, "Forty-two.", answer)

	require.Len(t, llm.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, llm.messages[0].Role)
	require.Len(t, llm.messages[0].Parts, 1)
	prompt := llm.messages[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "first chunk\n\nsecond chunk")
	assert.Contains(t, prompt, "Question: What is the answer?")
	assert.Equal(t, 0.0, llm.opts.Temperature)
}

func TestAnswer_ProviderError(t *testing.T) {
	boom := errors.New("401 unauthorized")
	a := NewAnswerer(&recordingLLM{err: boom})

	_, err := a.Answer(context.Background(), "q", []string{"c"})
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.ErrorIs(t, err, boom)
}

func TestAnswer_EmptyChoices(t *testing.T) {
	a := NewAnswerer(&recordingLLM{resp: &llms.ContentResponse{}})

	_, err := a.Answer(context.Background(), "q", nil)
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestAnswer_FakeLLM(t *testing.T) {
	a := NewAnswerer(fake.NewFakeLLM([]string{"one", "two"}))

	first, err := a.Answer(context.Background(), "q1", []string{"c"})
	require.NoError(t, err)
	second, err := a.Answer(context.Background(), "q2", []string{"c"})
	require.NoError(t, err)

	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)
}

func TestNewLLM(t *testing.T) {
	llm, err := NewLLM(&config.LLMConfig{BaseURL: "http://localhost:1/v1", Model: "gpt-4o-mini", Key: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, llm)
}
