package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"

	"askpdf/internal/config"
	"askpdf/internal/models"
)

// NewLLM builds the chat model client from config
func NewLLM(llmConfig *config.LLMConfig) (*openai.LLM, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating chat model")
	return openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
}

// Answerer stuffs every context chunk into one prompt and asks the model once.
type Answerer struct {
	llm    llms.Model
	prompt prompts.PromptTemplate
}

func NewAnswerer(llm llms.Model) *Answerer {
	return &Answerer{
		llm:    llm,
		prompt: prompts.NewPromptTemplate(models.StuffQAPromptTemplate, []string{"context", "question"}),
	}
}

// Answer returns the model's answer to question given the context chunks.
// Provider failures are returned wrapped in models.ErrProvider, never retried.
func (a *Answerer) Answer(ctx context.Context, question string, chunks []string) (string, error) {
	prompt, err := a.prompt.Format(map[string]any{
		"context":  strings.Join(chunks, models.ContextSeparator),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	res, err := a.llm.GenerateContent(ctx, msgContent, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrProvider, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", models.ErrProvider, errors.New("empty response from model"))
	}

	choice := res.Choices[0]
	logUsage(choice.GenerationInfo, len(chunks))
	return choice.Content, nil
}

func logUsage(info map[string]any, chunks int) {
	event := log.Info().Int("context_chunks", chunks)
	for _, key := range []string{"PromptTokens", "CompletionTokens", "TotalTokens"} {
		if v, ok := info[key]; ok {
			event = event.Interface(key, v)
		}
	}
	event.Msg("Answered question")
}
