// Package embeddingtest provides a deterministic offline embedder for tests.
package embeddingtest

import (
	"context"
	"errors"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
)

// Dimension is the length of every vector produced by NewLetterEmbedder.
const Dimension = 27

// Letters counts a-z case-insensitively; the last component is a constant 1
// so no text maps to the zero vector.
func Letters(text string) []float32 {
	v := make([]float32, Dimension)
	for _, r := range text {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[Dimension-1] = 1
	return v
}

// Client is an embeddings.EmbedderClient that records how often it is called.
type Client struct {
	Calls int
	Texts int
	Err   error
}

func (c *Client) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	c.Texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Letters(t)
	}
	return out, nil
}

// NewLetterEmbedder wraps a fresh Client in a langchaingo embedder.
func NewLetterEmbedder() (*embeddings.EmbedderImpl, *Client) {
	client := &Client{}
	e, _ := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	return e, client
}

// ErrUnavailable is a canned provider failure.
var ErrUnavailable = errors.New("provider unavailable")
