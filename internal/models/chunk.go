package models

// Chunk represents a contiguous piece of the uploaded document
type Chunk struct {
	ID      string
	Index   int
	Content string
}

// SearchResult is a chunk together with its cosine similarity to a query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

type PromptResponse struct {
	Query   string
	Sources []Chunk
	Content string
}
