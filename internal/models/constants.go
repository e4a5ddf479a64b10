package models

const (
	DefaultChunkSize    = 1000 // characters
	DefaultChunkOverlap = 200  // characters
	DefaultSeparator    = "\n"
	DefaultTopK         = 4

	DefaultInferenceModel = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"

	ContextSeparator = "\n\n"
)

var (
	// StuffQAPromptTemplate is rendered with the langchaingo Go-template formatter.
	StuffQAPromptTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{.context}}

Question: {{.question}}
Helpful Answer:`
)
