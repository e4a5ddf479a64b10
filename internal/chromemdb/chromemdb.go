package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"askpdf/internal/embedding"
	"askpdf/internal/models"
)

const (
	collectionName = "document"
	metaChunkIndex = "chunk_index"
)

// Index is an in-memory vector index over the chunks of one document. It is
// built once and only read afterwards.
type Index struct {
	collection *chromem.Collection
	chunks     []models.Chunk
}

// Build embeds every chunk with embedder and stores exactly one vector per
// chunk. Chunk order is kept as the tie breaker for Search.
func Build(ctx context.Context, chunks []string, embedder embedding.Embedder) (*Index, error) {
	if len(chunks) == 0 {
		return nil, models.ErrEmptyIndex
	}

	vectors, err := embedding.GenerateEmbeddings(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if isZero(v) {
			return nil, fmt.Errorf("%w: zero embedding for chunk %d", models.ErrProvider, i)
		}
	}

	db := chromem.NewDB()
	// documents always carry their vectors; the function only guards
	// against chromem falling back to its default OpenAI embedder
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedding.EmbedQuery(ctx, embedder, text)
	}
	collection, err := db.CreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	idx := &Index{
		collection: collection,
		chunks:     make([]models.Chunk, len(chunks)),
	}
	docs := make([]chromem.Document, len(chunks))
	for i, content := range chunks {
		id := strconv.Itoa(i)
		idx.chunks[i] = models.Chunk{ID: id, Index: i, Content: content}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   content,
			Metadata:  map[string]string{metaChunkIndex: id},
			Embedding: vectors[i],
		}
	}

	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}
	if collection.Count() != len(chunks) {
		return nil, fmt.Errorf("index holds %d documents for %d chunks", collection.Count(), len(chunks))
	}

	log.Debug().Int("chunks", len(chunks)).Msg("Built vector index")
	return idx, nil
}

// Len is the number of indexed chunks.
func (i *Index) Len() int {
	return len(i.chunks)
}

// Chunks returns the indexed chunks in document order.
func (i *Index) Chunks() []models.Chunk {
	out := make([]models.Chunk, len(i.chunks))
	copy(out, i.chunks)
	return out
}

// Search returns the k chunks most similar to query by cosine similarity,
// highest score first, equal scores in chunk order. k <= 0 means the default.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	// chromem normalizes vectors, a zero vector would score NaN
	if isZero(query) {
		return nil, fmt.Errorf("query vector has zero norm")
	}
	if k <= 0 {
		k = models.DefaultTopK
	}

	// chromem does not order ties, so rank every document and cut afterwards
	results, err := i.collection.QueryEmbedding(ctx, query, i.collection.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	ranked := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		n, err := strconv.Atoi(r.Metadata[metaChunkIndex])
		if err != nil || n < 0 || n >= len(i.chunks) {
			return nil, fmt.Errorf("unknown document %q in index", r.ID)
		}
		ranked = append(ranked, models.SearchResult{
			Chunk: i.chunks[n],
			Score: float64(r.Similarity),
		})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].Chunk.Index < ranked[b].Chunk.Index
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k], nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
