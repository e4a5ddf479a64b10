package parser

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"askpdf/internal/models"
)

// CharacterSplitter splits text on a separator into overlapping chunks.
// Sizes are measured in characters (runes).
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

var _ textsplitter.TextSplitter = CharacterSplitter{}

func NewCharacterSplitter(chunkSize, chunkOverlap int, separator string) CharacterSplitter {
	return CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separator:    separator,
	}
}

// SplitText implements textsplitter.TextSplitter.
func (s CharacterSplitter) SplitText(text string) ([]string, error) {
	return Split(text, s.ChunkSize, s.ChunkOverlap, s.Separator)
}

// Split greedily packs separator-terminated units into chunks of at most
// chunkSize characters. Each chunk after the first begins with the last
// overlap characters of the one before it, so JoinChunks restores text.
//
// A unit longer than chunkSize is kept whole in an oversized chunk. A unit
// that only fails to fit because of the carried overlap is cut at chunkSize.
func Split(text string, chunkSize, overlap int, separator string) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, chunk size %d)", models.ErrConfig, overlap, chunkSize)
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}
	if n <= chunkSize {
		return []string{text}, nil
	}

	bounds := unitBoundaries(runes, []rune(separator))

	var chunks []string
	start := 0
	for {
		end := chunkEnd(bounds, start, chunkSize, overlap, n)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - overlap
	}
	return chunks, nil
}

// unitBoundaries returns the ascending rune offsets just past every
// separator, always ending with len(runes).
func unitBoundaries(runes, sep []rune) []int {
	n := len(runes)
	if len(sep) == 0 {
		bounds := make([]int, n)
		for i := range bounds {
			bounds[i] = i + 1
		}
		return bounds
	}

	var bounds []int
	for i := 0; i+len(sep) <= n; {
		if slices.Equal(runes[i:i+len(sep)], sep) {
			i += len(sep)
			bounds = append(bounds, i)
			continue
		}
		i++
	}
	if len(bounds) == 0 || bounds[len(bounds)-1] != n {
		bounds = append(bounds, n)
	}
	return bounds
}

// chunkEnd picks where the chunk starting at start stops. The result is
// always greater than start+overlap so the next start moves forward.
func chunkEnd(bounds []int, start, chunkSize, overlap, n int) int {
	limit := start + chunkSize
	if limit >= n {
		return n
	}

	// last boundary at or before limit
	i := sort.SearchInts(bounds, limit+1) - 1
	if i >= 0 && bounds[i] > start+overlap {
		return bounds[i]
	}

	unitStart := 0
	if i >= 0 {
		unitStart = bounds[i]
	}
	unitEnd := bounds[i+1]
	if unitEnd-unitStart > chunkSize {
		return unitEnd
	}
	return limit
}

// JoinChunks reverses Split by dropping the repeated overlap prefix of every
// chunk after the first.
func JoinChunks(chunks []string, overlap int) string {
	var content strings.Builder
	for i, chunk := range chunks {
		if i == 0 || overlap <= 0 {
			content.WriteString(chunk)
			continue
		}
		runes := []rune(chunk)
		if len(runes) > overlap {
			content.WriteString(string(runes[overlap:]))
		}
	}
	return content.String()
}
