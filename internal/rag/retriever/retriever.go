package retriever

import (
	"sort"

	"github.com/tatce/ObecRAG/internal/domain/kbModel"
)

// Retrieve scores every embedded chunk against the query vector, keeps the
// ones at or above the threshold, ranks them by similarity descending and
// takes the first topN. The date window is applied AFTER ranking: it narrows
// the already-ranked shortlist, so relevance ordering always wins over
// temporal recall. Chunks without an embedding are skipped entirely, not
// scored zero.
//
// A nil query embedding, an empty store or topN <= 0 all yield an empty
// result - never an error.
func Retrieve(queryEmbedding []float64, chunks []kbModel.Chunk, topN int, threshold float64, window *kbModel.DateWindow) []kbModel.ScoredChunk {
	if len(queryEmbedding) == 0 || len(chunks) == 0 || topN <= 0 {
		return nil
	}

	scored := make([]kbModel.ScoredChunk, 0, len(chunks))
	for i := range chunks {
		chunk := &chunks[i]
		if len(chunk.Embedding) == 0 {
			continue
		}
		similarity, ok := CosineSimilarity(queryEmbedding, chunk.Embedding)
		if !ok {
			// dimensionality mismatch on this chunk only, leave the rest of
			// the base usable
			continue
		}
		if similarity < threshold {
			continue
		}
		scored = append(scored, kbModel.ScoredChunk{Chunk: chunk, Score: similarity})
	}

	// stable keeps original chunk order on ties, so identical inputs always
	// produce identical rankings
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}

	if window.IsZero() {
		return scored
	}

	filtered := scored[:0]
	for _, sc := range scored {
		if sc.Chunk.SourceDate == nil {
			continue
		}
		if window.Contains(*sc.Chunk.SourceDate) {
			filtered = append(filtered, sc)
		}
	}
	return filtered
}
