// Package retrieval finds the chunks of a document that answer a chat
// question. It tries the vector index with a document filter, then an
// unfiltered wider query, then scores the stored chunks in process.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"legiseye/internal/ai"
	"legiseye/internal/logging"
	"legiseye/internal/metrics"
	"legiseye/internal/model"
	"legiseye/internal/vectorindex"
)

const (
	StrategyFiltered = "filtered"
	StrategyWidened  = "widened"
	StrategyStored   = "stored"
	StrategyNone     = "none"

	widenFactor      = 4
	contextSeparator = "\n---\n"
)

// ChunkLister loads the chunks persisted for a document.
type ChunkLister interface {
	ListByDocumentID(documentID uint) ([]model.DocumentChunk, error)
}

type Options struct {
	TopK            int
	MinScore        float64
	MaxContextChars int
}

// Result is the retrieved context for one question.
type Result struct {
	Matches  []vectorindex.Match `json:"matches"`
	Strategy string              `json:"strategy"`
	Context  string              `json:"-"`
}

type Retriever struct {
	embedder ai.Embedder
	index    vectorindex.Index
	chunks   ChunkLister
	opts     Options
	logger   *zap.Logger
}

// NewRetriever builds a retriever. index may be nil, in which case only the
// stored-chunk strategy runs.
func NewRetriever(embedder ai.Embedder, index vectorindex.Index, chunks ChunkLister, opts Options, logger *zap.Logger) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = 6000
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		opts:     opts,
		logger:   logging.OrNop(logger),
	}
}

func (r *Retriever) Retrieve(ctx context.Context, documentID uint, query string) (*Result, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	strategies := []struct {
		name string
		run  func() ([]vectorindex.Match, error)
	}{
		{StrategyFiltered, func() ([]vectorindex.Match, error) { return r.filtered(ctx, vector, documentID) }},
		{StrategyWidened, func() ([]vectorindex.Match, error) { return r.widened(ctx, vector, documentID) }},
		{StrategyStored, func() ([]vectorindex.Match, error) { return r.stored(vector, documentID) }},
	}

	result := &Result{Strategy: StrategyNone}
	for _, s := range strategies {
		matches, err := s.run()
		if err != nil {
			if s.name == StrategyStored {
				return nil, err
			}
			r.logger.Warn("vector retrieval failed, falling back",
				zap.String("strategy", s.name),
				zap.Uint("document_id", documentID),
				zap.Error(err))
			continue
		}
		kept := ApplyThreshold(matches, r.opts.MinScore)
		if len(kept) == 0 {
			continue
		}
		result.Matches = kept
		result.Strategy = s.name
		result.Context = BuildContext(kept, r.opts.MaxContextChars)
		break
	}
	metrics.RetrievalStrategy.WithLabelValues(result.Strategy).Inc()
	return result, nil
}

func (r *Retriever) filtered(ctx context.Context, vector []float32, documentID uint) ([]vectorindex.Match, error) {
	if r.index == nil {
		return nil, nil
	}
	return r.index.Query(ctx, vector, r.opts.TopK, documentID)
}

func (r *Retriever) widened(ctx context.Context, vector []float32, documentID uint) ([]vectorindex.Match, error) {
	if r.index == nil {
		return nil, nil
	}
	all, err := r.index.Query(ctx, vector, r.opts.TopK*widenFactor, 0)
	if err != nil {
		return nil, err
	}
	var matches []vectorindex.Match
	for _, m := range all {
		if m.DocumentID == documentID {
			matches = append(matches, m)
		}
	}
	if len(matches) > r.opts.TopK {
		matches = matches[:r.opts.TopK]
	}
	return matches, nil
}

func (r *Retriever) stored(vector []float32, documentID uint) ([]vectorindex.Match, error) {
	chunks, err := r.chunks.ListByDocumentID(documentID)
	if err != nil {
		return nil, fmt.Errorf("load stored chunks failed: %w", err)
	}
	matches := make([]vectorindex.Match, 0, len(chunks))
	for i := range chunks {
		matches = append(matches, vectorindex.Match{
			DocumentID: documentID,
			ChunkIndex: chunks[i].Index,
			Content:    chunks[i].Content,
			Score:      CosineSimilarity(vector, chunks[i].EmbeddingVector()),
		})
	}
	sortByScore(matches)
	if len(matches) > r.opts.TopK {
		matches = matches[:r.opts.TopK]
	}
	return matches, nil
}

// ApplyThreshold keeps matches scoring at least minScore. When none pass, the
// single best match is kept if it reaches half of minScore.
func ApplyThreshold(matches []vectorindex.Match, minScore float64) []vectorindex.Match {
	if len(matches) == 0 {
		return nil
	}
	sorted := append([]vectorindex.Match(nil), matches...)
	sortByScore(sorted)

	var kept []vectorindex.Match
	for _, m := range sorted {
		if float64(m.Score) >= minScore {
			kept = append(kept, m)
		}
	}
	if len(kept) > 0 {
		return kept
	}
	if float64(sorted[0].Score) >= minScore/2 {
		return sorted[:1]
	}
	return nil
}

// BuildContext joins match contents best first, capped at maxChars runes.
func BuildContext(matches []vectorindex.Match, maxChars int) string {
	var b strings.Builder
	used := 0
	for i, m := range matches {
		piece := m.Content
		if i > 0 {
			piece = contextSeparator + piece
		}
		runes := []rune(piece)
		if maxChars > 0 && used+len(runes) > maxChars {
			if remaining := maxChars - used; remaining > 0 && i == 0 {
				b.WriteString(string(runes[:remaining]))
			}
			break
		}
		b.WriteString(piece)
		used += len(runes)
	}
	return b.String()
}

func sortByScore(matches []vectorindex.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
