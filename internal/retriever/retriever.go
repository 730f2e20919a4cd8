// Package retriever turns a question into ranked context passages.
package retriever

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/models"
)

// DefaultK is the number of passages fetched when the caller does not ask
// for a specific count.
const DefaultK = 3

// VectorSearcher answers nearest-neighbor queries over stored chunks.
type VectorSearcher interface {
	Search(ctx context.Context, queryEmbedding []float32, k int) []models.SearchResult
}

// KeywordSearcher answers lexical queries over stored chunks.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// Retriever embeds a question and searches the vector store, falling back to
// keyword search when semantic retrieval comes back empty. Retrieval never
// fails: any error degrades to an empty result set.
type Retriever struct {
	embedder embedding.Embedder
	vector   VectorSearcher
	keyword  KeywordSearcher
	logger   *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithKeywordFallback enables lexical fallback through the given searcher.
func WithKeywordFallback(k KeywordSearcher) Option {
	return func(r *Retriever) { r.keyword = k }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a retriever over the given embedder and vector index.
func NewRetriever(embedder embedding.Embedder, vector VectorSearcher, opts ...Option) *Retriever {
	r := &Retriever{
		embedder: embedder,
		vector:   vector,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k passages relevant to the question, most relevant
// first. k <= 0 falls back to DefaultK.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) []models.SearchResult {
	if k <= 0 {
		k = DefaultK
	}

	embs, err := r.embedder.EmbedBatch(ctx, []string{question})
	if err != nil || len(embs) == 0 {
		r.logger.Error("question embedding failed", zap.Error(err))
		return r.fallback(ctx, question, k)
	}

	results := r.vector.Search(ctx, embs[0], k)
	if len(results) == 0 {
		r.logger.Debug("semantic retrieval empty, trying keyword fallback",
			zap.String("question", question))
		return r.fallback(ctx, question, k)
	}
	return results
}

func (r *Retriever) fallback(ctx context.Context, question string, k int) []models.SearchResult {
	if r.keyword == nil {
		return nil
	}
	results, err := r.keyword.Search(ctx, question, k)
	if err != nil {
		r.logger.Error("keyword fallback failed", zap.Error(err))
		return nil
	}
	return results
}
