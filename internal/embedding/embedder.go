// Package embedding provides text embedding backends behind a common interface.
package embedding

import "context"

// Embedder produces fixed-dimension vector embeddings for text. Embeddings
// are L2-normalized so inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
