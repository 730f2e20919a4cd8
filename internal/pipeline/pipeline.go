// Package pipeline wires loading, chunking, embedding, storage, retrieval,
// and answer selection into the two end-to-end operations: build an index
// and answer a question against it.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/answer"
	"github.com/hyperjump/tanya/internal/chunker"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/loader"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/progress"
	"github.com/hyperjump/tanya/internal/retriever"
	"github.com/hyperjump/tanya/internal/store"
)

// MsgNoInformation is returned when retrieval finds nothing relevant.
const MsgNoInformation = answer.MsgNoInformation

// MsgProcessingFailed is returned when answering fails unexpectedly.
const MsgProcessingFailed = "Maaf, terjadi kesalahan dalam memproses pertanyaan Anda."

// embedBatchSize bounds how many chunks are embedded per call so progress
// stays visible on large corpora.
const embedBatchSize = 32

// Pipeline owns the full question-answering flow over a local corpus.
type Pipeline struct {
	loader    *loader.FileLoader
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	store     *store.Store
	keyword   *keyword.ChunkIndex
	retriever *retriever.Retriever
	selector  *answer.Selector
	logger    *zap.Logger
	sink      progress.Sink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithKeywordIndex enables the lexical fallback index.
func WithKeywordIndex(idx *keyword.ChunkIndex) Option {
	return func(p *Pipeline) { p.keyword = idx }
}

// WithProgress sets the progress sink for indexing stages.
func WithProgress(sink progress.Sink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New assembles a pipeline from its stages.
func New(
	ld *loader.FileLoader,
	ch *chunker.Chunker,
	emb embedding.Embedder,
	st *store.Store,
	rt *retriever.Retriever,
	sel *answer.Selector,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		loader:    ld,
		chunker:   ch,
		embedder:  emb,
		store:     st,
		retriever: rt,
		selector:  sel,
		logger:    zap.NewNop(),
		sink:      progress.NopSink{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BuildIndex loads every document under dir, chunks, embeds, and stores them.
// A directory with no loadable documents or no resulting chunks is an error;
// the caller should treat it as a failed build, not an empty success.
func (p *Pipeline) BuildIndex(ctx context.Context, dir string) error {
	docs, err := p.loader.Load(dir)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found in %s", dir)
	}
	return p.index(ctx, docs)
}

// IndexFile loads and indexes a single file, used by the directory watcher.
func (p *Pipeline) IndexFile(ctx context.Context, path string) error {
	doc, err := p.loader.LoadFile(path)
	if err != nil {
		return err
	}
	return p.index(ctx, []models.Document{doc})
}

func (p *Pipeline) index(ctx context.Context, docs []models.Document) error {
	chunks := p.chunker.Split(docs, p.sink)
	if len(chunks) == 0 {
		return fmt.Errorf("documents produced no chunks")
	}

	embeddings, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if err := p.store.Add(ctx, chunks, embeddings); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	if p.keyword != nil {
		for _, chunk := range chunks {
			if err := p.keyword.Index(ctx, uuid.New().String(), chunk.Content, chunk.Source); err != nil {
				p.logger.Error("keyword indexing failed",
					zap.String("source", chunk.Source), zap.Error(err))
			}
		}
	}

	p.logger.Info("indexing complete",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	p.sink.Start("Membuat embedding", len(chunks))
	defer p.sink.Done()

	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}
		batch, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
		p.sink.Increment(end - start)
	}
	return embeddings, nil
}

// Query retrieves context for the question and selects an answer. When
// retrieval comes back empty the fixed no-information answer is returned
// without calling any model. Query never panics or errors; the worst case
// is an apologetic answer with zero confidence.
func (p *Pipeline) Query(ctx context.Context, question string, k int) (ans models.Answer) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("query panicked", zap.Any("panic", r))
			ans = models.Answer{Answer: MsgProcessingFailed, Confidence: 0, Sources: []models.Source{}}
		}
	}()

	results := p.retriever.Retrieve(ctx, question, k)
	if len(results) == 0 {
		p.logger.Info("no relevant context found", zap.String("question", question))
		return models.Answer{Answer: MsgNoInformation, Confidence: 0, Sources: []models.Source{}}
	}
	return p.selector.Select(ctx, question, results)
}

// CollectionExists reports whether the vector collection has been created.
func (p *Pipeline) CollectionExists() bool {
	return p.store.CollectionExists()
}

// DocumentCount returns the number of stored chunk records.
func (p *Pipeline) DocumentCount() int {
	return p.store.Count()
}

// Close releases the pipeline's resources.
func (p *Pipeline) Close() error {
	var firstErr error
	if err := p.embedder.Close(); err != nil {
		firstErr = err
	}
	if p.keyword != nil {
		if err := p.keyword.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := p.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
