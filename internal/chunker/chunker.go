// Package chunker splits documents into sentence-bounded, overlapping chunks.
package chunker

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/progress"
	"github.com/hyperjump/tanya/pkg/utils"
)

// Sentence boundaries: terminal punctuation (including the danda used in
// Indonesian-script texts) or a blank line.
var sentenceEndings = regexp.MustCompile(`[.!?।]+|\n\n`)

// Chunker assembles sentences into chunks of bounded word length with a
// sentence-count overlap between consecutive chunks.
type Chunker struct {
	chunkSize    int // maximum chunk length in words
	chunkOverlap int // sentences carried over into the next chunk
	logger       *zap.Logger
}

// NewChunker creates a chunker. chunkSize is in words, chunkOverlap in
// sentences. logger may be nil.
func NewChunker(chunkSize, chunkOverlap int, logger *zap.Logger) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// SplitSentences splits text on sentence-terminal punctuation or blank lines,
// discarding empty fragments and preserving order.
func SplitSentences(text string) []string {
	parts := sentenceEndings.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// Split chunks each document and returns all chunks in document order.
// A document with no sentences yields no chunks. sink may be nil.
func (c *Chunker) Split(docs []models.Document, sink progress.Sink) []models.Chunk {
	if sink == nil {
		sink = progress.NopSink{}
	}
	sink.Start("Memecah dokumen", len(docs))

	var all []models.Chunk
	for _, doc := range docs {
		texts := c.assemble(SplitSentences(doc.Content))
		for i, text := range texts {
			all = append(all, models.Chunk{
				Content:    text,
				Source:     doc.Source,
				Language:   doc.Language,
				ChunkIndex: i,
				ChunkCount: len(texts),
				DocSize:    len(doc.Content),
			})
		}
		if len(texts) == 0 && c.logger != nil {
			c.logger.Warn("document yielded no chunks", zap.String("source", doc.Source))
		}
		sink.Increment(1)
	}
	sink.Done()

	if c.logger != nil {
		c.logger.Info("documents chunked",
			zap.Int("documents", len(docs)),
			zap.Int("chunks", len(all)),
		)
	}
	return all
}

// assemble greedily accumulates sentences into chunks of at most chunkSize
// words. When a sentence would overflow a non-empty buffer, the buffer is
// emitted and the last chunkOverlap sentences seed the next buffer. The
// overflowing sentence is always appended, so a single oversized sentence
// becomes its own chunk.
func (c *Chunker) assemble(sentences []string) []string {
	var chunks []string
	var buffer []string
	length := 0

	for _, sentence := range sentences {
		words := utils.WordCount(sentence)
		if length+words > c.chunkSize && len(buffer) > 0 {
			chunks = append(chunks, strings.Join(buffer, " "))

			keep := len(buffer) - c.chunkOverlap
			if keep < 0 {
				keep = 0
			}
			buffer = append([]string(nil), buffer[keep:]...)
			length = 0
			for _, s := range buffer {
				length += utils.WordCount(s)
			}
		}
		buffer = append(buffer, sentence)
		length += words
	}
	if len(buffer) > 0 {
		chunks = append(chunks, strings.Join(buffer, " "))
	}
	return chunks
}
