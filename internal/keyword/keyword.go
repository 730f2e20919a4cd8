// Package keyword provides a Bleve-backed chunk index used as a retrieval
// fallback when the semantic index returns nothing.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/tanya/internal/models"
)

// chunkDoc is the shape indexed per chunk.
type chunkDoc struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// ChunkIndex indexes chunk text for keyword matching.
type ChunkIndex struct {
	index bleve.Index
}

// NewChunkIndex creates or opens a Bleve index at path. An existing index is
// reused so keyword fallback works across restarts without re-indexing.
func NewChunkIndex(path string) (*ChunkIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open keyword index: %w", openErr)
		}
		return &ChunkIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): Indonesian text
	// gains nothing from the English stemmer.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	sourceFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("source", sourceFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &ChunkIndex{index: index}, nil
}

// Index adds one chunk under the given record id.
func (c *ChunkIndex) Index(ctx context.Context, id string, content, source string) error {
	return c.index.Index(id, chunkDoc{Content: content, Source: source})
}

// Search runs a match query over chunk content and returns up to k results.
// Keyword hits carry no embedding distance, so Distance is left nil.
func (c *ChunkIndex) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	mq := bleve.NewMatchQuery(query)
	mq.SetField("content")
	req := bleve.NewSearchRequestOptions(mq, k, 0, false)
	req.Fields = []string{"content", "source"}

	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	results := make([]models.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		content, _ := hit.Fields["content"].(string)
		source, _ := hit.Fields["source"].(string)
		results = append(results, models.SearchResult{
			Content: content,
			Metadata: map[string]interface{}{
				"source": source,
				"score":  hit.Score,
			},
		})
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (c *ChunkIndex) Count() (uint64, error) {
	return c.index.DocCount()
}

// Close closes the underlying index.
func (c *ChunkIndex) Close() error {
	return c.index.Close()
}
