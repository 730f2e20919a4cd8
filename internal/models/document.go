// Package models defines core data structures for documents, chunks, and answers.
package models

// Document is a loaded source document before chunking.
type Document struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Language string `json:"language"`
	Size     int    `json:"size"`
}

// Chunk is a sentence-bounded, overlapping slice of a document used as the
// retrieval unit. Chunks are immutable once produced by the chunker.
type Chunk struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	Language   string `json:"language"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkCount int    `json:"chunk_count"`
	DocSize    int    `json:"original_doc_size"`
}
