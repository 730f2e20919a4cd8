package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "vectors.db"), nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func unitVec(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestStore_EnsureReadyIdempotent(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.EnsureReady(); err != nil {
			t.Fatalf("EnsureReady call %d: %v", i, err)
		}
	}
	if !s.CollectionExists() {
		t.Error("collection should exist after EnsureReady")
	}
}

func TestStore_AddAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []models.Chunk{
		{Content: "Jakarta adalah ibu kota", Source: "a.txt", Language: "indonesian", ChunkIndex: 0},
		{Content: "Gunung tertinggi adalah Puncak Jaya", Source: "b.txt", Language: "indonesian", ChunkIndex: 0},
	}
	embeddings := [][]float32{unitVec(4, 0), unitVec(4, 1)}
	if err := s.Add(ctx, chunks, embeddings); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results := s.Search(ctx, unitVec(4, 0), 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "Jakarta adalah ibu kota" {
		t.Errorf("nearest = %q", results[0].Content)
	}
	if results[0].Distance == nil || math.Abs(*results[0].Distance) > 1e-6 {
		t.Errorf("nearest distance = %v, want 0", results[0].Distance)
	}
	if results[1].Distance == nil || *results[1].Distance <= *results[0].Distance {
		t.Error("results should be ordered nearest-first")
	}
	meta := results[0].Metadata
	if meta["source"] != "a.txt" || meta["language"] != "indonesian" {
		t.Errorf("metadata = %v", meta)
	}
	if _, ok := meta["timestamp"]; !ok {
		t.Error("metadata should carry a timestamp")
	}
}

func TestStore_SearchRespectsK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var chunks []models.Chunk
	var embeddings [][]float32
	for i := 0; i < 5; i++ {
		chunks = append(chunks, models.Chunk{Content: "isi", Source: "s", ChunkIndex: i})
		embeddings = append(embeddings, unitVec(8, i))
	}
	if err := s.Add(ctx, chunks, embeddings); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Search(ctx, unitVec(8, 0), 3)); got != 3 {
		t.Errorf("expected 3 results, got %d", got)
	}
}

func TestStore_SearchEmptyIndex(t *testing.T) {
	s := newTestStore(t)
	results := s.Search(context.Background(), unitVec(4, 0), 5)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestStore_NoDeduplication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunk := []models.Chunk{{Content: "sama", Source: "a.txt", ChunkIndex: 0}}
	emb := [][]float32{unitVec(4, 0)}

	if err := s.Add(ctx, chunk, emb); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, chunk, emb); err != nil {
		t.Fatal(err)
	}
	if got := s.Count(); got != 2 {
		t.Errorf("Count = %d, want 2 (re-adding creates new records)", got)
	}
}

func TestStore_CountEmpty(t *testing.T) {
	s := newTestStore(t)
	if got := s.Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}

func TestStore_AddLengthMismatch(t *testing.T) {
	s := newTestStore(t)
	err := s.Add(context.Background(), []models.Chunk{{Content: "x"}}, nil)
	if err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestStore_Batching(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "v.db"), nil, WithBatchSize(2))
	defer s.Close()
	ctx := context.Background()
	var chunks []models.Chunk
	var embeddings [][]float32
	for i := 0; i < 5; i++ {
		chunks = append(chunks, models.Chunk{Content: "c", Source: "s", ChunkIndex: i})
		embeddings = append(embeddings, unitVec(4, i%4))
	}
	if err := s.Add(ctx, chunks, embeddings); err != nil {
		t.Fatal(err)
	}
	if got := s.Count(); got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
}

func TestStore_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	s := NewStore(path, nil)
	ctx := context.Background()
	if err := s.Add(ctx, []models.Chunk{{Content: "tahan lama", Source: "s"}}, [][]float32{unitVec(4, 0)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2 := NewStore(path, nil)
	defer s2.Close()
	if got := s2.Count(); got != 1 {
		t.Errorf("Count after reopen = %d, want 1", got)
	}
	results := s2.Search(ctx, unitVec(4, 0), 1)
	if len(results) != 1 || results[0].Content != "tahan lama" {
		t.Errorf("results after reopen = %v", results)
	}
}

func TestStore_LazyReinitAfterClose(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	// Public methods must self-heal after Close.
	if err := s.Add(context.Background(), []models.Chunk{{Content: "x", Source: "s"}}, [][]float32{unitVec(4, 0)}); err != nil {
		t.Fatalf("Add after Close: %v", err)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestEncodeDecodeEmbedding(t *testing.T) {
	in := []float32{0.5, -1.25, 3.75}
	out, err := decodeEmbedding(encodeEmbedding(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("length %d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: %f != %f", i, in[i], out[i])
		}
	}
	if _, err := decodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
