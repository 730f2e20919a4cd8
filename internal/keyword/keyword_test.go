package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *ChunkIndex {
	t.Helper()
	idx, err := NewChunkIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewChunkIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestChunkIndex_IndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, "1", "Jakarta adalah ibu kota Indonesia", "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "2", "Puncak Jaya adalah gunung tertinggi", "b.txt"); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search(ctx, "ibu kota", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].Content != "Jakarta adalah ibu kota Indonesia" {
		t.Errorf("top result = %q", results[0].Content)
	}
	if results[0].Metadata["source"] != "a.txt" {
		t.Errorf("source = %v", results[0].Metadata["source"])
	}
	if results[0].Distance != nil {
		t.Error("keyword hits should not carry a distance")
	}
}

func TestChunkIndex_SearchRespectsK(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := idx.Index(ctx, string(rune('a'+i)), "kata yang sama di semua chunk", "s.txt"); err != nil {
			t.Fatal(err)
		}
	}
	results, err := idx.Search(ctx, "sama", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) > 2 {
		t.Errorf("expected at most 2 results, got %d", len(results))
	}
}

func TestChunkIndex_NoMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Index(ctx, "1", "konten apa saja", "s.txt"); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "zzzzz", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestChunkIndex_Count(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Index(context.Background(), "1", "satu", "s"); err != nil {
		t.Fatal(err)
	}
	n, err := idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
