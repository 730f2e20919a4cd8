package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	a, err := e.Embed(context.Background(), "ibu kota")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), "ibu kota")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d", i)
		}
	}
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	e := NewMockEmbedder(32)
	v, err := e.Embed(context.Background(), "Jakarta")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
}

func TestMockEmbedder_Batch(t *testing.T) {
	e := NewMockEmbedder(16)
	out, err := e.EmbedBatch(context.Background(), []string{"satu", "dua", "tiga"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(out))
	}
	for i, v := range out {
		if len(v) != 16 {
			t.Errorf("embedding %d has dimension %d", i, len(v))
		}
	}
}

func TestMockEmbedder_DefaultDimensions(t *testing.T) {
	e := NewMockEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("Dimensions = %d, want 384", e.Dimensions())
	}
}
