package vectorindex

import (
	"context"
	"fmt"
	"testing"

	"docuchat/internal/chunker"
)

// stubEmbedder maps known texts to fixed unit vectors so similarity ordering
// is deterministic.
type stubEmbedder struct {
	vectors map[string][]float32
	failOn  string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == s.failOn && s.failOn != "" {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 1}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestIndex(t *testing.T, emb *stubEmbedder) *Index {
	t.Helper()
	idx, err := NewInMemory("test", emb)
	if err != nil {
		t.Fatalf("new index failed: %v", err)
	}
	return idx
}

func TestIndex_SearchReturnsMostSimilarFirst(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"exact match": {1, 0},
		"near match":  {0.8, 0.6},
		"unrelated":   {0, 1},
		"the query":   {1, 0},
	}}
	idx := newTestIndex(t, emb)
	ctx := context.Background()

	chunks := []chunker.Chunk{
		{Text: "unrelated", Source: "a.pdf", Offset: 0},
		{Text: "exact match", Source: "a.pdf", Offset: 10},
		{Text: "near match", Source: "a.pdf", Offset: 20},
	}
	if err := idx.AddDocument(ctx, chunks); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	results, err := idx.Search(ctx, "the query", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Chunk.Text != "exact match" {
		t.Errorf("top hit = %q, want exact match", results[0].Chunk.Text)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Errorf("results not ordered by similarity: %v then %v", results[0].Similarity, results[1].Similarity)
	}
	if results[0].Chunk.Source != "a.pdf" || results[0].Chunk.Offset != 10 {
		t.Errorf("chunk metadata not recovered: %+v", results[0].Chunk)
	}
}

func TestIndex_IsEmptyAndDeleteAll(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{}}
	idx := newTestIndex(t, emb)
	ctx := context.Background()

	if !idx.IsEmpty() {
		t.Fatal("fresh index should be empty")
	}

	chunks := []chunker.Chunk{{Text: "body", Source: "doc.pdf", Offset: 0}}
	if err := idx.AddDocument(ctx, chunks); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if idx.IsEmpty() {
		t.Fatal("index should not be empty after add")
	}

	if err := idx.DeleteAll(); err != nil {
		t.Fatalf("delete all failed: %v", err)
	}
	if !idx.IsEmpty() {
		t.Fatal("index should be empty after purge")
	}
	results, err := idx.Search(ctx, "body", 4)
	if err != nil {
		t.Fatalf("search after purge failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after purge, want 0", len(results))
	}
}

func TestIndex_FailedEmbeddingAddsNothing(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{}, failOn: "poison"}
	idx := newTestIndex(t, emb)
	ctx := context.Background()

	chunks := []chunker.Chunk{
		{Text: "fine", Source: "bad.pdf", Offset: 0},
		{Text: "poison", Source: "bad.pdf", Offset: 5},
	}
	if err := idx.AddDocument(ctx, chunks); err == nil {
		t.Fatal("expected embedding failure")
	}
	if !idx.IsEmpty() {
		t.Error("failed add must not leave partial chunks behind")
	}
}

func TestIndex_DeleteDocumentKeepsOthers(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"from a": {1, 0},
		"from b": {0, 1},
	}}
	idx := newTestIndex(t, emb)
	ctx := context.Background()

	if err := idx.AddDocument(ctx, []chunker.Chunk{{Text: "from a", Source: "a.pdf"}}); err != nil {
		t.Fatalf("add a failed: %v", err)
	}
	if err := idx.AddDocument(ctx, []chunker.Chunk{{Text: "from b", Source: "b.pdf"}}); err != nil {
		t.Fatalf("add b failed: %v", err)
	}

	if err := idx.DeleteDocument(ctx, "a.pdf"); err != nil {
		t.Fatalf("delete document failed: %v", err)
	}

	results, err := idx.Search(ctx, "from b", 4)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Source != "b.pdf" {
		t.Errorf("unexpected results after per-document delete: %+v", results)
	}
}
