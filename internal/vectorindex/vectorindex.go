// Package vectorindex wraps a chromem-go collection as the searchable chunk
// store. The handle is constructed once at startup and passed by reference to
// whatever needs it; there is no package-level state.
package vectorindex

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"docuchat/internal/chunker"
)

// Embedder turns text into vectors. Embedding is the dominant latency cost of
// ingestion, so whole documents are embedded in one batch call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is one search hit, most similar first.
type Result struct {
	Chunk      chunker.Chunk
	Similarity float32
}

// Index stores chunk embeddings plus source metadata. Writes (per-document
// add, purge) are exclusive; searches run shared, so a purge is atomic from
// the point of view of any in-flight search.
type Index struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	embedder   Embedder
}

// New opens a persistent index at path.
func New(path, collectionName string, embedder Embedder) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db failed: %w", err)
	}
	return newIndex(db, collectionName, embedder)
}

// NewInMemory builds a non-persistent index, used by tests.
func NewInMemory(collectionName string, embedder Embedder) (*Index, error) {
	return newIndex(chromem.NewDB(), collectionName, embedder)
}

func newIndex(db *chromem.DB, collectionName string, embedder Embedder) (*Index, error) {
	idx := &Index{db: db, name: collectionName, embedder: embedder}
	collection, err := db.GetOrCreateCollection(collectionName, nil, idx.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("open collection failed: %w", err)
	}
	idx.collection = collection
	return idx, nil
}

func (i *Index) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return i.embedder.Embed(ctx, text)
	}
}

// AddDocument embeds and stores all chunks of one document. The write is
// atomic per document: the batch is embedded up front, and if the insert
// fails partway the document's entries are removed again.
func (i *Index) AddDocument(ctx context.Context, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to index")
	}
	source := chunks[0].Source

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}
	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed document %s failed: %w", source, err)
	}

	docs := make([]chromem.Document, len(chunks))
	for n, c := range chunks {
		docs[n] = chromem.Document{
			ID:        chunkID(source, n),
			Content:   c.Text,
			Embedding: vectors[n],
			Metadata: map[string]string{
				"source": c.Source,
				"offset": strconv.Itoa(c.Offset),
			},
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.collection.AddDocuments(ctx, docs, 1); err != nil {
		ids := make([]string, len(docs))
		for n := range docs {
			ids[n] = docs[n].ID
		}
		_ = i.collection.Delete(ctx, nil, nil, ids...)
		return fmt.Errorf("index document %s failed: %w", source, err)
	}
	return nil
}

// Search returns up to k chunks nearest to the query, most similar first.
func (i *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	count := i.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	hits, err := i.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]Result, len(hits))
	for n, h := range hits {
		offset, _ := strconv.Atoi(h.Metadata["offset"])
		results[n] = Result{
			Chunk: chunker.Chunk{
				Text:   h.Content,
				Source: h.Metadata["source"],
				Offset: offset,
			},
			Similarity: h.Similarity,
		}
	}
	return results, nil
}

// IsEmpty reports whether zero chunks are stored.
func (i *Index) IsEmpty() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.collection.Count() == 0
}

// DeleteAll purges every stored chunk by dropping and recreating the
// collection. Only used as part of a full reset.
func (i *Index) DeleteAll() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.db.DeleteCollection(i.name); err != nil {
		return fmt.Errorf("drop collection failed: %w", err)
	}
	collection, err := i.db.GetOrCreateCollection(i.name, nil, i.embeddingFunc())
	if err != nil {
		return fmt.Errorf("recreate collection failed: %w", err)
	}
	i.collection = collection
	return nil
}

// DeleteDocument removes every chunk whose source matches the given filename.
func (i *Index) DeleteDocument(ctx context.Context, source string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.collection.Count() == 0 {
		return nil
	}
	if err := i.collection.Delete(ctx, map[string]string{"source": source}, nil); err != nil {
		return fmt.Errorf("delete document %s from index failed: %w", source, err)
	}
	return nil
}

func chunkID(source string, n int) string {
	return fmt.Sprintf("%s#%04d", source, n)
}
