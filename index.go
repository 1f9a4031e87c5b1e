package zoningqa

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/flarexio/zoningqa/vector"
)

const (
	UnknownSource = "Unknown document"
	UnknownPage   = "N/A"
)

// Index retrieves the chunks most relevant to a query, most relevant first.
type Index interface {
	Retrieve(ctx context.Context, query string, k int) ([]Chunk, error)
}

type IndexFunc func(ctx context.Context, query string, k int) ([]Chunk, error)

func (fn IndexFunc) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	return fn(ctx, query, k)
}

func NewIndex(collection vector.Collection) Index {
	return &collectionIndex{collection}
}

type collectionIndex struct {
	collection vector.Collection
}

func (idx *collectionIndex) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	docs, err := idx.collection.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(docs))
	for i, doc := range docs {
		chunks[i] = DocumentToChunk(doc, i+1)
	}

	return chunks, nil
}

func DocumentToChunk(doc vector.Document, rank int) Chunk {
	source := strings.TrimSpace(doc.Metadata[vector.MetadataSource])
	if source == "" {
		source = UnknownSource
	}

	page := strings.TrimSpace(doc.Metadata[vector.MetadataPage])
	if page == "" {
		page = UnknownPage
	}

	return Chunk{
		Text:   strings.TrimSpace(doc.Content),
		Source: source,
		Page:   page,
		Rank:   rank,
	}
}

func PageLabel(page int) string {
	if page <= 0 {
		return UnknownPage
	}

	return strconv.Itoa(page)
}

// NewLazyIndex defers opening the index until the first retrieval.
// A failed open is retried on the next call; a successful one is kept
// for the lifetime of the process.
func NewLazyIndex(open func() (Index, error)) Index {
	return &lazyIndex{open: open}
}

type lazyIndex struct {
	open  func() (Index, error)
	index Index
	mu    sync.Mutex
}

func (idx *lazyIndex) get() (Index, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.index != nil {
		return idx.index, nil
	}

	index, err := idx.open()
	if err != nil {
		return nil, err
	}

	idx.index = index
	return index, nil
}

func (idx *lazyIndex) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	index, err := idx.get()
	if err != nil {
		return nil, err
	}

	return index.Retrieve(ctx, query, k)
}
