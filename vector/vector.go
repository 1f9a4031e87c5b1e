package vector

import "context"

type Config struct {
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
	Compress   bool   `yaml:"compress"`
	Collection string `yaml:"collection"`
}

type VectorDB interface {
	Collection(name string) (Collection, error)
}

// Collection is safe for concurrent use.
type Collection interface {
	AddDocuments(ctx context.Context, docs []Document) error
	FindDocument(ctx context.Context, id string) (Document, error)
	Query(ctx context.Context, query string, k int) ([]Document, error)
	Count() int
}

const (
	MetadataSource = "source"
	MetadataPage   = "page"
)

type Document struct {
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Similarity float32           `json:"similarity,omitempty"`
}

type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)
