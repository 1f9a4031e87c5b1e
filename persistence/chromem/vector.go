package chromem

import (
	"context"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/zoningqa/vector"
)

func NewChromemVectorDB(cfg vector.Config, embed vector.EmbeddingFunc) (vector.VectorDB, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, err
		}

		db = d
	}

	var fn chromem.EmbeddingFunc
	if embed != nil {
		fn = chromem.EmbeddingFunc(embed)
	}

	return &chromemVectorDB{db, fn}, nil
}

type chromemVectorDB struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

func (v *chromemVectorDB) Collection(name string) (vector.Collection, error) {
	c, err := v.db.GetOrCreateCollection(name, nil, v.embed)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

type collection struct {
	collection *chromem.Collection
}

func (c *collection) AddDocuments(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	documents := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		documents[i] = chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}
	}

	return c.collection.AddDocuments(ctx, documents, runtime.NumCPU())
}

func (c *collection) FindDocument(ctx context.Context, id string) (vector.Document, error) {
	document, err := c.collection.GetByID(ctx, id)
	if err != nil {
		return vector.Document{}, err
	}

	return vector.Document{
		ID:        document.ID,
		Metadata:  document.Metadata,
		Embedding: document.Embedding,
		Content:   document.Content,
	}, nil
}

func (c *collection) Query(ctx context.Context, query string, k int) ([]vector.Document, error) {
	count := c.collection.Count()
	if k > count {
		k = count
	}

	// chromem rejects a non-positive result count
	if k <= 0 {
		return nil, nil
	}

	results, err := c.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Document, len(results))
	for i, result := range results {
		docs[i] = vector.Document{
			ID:         result.ID,
			Metadata:   result.Metadata,
			Embedding:  result.Embedding,
			Content:    result.Content,
			Similarity: result.Similarity,
		}
	}

	return docs, nil
}

func (c *collection) Count() int {
	return c.collection.Count()
}
