// Package ingest builds the document index from a directory of handbook
// files.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/flarexio/zoningqa"
	"github.com/flarexio/zoningqa/vector"
)

const batchSize = 64

var ErrCorpusNotSet = errors.New("corpus directory not set")

// Page is the text of one page of a source file. Number is 1-based.
type Page struct {
	Source string
	Number int
	Text   string
}

type Stats struct {
	Files   int `json:"files"`
	Pages   int `json:"pages"`
	Chunks  int `json:"chunks"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

type Pipeline struct {
	dir        string
	size       int
	overlap    int
	collection vector.Collection
	log        *zap.Logger
}

func NewPipeline(dir string, cfg zoningqa.IngestConfig, collection vector.Collection) *Pipeline {
	return &Pipeline{
		dir:        dir,
		size:       cfg.ChunkSize,
		overlap:    cfg.ChunkOverlap,
		collection: collection,
		log: zap.L().With(
			zap.String("component", "ingest"),
			zap.String("dir", dir),
		),
	}
}

// Run indexes every supported file under the corpus directory. Chunks
// already present in the collection are left alone, so a rerun only adds
// what changed.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if p.dir == "" {
		return stats, ErrCorpusNotSet
	}

	pending := make([]vector.Document, 0, batchSize)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}

		if err := p.collection.AddDocuments(ctx, pending); err != nil {
			return err
		}

		stats.Added += len(pending)
		pending = pending[:0]
		return nil
	}

	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		pages, err := ReadFile(path)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFile) {
				return nil
			}

			return fmt.Errorf("read %s: %w", path, err)
		}

		stats.Files++

		log := p.log.With(zap.String("source", filepath.Base(path)))
		log.Info("file loaded", zap.Int("pages", len(pages)))

		for _, page := range pages {
			stats.Pages++

			texts, err := Split(page.Text, p.size, p.overlap)
			if err != nil {
				return fmt.Errorf("split %s page %d: %w", page.Source, page.Number, err)
			}

			for i, text := range texts {
				stats.Chunks++

				doc := NewDocument(page, i, text)
				if _, err := p.collection.FindDocument(ctx, doc.ID); err == nil {
					stats.Skipped++
					continue
				}

				pending = append(pending, doc)
				if len(pending) < batchSize {
					continue
				}

				if err := flush(); err != nil {
					return err
				}
			}
		}

		return ctx.Err()
	})

	if err != nil {
		return stats, err
	}

	if err := flush(); err != nil {
		return stats, err
	}

	p.log.Info("corpus indexed",
		zap.Int("files", stats.Files),
		zap.Int("pages", stats.Pages),
		zap.Int("chunks", stats.Chunks),
		zap.Int("added", stats.Added),
		zap.Int("skipped", stats.Skipped),
	)

	return stats, nil
}

// NewDocument derives a stable document id from where the chunk came from.
func NewDocument(page Page, index int, text string) vector.Document {
	key := page.Source + "|" + strconv.Itoa(page.Number) + "|" + strconv.Itoa(index)
	sum := sha256.Sum256([]byte(key))

	return vector.Document{
		ID: hex.EncodeToString(sum[:]),
		Metadata: map[string]string{
			vector.MetadataSource: page.Source,
			vector.MetadataPage:   zoningqa.PageLabel(page.Number),
		},
		Content: text,
	}
}

var ErrUnsupportedFile = errors.New("unsupported file type")

// ReadFile returns the pages of a PDF, or a text file as a single page.
func ReadFile(path string) ([]Page, error) {
	source := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path, source)

	case ".txt", ".md":
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		return []Page{{Source: source, Number: 1, Text: string(bs)}}, nil

	default:
		return nil, ErrUnsupportedFile
	}
}

func readPDF(path, source string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]Page, 0, total)

	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, Page{
			Source: source,
			Number: i,
			Text:   text,
		})
	}

	return pages, nil
}
