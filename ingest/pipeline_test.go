package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/zoningqa"
	"github.com/flarexio/zoningqa/persistence/chromem"
	"github.com/flarexio/zoningqa/vector"
)

func TestSplitShortText(t *testing.T) {
	assert := assert.New(t)

	chunks, err := Split("  R6 districts  ", 100, 10)
	assert.NoError(err)
	assert.Equal([]string{"R6 districts"}, chunks)

	chunks, err = Split("   \n\n  ", 100, 10)
	assert.NoError(err)
	assert.Empty(chunks)

	chunks, err = Split("anything", 0, 0)
	assert.NoError(err)
	assert.Nil(chunks)
}

func TestSplitWindowBounds(t *testing.T) {
	assert := assert.New(t)

	words := make([]string, 400)
	for i := range words {
		words[i] = "zoning"
	}
	text := strings.Join(words, " ")

	chunks, err := Split(text, 120, 20)
	assert.NoError(err)
	assert.Greater(len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(utf8.RuneCountInString(chunk), 120)
		// windows end on word boundaries
		assert.True(strings.HasSuffix(chunk, "zoning"))
	}
}

func TestSplitPrefersParagraphs(t *testing.T) {
	assert := assert.New(t)

	first := strings.Repeat("a", 70)
	second := strings.Repeat("b", 70)
	text := first + "\n\n" + second

	chunks, err := Split(text, 100, 0)
	assert.NoError(err)
	if assert.Len(chunks, 2) {
		assert.Equal(first, chunks[0])
		assert.Equal(second, chunks[1])
	}
}

func TestSplitOverlap(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("x", 250)

	chunks, err := Split(text, 100, 30)
	assert.NoError(err)
	if assert.Len(chunks, 4) {
		assert.Len(chunks[0], 100)
		assert.Len(chunks[1], 100)
		assert.Len(chunks[2], 100)
		assert.Len(chunks[3], 40)
	}
}

func TestSplitWordOverlap(t *testing.T) {
	assert := assert.New(t)

	words := make([]string, 60)
	for i := range words {
		words[i] = fmt.Sprintf("w%02d", i)
	}

	chunks, err := Split(strings.Join(words, " "), 40, 10)
	assert.NoError(err)
	assert.Greater(len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		next := strings.Fields(chunks[i])
		assert.Contains(prev, next[0], "each window starts inside the previous one")
	}
}

func TestSplitMultibyte(t *testing.T) {
	chunks, err := Split(strings.Repeat("é", 30), 10, 0)
	assert.NoError(t, err)

	if assert.Len(t, chunks, 3) {
		assert.Equal(t, strings.Repeat("é", 10), chunks[0])
	}
}

func TestNewDocument(t *testing.T) {
	assert := assert.New(t)

	page := Page{Source: "zoning_handbook.pdf", Number: 12, Text: "..."}

	a := NewDocument(page, 0, "R6 text")
	b := NewDocument(page, 0, "R6 text, re-extracted")
	c := NewDocument(page, 1, "R6 text")

	assert.Equal(a.ID, b.ID)
	assert.NotEqual(a.ID, c.ID)
	assert.Len(a.ID, 64)
	assert.Equal("zoning_handbook.pdf", a.Metadata[vector.MetadataSource])
	assert.Equal("12", a.Metadata[vector.MetadataPage])
}

func embedLetters(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}

	v[0] += 0.01
	return v, nil
}

type pipelineTestSuite struct {
	suite.Suite
	dir        string
	collection vector.Collection
}

func (suite *pipelineTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	db, err := chromem.NewChromemVectorDB(vector.Config{}, embedLetters)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	collection, err := db.Collection("zoning")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.collection = collection

	files := map[string]string{
		"glossary.md":   "Floor area ratio is the principal bulk regulation.\n\nA zoning lot is a tract of land.",
		"districts.txt": "R6 districts are medium-density residence districts.",
		"notes.csv":     "ignored,file",
	}

	for name, content := range files {
		err := os.WriteFile(filepath.Join(suite.dir, name), []byte(content), 0o644)
		suite.Require().NoError(err)
	}
}

func (suite *pipelineTestSuite) TestRun() {
	ctx := context.Background()

	cfg := zoningqa.IngestConfig{ChunkSize: 60, ChunkOverlap: 10}
	pipeline := NewPipeline(suite.dir, cfg, suite.collection)

	stats, err := pipeline.Run(ctx)
	suite.Require().NoError(err)

	suite.Equal(2, stats.Files)
	suite.Equal(2, stats.Pages)
	suite.Equal(stats.Chunks, stats.Added)
	suite.Zero(stats.Skipped)
	suite.Equal(stats.Added, suite.collection.Count())

	again, err := pipeline.Run(ctx)
	suite.Require().NoError(err)

	suite.Zero(again.Added)
	suite.Equal(stats.Chunks, again.Skipped)
	suite.Equal(stats.Added, suite.collection.Count())
}

func (suite *pipelineTestSuite) TestRetrieveAfterRun() {
	ctx := context.Background()

	cfg := zoningqa.IngestConfig{ChunkSize: 1200, ChunkOverlap: 150}
	_, err := NewPipeline(suite.dir, cfg, suite.collection).Run(ctx)
	suite.Require().NoError(err)

	index := zoningqa.NewIndex(suite.collection)

	chunks, err := index.Retrieve(ctx, "R6 residence districts", 4)
	suite.Require().NoError(err)

	// only two chunks exist, k is clamped
	if suite.Len(chunks, 2) {
		suite.Equal(1, chunks[0].Rank)
		suite.Equal("1", chunks[0].Page)
		suite.NotEqual(zoningqa.UnknownSource, chunks[0].Source)
	}
}

func (suite *pipelineTestSuite) TestRunWithoutCorpus() {
	_, err := NewPipeline("", zoningqa.IngestConfig{ChunkSize: 10}, suite.collection).Run(context.Background())
	suite.ErrorIs(err, ErrCorpusNotSet)
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(pipelineTestSuite))
}
