package preprocessing

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestDocument(category models.Category, fields models.FieldMap) *models.Document {
	return &models.Document{
		ID:             "9b2e6f1c-3f0a-4c55-9a0e-1d2c3b4a5f60",
		Category:       category,
		Content:        datatypes.NewJSONType(fields),
		Link:           "https://example.com/report",
		Platform:       "example.com",
		AuthorID:       "u-1",
		AuthorFullName: "Ada Lovelace",
	}
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "5d41402a-bc4b-4a76-b971-9d911017c592", ChunkID("hello").String())
	assert.Equal(t, "a1b4ce14-9ab0-4b8d-ab8b-20b3f4cc8bed", ChunkID("中文分块").String())

	id := ChunkID("some chunk text")
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
	assert.Equal(t, id, ChunkID("some chunk text"))
	assert.NotEqual(t, id, ChunkID("some chunk text."))
}

func TestCleaningHandler_PDF(t *testing.T) {
	handler, err := NewCleaningHandler(models.CategoryPDF)
	require.NoError(t, err)

	doc := newTestDocument(models.CategoryPDF, models.NewFieldMap(
		"Title", "Annual  Report",
		"Journal", "",
		"Content", "  Body\ttext\x00 with\n\nbreaks ",
	))

	cleaned, err := handler.Clean(doc)
	require.NoError(t, err)

	assert.Equal(t, "Annual Report #### Body text with breaks", cleaned.Content)
	assert.Equal(t, doc.ID, cleaned.ID)
	assert.Equal(t, models.CategoryPDF, cleaned.Category)
	assert.Equal(t, doc.Link, cleaned.Link)
	assert.Equal(t, doc.Platform, cleaned.Platform)
	assert.Equal(t, doc.AuthorID, cleaned.AuthorID)
	assert.Equal(t, doc.AuthorFullName, cleaned.AuthorFullName)

	again, err := handler.Clean(doc)
	require.NoError(t, err)
	assert.Equal(t, cleaned.Content, again.Content)
}

func TestCleaningHandler_Articles(t *testing.T) {
	handler, err := NewCleaningHandler(models.CategoryArticles)
	require.NoError(t, err)

	doc := newTestDocument(models.CategoryArticles, models.NewFieldMap(
		"Title", "My Post",
		"Subtitle", "",
		"Content", "# Intro\n\nSome **bold** words.",
		"language", "en",
	))

	cleaned, err := handler.Clean(doc)
	require.NoError(t, err)
	assert.Equal(t, "My Post #### Intro Some bold words. #### en", cleaned.Content)
	assert.Equal(t, 2, strings.Count(cleaned.Content, FieldDelimiter))
}

func TestCleaningHandler_Errors(t *testing.T) {
	_, err := NewCleaningHandler(models.Category("video"))
	assert.ErrorIs(t, err, models.ErrUnknownCategory)

	handler, err := NewCleaningHandler(models.CategoryPDF)
	require.NoError(t, err)

	_, err = handler.Clean(newTestDocument(models.CategoryArticles, models.NewFieldMap("Title", "x")))
	assert.ErrorIs(t, err, models.ErrCategoryMismatch)
}

func TestChunkingHandler_PDF(t *testing.T) {
	handler, err := NewChunkingHandler(models.CategoryPDF, ChunkingConfig{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"chunk_size": 100, "chunk_overlap": 25}, handler.Metadata())

	cleaned := &models.CleanedDocument{
		ID:       "doc-1",
		Category: models.CategoryPDF,
		Content:  strings.Repeat("0123456789", 25),
		Link:     "https://example.com/a.pdf",
		Platform: "example.com",
	}

	chunks, err := handler.Chunk(cleaned)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, ChunkID(c.Content).String(), c.ID)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, i, c.Position)
		assert.Equal(t, models.CategoryPDF, c.Category)
		assert.Equal(t, cleaned.Link, c.Link)
		assert.Equal(t, 100, c.Metadata["chunk_size"])
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 100)
	}

	again, err := handler.Chunk(cleaned)
	require.NoError(t, err)
	require.Len(t, again, len(chunks))
	for i := range chunks {
		assert.Equal(t, chunks[i].ID, again[i].ID)
	}
}

func TestChunkingHandler_Articles(t *testing.T) {
	handler, err := NewChunkingHandler(models.CategoryArticles, ChunkingConfig{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"min_length": 1000, "max_length": 2000}, handler.Metadata())

	var sb strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&sb, "This is sentence %d of a long article. ", i)
	}
	cleaned := &models.CleanedDocument{ID: "doc-2", Category: models.CategoryArticles, Content: sb.String()}

	chunks, err := handler.Chunk(cleaned)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		n := utf8.RuneCountInString(c.Content)
		assert.LessOrEqual(t, n, 2000)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, n, 1000)
		}
	}
}

func TestChunkingHandler_Config(t *testing.T) {
	t.Run("general purpose default", func(t *testing.T) {
		handler, err := DefaultChunkingHandler(models.CategoryArticles)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"chunk_size": 500, "chunk_overlap": 50}, handler.Metadata())
	})

	t.Run("fixed strategy for articles without sizes", func(t *testing.T) {
		handler, err := NewChunkingHandler(models.CategoryArticles, ChunkingConfig{Strategy: StrategyFixed})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"chunk_size": 500, "chunk_overlap": 50}, handler.Metadata())
	})

	t.Run("custom semantic bounds", func(t *testing.T) {
		handler, err := NewChunkingHandler(models.CategoryPDF, ChunkingConfig{Strategy: StrategySemantic, MinLength: 50, MaxLength: 80})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"min_length": 50, "max_length": 80}, handler.Metadata())
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := NewChunkingHandler(models.CategoryPDF, ChunkingConfig{ChunkSize: 10, ChunkOverlap: 10})
		assert.Error(t, err)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := NewChunkingHandler(models.Category("video"), ChunkingConfig{})
		assert.ErrorIs(t, err, models.ErrUnknownCategory)
	})

	t.Run("metadata is a copy", func(t *testing.T) {
		handler, err := NewChunkingHandler(models.CategoryPDF, ChunkingConfig{})
		require.NoError(t, err)
		md := handler.Metadata()
		md["chunk_size"] = 1
		assert.Equal(t, 100, handler.Metadata()["chunk_size"])
	})

	t.Run("category mismatch", func(t *testing.T) {
		handler, err := NewChunkingHandler(models.CategoryPDF, ChunkingConfig{})
		require.NoError(t, err)
		_, err = handler.Chunk(&models.CleanedDocument{Category: models.CategoryArticles, Content: "x"})
		assert.ErrorIs(t, err, models.ErrCategoryMismatch)
	})
}

func TestHandlers(t *testing.T) {
	handlers, err := NewHandlers(map[models.Category]ChunkingConfig{
		models.CategoryPDF: {ChunkSize: 200, ChunkOverlap: 20},
	})
	require.NoError(t, err)

	chunker, err := handlers.Chunker(models.CategoryPDF)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"chunk_size": 200, "chunk_overlap": 20}, chunker.Metadata())

	chunker, err = handlers.Chunker(models.CategoryArticles)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryArticles, chunker.Category())

	cleaner, err := handlers.Cleaner(models.CategoryArticles)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryArticles, cleaner.Category())

	_, err = handlers.Cleaner(models.Category("video"))
	assert.ErrorIs(t, err, models.ErrUnknownCategory)
}
