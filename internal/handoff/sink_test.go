package handoff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fyerfyer/doc-ingest/internal/fetch"
	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks(n int) []*models.Chunk {
	chunks := make([]*models.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, &models.Chunk{
			ID:             string(rune('a' + i)),
			DocumentID:     "doc-1",
			Category:       models.CategoryArticles,
			Content:        "chunk",
			Position:       i,
			Link:           "https://example.com/a",
			AuthorID:       "u-1",
			AuthorFullName: "Ada Lovelace",
			Metadata:       map[string]interface{}{"min_length": 1000},
		})
	}
	return chunks
}

func TestHTTPSink_Batches(t *testing.T) {
	var mu sync.Mutex
	var batches []Batch

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
		mu.Lock()
		batches = append(batches, b)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewHTTPSink(fetch.NewClient(nil), server.URL, 2, nil)
	require.NoError(t, sink.Deliver(context.Background(), testChunks(5)))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Chunks, 2)
	assert.Len(t, batches[2].Chunks, 1)
	assert.Equal(t, 4, batches[2].Chunks[0].Position)
	assert.Equal(t, "doc-1", batches[0].Chunks[0].DocumentID)
	assert.Equal(t, "articles", batches[0].Chunks[0].Category)
	assert.EqualValues(t, 1000, batches[0].Chunks[0].Metadata["min_length"])
}

func TestHTTPSink_AuthorInPayload(t *testing.T) {
	var body map[string][]map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewHTTPSink(fetch.NewClient(nil), server.URL, 0, nil)
	require.NoError(t, sink.Deliver(context.Background(), testChunks(1)))

	require.Len(t, body["chunks"], 1)
	assert.Equal(t, "u-1", body["chunks"][0]["author_id"])
	assert.Equal(t, "Ada Lovelace", body["chunks"][0]["author_full_name"])
}

func TestHTTPSink_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := fetch.NewClient(fetch.DefaultConfig().WithRetry(0, time.Millisecond))
	err := NewHTTPSink(client, server.URL, 10, nil).Deliver(context.Background(), testChunks(1))

	var statusErr *fetch.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestHTTPSink_Empty(t *testing.T) {
	sink := NewHTTPSink(nil, "http://unused", 10, nil)
	assert.NoError(t, sink.Deliver(context.Background(), nil))
}

func TestNew(t *testing.T) {
	s, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = New(Config{Type: "http", URL: "http://x"}, fetch.NewClient(nil), nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSink{}, s)

	_, err = New(Config{Type: "http"}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Type: "kafka"}, nil, nil)
	assert.Error(t, err)
}
