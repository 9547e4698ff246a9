package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/streamingfast/dstore"
	"github.com/streamingfast/mapmemo/memoizer"
	"github.com/streamingfast/mapmemo/source"
	"github.com/streamingfast/shutter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []source.Document

func (s staticSource) Documents(ctx context.Context, handler source.Handler) error {
	for _, document := range s {
		if err := handler(document); err != nil {
			return err
		}
	}

	return nil
}

func newTestLoader(t *testing.T, documents staticSource) *Loader {
	t.Helper()

	memo, err := memoizer.New[string, string](memoizer.StringKeys{})
	require.NoError(t, err)

	loader := &Loader{
		Shutter:       shutter.New(),
		source:        documents,
		idField:       "id",
		parallelism:   2,
		keys:          memoizer.StringKeys{},
		memoizer:      memo,
		stats:         NewStats(memo.Stats, zlog),
		statsInterval: time.Hour,
	}
	t.Cleanup(loader.stats.Close)

	return loader
}

func TestLoader_Run(t *testing.T) {
	loader := newTestLoader(t, staticSource{
		{ID: "pos:1", Value: map[string]any{"id": "a", "shared": map[string]any{"x": int64(1)}}},
		{ID: "pos:2", Value: map[string]any{"id": "b", "shared": map[string]any{"x": int64(1)}}},
		{ID: "pos:3", Value: map[string]any{"id": "a", "shared": map[string]any{"x": int64(1)}}},
		{ID: "pos:4", Value: map[string]any{"other": true}},
	})
	loader.verify = true

	require.NoError(t, loader.run(context.Background()))

	stats := loader.snapshot.Stats()
	assert.Equal(t, 3, stats.Documents)
	assert.True(t, stats.Completed)
	assert.Equal(t, uint64(4), loader.stats.documentsRead.Load())

	a, err := loader.snapshot.Get("a")
	require.NoError(t, err)
	b, err := loader.snapshot.Get("b")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": int64(1)}, a["shared"])
	assert.Equal(t, b["shared"], a["shared"])

	_, err = loader.snapshot.Get("pos:4")
	require.NoError(t, err)
}

func TestLoader_ConflictingDocuments(t *testing.T) {
	loader := newTestLoader(t, staticSource{
		{ID: "pos:1", Value: map[string]any{"id": "a", "v": int64(1)}},
		{ID: "pos:2", Value: map[string]any{"id": "a", "v": int64(2)}},
	})

	err := loader.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate identifier")
}

func TestLoader_Dump(t *testing.T) {
	dir := t.TempDir()

	store, err := dstore.NewStore(dir, "jsonl", "", true)
	require.NoError(t, err)

	loader := newTestLoader(t, staticSource{
		{ID: "pos:1", Value: map[string]any{"id": "b", "v": int64(2)}},
		{ID: "pos:2", Value: map[string]any{"id": "a", "v": int64(1)}},
	})
	loader.dumpStore = store

	require.NoError(t, loader.run(context.Background()))

	content, err := os.ReadFile(filepath.Join(dir, "documents.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)

	var first dumpedDocument
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "a", first.ID)
	assert.NotEmpty(t, first.Hash)
	assert.Equal(t, map[string]any{"id": "a", "v": float64(1)}, first.Document)
}

func TestJSONLEncode(t *testing.T) {
	out, err := jsonlEncode(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(out))
}
