package store

import (
	"context"
	"testing"
	"time"

	"cinelist/internal/config"
	"cinelist/internal/domain/film"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListKey(t *testing.T) {
	key := ListKey("https://films.example.com/best/")
	assert.NotEmpty(t, key)
	assert.LessOrEqual(t, len(key), 32)
	for _, r := range key {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		assert.True(t, ok, "non-alphanumeric rune %q in key", r)
	}

	assert.Equal(t, key, ListKey("https://films.example.com/best/"), "key must be deterministic")
	assert.Equal(t, key, ListKey("  https://films.example.com/best/  "), "surrounding whitespace must not change the key")
	assert.NotEqual(t, key, ListKey("https://films.example.com/worst/"))
	assert.Empty(t, ListKey(""))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, st)

	st, err = Open(ctx, config.Config{Store: config.StoreConfig{Driver: "memory"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, st)

	_, err = Open(ctx, config.Config{Store: config.StoreConfig{Driver: "cassandra"}}, nil)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// Absent values.
	snap, err := m.GetList(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, snap)

	marks, err := m.GetMarks(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, marks)

	entry, err := m.GetEnrichment(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Snapshot roundtrip.
	in := &film.ListSnapshot{
		Key:        "k1",
		SourceURL:  "https://films.example.com/best/",
		Films:      []film.Record{{ID: "10001", Title: "Blue Moon"}},
		CapturedAt: time.Now(),
	}
	require.NoError(t, m.SaveList(ctx, "k1", in))
	out, err := m.GetList(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Key, out.Key)
	require.Len(t, out.Films, 1)

	// The stored snapshot must not alias caller memory.
	in.Films[0].Title = "mutated"
	out, err = m.GetList(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Blue Moon", out.Films[0].Title)

	// Marks roundtrip and overwrite.
	require.NoError(t, m.SaveMarks(ctx, "k1", []string{"10001", "10002"}))
	marks, err = m.GetMarks(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []string{"10001", "10002"}, marks)

	require.NoError(t, m.SaveMarks(ctx, "k1", []string{"10002"}))
	marks, err = m.GetMarks(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []string{"10002"}, marks)

	// Enrichment roundtrip.
	syn := "cached synopsis"
	require.NoError(t, m.SaveEnrichment(ctx, "10001", &film.EnrichmentEntry{
		FilmID:   "10001",
		Data:     film.Enrichment{Synopsis: &syn},
		CachedAt: time.Now(),
	}))
	entry, err = m.GetEnrichment(ctx, "10001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotNil(t, entry.Data.Synopsis)
	assert.Equal(t, "cached synopsis", *entry.Data.Synopsis)

	assert.NoError(t, m.Close())
}
