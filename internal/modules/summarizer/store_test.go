package summarizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dywsy21/Cecilia/internal/models"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	entry := models.ProcessedEntry{
		PaperID:     "2401.00001v1",
		Title:       "A Paper",
		Authors:     []string{"Ada"},
		PDFURL:      "http://arxiv.org/pdf/2401.00001v1",
		Summary:     "## 摘要",
		Categories:  []string{"cs.AI"},
		ProcessedAt: time.Now(),
	}

	assert.False(t, store.IsProcessed("cs.AI", entry.PaperID))
	require.NoError(t, store.MarkProcessed("cs.AI", entry))
	assert.True(t, store.IsProcessed("cs.AI", entry.PaperID))

	got, ok := store.Load("cs.AI", entry.PaperID)
	require.True(t, ok)
	assert.Equal(t, entry.Title, got.Title)
	assert.Equal(t, entry.Summary, got.Summary)
}

func TestStoreScopedPerTopic(t *testing.T) {
	store := NewStore(t.TempDir())

	entry := models.ProcessedEntry{PaperID: "2401.00002v1", Title: "Shared"}
	require.NoError(t, store.MarkProcessed("cs.AI", entry))

	// The same paper under a different topic is unseen.
	assert.True(t, store.IsProcessed("cs.AI", entry.PaperID))
	assert.False(t, store.IsProcessed("cs.LG", entry.PaperID))
	_, ok := store.Load("cs.LG", entry.PaperID)
	assert.False(t, ok)
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	_, ok := store.Load("cs.AI", "nope")
	assert.False(t, ok)
}
