package subscription

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dywsy21/Cecilia/internal/models"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	r, err := NewRegistry(path)
	require.NoError(t, err)
	return r, path
}

func TestAddIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	sub := models.Subscription{Category: "cs", Topic: "AI"}

	added, err := r.Add("123", sub)
	require.NoError(t, err)
	assert.True(t, added)

	again, err := r.Add("123", sub)
	require.NoError(t, err)
	assert.False(t, again)

	// Case differences are the same subscription.
	caseVariant, err := r.Add("123", models.Subscription{Category: "CS", Topic: "ai"})
	require.NoError(t, err)
	assert.False(t, caseVariant)

	assert.Len(t, r.List("123"), 1)
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	r, _ := newTestRegistry(t)

	removed, err := r.Remove("123", models.Subscription{Category: "cs", Topic: "AI"})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveDropsEmptySubscriber(t *testing.T) {
	r, _ := newTestRegistry(t)
	sub := models.Subscription{Category: "cs", Topic: "AI"}

	_, err := r.Add("123", sub)
	require.NoError(t, err)

	removed, err := r.Remove("123", sub)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, r.List("123"))
	assert.Empty(t, r.SubscribersFor("cs.AI"))
}

func TestPersistenceAcrossReload(t *testing.T) {
	r, path := newTestRegistry(t)

	_, err := r.Add("123", models.Subscription{Category: "cs", Topic: "AI"})
	require.NoError(t, err)
	_, err = r.Add("reader@example.com", models.Subscription{Category: "cs", Topic: "AI"})
	require.NoError(t, err)

	reloaded, err := NewRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"123", "reader@example.com"}, reloaded.SubscribersFor("cs.AI"))
}

func TestTopicsDistinctAndSorted(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Add("a", models.Subscription{Category: "cs", Topic: "LG"})
	require.NoError(t, err)
	_, err = r.Add("b", models.Subscription{Category: "cs", Topic: "AI"})
	require.NoError(t, err)
	_, err = r.Add("c", models.Subscription{Category: "cs", Topic: "AI"})
	require.NoError(t, err)

	topics := r.Topics()
	require.Len(t, topics, 2)
	assert.Equal(t, "cs.AI", topics[0].String())
	assert.Equal(t, "cs.LG", topics[1].String())
}

func TestSubscribersForSorted(t *testing.T) {
	r, _ := newTestRegistry(t)
	sub := models.Subscription{Category: "cs", Topic: "AI"}

	for _, id := range []string{"zeta", "alpha", "mid@example.com"} {
		_, err := r.Add(id, sub)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"alpha", "mid@example.com", "zeta"}, r.SubscribersFor("cs.AI"))
}
