//go:build sqlite_fts5

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/testutil"
)

func TestFTS5_EnglishStemming(t *testing.T) {
	d := testutil.TestDB(t)
	ix := NewIndexer(d, Limits{})
	reindex(t, d, ix, models.KindNote, 1, "Training", "She was running every morning")

	hits, err := ix.Query(context.Background(), "run", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Contains(t, hits[0].Snippet, "<b>")
}

func TestFTS5_QuerySyntaxIsQuoted(t *testing.T) {
	d := testutil.TestDB(t)
	ix := NewIndexer(d, Limits{})
	reindex(t, d, ix, models.KindNote, 1, "Ops", "deploy NEAR midnight")

	_, err := ix.Query(context.Background(), `deploy AND "NEAR(`, 10)
	require.NoError(t, err)
}

func TestSanitizeFTS(t *testing.T) {
	assert.Equal(t, `"foo" "bar"`, sanitizeFTS([]string{"foo", `"bar"`}))
	assert.Equal(t, "", sanitizeFTS([]string{`""`}))
}
