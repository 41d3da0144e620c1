package registry

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/testutil"
)

func testEnv(t *testing.T) (*db.DB, *Registry) {
	t.Helper()
	d := testutil.TestDB(t)
	return d, New(d)
}

func newNote(t *testing.T, d *db.DB) int64 {
	t.Helper()
	ts := db.FormatTime(time.Now())
	res, err := d.Conn().Exec(`INSERT INTO notes (content, created_at, modified_at) VALUES ('', ?, ?)`, ts, ts)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestAttributes(t *testing.T) {
	d, r := testEnv(t)
	ctx := context.Background()
	note := newNote(t, d)

	author, err := r.CreateAttribute(ctx, "author", "who wrote it")
	require.NoError(t, err)
	_, err = r.CreateAttribute(ctx, "author", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = r.CreateAttribute(ctx, " ", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = r.SetValue(ctx, note, author.ID, "ada")
	require.NoError(t, err)
	second, err := r.SetValue(ctx, note, author.ID, "grace")
	require.NoError(t, err, "several values per attribute are allowed")
	assert.Equal(t, "author", second.Name)

	values, err := r.Values(ctx, note)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "ada", values[0].Value)
	assert.Equal(t, "grace", values[1].Value)

	require.NoError(t, r.DeleteValue(ctx, values[0].ID))
	assert.ErrorIs(t, r.DeleteValue(ctx, values[0].ID), apperr.ErrNotFound)

	_, err = r.SetValue(ctx, note, 999, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = r.SetValue(ctx, 999, author.ID, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := r.ListAttributes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTypes(t *testing.T) {
	d, r := testEnv(t)
	ctx := context.Background()
	n1, n2 := newNote(t, d), newNote(t, d)

	page, err := r.CreateType(ctx, "page", "a top-level page")
	require.NoError(t, err)
	_, err = r.CreateType(ctx, "page", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	again, err := r.EnsureType(ctx, "page")
	require.NoError(t, err)
	assert.Equal(t, page.ID, again.ID)
	block, err := r.EnsureType(ctx, "block")
	require.NoError(t, err)
	assert.NotEqual(t, page.ID, block.ID)

	require.NoError(t, r.AssignType(ctx, n1, page.ID))
	require.NoError(t, r.AssignType(ctx, n1, page.ID))
	require.NoError(t, r.AssignType(ctx, n1, block.ID))
	require.NoError(t, r.AssignType(ctx, n2, page.ID))
	assert.ErrorIs(t, r.AssignType(ctx, n1, 999), apperr.ErrNotFound)

	types, err := r.TypesOf(ctx, n1)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "block", types[0].Name)

	notes, err := r.NotesOfType(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{n1, n2}, notes)

	require.NoError(t, r.UnassignType(ctx, n1, page.ID))
	assert.ErrorIs(t, r.UnassignType(ctx, n1, page.ID), apperr.ErrNotFound)

	_, err = r.NotesOfType(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := r.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeleteForNote(t *testing.T) {
	d, r := testEnv(t)
	ctx := context.Background()
	note, other := newNote(t, d), newNote(t, d)
	attr, err := r.CreateAttribute(ctx, "mood", "")
	require.NoError(t, err)
	typ, err := r.EnsureType(ctx, "journal")
	require.NoError(t, err)
	for _, id := range []int64{note, other} {
		_, err = r.SetValue(ctx, id, attr.ID, "ok")
		require.NoError(t, err)
		require.NoError(t, r.AssignType(ctx, id, typ.ID))
	}

	require.NoError(t, d.WithTx(ctx, func(tx *sql.Tx) error {
		return r.DeleteForNote(ctx, tx, note)
	}))

	values, err := r.Values(ctx, note)
	require.NoError(t, err)
	assert.Empty(t, values)
	values, err = r.Values(ctx, other)
	require.NoError(t, err)
	assert.Len(t, values, 1)

	notes, err := r.NotesOfType(ctx, typ.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{other}, notes)
}
