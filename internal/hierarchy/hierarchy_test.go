package hierarchy

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/testutil"
)

// tagEnv uses the tag tables, which carry no other dependents.
func tagEnv(t *testing.T) (*db.DB, *Manager, *[]int64) {
	t.Helper()
	d := testutil.TestDB(t)
	var deleted []int64
	m := New(Tags, func(ctx context.Context, tx *sql.Tx, id int64) error {
		deleted = append(deleted, id)
		_, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		return err
	})
	return d, m, &deleted
}

func newTag(t *testing.T, d *db.DB) int64 {
	t.Helper()
	res, err := d.Conn().Exec(`INSERT INTO tags (name, created_at) VALUES ('t', ?)`, db.FormatTime(time.Now()))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func attach(ctx context.Context, d *db.DB, m *Manager, parent, child int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := m.Attach(ctx, tx, parent, child, "")
		return err
	})
}

func TestAttach_Basic(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	a, b, c := newTag(t, d), newTag(t, d), newTag(t, d)

	require.NoError(t, attach(ctx, d, m, a, b))
	require.NoError(t, attach(ctx, d, m, b, c))

	kids, err := m.ChildrenOf(ctx, d.Conn(), a)
	require.NoError(t, err)
	assert.Equal(t, []int64{b}, kids)

	anc, err := m.AncestorsOf(ctx, d.Conn(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, anc, "nearest ancestor first")

	desc, err := m.DescendantsOf(ctx, d.Conn(), a)
	require.NoError(t, err)
	assert.Equal(t, []int64{c, b}, desc, "deepest descendant first")

	p, ok, err := m.Parent(ctx, d.Conn(), c)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, b, p)
}

func TestAttach_SelfIsConflict(t *testing.T) {
	d, m, _ := tagEnv(t)
	a := newTag(t, d)
	err := attach(context.Background(), d, m, a, a)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAttach_SecondParentIsConflict(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	a, b, c := newTag(t, d), newTag(t, d), newTag(t, d)
	require.NoError(t, attach(ctx, d, m, a, c))

	err := attach(ctx, d, m, b, c)
	assert.ErrorIs(t, err, apperr.ErrHasParent)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	p, _, err := m.Parent(ctx, d.Conn(), c)
	require.NoError(t, err)
	assert.Equal(t, a, p)
}

func TestAttach_CycleRejected(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	a, b, c := newTag(t, d), newTag(t, d), newTag(t, d)
	require.NoError(t, attach(ctx, d, m, a, b))
	require.NoError(t, attach(ctx, d, m, b, c))

	err := attach(ctx, d, m, c, a)
	assert.ErrorIs(t, err, apperr.ErrCycle)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	edges, err := m.Edges(ctx, d.Conn())
	require.NoError(t, err)
	assert.Len(t, edges, 2, "tree unchanged after rejected attach")
}

func TestAttach_MissingEntity(t *testing.T) {
	d, m, _ := tagEnv(t)
	a := newTag(t, d)
	err := attach(context.Background(), d, m, a, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	err = attach(context.Background(), d, m, 999, a)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDetach(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	a, b := newTag(t, d), newTag(t, d)
	require.NoError(t, attach(ctx, d, m, a, b))

	require.NoError(t, d.WithTx(ctx, func(tx *sql.Tx) error { return m.Detach(ctx, tx, b) }))
	_, ok, err := m.Parent(ctx, d.Conn(), b)
	require.NoError(t, err)
	assert.False(t, ok)

	err = d.WithTx(ctx, func(tx *sql.Tx) error { return m.Detach(ctx, tx, b) })
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Reattaching elsewhere works once detached.
	require.NoError(t, attach(ctx, d, m, b, a))
}

func TestDeleteSubtree_BottomUp(t *testing.T) {
	d, m, deleted := tagEnv(t)
	ctx := context.Background()
	root, mid, leaf, other := newTag(t, d), newTag(t, d), newTag(t, d), newTag(t, d)
	require.NoError(t, attach(ctx, d, m, root, mid))
	require.NoError(t, attach(ctx, d, m, mid, leaf))

	var removed []int64
	require.NoError(t, d.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = m.DeleteSubtree(ctx, tx, root)
		return err
	}))
	assert.Equal(t, []int64{leaf, mid, root}, removed)
	assert.Equal(t, removed, *deleted)

	var n int
	require.NoError(t, d.Conn().QueryRow(`SELECT count(*) FROM tags`).Scan(&n))
	assert.Equal(t, 1, n)
	ok, err := db.Exists(ctx, d.Conn(), "tags", other)
	require.NoError(t, err)
	assert.True(t, ok)

	edges, err := m.Edges(ctx, d.Conn())
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestDeleteSubtree_RollbackKeepsEverything(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	root, leaf := newTag(t, d), newTag(t, d)
	require.NoError(t, attach(ctx, d, m, root, leaf))

	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := m.DeleteSubtree(ctx, tx, root); err != nil {
			return err
		}
		return apperr.Conflict("abort")
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	var n int
	require.NoError(t, d.Conn().QueryRow(`SELECT count(*) FROM tags`).Scan(&n))
	assert.Equal(t, 2, n)
	edges, err := m.Edges(ctx, d.Conn())
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestDeleteSubtree_NotFound(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := m.DeleteSubtree(ctx, tx, 77)
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// deepChain links n new tags root to leaf in one transaction, writing the
// rows Attach would write.
func deepChain(t *testing.T, d *db.DB, n int) []int64 {
	t.Helper()
	ids := make([]int64, n)
	at := db.FormatTime(time.Now())
	require.NoError(t, d.WithTx(context.Background(), func(tx *sql.Tx) error {
		for i := range ids {
			res, err := tx.Exec(`INSERT INTO tags (name, created_at) VALUES ('t', ?)`, at)
			if err != nil {
				return err
			}
			if ids[i], err = res.LastInsertId(); err != nil {
				return err
			}
			if i == 0 {
				continue
			}
			if _, err := tx.Exec(`INSERT INTO tag_hierarchy (parent_id, child_id, created_at) VALUES (?, ?, ?)`,
				ids[i-1], ids[i], at); err != nil {
				return err
			}
		}
		return nil
	}))
	return ids
}

func TestAttach_DeepChainCycleRejected(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	ids := deepChain(t, d, 4200)
	root, leaf := ids[0], ids[len(ids)-1]

	err := attach(ctx, d, m, leaf, root)
	assert.ErrorIs(t, err, apperr.ErrCycle)

	_, has, err := m.Parent(ctx, d.Conn(), root)
	require.NoError(t, err)
	assert.False(t, has, "root stays a root")

	anc, err := m.AncestorsOf(ctx, d.Conn(), leaf)
	require.NoError(t, err)
	require.Len(t, anc, len(ids)-1)
	assert.Equal(t, ids[len(ids)-2], anc[0])
	assert.Equal(t, root, anc[len(anc)-1])

	// Extending the chain below the leaf still goes through Attach.
	extra := newTag(t, d)
	require.NoError(t, attach(ctx, d, m, leaf, extra))
	assert.ErrorIs(t, attach(ctx, d, m, extra, root), apperr.ErrCycle)
}

func TestDeleteSubtree_DeepChain(t *testing.T) {
	d, m, deleted := tagEnv(t)
	ctx := context.Background()
	ids := deepChain(t, d, 4200)

	desc, err := m.DescendantsOf(ctx, d.Conn(), ids[0])
	require.NoError(t, err)
	require.Len(t, desc, len(ids)-1)
	assert.Equal(t, ids[len(ids)-1], desc[0], "deepest first")

	require.NoError(t, d.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := m.DeleteSubtree(ctx, tx, ids[0])
		return err
	}))
	assert.Len(t, *deleted, len(ids))

	var n int
	require.NoError(t, d.Conn().QueryRow(`SELECT count(*) FROM tags`).Scan(&n))
	assert.Zero(t, n, "no descendant survives as an orphan root")
	edges, err := m.Edges(ctx, d.Conn())
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestDescendantsOf_SameDepthDescending(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	root, a, b, c := newTag(t, d), newTag(t, d), newTag(t, d), newTag(t, d)
	require.NoError(t, attach(ctx, d, m, root, a))
	require.NoError(t, attach(ctx, d, m, root, b))
	require.NoError(t, attach(ctx, d, m, a, c))

	desc, err := m.DescendantsOf(ctx, d.Conn(), root)
	require.NoError(t, err)
	assert.Equal(t, []int64{c, b, a}, desc)

	ok, err := m.IsAncestor(ctx, d.Conn(), root, c)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.IsAncestor(ctx, d.Conn(), b, c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttach_ConcurrentSingleParent(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()
	child := newTag(t, d)
	parents := make([]int64, 8)
	for i := range parents {
		parents[i] = newTag(t, d)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(parents))
	for i, p := range parents {
		wg.Add(1)
		go func(i int, p int64) {
			defer wg.Done()
			errs[i] = attach(ctx, d, m, p, child)
		}(i, p)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	assert.Equal(t, 1, wins)

	var n int
	require.NoError(t, d.Conn().QueryRow(`SELECT count(*) FROM tag_hierarchy WHERE child_id = ?`, child).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestAttach_ConcurrentCycle(t *testing.T) {
	d, m, _ := tagEnv(t)
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		a, b := newTag(t, d), newTag(t, d)
		var wg sync.WaitGroup
		var errAB, errBA error
		wg.Add(2)
		go func() { defer wg.Done(); errAB = attach(ctx, d, m, a, b) }()
		go func() { defer wg.Done(); errBA = attach(ctx, d, m, b, a) }()
		wg.Wait()

		assert.True(t, (errAB == nil) != (errBA == nil), "exactly one of the opposing attaches must win")
		anc, err := m.AncestorsOf(ctx, d.Conn(), a)
		require.NoError(t, err)
		assert.NotContains(t, anc, a)
	}
}

func TestBuildTree(t *testing.T) {
	type item struct{ id int64 }
	items := []item{{3}, {1}, {2}, {4}}
	edges := []models.Edge{
		{ParentID: 1, ChildID: 3, Kind: "block"},
		{ParentID: 1, ChildID: 2},
		{ParentID: 99, ChildID: 4},
	}
	roots := BuildTree(items, func(i item) int64 { return i.id }, edges)
	require.Len(t, roots, 2)
	assert.Equal(t, int64(1), roots[0].Item.id)
	assert.Equal(t, int64(4), roots[1].Item.id, "dangling parent makes a root")
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, int64(2), roots[0].Children[0].Item.id)
	assert.Equal(t, "block", roots[0].Children[1].Kind)
}
