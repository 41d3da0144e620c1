package notes

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/history"
	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/search"
	"github.com/starford/sprig/internal/testutil"
)

type env struct {
	svc   *Service
	hist  *history.Tracker
	index *search.Indexer
}

func testEnv(t *testing.T) env {
	t.Helper()
	d := testutil.TestDB(t)
	hist := history.NewTracker(d, history.Policy{})
	idx := search.NewIndexer(d, search.Limits{})
	return env{svc: NewService(d, hist, idx), hist: hist, index: idx}
}

func create(t *testing.T, s *Service, content string) *models.Note {
	t.Helper()
	n, err := s.Create(context.Background(), models.NoteInput{Content: content})
	require.NoError(t, err)
	return n
}

func createChild(t *testing.T, s *Service, parent int64, content string) *models.Note {
	t.Helper()
	n, err := s.Create(context.Background(), models.NoteInput{Content: content, ParentID: &parent})
	require.NoError(t, err)
	return n
}

func TestCreateUpdate_TitleAndHistory(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()

	n := create(t, e.svc, "# Hello\nWorld")
	assert.Equal(t, "Hello", n.Title)

	updated, err := e.svc.Update(ctx, n.ID, "# Goodbye\nWorld")
	require.NoError(t, err)
	assert.Equal(t, "Goodbye", updated.Title)

	got, err := e.svc.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Goodbye", got.Title)
	assert.Equal(t, "# Goodbye\nWorld", got.Content)

	hist, err := e.hist.History(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "# Hello\nWorld", hist[0].PreviousContent)
}

func TestCreate_UntitledWithoutHeading(t *testing.T) {
	e := testEnv(t)
	n := create(t, e.svc, "just text")
	assert.Equal(t, "Untitled", n.Title)
}

func TestUpdate_SameContentRecordsNothing(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	n := create(t, e.svc, "# Same")

	_, err := e.svc.Update(ctx, n.ID, "# Same")
	require.NoError(t, err)
	hist, err := e.hist.History(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestUpdate_OneRecordPerChange(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	n := create(t, e.svc, "v1")
	for _, c := range []string{"v2", "v3", "v4"} {
		_, err := e.svc.Update(ctx, n.ID, c)
		require.NoError(t, err)
	}
	hist, err := e.hist.History(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "v3", hist[0].PreviousContent)
	assert.Equal(t, "v1", hist[2].PreviousContent)
}

func TestUpdate_NotFound(t *testing.T) {
	e := testEnv(t)
	_, err := e.svc.Update(context.Background(), 404, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateIfMatch(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	n := create(t, e.svc, "v1")

	hash, err := e.svc.Hash(ctx, n.ID)
	require.NoError(t, err)

	_, err = e.svc.UpdateIfMatch(ctx, n.ID, "v2", hash)
	require.NoError(t, err)

	_, err = e.svc.UpdateIfMatch(ctx, n.ID, "v3", hash)
	assert.ErrorIs(t, err, apperr.ErrConflict, "stale hash must be rejected")

	got, err := e.svc.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
}

func TestUpdateMany_AllOrNothing(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	a := create(t, e.svc, "# A")
	b := create(t, e.svc, "# B")

	_, err := e.svc.UpdateMany(ctx, []models.NoteEdit{
		{ID: a.ID, Content: "# A2"},
		{ID: 999, Content: "# nope"},
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := e.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title, "first edit rolled back")
	hist, err := e.hist.History(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, hist)

	out, err := e.svc.UpdateMany(ctx, []models.NoteEdit{
		{ID: a.ID, Content: "# A2"},
		{ID: b.ID, Content: "# B2"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A2", out[0].Title)
	assert.Equal(t, "B2", out[1].Title)
}

func TestSearch_TermOnlyInContent(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	n := create(t, e.svc, "# Shopping\nremember the artichokes")
	create(t, e.svc, "# Other\nnothing here")

	hits, err := e.index.Query(ctx, "artichokes", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, n.ID, hits[0].ID)

	_, err = e.svc.Update(ctx, n.ID, "# Shopping\nbuy leeks")
	require.NoError(t, err)
	hits, err = e.index.Query(ctx, "artichokes", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "index follows the write")
}

func TestList(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	root := create(t, e.svc, "# Root\nbody")
	child := createChild(t, e.svc, root.ID, "# Child\nbody")

	all, err := e.svc.List(ctx, models.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Empty(t, all[0].Content)
	assert.Equal(t, "Root", all[0].Title)

	full, err := e.svc.List(ctx, models.ListOptions{WithContent: true})
	require.NoError(t, err)
	assert.Equal(t, "# Root\nbody", full[0].Content)

	kids, err := e.svc.List(ctx, models.ListOptions{ParentID: &root.ID})
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, child.ID, kids[0].ID)
}

func TestDelete_CascadesSubtree(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	root := create(t, e.svc, "# Root")
	mid := createChild(t, e.svc, root.ID, "# Mid\nzebra")
	leaf := createChild(t, e.svc, mid.ID, "# Leaf")
	other := create(t, e.svc, "# Other links [[3]]")
	_, err := e.svc.Update(ctx, leaf.ID, "# Leaf v2")
	require.NoError(t, err)

	removed, err := e.svc.Delete(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{leaf.ID, mid.ID, root.ID}, removed)

	for _, id := range removed {
		_, err := e.svc.Get(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = e.hist.History(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		var n int
		require.NoError(t, e.svc.db.Conn().QueryRow(
			`SELECT count(*) FROM note_modifications WHERE note_id = ?`, id).Scan(&n))
		assert.Zero(t, n, "no orphaned history")
	}
	hits, err := e.index.Query(ctx, "zebra", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	edges, err := e.svc.Edges(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)

	_, err = e.svc.Get(ctx, other.ID)
	assert.NoError(t, err)
	links, err := e.svc.LinkEdges(ctx)
	require.NoError(t, err)
	assert.Empty(t, links, "links to deleted notes are hidden")
}

func TestDelete_NotFound(t *testing.T) {
	e := testEnv(t)
	_, err := e.svc.Delete(context.Background(), 12)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHierarchy_CycleScenario(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	a := create(t, e.svc, "# A")
	b := create(t, e.svc, "# B")

	_, err := e.svc.Attach(ctx, a.ID, b.ID, "")
	require.NoError(t, err)

	_, err = e.svc.Attach(ctx, b.ID, a.ID, "")
	assert.ErrorIs(t, err, apperr.ErrCycle)

	edges, err := e.svc.Edges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, a.ID, edges[0].ParentID)
	assert.Equal(t, b.ID, edges[0].ChildID)
}

func TestCreate_UnderMissingParentRollsBack(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	missing := int64(50)
	_, err := e.svc.Create(ctx, models.NoteInput{Content: "# Orphan", ParentID: &missing})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := e.svc.List(ctx, models.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTreeAndPath(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	root := create(t, e.svc, "# Projects")
	mid := createChild(t, e.svc, root.ID, "# Garden")
	leaf, err := e.svc.Create(ctx, models.NoteInput{Content: "# Tomatoes", ParentID: &mid.ID, EdgeKind: "block"})
	require.NoError(t, err)
	create(t, e.svc, "# Loose")

	tree, err := e.svc.Tree(ctx, false)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Projects", tree[0].Item.Title)
	require.Len(t, tree[0].Children, 1)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "block", tree[0].Children[0].Children[0].Kind)

	p, err := e.svc.Path(ctx, leaf.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "/ Projects / Garden / Tomatoes", p)

	p, err = e.svc.Path(ctx, leaf.ID, &root.ID)
	require.NoError(t, err)
	assert.Equal(t, "Garden / Tomatoes", p)

	p, err = e.svc.Path(ctx, leaf.ID, &leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, "/ Projects / Garden / Tomatoes", p, "self is not a strict ancestor")

	anc, err := e.svc.Ancestors(ctx, leaf.ID)
	require.NoError(t, err)
	require.Len(t, anc, 2)
	assert.Equal(t, mid.ID, anc[0].ID)

	kids, err := e.svc.Children(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, mid.ID, kids[0].ID)

	require.NoError(t, e.svc.Detach(ctx, mid.ID))
	p, err = e.svc.Path(ctx, leaf.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "/ Garden / Tomatoes", p)
}

func TestLinks(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	target := create(t, e.svc, "# Target")
	src := create(t, e.svc, "# Source\nsee [[1]] and [[1|again]] and [[99]]")

	fwd, err := e.svc.ForwardLinks(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, fwd, 1)
	assert.Equal(t, target.ID, fwd[0].ID)

	back, err := e.svc.Backlinks(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, src.ID, back[0].ID)

	edges, err := e.svc.LinkEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Link{{SourceID: src.ID, TargetID: target.ID}}, edges)

	_, err = e.svc.Update(ctx, src.ID, "# Source\nno links")
	require.NoError(t, err)
	back, err = e.svc.Backlinks(ctx, target.ID)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestHashes(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	a := create(t, e.svc, "# A")
	b := createChild(t, e.svc, a.ID, "# B")

	hashes, err := e.svc.Hashes(ctx)
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	hb, err := e.svc.Hash(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, hb, hashes[1].Hash)
	assert.NotEqual(t, hashes[0].Hash, hashes[1].Hash)
}

type recordingDependent struct{ seen []int64 }

func (r *recordingDependent) DeleteForNote(_ context.Context, _ *sql.Tx, id int64) error {
	r.seen = append(r.seen, id)
	return nil
}

func TestDelete_CallsDependents(t *testing.T) {
	e := testEnv(t)
	dep := &recordingDependent{}
	e.svc.OnDelete(dep)
	root := create(t, e.svc, "# R")
	child := createChild(t, e.svc, root.ID, "# C")

	_, err := e.svc.Delete(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{child.ID, root.ID}, dep.seen)
}

func TestPaths(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	root := create(t, e.svc, "# Projects")
	mid := createChild(t, e.svc, root.ID, "# Garden")
	leaf := createChild(t, e.svc, mid.ID, "# Tomatoes")
	loose := create(t, e.svc, "no heading")

	paths, err := e.svc.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{
		root.ID:  "/ Projects",
		mid.ID:   "/ Projects / Garden",
		leaf.ID:  "/ Projects / Garden / Tomatoes",
		loose.ID: "/ Untitled",
	}, paths)

	single, err := e.svc.Path(ctx, leaf.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, paths[leaf.ID], single)
}

func strPtr(s string) *string { return &s }

func TestUpdateTree_CreatesUpdatesAndReparents(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	root := create(t, e.svc, "# Root")
	other := create(t, e.svc, "# Other")
	moved := createChild(t, e.svc, other.ID, "# Moved")

	touched, err := e.svc.UpdateTree(ctx, []models.NoteTreeNode{{
		ID:      root.ID,
		Content: strPtr("# Root v2"),
		Children: []models.NoteTreeNode{
			{ID: moved.ID, EdgeKind: "block"},
			{Content: strPtr("# Fresh\nbody"), Children: []models.NoteTreeNode{{Content: strPtr("# Grandchild")}}},
		},
	}})
	require.NoError(t, err)
	require.Len(t, touched, 4)
	assert.Equal(t, "Root v2", touched[0].Title)
	assert.Equal(t, moved.ID, touched[1].ID)
	assert.Equal(t, "Fresh", touched[2].Title)
	assert.Equal(t, "Grandchild", touched[3].Title)

	mods, err := e.hist.History(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "# Root", mods[0].PreviousContent)

	got, err := e.svc.Get(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Moved", got.Content, "content untouched without a content field")

	paths, err := e.svc.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/ Root v2 / Moved", paths[moved.ID])
	assert.Equal(t, "/ Root v2 / Fresh / Grandchild", paths[touched[3].ID])

	kids, err := e.svc.Children(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, kids)

	hits, err := e.index.Query(ctx, "body", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, touched[2].ID, hits[0].ID)
}

func TestUpdateTree_CycleRollsBackEverything(t *testing.T) {
	e := testEnv(t)
	ctx := context.Background()
	a := create(t, e.svc, "# A")
	b := createChild(t, e.svc, a.ID, "# B")

	_, err := e.svc.UpdateTree(ctx, []models.NoteTreeNode{
		{Content: strPtr("# New")},
		{ID: b.ID, Content: strPtr("# B v2"), Children: []models.NoteTreeNode{{ID: a.ID}}},
	})
	require.ErrorIs(t, err, apperr.ErrCycle)

	all, err := e.svc.List(ctx, models.ListOptions{WithContent: true})
	require.NoError(t, err)
	require.Len(t, all, 2, "created node rolled back")
	assert.Equal(t, "# B", all[1].Content)

	mods, err := e.hist.History(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, mods)

	p, _, err := e.svc.tree.Parent(ctx, e.svc.db.Conn(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, p)
}

func TestUpdateTree_MissingNote(t *testing.T) {
	e := testEnv(t)
	_, err := e.svc.UpdateTree(context.Background(), []models.NoteTreeNode{{ID: 404}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
