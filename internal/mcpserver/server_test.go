package mcpserver

import (
	"context"
	"encoding/json"
		"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sprig/internal/core"
	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/testutil"
)

func testServer(t *testing.T) (*Server, *core.Core) {
	t.Helper()
	c := core.New(testutil.TestDB(t), core.Options{})
	return New(c), c
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "update_note":
		result, err = srv.updateNote(ctx, req)
	case "note_history":
		result, err = srv.noteHistory(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "attach_note":
		result, err = srv.attachNote(ctx, req)
	case "promote_task":
		result, err = srv.promoteTask(ctx, req)
	case "set_task_status":
		result, err = srv.setTaskStatus(ctx, req)
	case "register_asset":
		result, err = srv.registerAsset(ctx, req)
	case "get_note_contract":
		result, err = srv.getNoteContract(ctx, req)
	default:
		require.FailNow(t, "unknown tool", name)
	}

	require.NoError(t, err, "tool %s", name)
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeResult[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, r.IsError, resultText(r))
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &v))
	return v
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{"content": "# Test\nHello"})
	assert.Equal(t, "created note 1: Test", resultText(r))

	detail := decodeResult[core.NoteDetail](t, callTool(t, srv, "read_note", map[string]any{"id": 1}))
	assert.Equal(t, "# Test\nHello", detail.Content)
	assert.NotEmpty(t, detail.Hash)
}

func TestCreateChildAndList(t *testing.T) {
	srv, c := testServer(t)
	ctx := context.Background()
	parent, err := c.Notes.Create(ctx, models.NoteInput{Content: "# Parent"})
	require.NoError(t, err)

	r := callTool(t, srv, "create_note", map[string]any{"content": "# Child", "parent_id": float64(parent.ID)})
	require.False(t, r.IsError, resultText(r))

	list := decodeResult[[]models.Note](t, callTool(t, srv, "list_notes", map[string]any{"parent_id": float64(parent.ID)}))
	require.Len(t, list, 1)
	assert.Equal(t, "Child", list[0].Title)
}

func TestCreateNoteWithType(t *testing.T) {
	srv, c := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"content": "# Monday", "type": "journal"})
	require.False(t, r.IsError, resultText(r))

	types, err := c.Registry.TypesOf(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "journal", types[0].Name)
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"id": 99})
	assert.True(t, r.IsError)
}

func TestUpdateNoteWithStaleHash(t *testing.T) {
	srv, c := testServer(t)
	ctx := context.Background()
	n, err := c.Notes.Create(ctx, models.NoteInput{Content: "# V1"})
	require.NoError(t, err)
	hash, err := c.Notes.Hash(ctx, n.ID)
	require.NoError(t, err)

	r := callTool(t, srv, "update_note", map[string]any{"id": float64(n.ID), "content": "# V2", "hash": hash})
	require.False(t, r.IsError, resultText(r))
	r = callTool(t, srv, "update_note", map[string]any{"id": float64(n.ID), "content": "# V3", "hash": hash})
	assert.True(t, r.IsError, "stale hash must conflict")

	mods := decodeResult[[]models.Modification](t, callTool(t, srv, "note_history", map[string]any{"id": float64(n.ID)}))
	require.Len(t, mods, 1)
	assert.Equal(t, "# V1", mods[0].PreviousContent)
}

func TestNoteHistoryMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "note_history", map[string]any{"id": float64(12)})
	assert.True(t, r.IsError)
	assert.Contains(t, resultText(r), "not found")
}

func TestGetBacklinks(t *testing.T) {
	srv, c := testServer(t)
	ctx := context.Background()
	target, err := c.Notes.Create(ctx, models.NoteInput{Content: "# B"})
	require.NoError(t, err)

	r := callTool(t, srv, "get_backlinks", map[string]any{"id": float64(target.ID)})
	assert.Equal(t, "no backlinks found", resultText(r))

	_, err = c.Notes.Create(ctx, models.NoteInput{Content: "# A\nlinks to [[1]]"})
	require.NoError(t, err)
	r = callTool(t, srv, "get_backlinks", map[string]any{"id": float64(target.ID)})
	assert.Contains(t, resultText(r), `"title": "A"`)
}

func TestAttachNoteCycle(t *testing.T) {
	srv, c := testServer(t)
	ctx := context.Background()
	a, err := c.Notes.Create(ctx, models.NoteInput{Content: "# A"})
	require.NoError(t, err)
	b, err := c.Notes.Create(ctx, models.NoteInput{Content: "# B"})
	require.NoError(t, err)

	r := callTool(t, srv, "attach_note", map[string]any{"parent_id": float64(a.ID), "child_id": float64(b.ID)})
	require.False(t, r.IsError, resultText(r))
	r = callTool(t, srv, "attach_note", map[string]any{"parent_id": float64(b.ID), "child_id": float64(a.ID)})
	assert.True(t, r.IsError, "cycle must be rejected")
}

func TestPromoteAndSetStatus(t *testing.T) {
	srv, c := testServer(t)
	n, err := c.Notes.Create(context.Background(), models.NoteInput{Content: "# Todo"})
	require.NoError(t, err)

	task := decodeResult[models.Task](t, callTool(t, srv, "promote_task", map[string]any{"id": float64(n.ID), "priority": 2}))
	assert.Equal(t, models.StatusTodo, task.Status)
	require.NotNil(t, task.Priority)
	assert.Equal(t, 2, *task.Priority)

	r := callTool(t, srv, "set_task_status", map[string]any{"task_id": float64(task.ID), "status": "nope"})
	assert.True(t, r.IsError, "invalid status must be rejected")
	r = callTool(t, srv, "set_task_status", map[string]any{"task_id": float64(task.ID), "status": "done"})
	assert.False(t, r.IsError, resultText(r))
}

func TestRegisterAssetSearchable(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "register_asset", map[string]any{
		"location":    "/srv/files/whiteboard.jpg",
		"description": "whiteboard photo from planning",
	})
	require.False(t, r.IsError, resultText(r))

	hits := decodeResult[[]models.SearchHit](t, callTool(t, srv, "search_notes", map[string]any{"query": "whiteboard"}))
	require.Len(t, hits, 1)
	assert.Equal(t, models.KindAsset, hits[0].Kind)
}

func TestNoteContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_note_contract", nil)
	assert.Contains(t, resultText(r), "[[42]]", "contract describes link syntax")

	res, err := srv.readNoteFormatResource(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	tc, ok := res[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, contractURI, tc.URI)
}
