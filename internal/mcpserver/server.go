// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes sprig tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sprig/internal/core"
	"github.com/starford/sprig/internal/models"
)

const contractURI = "sprig://note-format"

// Server wraps the MCP server with sprig tools.
type Server struct {
	mcp  *server.MCPServer
	core *core.Core
}

// New creates a new MCP server with all sprig tools registered.
func New(c *core.Core) *Server {
	s := &Server{core: c}

	s.mcp = server.NewMCPServer(
		"Sprig",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and content, and asset descriptions."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its path, hash, tags, task and backlinks."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes without content. Pass parent_id to list only its children."),
		mcp.WithNumber("parent_id", mcp.Description("Optional parent note id")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The title is taken from the first '# ' heading. "+
			"Read the contract first via the get_note_contract tool or the "+contractURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
		mcp.WithNumber("parent_id", mcp.Description("Optional parent note id")),
		mcp.WithString("type", mcp.Description("Optional note type name, e.g. page or journal; created when missing")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace a note's content. The previous content is kept in its history."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
		mcp.WithString("hash", mcp.Description("Hash from read_note; the update fails if the note changed since")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("note_history",
		mcp.WithDescription("List previous versions of a note, most recent first."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.noteHistory)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("attach_note",
		mcp.WithDescription("Place a note under a parent note. Fails if the child already has a parent or the edge would form a cycle."),
		mcp.WithNumber("parent_id", mcp.Required(), mcp.Description("Parent note id")),
		mcp.WithNumber("child_id", mcp.Required(), mcp.Description("Child note id")),
	), s.attachNote)

	s.mcp.AddTool(mcp.NewTool("promote_task",
		mcp.WithDescription("Turn a note into a task."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("status", mcp.Description("Initial status, default todo"), mcp.Enum(statusNames()...)),
		mcp.WithNumber("priority", mcp.Description("Priority from 1 to 5")),
	), s.promoteTask)

	s.mcp.AddTool(mcp.NewTool("set_task_status",
		mcp.WithDescription("Change a task's status."),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("status", mcp.Required(), mcp.Enum(statusNames()...)),
	), s.setTaskStatus)

	s.mcp.AddTool(mcp.NewTool("register_asset",
		mcp.WithDescription("Register a file stored elsewhere, optionally linked to a note. "+
			"The description is searchable."),
		mcp.WithString("location", mcp.Required(), mcp.Description("Path or URL of the file")),
		mcp.WithString("description", mcp.Description("What the file contains")),
		mcp.WithNumber("note_id", mcp.Description("Optional note the asset belongs to")),
	), s.registerAsset)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the sprig note format contract. "+
			"Call this before creating or updating notes."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("How sprig derives titles and links from note content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func statusNames() []string {
	out := make([]string, len(models.Statuses))
	for i, st := range models.Statuses {
		out[i] = string(st)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func requireID(req mcp.CallToolRequest, name string) (int64, error) {
	v, err := req.RequireInt(name)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return int64(v), nil
}

// optionalID returns nil when the argument is absent or not positive.
func optionalID(req mcp.CallToolRequest, name string) *int64 {
	v := req.GetInt(name, 0)
	if v <= 0 {
		return nil
	}
	id := int64(v)
	return &id
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.core.Search(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.core.Detail(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(detail)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.core.Notes.List(ctx, models.ListOptions{ParentID: optionalID(req, "parent_id")})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.core.Notes.Create(ctx, models.NoteInput{
		Content:  content,
		ParentID: optionalID(req, "parent_id"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.core.Emit(models.KindNote, "created", note.ID)

	if name := req.GetString("type", ""); name != "" {
		typ, err := s.core.Registry.EnsureType(ctx, name)
		if err == nil {
			err = s.core.Registry.AssignType(ctx, note.ID, typ.ID)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("created note %d but could not set type: %v", note.ID, err)), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created note %d: %s", note.ID, note.Title)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.core.Notes.UpdateIfMatch(ctx, id, content, req.GetString("hash", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.core.Emit(models.KindNote, "updated", id)
	return mcp.NewToolResultText(fmt.Sprintf("updated note %d: %s", note.ID, note.Title)), nil
}

func (s *Server) noteHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mods, err := s.core.History.History(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(mods)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.core.Notes.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return jsonResult(bl)
}

func (s *Server) attachNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent, err := requireID(req, "parent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	child, err := requireID(req, "child_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.core.Notes.Attach(ctx, parent, child, ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.core.Emit(models.KindNote, "attached", child)
	return mcp.NewToolResultText(fmt.Sprintf("note %d is now under note %d", child, parent)), nil
}

func (s *Server) promoteTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := models.TaskInput{Status: models.Status(req.GetString("status", ""))}
	if p := req.GetInt("priority", 0); p != 0 {
		in.Priority = &p
	}
	task, err := s.core.Tasks.Promote(ctx, id, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.core.Emit("task", "created", task.ID)
	return jsonResult(task)
}

func (s *Server) setTaskStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := s.core.Tasks.UpdateStatus(ctx, id, models.Status(status))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.core.Emit("task", "updated", id)
	return jsonResult(task)
}

func (s *Server) registerAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location, err := req.RequireString("location")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.core.Assets.Create(ctx, location, req.GetString("description", ""), optionalID(req, "note_id"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.core.Emit(models.KindAsset, "created", a.ID)
	return jsonResult(a)
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
