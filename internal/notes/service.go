// Package notes is the content store: note CRUD with derived titles, edit
// history, link extraction and search indexing, all applied in the same
// transaction as the write.
package notes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/checksum"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/hierarchy"
	"github.com/starford/sprig/internal/history"
	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/parser"
	"github.com/starford/sprig/internal/search"
)

// Dependent owns rows that must go away with a note. DeleteForNote runs
// inside the note deletion transaction, before the note row is removed.
type Dependent interface {
	DeleteForNote(ctx context.Context, tx *sql.Tx, noteID int64) error
}

// Service coordinates note rows, the note hierarchy, history and the search index.
type Service struct {
	db      *db.DB
	tree    *hierarchy.Manager
	history *history.Tracker
	index   *search.Indexer
	deps    []Dependent
	now     func() time.Time
}

// NewService creates a new note service.
func NewService(d *db.DB, hist *history.Tracker, idx *search.Indexer) *Service {
	s := &Service{db: d, history: hist, index: idx, now: time.Now}
	s.tree = hierarchy.New(hierarchy.Notes, s.deleteOne)
	return s
}

// OnDelete registers a dependent cleaned up whenever a note is deleted.
func (s *Service) OnDelete(dep Dependent) {
	s.deps = append(s.deps, dep)
}

// Create stores a new note, optionally as the child of ParentID.
func (s *Service) Create(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	var note *models.Note
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := s.insert(ctx, tx, in.Content)
		if err != nil {
			return err
		}
		if in.ParentID != nil {
			if _, err := s.tree.Attach(ctx, tx, *in.ParentID, n.ID, in.EdgeKind); err != nil {
				return err
			}
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Get returns a note with its content.
func (s *Service) Get(ctx context.Context, id int64) (*models.Note, error) {
	return s.get(ctx, s.db.Conn(), id)
}

// Update replaces a note's content.
func (s *Service) Update(ctx context.Context, id int64, content string) (*models.Note, error) {
	return s.UpdateIfMatch(ctx, id, content, "")
}

// UpdateIfMatch replaces a note's content when ifMatch is empty or equals the
// note's current hash.
func (s *Service) UpdateIfMatch(ctx context.Context, id int64, content, ifMatch string) (*models.Note, error) {
	var note *models.Note
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := s.update(ctx, tx, id, content, ifMatch)
		note = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateMany applies every edit in one transaction. Either all edits are
// stored or none.
func (s *Service) UpdateMany(ctx context.Context, edits []models.NoteEdit) ([]models.Note, error) {
	out := make([]models.Note, 0, len(edits))
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, e := range edits {
			n, err := s.update(ctx, tx, e.ID, e.Content, "")
			if err != nil {
				return err
			}
			out = append(out, *n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a note and its whole subtree, returning the removed ids,
// deepest first.
func (s *Service) Delete(ctx context.Context, id int64) ([]int64, error) {
	var removed []int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.tree.DeleteSubtree(ctx, tx, id)
		removed = ids
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// List returns notes ordered by id, optionally restricted to the children of
// ParentID. Content is omitted unless WithContent is set.
func (s *Service) List(ctx context.Context, opts models.ListOptions) ([]models.Note, error) {
	cols := noteColumns(opts.WithContent)
	var (
		rows *sql.Rows
		err  error
	)
	if opts.ParentID != nil {
		if err := s.mustExist(ctx, s.db.Conn(), *opts.ParentID); err != nil {
			return nil, err
		}
		rows, err = s.db.Conn().QueryContext(ctx, `
			SELECT `+cols+`
			FROM notes n JOIN note_hierarchy h ON h.child_id = n.id
			WHERE h.parent_id = ?
			ORDER BY n.id
		`, *opts.ParentID)
	} else {
		rows, err = s.db.Conn().QueryContext(ctx, `SELECT `+cols+` FROM notes n ORDER BY n.id`)
	}
	if err != nil {
		return nil, fmt.Errorf("notes: list: %w", err)
	}
	return scanNotes(rows, opts.WithContent)
}

// Hash returns the hash of a note; it is the token UpdateIfMatch expects.
func (s *Service) Hash(ctx context.Context, id int64) (string, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	parent, err := s.parentPtr(ctx, s.db.Conn(), id)
	if err != nil {
		return "", err
	}
	return checksum.Note(n, parent), nil
}

// Hashes returns the hash of every note.
func (s *Service) Hashes(ctx context.Context) ([]models.NoteHash, error) {
	all, err := s.List(ctx, models.ListOptions{WithContent: true})
	if err != nil {
		return nil, err
	}
	edges, err := s.tree.Edges(ctx, s.db.Conn())
	if err != nil {
		return nil, err
	}
	parents := make(map[int64]int64, len(edges))
	for _, e := range edges {
		parents[e.ChildID] = e.ParentID
	}
	out := make([]models.NoteHash, 0, len(all))
	for i := range all {
		var parent *int64
		if p, ok := parents[all[i].ID]; ok {
			parent = &p
		}
		out = append(out, models.NoteHash{ID: all[i].ID, Hash: checksum.Note(&all[i], parent)})
	}
	return out, nil
}

func (s *Service) insert(ctx context.Context, tx *sql.Tx, content string) (*models.Note, error) {
	at := s.now().UTC()
	title := parser.Title(content)
	ts := db.FormatTime(at)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO notes (title, content, created_at, modified_at) VALUES (?, ?, ?, ?)`,
		title, content, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("notes: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("notes: insert id: %w", err)
	}
	if err := s.derive(ctx, tx, id, title, content); err != nil {
		return nil, err
	}
	return &models.Note{ID: id, Title: title, Content: content, CreatedAt: at, ModifiedAt: at}, nil
}

func (s *Service) update(ctx context.Context, tx *sql.Tx, id int64, content, ifMatch string) (*models.Note, error) {
	n, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" {
		parent, err := s.parentPtr(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if checksum.Note(n, parent) != ifMatch {
			return nil, apperr.Conflict("note %d has changed", id)
		}
	}
	if n.Content == content {
		return n, nil
	}

	at := s.now().UTC()
	if err := s.history.Record(ctx, tx, id, n.Content, at); err != nil {
		return nil, err
	}
	title := parser.Title(content)
	if _, err := tx.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, modified_at = ? WHERE id = ?`,
		title, content, db.FormatTime(at), id); err != nil {
		return nil, fmt.Errorf("notes: update: %w", err)
	}
	if err := s.derive(ctx, tx, id, title, content); err != nil {
		return nil, err
	}
	n.Title, n.Content, n.ModifiedAt = title, content, at
	return n, nil
}

// derive refreshes the search document and link rows of a note.
func (s *Service) derive(ctx context.Context, tx *sql.Tx, id int64, title, content string) error {
	if err := s.index.Reindex(ctx, tx, models.KindNote, id, title, content); err != nil {
		return err
	}
	return s.writeLinks(ctx, tx, id, parser.Links(content))
}

// deleteOne removes a single note and everything owned by it. The hierarchy
// manager calls it bottom-up for every note of a deleted subtree.
func (s *Service) deleteOne(ctx context.Context, tx *sql.Tx, id int64) error {
	for _, dep := range s.deps {
		if err := dep.DeleteForNote(ctx, tx, id); err != nil {
			return err
		}
	}
	if err := s.history.DeleteForNote(ctx, tx, id); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, tx, models.KindNote, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_links WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("notes: delete links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("notes: delete: %w", err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, q db.Querier, id int64) (*models.Note, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+noteColumns(true)+` FROM notes n WHERE n.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("notes: get: %w", err)
	}
	list, err := scanNotes(rows, true)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperr.NotFound("note %d not found", id)
	}
	return &list[0], nil
}

func (s *Service) mustExist(ctx context.Context, q db.Querier, id int64) error {
	ok, err := db.Exists(ctx, q, "notes", id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("note %d not found", id)
	}
	return nil
}

func (s *Service) parentPtr(ctx context.Context, q db.Querier, id int64) (*int64, error) {
	p, ok, err := s.tree.Parent(ctx, q, id)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func noteColumns(withContent bool) string {
	if withContent {
		return `n.id, n.title, n.content, n.created_at, n.modified_at`
	}
	return `n.id, n.title, '', n.created_at, n.modified_at`
}

func scanNotes(rows *sql.Rows, withContent bool) ([]models.Note, error) {
	defer rows.Close()
	out := []models.Note{}
	for rows.Next() {
		var (
			n                 models.Note
			created, modified string
			err               error
		)
		if err = rows.Scan(&n.ID, &n.Title, &n.Content, &created, &modified); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = db.ParseTime(created); err != nil {
			return nil, err
		}
		if n.ModifiedAt, err = db.ParseTime(modified); err != nil {
			return nil, err
		}
		if !withContent {
			n.Content = ""
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
