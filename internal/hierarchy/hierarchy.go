// Package hierarchy implements the single-parent tree shared by notes, tags
// and tasks. Each Kind owns its own edge table, so edges never cross kinds.
//
// Every mutating method takes the caller's *sql.Tx. Write transactions are
// opened with BEGIN IMMEDIATE (see package db), so the existence, parent and
// ancestor checks in Attach observe the same state the insert commits into:
// two concurrent attaches cannot both give a child a parent, and cannot close
// a cycle neither of them sees.
package hierarchy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
)

var now = time.Now

// Kind names an entity type and its tables. Table names are trusted identifiers.
type Kind struct {
	Name        string
	EntityTable string
	EdgeTable   string
}

var (
	Notes = Kind{Name: "note", EntityTable: "notes", EdgeTable: "note_hierarchy"}
	Tags  = Kind{Name: "tag", EntityTable: "tags", EdgeTable: "tag_hierarchy"}
	Tasks = Kind{Name: "task", EntityTable: "tasks", EdgeTable: "task_hierarchy"}
)

// DeleteFunc removes one entity and everything that depends on it, except its
// hierarchy edges, which the Manager handles.
type DeleteFunc func(ctx context.Context, tx *sql.Tx, id int64) error

// Manager maintains one hierarchy.
type Manager struct {
	kind   Kind
	delete DeleteFunc
}

// New creates a Manager for kind. del is called for every entity removed by
// DeleteSubtree.
func New(kind Kind, del DeleteFunc) *Manager {
	return &Manager{kind: kind, delete: del}
}

// Kind returns the managed kind.
func (m *Manager) Kind() Kind {
	return m.kind
}

// Attach makes childID a child of parentID and returns the new edge id.
func (m *Manager) Attach(ctx context.Context, tx *sql.Tx, parentID, childID int64, edgeKind string) (int64, error) {
	name := m.kind.Name
	if parentID == childID {
		return 0, apperr.New(apperr.ErrCycle, "%s %d cannot be its own parent", name, childID)
	}
	for _, id := range []int64{parentID, childID} {
		ok, err := db.Exists(ctx, tx, m.kind.EntityTable, id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, apperr.NotFound("%s %d not found", name, id)
		}
	}

	current, has, err := m.Parent(ctx, tx, childID)
	if err != nil {
		return 0, err
	}
	if has {
		return 0, apperr.New(apperr.ErrHasParent, "%s %d already has parent %d", name, childID, current)
	}

	cycle, err := m.IsAncestor(ctx, tx, childID, parentID)
	if err != nil {
		return 0, err
	}
	if cycle {
		return 0, apperr.New(apperr.ErrCycle, "%s %d is an ancestor of %s %d", name, childID, name, parentID)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+m.kind.EdgeTable+` (parent_id, child_id, edge_kind, created_at) VALUES (?, ?, ?, ?)`,
		parentID, childID, edgeKind, db.FormatTime(now()))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, apperr.New(apperr.ErrHasParent, "%s %d already has a parent", name, childID)
		}
		return 0, fmt.Errorf("hierarchy: insert %s edge: %w", name, err)
	}
	return res.LastInsertId()
}

// Detach removes the edge linking childID to its parent.
func (m *Manager) Detach(ctx context.Context, tx *sql.Tx, childID int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM `+m.kind.EdgeTable+` WHERE child_id = ?`, childID)
	if err != nil {
		return fmt.Errorf("hierarchy: detach %s: %w", m.kind.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("%s %d has no parent", m.kind.Name, childID)
	}
	return nil
}

// Parent returns the parent of id, if any.
func (m *Manager) Parent(ctx context.Context, q db.Querier, id int64) (int64, bool, error) {
	var parent int64
	err := q.QueryRowContext(ctx,
		`SELECT parent_id FROM `+m.kind.EdgeTable+` WHERE child_id = ?`, id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("hierarchy: parent of %s: %w", m.kind.Name, err)
	}
	return parent, true, nil
}

// ChildrenOf returns the direct children of id in ascending id order.
func (m *Manager) ChildrenOf(ctx context.Context, q db.Querier, id int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT child_id FROM `+m.kind.EdgeTable+` WHERE parent_id = ? ORDER BY child_id`, id)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: children of %s: %w", m.kind.Name, err)
	}
	return scanIDs(rows)
}

// IsAncestor reports whether ancestorID lies on the parent chain of id.
// The walk has no depth limit; UNION drops revisited rows, so it ends even on
// a corrupted edge table.
func (m *Manager) IsAncestor(ctx context.Context, q db.Querier, ancestorID, id int64) (bool, error) {
	edge := m.kind.EdgeTable
	var found bool
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE anc(id) AS (
			SELECT parent_id FROM `+edge+` WHERE child_id = ?
			UNION
			SELECT e.parent_id FROM `+edge+` e JOIN anc a ON e.child_id = a.id
		)
		SELECT EXISTS (SELECT 1 FROM anc WHERE id = ?)
	`, id, ancestorID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("hierarchy: ancestry of %s: %w", m.kind.Name, err)
	}
	return found, nil
}

// AncestorsOf returns the ancestors of id, nearest first.
func (m *Manager) AncestorsOf(ctx context.Context, q db.Querier, id int64) ([]int64, error) {
	edge := m.kind.EdgeTable
	rows, err := q.QueryContext(ctx, `
		WITH RECURSIVE chain(id) AS (
			SELECT ?
			UNION
			SELECT e.parent_id FROM `+edge+` e JOIN chain c ON e.child_id = c.id
		)
		SELECT e.parent_id, e.child_id FROM `+edge+` e JOIN chain c ON e.child_id = c.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: ancestors of %s: %w", m.kind.Name, err)
	}
	pairs, err := scanEdges(rows)
	if err != nil {
		return nil, err
	}

	parentOf := make(map[int64]int64, len(pairs))
	for _, p := range pairs {
		parentOf[p.child] = p.parent
	}
	out := []int64{}
	seen := map[int64]bool{id: true}
	for cur := id; ; {
		parent, ok := parentOf[cur]
		if !ok || seen[parent] {
			break
		}
		seen[parent] = true
		out = append(out, parent)
		cur = parent
	}
	return out, nil
}

// DescendantsOf returns every descendant of id, deepest first. Ids at the
// same depth come in descending order.
func (m *Manager) DescendantsOf(ctx context.Context, q db.Querier, id int64) ([]int64, error) {
	edge := m.kind.EdgeTable
	rows, err := q.QueryContext(ctx, `
		WITH RECURSIVE sub(id) AS (
			SELECT ?
			UNION
			SELECT e.child_id FROM `+edge+` e JOIN sub s ON e.parent_id = s.id
		)
		SELECT e.parent_id, e.child_id FROM `+edge+` e JOIN sub s ON e.parent_id = s.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: descendants of %s: %w", m.kind.Name, err)
	}
	pairs, err := scanEdges(rows)
	if err != nil {
		return nil, err
	}

	childrenOf := make(map[int64][]int64)
	for _, p := range pairs {
		childrenOf[p.parent] = append(childrenOf[p.parent], p.child)
	}
	var levels [][]int64
	seen := map[int64]bool{id: true}
	for level := []int64{id}; len(level) > 0; {
		var next []int64
		for _, parent := range level {
			for _, child := range childrenOf[parent] {
				if !seen[child] {
					seen[child] = true
					next = append(next, child)
				}
			}
		}
		if len(next) > 0 {
			slices.Sort(next)
			levels = append(levels, next)
		}
		level = next
	}

	out := make([]int64, 0, len(seen)-1)
	for i := len(levels) - 1; i >= 0; i-- {
		for j := len(levels[i]) - 1; j >= 0; j-- {
			out = append(out, levels[i][j])
		}
	}
	return out, nil
}

// Edges returns every edge of the hierarchy.
func (m *Manager) Edges(ctx context.Context, q db.Querier) ([]models.Edge, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, parent_id, child_id, edge_kind, created_at FROM `+m.kind.EdgeTable+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: edges of %s: %w", m.kind.Name, err)
	}
	defer rows.Close()

	out := []models.Edge{}
	for rows.Next() {
		var (
			e  models.Edge
			at string
		)
		if err := rows.Scan(&e.ID, &e.ParentID, &e.ChildID, &e.Kind, &at); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = db.ParseTime(at); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteSubtree removes id and all its descendants, deepest first, and
// returns the removed ids in deletion order. Edges are removed before the
// entity they point at.
func (m *Manager) DeleteSubtree(ctx context.Context, tx *sql.Tx, id int64) ([]int64, error) {
	ok, err := db.Exists(ctx, tx, m.kind.EntityTable, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("%s %d not found", m.kind.Name, id)
	}

	ids, err := m.DescendantsOf(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	ids = append(ids, id)

	for _, victim := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+m.kind.EdgeTable+` WHERE child_id = ? OR parent_id = ?`, victim, victim); err != nil {
			return nil, fmt.Errorf("hierarchy: delete %s edges: %w", m.kind.Name, err)
		}
		if m.delete != nil {
			if err := m.delete(ctx, tx, victim); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

type pair struct{ parent, child int64 }

func scanEdges(rows *sql.Rows) ([]pair, error) {
	defer rows.Close()
	var out []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.parent, &p.child); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
