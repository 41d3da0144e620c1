package notes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/sprig/internal/hierarchy"
	"github.com/starford/sprig/internal/models"
)

// Attach makes childID a child of parentID.
func (s *Service) Attach(ctx context.Context, parentID, childID int64, edgeKind string) (int64, error) {
	var edgeID int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := s.tree.Attach(ctx, tx, parentID, childID, edgeKind)
		edgeID = id
		return err
	})
	if err != nil {
		return 0, err
	}
	return edgeID, nil
}

// Detach makes childID a root note.
func (s *Service) Detach(ctx context.Context, childID int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.tree.Detach(ctx, tx, childID)
	})
}

// Children returns the direct children of a note, without content.
func (s *Service) Children(ctx context.Context, id int64) ([]models.Note, error) {
	return s.List(ctx, models.ListOptions{ParentID: &id})
}

// Ancestors returns the ancestors of a note, nearest first, without content.
func (s *Service) Ancestors(ctx context.Context, id int64) ([]models.Note, error) {
	if err := s.mustExist(ctx, s.db.Conn(), id); err != nil {
		return nil, err
	}
	ids, err := s.tree.AncestorsOf(ctx, s.db.Conn(), id)
	if err != nil {
		return nil, err
	}
	return s.byIDs(ctx, ids)
}

// Edges returns every edge of the note hierarchy.
func (s *Service) Edges(ctx context.Context) ([]models.Edge, error) {
	return s.tree.Edges(ctx, s.db.Conn())
}

// Tree returns every note nested under its parent.
func (s *Service) Tree(ctx context.Context, withContent bool) ([]*hierarchy.Node[models.Note], error) {
	all, err := s.List(ctx, models.ListOptions{WithContent: withContent})
	if err != nil {
		return nil, err
	}
	edges, err := s.Edges(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.BuildTree(all, func(n models.Note) int64 { return n.ID }, edges), nil
}

// Path renders the titles from the root down to the note as "/ a / b / c".
// When fromID is a strict ancestor of the note, the path is relative to it:
// "b / c".
func (s *Service) Path(ctx context.Context, id int64, fromID *int64) (string, error) {
	if err := s.mustExist(ctx, s.db.Conn(), id); err != nil {
		return "", err
	}
	ancestors, err := s.tree.AncestorsOf(ctx, s.db.Conn(), id)
	if err != nil {
		return "", err
	}
	chain := make([]int64, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		chain = append(chain, ancestors[i])
	}
	chain = append(chain, id)

	list, err := s.byIDs(ctx, chain)
	if err != nil {
		return "", err
	}
	titles := make(map[int64]string, len(list))
	for _, n := range list {
		titles[n.ID] = n.Title
	}

	start, relative := 0, false
	if fromID != nil {
		for i, cid := range chain {
			if cid == *fromID && i+1 < len(chain) {
				start, relative = i+1, true
				break
			}
		}
	}
	parts := make([]string, 0, len(chain)-start)
	for _, cid := range chain[start:] {
		parts = append(parts, titles[cid])
	}
	if relative {
		return strings.Join(parts, " / "), nil
	}
	return "/ " + strings.Join(parts, " / "), nil
}

// Paths renders the path of every note, keyed by id.
func (s *Service) Paths(ctx context.Context) (map[int64]string, error) {
	all, err := s.List(ctx, models.ListOptions{})
	if err != nil {
		return nil, err
	}
	edges, err := s.Edges(ctx)
	if err != nil {
		return nil, err
	}
	parentOf := make(map[int64]int64, len(edges))
	for _, e := range edges {
		parentOf[e.ChildID] = e.ParentID
	}
	titles := make(map[int64]string, len(all))
	for _, n := range all {
		titles[n.ID] = n.Title
	}

	out := make(map[int64]string, len(all))
	var chain []int64
	for _, n := range all {
		// Climb until a rendered ancestor or the root, then render downwards.
		chain = chain[:0]
		for cur := n.ID; len(chain) <= len(all); {
			if _, done := out[cur]; done {
				break
			}
			chain = append(chain, cur)
			p, ok := parentOf[cur]
			if !ok {
				break
			}
			cur = p
		}
		for i := len(chain) - 1; i >= 0; i-- {
			id := chain[i]
			if p, ok := parentOf[id]; ok {
				if prefix, ok := out[p]; ok {
					out[id] = prefix + " / " + titles[id]
					continue
				}
			}
			out[id] = "/ " + titles[id]
		}
	}
	return out, nil
}

// UpdateTree applies a forest of nodes in one transaction. New nodes are
// created and existing ones get their content replaced, with the usual title,
// history and index updates. Every child node is moved under its parent node
// through the cycle-checked attach. Top-level nodes keep their current
// parent. The touched notes are returned in the order they were visited.
func (s *Service) UpdateTree(ctx context.Context, forest []models.NoteTreeNode) ([]models.Note, error) {
	type pending struct {
		node   models.NoteTreeNode
		parent int64
	}
	var out []models.Note
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		out = []models.Note{}
		stack := make([]pending, 0, len(forest))
		for i := len(forest) - 1; i >= 0; i-- {
			stack = append(stack, pending{node: forest[i]})
		}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			n, err := s.applyNode(ctx, tx, cur.node)
			if err != nil {
				return err
			}
			if cur.parent != 0 {
				if err := s.moveUnder(ctx, tx, cur.parent, n.ID, cur.node.EdgeKind); err != nil {
					return err
				}
			}
			out = append(out, *n)

			kids := cur.node.Children
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, pending{node: kids[i], parent: n.ID})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) applyNode(ctx context.Context, tx *sql.Tx, node models.NoteTreeNode) (*models.Note, error) {
	if node.ID <= 0 {
		var content string
		if node.Content != nil {
			content = *node.Content
		}
		return s.insert(ctx, tx, content)
	}
	if node.Content == nil {
		return s.get(ctx, tx, node.ID)
	}
	return s.update(ctx, tx, node.ID, *node.Content, "")
}

// moveUnder reparents childID, leaving the edge alone when it is already in place.
func (s *Service) moveUnder(ctx context.Context, tx *sql.Tx, parentID, childID int64, edgeKind string) error {
	current, has, err := s.tree.Parent(ctx, tx, childID)
	if err != nil {
		return err
	}
	if has && current == parentID {
		return nil
	}
	if has {
		if err := s.tree.Detach(ctx, tx, childID); err != nil {
			return err
		}
	}
	_, err = s.tree.Attach(ctx, tx, parentID, childID, edgeKind)
	return err
}

// byIDs loads notes without content, preserving the order of ids.
func (s *Service) byIDs(ctx context.Context, ids []int64) ([]models.Note, error) {
	if len(ids) == 0 {
		return []models.Note{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+noteColumns(false)+` FROM notes n WHERE n.id IN (?`+strings.Repeat(",?", len(ids)-1)+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("notes: by ids: %w", err)
	}
	found, err := scanNotes(rows, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Note, len(found))
	for _, n := range found {
		byID[n.ID] = n
	}
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}
