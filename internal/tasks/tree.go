package tasks

import (
	"context"
	"database/sql"

	"github.com/starford/sprig/internal/hierarchy"
	"github.com/starford/sprig/internal/models"
)

// AttachChild places task childID under task parentID. The task tree is
// independent of the note tree.
func (s *Service) AttachChild(ctx context.Context, parentID, childID int64, edgeKind string) (int64, error) {
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

// DetachChild makes childID a root task.
func (s *Service) DetachChild(ctx context.Context, childID int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.tree.Detach(ctx, tx, childID)
	})
}

// Children returns the direct subtasks of id.
func (s *Service) Children(ctx context.Context, id int64) ([]models.Task, error) {
	if err := s.mustExist(ctx, s.db.Conn(), id); err != nil {
		return nil, err
	}
	ids, err := s.tree.ChildrenOf(ctx, s.db.Conn(), id)
	if err != nil {
		return nil, err
	}
	return s.byIDs(ctx, ids)
}

// Ancestors returns the parent chain of a task, nearest first.
func (s *Service) Ancestors(ctx context.Context, id int64) ([]models.Task, error) {
	if err := s.mustExist(ctx, s.db.Conn(), id); err != nil {
		return nil, err
	}
	ids, err := s.tree.AncestorsOf(ctx, s.db.Conn(), id)
	if err != nil {
		return nil, err
	}
	return s.byIDs(ctx, ids)
}

// Edges returns every edge of the task hierarchy.
func (s *Service) Edges(ctx context.Context) ([]models.Edge, error) {
	return s.tree.Edges(ctx, s.db.Conn())
}

// Tree returns every task nested under its parent task.
func (s *Service) Tree(ctx context.Context) ([]*hierarchy.Node[models.Task], error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	edges, err := s.Edges(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.BuildTree(all, func(t models.Task) int64 { return t.ID }, edges), nil
}

func (s *Service) byIDs(ctx context.Context, ids []int64) ([]models.Task, error) {
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}
