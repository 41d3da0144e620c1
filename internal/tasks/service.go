// Package tasks implements the task overlay: a task row attached 1:1 to a
// note, with its own hierarchy, schedules and clock entries.
//
// Status changes are unrestricted and actual effort is only ever set by the
// caller; clock entries never feed into it.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/hierarchy"
	"github.com/starford/sprig/internal/models"
)

// Service owns tasks, task edges, schedules and clocks.
type Service struct {
	db   *db.DB
	tree *hierarchy.Manager
	now  func() time.Time
}

// NewService creates a new task service.
func NewService(d *db.DB) *Service {
	s := &Service{db: d, now: time.Now}
	s.tree = hierarchy.New(hierarchy.Tasks, s.deleteOne)
	return s
}

const taskColumns = `id, note_id, status, effort_estimate, actual_effort, deadline,
	priority, all_day, goal_relationship, created_at, modified_at`

// Promote turns a note into a task.
func (s *Service) Promote(ctx context.Context, noteID int64, in models.TaskInput) (*models.Task, error) {
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	at := s.now().UTC()

	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := db.Exists(ctx, tx, "notes", noteID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("note %d not found", noteID)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (note_id, status, effort_estimate, actual_effort, deadline,
				priority, all_day, goal_relationship, created_at, modified_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, noteID, string(in.Status), in.EffortEstimate, in.ActualEffort, db.NullTime(in.Deadline),
			in.Priority, in.AllDay, in.GoalRelationship, db.FormatTime(at), db.FormatTime(at))
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("note %d is already a task", noteID)
		}
		if err != nil {
			return fmt.Errorf("tasks: insert: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id int64) (*models.Task, error) {
	return s.get(ctx, s.db.Conn(), `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
		apperr.NotFound("task %d not found", id))
}

// GetByNote returns the task attached to a note.
func (s *Service) GetByNote(ctx context.Context, noteID int64) (*models.Task, error) {
	return s.get(ctx, s.db.Conn(), `SELECT `+taskColumns+` FROM tasks WHERE note_id = ?`, noteID,
		apperr.NotFound("note %d is not a task", noteID))
}

// List returns tasks ordered by id. A non-empty status filters the result.
func (s *Service) List(ctx context.Context, status models.Status) ([]models.Task, error) {
	query, args := `SELECT `+taskColumns+` FROM tasks ORDER BY id`, []any{}
	if status != "" {
		if err := validateStatus(status); err != nil {
			return nil, err
		}
		query, args = `SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY id`, []any{string(status)}
	}
	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateStatus sets a task's status. Any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.Task, error) {
	return s.Update(ctx, id, models.TaskPatch{Status: &status})
}

// Update applies a partial update to a task.
func (s *Service) Update(ctx context.Context, id int64, p models.TaskPatch) (*models.Task, error) {
	if err := validatePatch(&p); err != nil {
		return nil, err
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.get(ctx, tx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
			apperr.NotFound("task %d not found", id))
		if err != nil {
			return err
		}
		applyPatch(cur, p)
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks SET status = ?, effort_estimate = ?, actual_effort = ?, deadline = ?,
				priority = ?, all_day = ?, goal_relationship = ?, modified_at = ?
			WHERE id = ?
		`, string(cur.Status), cur.EffortEstimate, cur.ActualEffort, db.NullTime(cur.Deadline),
			cur.Priority, cur.AllDay, cur.GoalRelationship, db.FormatTime(s.now()), id)
		if err != nil {
			return fmt.Errorf("tasks: update: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a task and its descendant tasks. The notes are kept.
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

// DeleteForNote removes the task attached to a note being deleted. Child
// tasks belong to other notes, so they become roots instead of following it.
func (s *Service) DeleteForNote(ctx context.Context, tx *sql.Tx, noteID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM tasks WHERE note_id = ?`, noteID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tasks: delete for note: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM task_hierarchy WHERE parent_id = ? OR child_id = ?`, id, id); err != nil {
		return fmt.Errorf("tasks: delete edges: %w", err)
	}
	return s.deleteOne(ctx, tx, id)
}

func (s *Service) deleteOne(ctx context.Context, tx *sql.Tx, id int64) error {
	for _, q := range []string{
		`DELETE FROM task_clocks WHERE task_id = ?`,
		`DELETE FROM task_schedules WHERE task_id = ?`,
		`DELETE FROM tasks WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("tasks: delete: %w", err)
		}
	}
	return nil
}

func (s *Service) get(ctx context.Context, q db.Querier, query string, arg int64, notFound error) (*models.Task, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("tasks: get: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, notFound
	}
	return scanTask(rows)
}

func (s *Service) mustExist(ctx context.Context, q db.Querier, id int64) error {
	ok, err := db.Exists(ctx, q, "tasks", id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("task %d not found", id)
	}
	return nil
}

func applyPatch(t *models.Task, p models.TaskPatch) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.EffortEstimate != nil {
		t.EffortEstimate = p.EffortEstimate
	}
	if p.ActualEffort != nil {
		t.ActualEffort = p.ActualEffort
	}
	if p.Deadline != nil {
		t.Deadline = p.Deadline
	}
	if p.ClearDeadline {
		t.Deadline = nil
	}
	if p.Priority != nil {
		t.Priority = p.Priority
	}
	if p.ClearPriority {
		t.Priority = nil
	}
	if p.AllDay != nil {
		t.AllDay = *p.AllDay
	}
	if p.GoalRelationship != nil {
		t.GoalRelationship = p.GoalRelationship
	}
}

func scanTask(rows *sql.Rows) (*models.Task, error) {
	var (
		t                 models.Task
		status            string
		estimate, actual  sql.NullFloat64
		deadline          sql.NullString
		priority, goal    sql.NullInt64
		created, modified string
	)
	if err := rows.Scan(&t.ID, &t.NoteID, &status, &estimate, &actual, &deadline,
		&priority, &t.AllDay, &goal, &created, &modified); err != nil {
		return nil, err
	}
	t.Status = models.Status(status)
	if estimate.Valid {
		t.EffortEstimate = &estimate.Float64
	}
	if actual.Valid {
		t.ActualEffort = &actual.Float64
	}
	if priority.Valid {
		v := int(priority.Int64)
		t.Priority = &v
	}
	if goal.Valid {
		v := int(goal.Int64)
		t.GoalRelationship = &v
	}
	var err error
	if t.Deadline, err = db.ParseNullTime(deadline); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	if t.ModifiedAt, err = db.ParseTime(modified); err != nil {
		return nil, err
	}
	return &t, nil
}
