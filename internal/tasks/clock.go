package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
)

// SetSchedule adds a time window to a task. Windows may overlap.
func (s *Service) SetSchedule(ctx context.Context, taskID int64, start, end time.Time) (*models.Schedule, error) {
	if end.Before(start) {
		return nil, apperr.Validation("schedule end %s precedes start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.mustExist(ctx, tx, taskID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO task_schedules (task_id, start_at, end_at) VALUES (?, ?, ?)`,
			taskID, db.FormatTime(start), db.FormatTime(end))
		if err != nil {
			return fmt.Errorf("tasks: insert schedule: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.Schedule{ID: id, TaskID: taskID, Start: start.UTC(), End: end.UTC()}, nil
}

// Schedules returns the windows of a task ordered by start.
func (s *Service) Schedules(ctx context.Context, taskID int64) ([]models.Schedule, error) {
	if err := s.mustExist(ctx, s.db.Conn(), taskID); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, task_id, start_at, end_at FROM task_schedules WHERE task_id = ? ORDER BY start_at, id`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("tasks: schedules: %w", err)
	}
	defer rows.Close()

	out := []models.Schedule{}
	for rows.Next() {
		var (
			sc         models.Schedule
			start, end string
		)
		if err := rows.Scan(&sc.ID, &sc.TaskID, &start, &end); err != nil {
			return nil, err
		}
		if sc.Start, err = db.ParseTime(start); err != nil {
			return nil, err
		}
		if sc.End, err = db.ParseTime(end); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// DeleteSchedule removes one window.
func (s *Service) DeleteSchedule(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM task_schedules WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("tasks: delete schedule: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("schedule %d not found", id)
		}
		return nil
	})
}

// ClockIn opens a new clock entry at the current time. Several entries of
// the same task may be open at once.
func (s *Service) ClockIn(ctx context.Context, taskID int64) (*models.Clock, error) {
	at := s.now().UTC()
	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.mustExist(ctx, tx, taskID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO task_clocks (task_id, clock_in) VALUES (?, ?)`, taskID, db.FormatTime(at))
		if err != nil {
			return fmt.Errorf("tasks: clock in: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.Clock{ID: id, TaskID: taskID, ClockIn: at}, nil
}

// ClockOut closes an open clock entry at the given time, or now when at is nil.
func (s *Service) ClockOut(ctx context.Context, clockID int64, at *time.Time) (*models.Clock, error) {
	out := s.now().UTC()
	if at != nil {
		out = at.UTC()
	}
	var c *models.Clock
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := getClock(ctx, tx, clockID)
		if err != nil {
			return err
		}
		if !cur.Open() {
			return apperr.Conflict("clock %d is already closed", clockID)
		}
		if !out.After(cur.ClockIn) {
			return apperr.Validation("clock out %s must be after clock in %s",
				out.Format(time.RFC3339Nano), cur.ClockIn.Format(time.RFC3339Nano))
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE task_clocks SET clock_out = ? WHERE id = ? AND clock_out IS NULL`,
			db.FormatTime(out), clockID)
		if err != nil {
			return fmt.Errorf("tasks: clock out: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("clock %d is already closed", clockID)
		}
		cur.ClockOut = &out
		c = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Clocks returns the clock entries of a task, oldest first.
func (s *Service) Clocks(ctx context.Context, taskID int64) ([]models.Clock, error) {
	if err := s.mustExist(ctx, s.db.Conn(), taskID); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, task_id, clock_in, clock_out FROM task_clocks WHERE task_id = ? ORDER BY clock_in, id`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("tasks: clocks: %w", err)
	}
	defer rows.Close()

	out := []models.Clock{}
	for rows.Next() {
		c, err := scanClock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func getClock(ctx context.Context, q db.Querier, id int64) (*models.Clock, error) {
	var (
		c        models.Clock
		in       string
		clockOut sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, task_id, clock_in, clock_out FROM task_clocks WHERE id = ?`, id).
		Scan(&c.ID, &c.TaskID, &in, &clockOut)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("clock %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("tasks: get clock: %w", err)
	}
	return fillClock(&c, in, clockOut)
}

func scanClock(rows *sql.Rows) (*models.Clock, error) {
	var (
		c        models.Clock
		in       string
		clockOut sql.NullString
	)
	if err := rows.Scan(&c.ID, &c.TaskID, &in, &clockOut); err != nil {
		return nil, err
	}
	return fillClock(&c, in, clockOut)
}

func fillClock(c *models.Clock, in string, out sql.NullString) (*models.Clock, error) {
	var err error
	if c.ClockIn, err = db.ParseTime(in); err != nil {
		return nil, err
	}
	if c.ClockOut, err = db.ParseNullTime(out); err != nil {
		return nil, err
	}
	return c, nil
}
