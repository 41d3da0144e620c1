// Package history keeps the append-only log of note content pre-images.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
)

// Policy bounds how much history is kept per note. Zero values mean unbounded.
type Policy struct {
	MaxPerNote int
	MaxAge     time.Duration
}

// Tracker records and reads modification records.
type Tracker struct {
	db     *db.DB
	policy Policy
	now    func() time.Time
}

// NewTracker creates a Tracker applying policy on every record.
func NewTracker(d *db.DB, policy Policy) *Tracker {
	return &Tracker{db: d, policy: policy, now: time.Now}
}

// Record appends the pre-image of a note's content. It must be called inside
// the transaction that overwrites the content.
func (t *Tracker) Record(ctx context.Context, tx *sql.Tx, noteID int64, previous string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO note_modifications (note_id, previous_content, modified_at) VALUES (?, ?, ?)`,
		noteID, previous, db.FormatTime(at))
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	_, err = t.compact(ctx, tx, noteID)
	return err
}

// History returns the records of a note, most recent first.
func (t *Tracker) History(ctx context.Context, noteID int64) ([]models.Modification, error) {
	ok, err := db.Exists(ctx, t.db.Conn(), "notes", noteID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("note %d not found", noteID)
	}
	rows, err := t.db.Conn().QueryContext(ctx, `
		SELECT id, note_id, previous_content, modified_at
		FROM note_modifications
		WHERE note_id = ?
		ORDER BY modified_at DESC, id DESC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []models.Modification{}
	for rows.Next() {
		var (
			m  models.Modification
			at string
		)
		if err := rows.Scan(&m.ID, &m.NoteID, &m.PreviousContent, &at); err != nil {
			return nil, err
		}
		if m.ModifiedAt, err = db.ParseTime(at); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteForNote removes every record of a note.
func (t *Tracker) DeleteForNote(ctx context.Context, tx *sql.Tx, noteID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_modifications WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("history: delete for note: %w", err)
	}
	return nil
}

// CompactAll applies the retention policy to every note and returns the
// number of records removed.
func (t *Tracker) CompactAll(ctx context.Context) (int64, error) {
	if t.policy == (Policy{}) {
		return 0, nil
	}
	var removed int64
	err := t.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := t.compact(ctx, tx, 0)
		removed = n
		return err
	})
	return removed, err
}

// compact applies the policy to one note, or to all notes when noteID is 0.
func (t *Tracker) compact(ctx context.Context, tx *sql.Tx, noteID int64) (int64, error) {
	var removed int64
	if t.policy.MaxAge > 0 {
		cutoff := db.FormatTime(t.now().Add(-t.policy.MaxAge))
		res, err := tx.ExecContext(ctx, `
			DELETE FROM note_modifications
			WHERE modified_at < ? AND (? = 0 OR note_id = ?)
		`, cutoff, noteID, noteID)
		if err != nil {
			return removed, fmt.Errorf("history: compact by age: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	if t.policy.MaxPerNote > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM note_modifications
			WHERE id IN (
				SELECT id FROM (
					SELECT id,
					       ROW_NUMBER() OVER (PARTITION BY note_id ORDER BY modified_at DESC, id DESC) AS rn
					FROM note_modifications
					WHERE (? = 0 OR note_id = ?)
				)
				WHERE rn > ?
			)
		`, noteID, noteID, t.policy.MaxPerNote)
		if err != nil {
			return removed, fmt.Errorf("history: compact by count: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}
