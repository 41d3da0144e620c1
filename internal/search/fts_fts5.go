//go:build sqlite_fts5

package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
)

func ftsUpsert(ctx context.Context, tx *sql.Tx, kind string, id int64, title, body string) error {
	if err := ftsDelete(ctx, tx, kind, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO search_fts (entity_kind, entity_id, title, body) VALUES (?, ?, ?, ?)`,
		kind, id, title, body)
	if err != nil {
		return fmt.Errorf("search: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, kind string, id int64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM search_fts WHERE entity_kind = ? AND entity_id = ?`, kind, id)
	if err != nil {
		return fmt.Errorf("search: delete fts: %w", err)
	}
	return nil
}

func query(ctx context.Context, q db.Querier, terms []string, limit int) ([]models.SearchHit, error) {
	match := sanitizeFTS(terms)
	if match == "" {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT entity_kind,
		       entity_id,
		       title,
		       snippet(search_fts, 3, '<b>', '</b>', '...', 16),
		       rank
		FROM search_fts
		WHERE search_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, err
	}
	return scanHits(rows)
}

// sanitizeFTS quotes every term so user input is never parsed as FTS5
// query syntax. Quoted terms still go through the porter tokenizer.
func sanitizeFTS(terms []string) string {
	out := make([]string, 0, len(terms))
	for _, w := range terms {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		out = append(out, `"`+w+`"`)
	}
	return strings.Join(out, " ")
}
