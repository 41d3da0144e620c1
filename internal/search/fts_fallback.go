//go:build !sqlite_fts5

package search

import (
	"context"
	"database/sql"
	"strings"

	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
)

func ftsUpsert(_ context.Context, _ *sql.Tx, _ string, _ int64, _, _ string) error {
	// search_documents already holds title and body; nothing extra to do.
	return nil
}

func ftsDelete(_ context.Context, _ *sql.Tx, _ string, _ int64) error { return nil }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// query is the LIKE fallback used when FTS5 is not compiled in. Every term
// must appear in the title or body; documents whose title holds the first
// term rank ahead of the rest.
func query(ctx context.Context, q db.Querier, terms []string, limit int) ([]models.SearchHit, error) {
	var (
		where []string
		args  []any
	)
	first := "%" + likeEscaper.Replace(terms[0]) + "%"
	args = append(args, first)
	for _, term := range terms {
		like := "%" + likeEscaper.Replace(term) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, `
		SELECT entity_kind,
		       entity_id,
		       title,
		       substr(body, 1, 200),
		       CASE WHEN title LIKE ? ESCAPE '\' THEN -2.0 ELSE -1.0 END AS score
		FROM search_documents
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY score, entity_kind, entity_id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	return scanHits(rows)
}
