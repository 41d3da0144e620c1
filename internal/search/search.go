// Package search keeps the full-text index of notes and assets in step with
// their content. Index writes happen inside the caller's transaction, so a
// read following a committed write always sees it.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
)

// Limits bounds the number of hits a query returns.
type Limits struct {
	Default int
	Max     int
}

// Indexer maintains search documents and answers ranked queries.
type Indexer struct {
	db     *db.DB
	limits Limits
}

// NewIndexer creates an Indexer over d.
func NewIndexer(d *db.DB, limits Limits) *Indexer {
	if limits.Default <= 0 {
		limits.Default = 20
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &Indexer{db: d, limits: limits}
}

// Reindex replaces the search document for (kind, id).
func (ix *Indexer) Reindex(ctx context.Context, tx *sql.Tx, kind string, id int64, title, body string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO search_documents (entity_kind, entity_id, title, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_kind, entity_id) DO UPDATE SET
			title = excluded.title,
			body  = excluded.body
	`, kind, id, title, body)
	if err != nil {
		return fmt.Errorf("search: upsert document: %w", err)
	}
	return ftsUpsert(ctx, tx, kind, id, title, body)
}

// Remove drops the search document for (kind, id). Missing documents are ignored.
func (ix *Indexer) Remove(ctx context.Context, tx *sql.Tx, kind string, id int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM search_documents WHERE entity_kind = ? AND entity_id = ?`, kind, id); err != nil {
		return fmt.Errorf("search: delete document: %w", err)
	}
	return ftsDelete(ctx, tx, kind, id)
}

// Query returns documents matching every term of text, best match first.
func (ix *Indexer) Query(ctx context.Context, text string, limit int) ([]models.SearchHit, error) {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return nil, apperr.Validation("search query is empty")
	}
	if limit <= 0 {
		limit = ix.limits.Default
	}
	if limit > ix.limits.Max {
		limit = ix.limits.Max
	}
	hits, err := query(ctx, ix.db.Conn(), terms, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	if hits == nil {
		hits = []models.SearchHit{}
	}
	return hits, nil
}

func scanHits(rows *sql.Rows) ([]models.SearchHit, error) {
	defer rows.Close()
	var out []models.SearchHit
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.Kind, &h.ID, &h.Title, &h.Snippet, &h.Rank); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
