//go:build !sqlite_fts5

package db

import "database/sql"

// HasFTS5 reports whether the binary was built with the sqlite_fts5 tag.
const HasFTS5 = false

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search runs LIKE queries over search_documents.
	return nil
}
