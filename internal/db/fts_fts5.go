//go:build sqlite_fts5

package db

import "database/sql"

// HasFTS5 reports whether the binary was built with the sqlite_fts5 tag.
const HasFTS5 = true

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS search_fts USING fts5(
			entity_kind UNINDEXED,
			entity_id UNINDEXED,
			title,
			body,
			tokenize = 'porter unicode61 remove_diacritics 2'
		);
	`)
	return err
}
