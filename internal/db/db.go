package db

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB opens the projection database. The DSN may be a bare file path
// or a full file: URI; bare paths get the connection options the indexer
// relies on (WAL, foreign keys, immediate transactions).
func NewSQLiteDB(dsn string) (*sql.DB, error) {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?_txlock=immediate&_foreign_keys=on&_journal_mode=WAL&_busy_timeout=30000"
	}
	return sql.Open("sqlite3", dsn)
}
