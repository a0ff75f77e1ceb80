package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/ticket-arcade/raffle-indexer/internal/db"
	"github.com/ticket-arcade/raffle-indexer/internal/logger"
)

//go:embed 001_initial.sql
var mig0001 string

func all() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_initial.sql",
			SQL: mig0001,
		},
	}
}

// RunMigrations applies the projection schema to the database behind dsn.
func RunMigrations(dsn string) error {
	return db.RunMigrations(dsn, all())
}

// RunMigrationsDB applies the projection schema to an open database.
// Used by tests that keep a single in-process connection.
func RunMigrationsDB(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, all())
}
