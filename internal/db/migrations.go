package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ticket-arcade/raffle-indexer/internal/logger"

	migrate "github.com/rubenv/sql-migrate"
)

const upDownSeparator = "-- +migrate Up"

// Migration is one embedded schema migration. The SQL contains both
// directions separated by the sql-migrate Up marker.
type Migration struct {
	ID  string
	SQL string
}

// RunMigrations applies all pending migrations, in order, to the database
// behind dsn.
func RunMigrations(dsn string, migrations []Migration) error {
	database, err := NewSQLiteDB(dsn)
	if err != nil {
		return fmt.Errorf("error creating DB: %w", err)
	}
	defer database.Close()

	return RunMigrationsDB(logger.GetDefaultLogger(), database, migrations)
}

// RunMigrationsDB applies all pending migrations to an open database.
func RunMigrationsDB(log *logger.Logger, database *sql.DB, migrations []Migration) error {
	source := &migrate.MemoryMigrationSource{Migrations: []*migrate.Migration{}}

	for _, m := range migrations {
		parts := strings.Split(m.SQL, upDownSeparator)
		if len(parts) < 2 {
			return fmt.Errorf("migration %s missing %q separator", m.ID, upDownSeparator)
		}

		downSQL := parts[0]
		if idx := strings.Index(downSQL, "-- +migrate Down"); idx != -1 {
			downSQL = downSQL[idx+len("-- +migrate Down"):]
		}

		source.Migrations = append(source.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(parts[1])},
			Down: []string{strings.TrimSpace(downSQL)},
		})
	}

	applied, err := migrate.Exec(database, "sqlite3", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	log.Infof("applied %d migration(s)", applied)
	return nil
}
