// Package migrations holds the schema for both supported databases and
// applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed sqlite/*.sql
var sqliteFS embed.FS

// Postgres migrates the database at dbURI (a postgres:// URI) to the
// latest version.
func Postgres(dbURI string) error {
	src, err := iofs.New(postgresFS, "postgres")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURI)
	if err != nil {
		log.Err(err).Msg("on-new")
		return err
	}
	if err := up(m); err != nil {
		return err
	}
	e1, e2 := m.Close()
	log.Err(e1).Msg("close-source")
	log.Err(e2).Msg("close-database")
	return nil
}

// SQLite migrates an open SQLite database. The handle stays open; it
// belongs to the caller.
func SQLite(db *sql.DB) error {
	src, err := iofs.New(sqliteFS, "sqlite")
	if err != nil {
		return err
	}
	defer src.Close()
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		log.Err(err).Msg("on-new")
		return err
	}
	return up(m)
}

func up(m *migrate.Migrate) error {
	err := m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Debug().Msg("schema-up-to-date")
		return nil
	}
	if err != nil {
		log.Err(err).Msg("on-up")
		return err
	}
	version, _, _ := m.Version()
	log.Info().Uint("version", version).Msg("schema-migrated")
	return nil
}
