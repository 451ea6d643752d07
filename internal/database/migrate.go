package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql" // registers the mysql:// scheme
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/iliyamo/ordermgmt/internal/config"
	"github.com/iliyamo/ordermgmt/internal/database/migrations"
)

// Direction selects which way Migrate moves the schema.
type Direction int

const (
	Up Direction = iota
	Down
)

// Migrate applies the embedded migrations for cfg.Driver. For SQLite
// the migrations run on db itself so that in-memory databases see
// them; MySQL gets a dedicated connection that is closed afterwards.
func Migrate(db *sql.DB, cfg config.DBConfig, dir Direction) error {
	src, err := iofs.New(migrations.FS, cfg.Driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var m *migrate.Migrate
	switch cfg.Driver {
	case config.DriverMySQL:
		m, err = migrate.NewWithSourceInstance("iofs", src, "mysql://"+MigrationDSN(cfg))
		if err != nil {
			return fmt.Errorf("init migrate: %w", err)
		}
		defer m.Close()
	case config.DriverSQLite:
		drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("init migrate driver: %w", err)
		}
		// Not closed: closing the driver would close db.
		m, err = migrate.NewWithInstance("iofs", src, config.DriverSQLite, drv)
		if err != nil {
			return fmt.Errorf("init migrate: %w", err)
		}
	default:
		return fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	if dir == Down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
