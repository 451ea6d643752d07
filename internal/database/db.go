package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/iliyamo/ordermgmt/internal/config"
)

// Open connects to the configured store and verifies the connection.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err = sql.Open("mysql", MySQLDSN(cfg))
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", SQLiteDSN(cfg.Path))
		if err != nil {
			return nil, err
		}
		// One writer at a time; for ":memory:" this also keeps every
		// query on the same database.
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MySQLDSN builds the go-sql-driver DSN for the request-serving pool.
// parseTime+UTC keep DATETIME columns as UTC time.Time; clientFoundRows
// makes UPDATE report matched rather than changed rows.
func MySQLDSN(cfg config.DBConfig) string {
	return mysqlConfig(cfg).FormatDSN()
}

// MigrationDSN is MySQLDSN with multi-statement support, which the
// migration files need. It is only used by Migrate.
func MigrationDSN(cfg config.DBConfig) string {
	mc := mysqlConfig(cfg)
	mc.MultiStatements = true
	return mc.FormatDSN()
}

func mysqlConfig(cfg config.DBConfig) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc
}

// SQLiteDSN builds a modernc.org/sqlite DSN with foreign keys enforced
// and a time format the driver parses back into time.Time.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}
