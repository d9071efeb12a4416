package db

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

// Connect opens the store for driver and verifies it is reachable.
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("connect db: unsupported driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if driver == DriverSQLite {
		// one writer, and a shared handle for in-memory databases
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// Migrate applies the embedded migrations for the connection's dialect.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect := db.DriverName()
	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations/"+dialect); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// gooseLogger sends goose output to zerolog.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	log.Info().Str("component", "goose").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatal().Str("component", "goose").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// sqliteDSN turns on foreign keys so cascades fire.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}
