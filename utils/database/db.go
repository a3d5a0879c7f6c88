package database

import (
	"context"
	_ "embed"
	"os"
	"strings"

	"starboard-bot/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// sqliteParams are appended to every sqlite DSN. Foreign keys drive the
// cascade cleanup and immediate transactions avoid upgrade deadlocks.
var sqliteParams = []string{
	"_foreign_keys=on",
	"_busy_timeout=5000",
	"_journal_mode=WAL",
	"_txlock=immediate",
}

// Open connects to the configured store. It does not run migrations.
func Open(cfg model.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case "", DriverSQLite, "sqlite":
		db, err = sqlx.Connect(DriverSQLite, sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, errors.Wrap(err, "failed to open sqlite database")
		}
	case DriverPostgres, "postgres":
		db, err = openPostgres(cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file:starboard.db"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(sqliteParams, "&")
}

func openPostgres(cfg model.DatabaseConfig) (*sqlx.DB, error) {
	connConfig, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse postgres dsn")
	}
	if cfg.PasswordFile != "" {
		raw, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read database password file")
		}
		connConfig.Password = strings.TrimSpace(string(raw))
	}

	db := sqlx.NewDb(stdlib.OpenDB(*connConfig), DriverPostgres)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}
	return db, nil
}

// Migrate creates every table the starboard needs. It is safe to run on
// every startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
