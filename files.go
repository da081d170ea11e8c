package accounts

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"path"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

const migrationsRoot = "data/sql/migrations"

// GetMigrationsFS returns the migration files for this package, one
// directory per dialect (postgres, sqlite)
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// DialectMigrationsFS returns the migrations for a single dialect
func DialectMigrationsFS(dialect string) (fs.FS, error) {
	dir, err := migrationsDir(dialect)
	if err != nil {
		return nil, err
	}
	return fs.Sub(migrationsFS, path.Join(migrationsRoot, dir))
}

// Migrate applies pending migrations for the given dialect ("sqlite" or
// "postgres") and returns the number of migrations applied
func Migrate(ctx context.Context, db *sql.DB, dialect string, logger Logger) (int, error) {
	if logger == nil {
		logger = defLogger{}
	}

	gooseDialect, err := gooseDialectFor(dialect)
	if err != nil {
		return 0, err
	}

	fsys, err := DialectMigrationsFS(dialect)
	if err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(gooseDialect, db, fsys)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create migration provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}

	for _, res := range results {
		logger.Info("migration applied: %s", res)
	}

	return len(results), nil
}

func migrationsDir(dialect string) (string, error) {
	switch dialect {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "pg", "pgx":
		return "postgres", nil
	}
	return "", goerrors.New("unsupported migrations dialect: "+dialect, goerrors.CategoryBadInput)
}

func gooseDialectFor(dialect string) (goose.Dialect, error) {
	dir, err := migrationsDir(dialect)
	if err != nil {
		return "", err
	}
	if dir == "sqlite" {
		return goose.DialectSQLite3, nil
	}
	return goose.DialectPostgres, nil
}
