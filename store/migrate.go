// Package store holds what the account store implementations share.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	auth "github.com/goliatone/go-auth-dashboard"
)

// goose keeps its base FS and dialect in package state
var gooseMu sync.Mutex

// Dialects understood by Migrate
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Migrate applies the embedded migrations for dialect to db
func Migrate(ctx context.Context, db *sql.DB, dialect string, logger auth.Logger) error {
	var gooseDialect string
	switch dialect {
	case DialectSQLite:
		gooseDialect = "sqlite3"
	case DialectPostgres:
		gooseDialect = "pgx"
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	fsys, err := auth.DialectMigrations(dialect)
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", dialect, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if logger != nil {
		goose.SetLogger(gooseLogger{logger: logger})
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply %s migrations: %w", dialect, err)
	}

	return nil
}

type gooseLogger struct {
	logger auth.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
