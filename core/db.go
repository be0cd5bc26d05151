package core

import (
	"context"
	"database/sql"
)

type (
	// DBExecutor is satisfied by *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	}

	DB interface {
		DBExecutor

		PingContext(ctx context.Context) error
		Close() error
	}
)
