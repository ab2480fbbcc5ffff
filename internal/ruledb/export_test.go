package ruledb

import (
	"context"
	"database/sql"
)

// DB exposes the internal *sql.DB for test helpers in ruledb_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailExec makes every subsequent exec return err.
func (s *Store) FailExec(err error) {
	s.hooks.exec = func(context.Context, execer, string, ...any) (sql.Result, error) {
		return nil, err
	}
}

// Rebind exposes placeholder rewriting for a given dialect.
func Rebind(dialect, query string) string {
	return (&Store{dialect: dialect}).rebind(query)
}

// SetOpenDB swaps the driver opener and returns a restore func.
func SetOpenDB(fn func(driver, dsn string) (*sql.DB, error)) func() {
	prev := openDB
	openDB = fn
	return func() { openDB = prev }
}
