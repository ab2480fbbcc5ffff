// Package ruledb implements the tabular rule backend.
//
// Rules live in a single "rules" table reached through database/sql. SQLite
// (modernc.org/sqlite, pure Go) is the default; PostgreSQL is available
// through the pgx stdlib driver. The table is not scope-aware: listings are a
// full fetch and any filtering happens afterwards.
package ruledb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/roobridge/internal/rules"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBFile is the SQLite database file name inside the data directory.
const DBFile = "rules.db"

// ─── Types ───────────────────────────────────────────────────────────────────

// Record is a stored rule with its row metadata.
type Record struct {
	ID int64 `json:"id"`
	rules.Rule
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UpdateParams holds partial update fields for a rule row. Nil fields keep
// their stored values.
type UpdateParams struct {
	Name        *string         `json:"rule_name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Scope       *string         `json:"scope,omitempty"`
	Language    *rules.Language `json:"language,omitempty"`
	Content     map[string]any  `json:"rule_content,omitempty"`
	Categories  *[]string       `json:"categories,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p UpdateParams) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Scope == nil &&
		p.Language == nil && p.Content == nil && p.Categories == nil
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds the connection settings for the rule table.
type Config struct {
	Driver  string
	DSN     string
	DataDir string
}

// DefaultConfig returns a SQLite configuration under ~/.roobridge.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Driver:  DriverSQLite,
		DataDir: filepath.Join(home, ".roobridge"),
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the rule table accessor.
type Store struct {
	db      *sql.DB
	cfg     Config
	dialect string
	hooks   storeHooks
	log     *zap.Logger
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type storeHooks struct {
	exec  func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	query func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error)
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
			return db.ExecContext(ctx, query, args...)
		},
		query: func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error) {
			return db.QueryContext(ctx, query, args...)
		},
	}
}

func (s *Store) execHook(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = s.rebind(query)
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, s.db, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) queryHook(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = s.rebind(query)
	if s.hooks.query != nil {
		return s.hooks.query(ctx, s.db, query, args...)
	}
	return s.db.QueryContext(ctx, query, args...)
}

// New opens the rule table described by cfg and runs migrations.
// For SQLite it creates the data directory and enables WAL mode.
func New(cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
				return nil, fmt.Errorf("ruledb: create data dir: %w", err)
			}
			dsn = filepath.Join(cfg.DataDir, DBFile)
		}
		db, err = openDB("sqlite", dsn)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("ruledb: postgres driver requires a DSN")
		}
		db, err = openDB("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("ruledb: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("ruledb: open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		pragmas := []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA synchronous = NORMAL",
		}
		for _, p := range pragmas {
			if _, err := db.Exec(p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("ruledb: pragma %q: %w", p, err)
			}
		}
	}

	s := &Store{db: db, cfg: cfg, dialect: cfg.Driver, hooks: defaultStoreHooks(), log: log.Named("ruledb")}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ruledb: migration: %w", err)
	}

	s.log.Debug("rule table ready", zap.String("driver", cfg.Driver))
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rules (
			` + idColumn + `,
			rule_name    TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			scope        TEXT NOT NULL,
			language     TEXT NOT NULL DEFAULT '"general"',
			rule_content TEXT NOT NULL,
			categories   TEXT NOT NULL DEFAULT '[]',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_name ON rules(rule_name)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_scope ON rules(scope)`,
	}
	for _, stmt := range stmts {
		if _, err := s.execHook(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ─── Rules ───────────────────────────────────────────────────────────────────

const selectColumns = `SELECT id, rule_name, description, scope, language, rule_content, categories, created_at, updated_at FROM rules`

// Insert validates rule and stores it as a new row, returning its id.
func (s *Store) Insert(ctx context.Context, rule rules.Rule) (int64, error) {
	rule = rule.Normalize().Record()
	if err := rules.Validate(rule); err != nil {
		return 0, err
	}

	lang, content, cats, err := encodeJSONColumns(rule)
	if err != nil {
		return 0, err
	}

	now := Now()
	rows, err := s.queryHook(ctx,
		`INSERT INTO rules (rule_name, description, scope, language, rule_content, categories, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		rule.Name, rule.Description, rule.Scope, lang, content, cats, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting rule %q: %w", rule.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var id int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("inserting rule %q: %w", rule.Name, err)
		}
		return 0, fmt.Errorf("inserting rule %q: no id returned", rule.Name)
	}
	if err := rows.Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting rule %q: %w", rule.Name, err)
	}

	s.log.Info("rule inserted", zap.String("rule", rule.Name), zap.Int64("id", id))
	return id, nil
}

// List returns every row ordered by id.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.queryRecords(ctx, selectColumns+` ORDER BY id`)
}

// Get returns the row with the given id. A missing row yields an error
// wrapping rules.ErrRuleNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	recs, err := s.queryRecords(ctx, selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: id %d", rules.ErrRuleNotFound, id)
	}
	return &recs[0], nil
}

// FindByName returns every row named name, ordered by id.
func (s *Store) FindByName(ctx context.Context, name string) ([]Record, error) {
	return s.queryRecords(ctx, selectColumns+` WHERE rule_name = ? ORDER BY id`, name)
}

// Update partially updates the row with the given id and returns the result.
func (s *Store) Update(ctx context.Context, id int64, p UpdateParams) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := rec.Rule
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Scope != nil {
		next.Scope = *p.Scope
	}
	if p.Language != nil {
		next.Language = *p.Language
	}
	if p.Content != nil {
		next.Content = p.Content
	}
	if p.Categories != nil {
		next.Categories = *p.Categories
	}

	next = next.Normalize()
	if err := rules.Validate(next); err != nil {
		return nil, err
	}

	lang, content, cats, err := encodeJSONColumns(next)
	if err != nil {
		return nil, err
	}

	if _, err := s.execHook(ctx,
		`UPDATE rules
		 SET rule_name = ?,
		     description = ?,
		     scope = ?,
		     language = ?,
		     rule_content = ?,
		     categories = ?,
		     updated_at = ?
		 WHERE id = ?`,
		next.Name, next.Description, next.Scope, lang, content, cats, Now(), id,
	); err != nil {
		return nil, fmt.Errorf("updating rule %d: %w", id, err)
	}

	return s.Get(ctx, id)
}

// DeleteByID removes one row. A missing row yields an error wrapping
// rules.ErrRuleNotFound.
func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.execHook(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: id %d: %v", rules.ErrDeleteFailed, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %d", rules.ErrRuleNotFound, id)
	}
	s.log.Info("rule deleted", zap.Int64("id", id))
	return nil
}

// DeleteByName removes every row named name and reports how many went.
func (s *Store) DeleteByName(ctx context.Context, name string) (int64, error) {
	res, err := s.execHook(ctx, `DELETE FROM rules WHERE rule_name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("%w: rule '%s': %v", rules.ErrDeleteFailed, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting rule '%s': %w", name, err)
	}
	s.log.Info("rules deleted by name", zap.String("rule", name), zap.Int64("rows", n))
	return n, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.queryHook(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []Record
	for rows.Next() {
		var (
			rec                 Record
			lang, content, cats string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Description, &rec.Scope,
			&lang, &content, &cats, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := decodeJSONColumns(&rec.Rule, lang, content, cats); err != nil {
			s.log.Warn("skipping malformed rule row", zap.Int64("id", rec.ID), zap.Error(err))
			continue
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func encodeJSONColumns(r rules.Rule) (lang, content, cats string, err error) {
	l, err := json.Marshal(r.Language)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding language: %w", err)
	}
	c, err := json.Marshal(r.Content)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding rule_content: %w", err)
	}
	categories := r.Categories
	if categories == nil {
		categories = []string{}
	}
	k, err := json.Marshal(categories)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding categories: %w", err)
	}
	return string(l), string(c), string(k), nil
}

func decodeJSONColumns(r *rules.Rule, lang, content, cats string) error {
	if err := json.Unmarshal([]byte(lang), &r.Language); err != nil {
		return fmt.Errorf("%w: language: %v", rules.ErrMalformedRecord, err)
	}
	if err := json.Unmarshal([]byte(content), &r.Content); err != nil {
		return fmt.Errorf("%w: rule_content: %v", rules.ErrMalformedRecord, err)
	}
	if err := json.Unmarshal([]byte(cats), &r.Categories); err != nil {
		return fmt.Errorf("%w: categories: %v", rules.ErrMalformedRecord, err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Now returns the current time formatted for the timestamp columns.
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
