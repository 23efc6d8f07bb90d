// Package sqlstore keeps statements in a single SQL table. SQLite and
// Postgres are supported through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"ontomap/internal/axiom"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const defaultPostgresDSN = "postgres://localhost/ontomap?sslmode=disable"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const schema = `CREATE TABLE IF NOT EXISTS statements (
	graph     TEXT NOT NULL,
	subject   TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object    TEXT NOT NULL,
	datatype  TEXT NOT NULL DEFAULT '',
	lang      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (graph, subject, predicate, object, datatype, lang)
)`

// Store is a statement table accessed through database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (or creates) a SQLite database at path. ":memory:" keeps
// the database in memory for the lifetime of the store.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "ontomap.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	return open(ctx, SQLite, "sqlite", path)
}

// OpenPostgres connects to Postgres using the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	return open(ctx, Postgres, "pgx", dsn)
}

func open(ctx context.Context, dialect Dialect, driver, dsn string) (*Store, error) {
	openMu.Lock()
	db, err := sqlOpen(driver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create statements table: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// FindStatements returns statements of subject whose predicate the assertion matches.
func (s *Store) FindStatements(ctx context.Context, subject axiom.NamedResource, assertion axiom.Assertion, graph string) ([]axiom.Axiom, error) {
	query := `SELECT predicate, object, datatype, lang FROM statements WHERE graph = ? AND subject = ?`
	args := []any{graph, string(subject)}
	if !assertion.MatchesAll() {
		query += ` AND predicate = ?`
		args = append(args, string(assertion.IRI))
	}
	query += ` ORDER BY predicate, object`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select statements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []axiom.Axiom
	for rows.Next() {
		var predicate, object, datatype, lang string
		if err := rows.Scan(&predicate, &object, &datatype, &lang); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		value, err := decodeValue(object, datatype, lang)
		if err != nil {
			return nil, err
		}
		result = append(result, axiom.New(subject, assertion.ForPredicate(axiom.NamedResource(predicate)), value))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return result, nil
}

// AddStatements inserts axioms in one transaction. Existing statements are kept.
func (s *Store) AddStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error {
	return s.inTx(ctx, `INSERT INTO statements (graph, subject, predicate, object, datatype, lang)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`, axioms, graph)
}

// RemoveStatements deletes axioms in one transaction.
func (s *Store) RemoveStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error {
	return s.inTx(ctx, `DELETE FROM statements
		WHERE graph = ? AND subject = ? AND predicate = ? AND object = ? AND datatype = ? AND lang = ?`, axioms, graph)
}

// ContainsStatement reports whether the exact statement is stored in graph.
func (s *Store) ContainsStatement(ctx context.Context, ax axiom.Axiom, graph string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM statements
		WHERE graph = ? AND subject = ? AND predicate = ? AND object = ? AND datatype = ? AND lang = ? LIMIT 1`,
		statementArgs(ax, graph)...)
}

// ContainsSubject reports whether any statement about subject exists in graph.
func (s *Store) ContainsSubject(ctx context.Context, subject axiom.NamedResource, graph string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM statements WHERE graph = ? AND subject = ? LIMIT 1`, graph, string(subject))
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query statement: %w", err)
	}
	return true, nil
}

func (s *Store) inTx(ctx context.Context, stmt string, axioms []axiom.Axiom, graph string) (retErr error) {
	if len(axioms) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	prepared, err := tx.PrepareContext(ctx, s.rebind(stmt))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = prepared.Close() }()
	for _, ax := range axioms {
		if _, err := prepared.ExecContext(ctx, statementArgs(ax, graph)...); err != nil {
			return fmt.Errorf("exec %s: %w", ax, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func statementArgs(ax axiom.Axiom, graph string) []any {
	return []any{graph, string(ax.Subject), string(ax.Assertion.IRI), ax.Value.Lexical(), ax.Value.Datatype(), ax.Value.Language}
}

func decodeValue(object, datatype, lang string) (axiom.Value, error) {
	if datatype == "" {
		return axiom.ResourceValue(axiom.NamedResource(object)), nil
	}
	return axiom.ParseLiteral(object, datatype, lang)
}
