// Package db wraps a SQLite connection holding one feed's worth of
// entities, generalizing the per-feed CRUD pattern the teacher storage
// backend used for its own small, fixed entity set into a generic layer
// that works over the whole model package.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-sqlite3"

	"impuls.dev/impuls/model"
)

func init() {
	sql.Register("impuls-sqlite3", &sqlite3.SQLiteDriver{
		ConnectHook: registerScalarFunctions,
	})
}

// Database wraps a single SQLite connection holding the entities of one
// GTFS feed plus Impuls bookkeeping tables.
type Database struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) a Database backed by the SQLite
// file at path. Passing ":memory:" opens a private in-memory database.
func Open(path string) (*Database, error) {
	conn, err := sql.Open("impuls-sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("db: opening %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	d := &Database{conn: conn, path: path}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON; PRAGMA locking_mode = EXCLUSIVE;`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: setting pragmas: %w", err)
	}
	if err := d.createSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// OpenMemory opens a fresh private in-memory Database.
func OpenMemory() (*Database, error) {
	return Open(":memory:")
}

func (d *Database) createSchema() error {
	for _, stmt := range model.CreateTableStatements() {
		if _, err := d.conn.Exec(stmt); err != nil {
			return fmt.Errorf("db: creating schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection.
func (d *Database) Close() error {
	return d.conn.Close()
}

// Path returns the filesystem path (or ":memory:") this Database was
// opened with.
func (d *Database) Path() string { return d.path }

// Exec runs a statement with no expected result rows.
func (d *Database) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return d.conn.ExecContext(ctx, query, args...)
}

// Query runs a statement and returns its rows for manual scanning, used
// by tasks (like Merge) that need raw SQL beyond the typed CRUD helpers.
func (d *Database) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return d.conn.QueryContext(ctx, query, args...)
}

// Transaction runs f inside a SQLite transaction, committing if f
// returns nil and rolling back otherwise.
func (d *Database) Transaction(ctx context.Context, f func(*sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: beginning transaction: %w", err)
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Released runs f after temporarily closing the underlying *sql.DB
// connection and reopening it afterwards, so an external process (e.g.
// a backup tool) may safely hold the file lock while f runs. Mirrors
// the close/reopen pattern the teacher storage backend uses around
// feed swaps.
func (d *Database) Released(f func() error) error {
	if err := d.conn.Close(); err != nil {
		return fmt.Errorf("db: releasing connection: %w", err)
	}
	ferr := f()
	conn, err := sql.Open("impuls-sqlite3", d.path)
	if err != nil {
		return fmt.Errorf("db: reopening connection: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON; PRAGMA locking_mode = EXCLUSIVE;`); err != nil {
		conn.Close()
		return fmt.Errorf("db: setting pragmas: %w", err)
	}
	d.conn = conn
	return ferr
}

// AttachPath attaches another SQLite database file under the given
// schema alias, for cross-database statements like Merge's ATTACH-based
// comparisons.
func (d *Database) AttachPath(ctx context.Context, path, alias string) error {
	_, err := d.conn.Exec(fmt.Sprintf("ATTACH DATABASE %s AS %s", quoteLiteral(path), alias))
	if err != nil {
		return fmt.Errorf("db: attaching %s as %s: %w", path, alias, err)
	}
	_ = ctx
	return nil
}

// Detach detaches a previously attached schema alias.
func (d *Database) Detach(alias string) error {
	_, err := d.conn.Exec(fmt.Sprintf("DETACH DATABASE %s", alias))
	return err
}

// Cloned copies the SQLite file at from to a fresh temporary file and
// returns its path, for callers (like Merge) that need to mutate a copy
// of a cached database without disturbing the original. The caller owns
// the returned file and must remove it once done.
func Cloned(from string) (string, error) {
	src, err := os.Open(from)
	if err != nil {
		return "", fmt.Errorf("db: opening %s to clone: %w", from, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "impuls-clone-*.db")
	if err != nil {
		return "", fmt.Errorf("db: creating clone of %s: %w", from, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("db: copying %s: %w", from, err)
	}
	return dst.Name(), nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// registerScalarFunctions exposes the scalar SQL functions Impuls
// queries rely on: unicode-aware case mapping, case folding and length (SQLite's
// built-in LOWER/UPPER/LENGTH are ASCII-only) and a regexp substitution
// helper used by data-cleaning tasks.
func registerScalarFunctions(conn *sqlite3.SQLiteConn) error {
	if err := conn.RegisterFunc("unicode_lower", strings.ToLower, true); err != nil {
		return err
	}
	if err := conn.RegisterFunc("unicode_upper", strings.ToUpper, true); err != nil {
		return err
	}
	if err := conn.RegisterFunc("unicode_title", strings.Title, true); err != nil { //nolint:staticcheck
		return err
	}
	if err := conn.RegisterFunc("unicode_length", func(s string) int64 {
		return int64(len([]rune(s)))
	}, true); err != nil {
		return err
	}
	if err := conn.RegisterFunc("unicode_casefold", unicodeCasefold, true); err != nil {
		return err
	}
	return conn.RegisterFunc("re_sub", reSub, true)
}

func unicodeCasefold(s string) string {
	return strings.Map(unicode.ToLower, s)
}

func reSub(pattern, repl, s string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(s, repl), nil
}
