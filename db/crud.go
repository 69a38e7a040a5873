package db

import (
	"context"
	"database/sql"
	"fmt"

	"impuls.dev/impuls/impulserr"
	"impuls.dev/impuls/model"
)

// scanner is anything that can be scanned from a *sql.Row or one iteration
// of *sql.Rows into a []model.SQLValue slice.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(s scanner, n int) ([]model.SQLValue, error) {
	cells := make([]interface{}, n)
	values := make([]model.SQLValue, n)
	for i := range cells {
		cells[i] = &values[i]
	}
	if err := s.Scan(cells...); err != nil {
		return nil, err
	}
	return values, nil
}

// Retrieve fetches the single entity matching where/args, decoding it
// with fromRow. The bool result reports whether a row matched; a miss is
// not an error. Callers that consider a miss exceptional should use
// RetrieveMust instead.
func Retrieve[T model.Entity](
	ctx context.Context, d *Database, fromRow func([]model.SQLValue) (T, error),
	table, columns, where string, args ...interface{},
) (T, bool, error) {
	var zero T
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", columns, table, where)
	row := d.conn.QueryRowContext(ctx, query, args...)
	values, err := scanRow(row, countColumns(columns))
	if err == sql.ErrNoRows {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("db: retrieving from %s: %w", table, err)
	}
	entity, err := fromRow(values)
	if err != nil {
		return zero, false, err
	}
	return entity, true, nil
}

// RetrieveMust fetches the single entity matching where/args, decoding
// it with fromRow, and returns impulserr.ErrEmptyQueryResult if no row
// matched.
func RetrieveMust[T model.Entity](
	ctx context.Context, d *Database, fromRow func([]model.SQLValue) (T, error),
	table, columns, where string, args ...interface{},
) (T, error) {
	entity, found, err := Retrieve(ctx, d, fromRow, table, columns, where, args...)
	if err != nil {
		return entity, err
	}
	if !found {
		return entity, impulserr.ErrEmptyQueryResult
	}
	return entity, nil
}

// Cursor wraps a *sql.Rows query result, decoding rows with fromRow on
// demand instead of materializing the whole result set up front.
type Cursor[T model.Entity] struct {
	rows    *sql.Rows
	fromRow func([]model.SQLValue) (T, error)
	n       int
	done    bool
}

// One decodes and returns the next row. The bool result reports whether
// a row was available; false with a nil error means the cursor is
// exhausted.
func (c *Cursor[T]) One() (T, bool, error) {
	var zero T
	if c.done {
		return zero, false, nil
	}
	if !c.rows.Next() {
		c.done = true
		return zero, false, c.Close()
	}
	values, err := scanRow(c.rows, c.n)
	if err != nil {
		c.Close()
		return zero, false, fmt.Errorf("db: scanning row: %w", err)
	}
	entity, err := c.fromRow(values)
	if err != nil {
		c.Close()
		return zero, false, fmt.Errorf("db: decoding row: %w", err)
	}
	return entity, true, nil
}

// OneMust decodes and returns the next row, returning
// impulserr.ErrEmptyQueryResult if the cursor is already exhausted.
func (c *Cursor[T]) OneMust() (T, error) {
	entity, found, err := c.One()
	if err != nil {
		return entity, err
	}
	if !found {
		return entity, impulserr.ErrEmptyQueryResult
	}
	return entity, nil
}

// Many decodes and returns up to n remaining rows. A short read (fewer
// than n rows returned with a nil error) means the cursor is exhausted.
func (c *Cursor[T]) Many(n int) ([]T, error) {
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		entity, found, err := c.One()
		if err != nil {
			return out, err
		}
		if !found {
			break
		}
		out = append(out, entity)
	}
	return out, nil
}

// All decodes and returns every remaining row, then closes the cursor.
func (c *Cursor[T]) All() ([]T, error) {
	var out []T
	for {
		entity, found, err := c.One()
		if err != nil {
			return out, err
		}
		if !found {
			return out, nil
		}
		out = append(out, entity)
	}
}

// Close releases the underlying *sql.Rows. Safe to call after the
// cursor has already been exhausted.
func (c *Cursor[T]) Close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	return err
}

// RetrieveAll opens a Cursor over every entity in table matching
// where/args (where may be "1" for no filter), decoding each with
// fromRow on demand.
func RetrieveAll[T model.Entity](
	ctx context.Context, d *Database, fromRow func([]model.SQLValue) (T, error),
	table, columns, where string, args ...interface{},
) (*Cursor[T], error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", columns, table, where)
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: querying %s: %w", table, err)
	}
	return &Cursor[T]{rows: rows, fromRow: fromRow, n: countColumns(columns)}, nil
}

func countColumns(columns string) int {
	n := 1
	depth := 0
	for _, r := range columns {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth <= 1 {
				n++
			}
		}
	}
	return n
}

// CreateEntity inserts a single entity.
func CreateEntity(ctx context.Context, d *Database, e model.Entity) error {
	query := fmt.Sprintf("INSERT INTO %s %s VALUES %s", e.SQLTableName(), e.SQLColumns(), e.SQLPlaceholder())
	_, err := d.conn.ExecContext(ctx, query, e.SQLMarshall()...)
	if err != nil {
		return fmt.Errorf("db: inserting into %s: %w", e.SQLTableName(), err)
	}
	return nil
}

// CreateMany inserts many entities of the same type inside a single
// transaction, reusing one prepared statement.
func CreateMany[T model.Entity](ctx context.Context, d *Database, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	table := entities[0].SQLTableName()
	query := fmt.Sprintf("INSERT INTO %s %s VALUES %s", table, entities[0].SQLColumns(), entities[0].SQLPlaceholder())
	return d.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("db: preparing insert into %s: %w", table, err)
		}
		defer stmt.Close()
		for _, e := range entities {
			if _, err := stmt.ExecContext(ctx, e.SQLMarshall()...); err != nil {
				return fmt.Errorf("db: inserting into %s: %w", table, err)
			}
		}
		return nil
	})
}

// UpdateEntity overwrites the row identified by e's primary key with e's
// current field values.
func UpdateEntity(ctx context.Context, d *Database, e model.Entity) error {
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", e.SQLTableName(), e.SQLSetClause(), e.SQLWhereClause())
	args := append(e.SQLMarshall(), e.SQLPrimaryKey()...)
	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db: updating %s: %w", e.SQLTableName(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return impulserr.ErrEmptyQueryResult
	}
	return nil
}

// UpdateMany overwrites many entities of the same type inside a single
// transaction, reusing one prepared statement. Unlike CreateMany, a
// missing row for any entity aborts and rolls back the whole batch.
func UpdateMany[T model.Entity](ctx context.Context, d *Database, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	table := entities[0].SQLTableName()
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, entities[0].SQLSetClause(), entities[0].SQLWhereClause())
	return d.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("db: preparing update of %s: %w", table, err)
		}
		defer stmt.Close()
		for _, e := range entities {
			args := append(e.SQLMarshall(), e.SQLPrimaryKey()...)
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("db: updating %s: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return impulserr.ErrEmptyQueryResult
			}
		}
		return nil
	})
}

// DeleteWhere removes every row of table matching where/args.
func DeleteWhere(ctx context.Context, d *Database, table, where string, args ...interface{}) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db: deleting from %s: %w", table, err)
	}
	return res.RowsAffected()
}

// Count returns the number of rows in table matching where/args.
func Count(ctx context.Context, d *Database, table, where string, args ...interface{}) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)
	var n int64
	err := d.conn.QueryRowContext(ctx, query, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db: counting %s: %w", table, err)
	}
	return n, nil
}
