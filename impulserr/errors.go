// Package impulserr declares the typed error values shared across the
// pipeline, resource cache and tasks, grounded on the distinction the
// original implementation drew between "nothing changed, stop early"
// and "the data itself is broken".
package impulserr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInputNotModified is returned (directly or wrapped, for errors.Is) by
// the resource cache, Pipeline.Run and the multi-file pipeline to signal
// that the run can be skipped because none of its resources changed
// since the last run.
var ErrInputNotModified = errors.New("impuls: input not modified")

// ErrResourceNotCached names the "no cached copy" condition. The resource
// cache does not return it: a resource missing from the cache under
// FromCache is reported as a DataError inside a MultipleDataErrors, for
// which errors.Is with this value is false.
var ErrResourceNotCached = errors.New("impuls: resource not cached")

// ErrEmptyQueryResult is returned by db.RetrieveMust, Cursor.OneMust and
// the update helpers when the query matched no rows.
var ErrEmptyQueryResult = errors.New("impuls: query returned no rows")

// DataError reports a single defect found in the input data: a broken
// foreign key, a value outside its valid set, a malformed field. Unlike
// a plain error it records which entity and table produced it, so tasks
// can aggregate many before giving up.
type DataError struct {
	Table   string
	RowID   string
	Message string
}

func (e *DataError) Error() string {
	if e.RowID != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Table, e.RowID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// NewDataError builds a DataError for a specific table and row.
func NewDataError(table, rowID, format string, args ...interface{}) *DataError {
	return &DataError{Table: table, RowID: rowID, Message: fmt.Sprintf(format, args...)}
}

// MultipleDataErrors aggregates DataErrors caught while scanning a whole
// table, so a single bad row doesn't stop the rest from being reported.
type MultipleDataErrors struct {
	Errors []*DataError
}

func (e *MultipleDataErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d data errors, first: %s", len(e.Errors), e.Errors[0].Error())
}

// Add appends a DataError to the aggregate.
func (e *MultipleDataErrors) Add(err *DataError) {
	e.Errors = append(e.Errors, err)
}

// HasAny reports whether any errors were collected.
func (e *MultipleDataErrors) HasAny() bool {
	return len(e.Errors) > 0
}

// OrNil returns e if it holds any errors, otherwise nil — for returning
// from a function whose signature wants a plain error.
func (e *MultipleDataErrors) OrNil() error {
	if e.HasAny() {
		return e
	}
	return nil
}

// CatchAll runs f and, if it returns a *DataError, appends it to e and
// swallows it so the caller can continue processing the next row; any
// other error (or nil) is returned unchanged so callers can still bail
// out on I/O failures.
func (e *MultipleDataErrors) CatchAll(f func() error) error {
	err := f()
	if err == nil {
		return nil
	}
	var dataErr *DataError
	if errors.As(err, &dataErr) {
		e.Add(dataErr)
		return nil
	}
	return err
}
