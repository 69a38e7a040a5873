package model

import "fmt"

// ExceptionType enumerates GTFS calendar_dates.txt's exception_type values.
type ExceptionType int

const (
	ExceptionAdded   ExceptionType = 1
	ExceptionRemoved ExceptionType = 2
)

func validExceptionType(v int) bool {
	return ExceptionType(v) == ExceptionAdded || ExceptionType(v) == ExceptionRemoved
}

// CalendarException is a single addition or removal of service on a
// specific date, relative to a Calendar's regular pattern. Equivalent to
// one row of GTFS's calendar_dates.txt.
type CalendarException struct {
	CalendarID string
	Date       Date
	Type       ExceptionType
}

func (CalendarException) SQLTableName() string { return "calendar_exceptions" }

func (CalendarException) SQLCreateTable() string {
	return `CREATE TABLE calendar_exceptions (
		calendar_id TEXT NOT NULL REFERENCES calendars(calendar_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		date TEXT NOT NULL,
		exception_type INTEGER NOT NULL CHECK (exception_type IN (1, 2)),
		PRIMARY KEY (calendar_id, date)
	) STRICT;
	CREATE INDEX idx_calendar_exceptions_date ON calendar_exceptions(date);`
}

func (CalendarException) SQLColumns() string { return "(calendar_id, date, exception_type)" }

func (CalendarException) SQLPlaceholder() string { return "(?, ?, ?)" }

func (CalendarException) SQLWhereClause() string { return "calendar_id = ? AND date = ?" }

func (CalendarException) SQLSetClause() string {
	return "calendar_id = ?, date = ?, exception_type = ?"
}

func (e CalendarException) SQLMarshall() []SQLValue {
	return []SQLValue{e.CalendarID, e.Date.String(), int64(e.Type)}
}

func (e CalendarException) SQLPrimaryKey() []SQLValue {
	return []SQLValue{e.CalendarID, e.Date.String()}
}

// CalendarExceptionFromRow rebuilds a CalendarException from a row in
// SQLColumns order.
func CalendarExceptionFromRow(row []SQLValue) (CalendarException, error) {
	var e CalendarException
	var err error
	var date string
	var t int
	e.CalendarID, err = asString(row[0], err)
	date, err = asString(row[1], err)
	t, err = asInt(row[2], err)
	if err != nil {
		return e, err
	}
	e.Date, err = ParseDate(date)
	if err != nil {
		return e, err
	}
	e.Type = ExceptionType(t)
	if !validExceptionType(t) {
		return e, &InvalidFieldError{Entity: "CalendarException", Field: "exception_type", Value: t}
	}
	return e, nil
}

func (CalendarException) GTFSTableName() string { return "calendar_dates" }

func (e CalendarException) GTFSMarshall() map[string]string {
	return map[string]string{
		"service_id":     e.CalendarID,
		"date":           e.Date.String(),
		"exception_type": fmt.Sprintf("%d", e.Type),
	}
}

// CalendarExceptionFromGTFS rebuilds a CalendarException from a GTFS row.
func CalendarExceptionFromGTFS(row map[string]string) (CalendarException, error) {
	date, err := ParseDate(row["date"])
	if err != nil {
		return CalendarException{}, fmt.Errorf("model: invalid date %q: %w", row["date"], err)
	}
	var t int
	if _, err := fmt.Sscanf(row["exception_type"], "%d", &t); err != nil {
		return CalendarException{}, fmt.Errorf("model: invalid exception_type %q: %w", row["exception_type"], err)
	}
	if !validExceptionType(t) {
		return CalendarException{}, &InvalidFieldError{Entity: "CalendarException", Field: "exception_type", Value: t}
	}
	return CalendarException{CalendarID: row["service_id"], Date: date, Type: ExceptionType(t)}, nil
}
