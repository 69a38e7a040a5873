package model

import "fmt"

// Calendar describes the regular weekly service pattern of a service_id,
// together with the date range over which it applies. Equivalent to
// GTFS's calendar.txt.
type Calendar struct {
	ID        string
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
	StartDate Date
	EndDate   Date
	// Desc is a free-text note about the service pattern, not part of
	// stock GTFS but carried by feeds that annotate calendar.txt for
	// internal planning purposes.
	Desc string
}

// CompiledRange returns the bounded DateRange this calendar's start/end
// dates describe, without considering the weekday pattern.
func (c Calendar) CompiledRange() DateRange {
	return BoundedDateRange(c.StartDate, c.EndDate)
}

// AppliesOn reports whether the calendar's weekday pattern includes d's
// weekday and d falls within [StartDate, EndDate].
func (c Calendar) AppliesOn(d Date) bool {
	if !c.CompiledRange().Contains(d) {
		return false
	}
	switch d.Weekday() {
	case 0:
		return c.Sunday
	case 1:
		return c.Monday
	case 2:
		return c.Tuesday
	case 3:
		return c.Wednesday
	case 4:
		return c.Thursday
	case 5:
		return c.Friday
	case 6:
		return c.Saturday
	}
	return false
}

func (Calendar) SQLTableName() string { return "calendars" }

func (Calendar) SQLCreateTable() string {
	return `CREATE TABLE calendars (
		calendar_id TEXT PRIMARY KEY,
		monday INTEGER NOT NULL CHECK (monday IN (0, 1)),
		tuesday INTEGER NOT NULL CHECK (tuesday IN (0, 1)),
		wednesday INTEGER NOT NULL CHECK (wednesday IN (0, 1)),
		thursday INTEGER NOT NULL CHECK (thursday IN (0, 1)),
		friday INTEGER NOT NULL CHECK (friday IN (0, 1)),
		saturday INTEGER NOT NULL CHECK (saturday IN (0, 1)),
		sunday INTEGER NOT NULL CHECK (sunday IN (0, 1)),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		desc TEXT NOT NULL DEFAULT ''
	) STRICT;`
}

func (Calendar) SQLColumns() string {
	return "(calendar_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date, desc)"
}

func (Calendar) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)" }

func (Calendar) SQLWhereClause() string { return "calendar_id = ?" }

func (Calendar) SQLSetClause() string {
	return "calendar_id = ?, monday = ?, tuesday = ?, wednesday = ?, thursday = ?, friday = ?, " +
		"saturday = ?, sunday = ?, start_date = ?, end_date = ?, desc = ?"
}

func (c Calendar) SQLMarshall() []SQLValue {
	return []SQLValue{
		c.ID, boolToInt(c.Monday), boolToInt(c.Tuesday), boolToInt(c.Wednesday),
		boolToInt(c.Thursday), boolToInt(c.Friday), boolToInt(c.Saturday), boolToInt(c.Sunday),
		c.StartDate.String(), c.EndDate.String(), c.Desc,
	}
}

func (c Calendar) SQLPrimaryKey() []SQLValue { return []SQLValue{c.ID} }

// CalendarFromRow rebuilds a Calendar from a row in SQLColumns order.
func CalendarFromRow(row []SQLValue) (Calendar, error) {
	var c Calendar
	var err error
	var start, end string
	c.ID, err = asString(row[0], err)
	c.Monday, err = asBool(row[1], err)
	c.Tuesday, err = asBool(row[2], err)
	c.Wednesday, err = asBool(row[3], err)
	c.Thursday, err = asBool(row[4], err)
	c.Friday, err = asBool(row[5], err)
	c.Saturday, err = asBool(row[6], err)
	c.Sunday, err = asBool(row[7], err)
	start, err = asString(row[8], err)
	end, err = asString(row[9], err)
	c.Desc, err = asString(row[10], err)
	if err != nil {
		return c, err
	}
	c.StartDate, err = ParseDate(start)
	if err != nil {
		return c, err
	}
	c.EndDate, err = ParseDate(end)
	return c, err
}

func (Calendar) GTFSTableName() string { return "calendar" }

func (c Calendar) GTFSMarshall() map[string]string {
	return map[string]string{
		"service_id": c.ID,
		"monday":     gtfsBool(c.Monday),
		"tuesday":    gtfsBool(c.Tuesday),
		"wednesday":  gtfsBool(c.Wednesday),
		"thursday":   gtfsBool(c.Thursday),
		"friday":     gtfsBool(c.Friday),
		"saturday":   gtfsBool(c.Saturday),
		"sunday":     gtfsBool(c.Sunday),
		"start_date": c.StartDate.String(),
		"end_date":   c.EndDate.String(),
		"desc":       c.Desc,
	}
}

// CalendarFromGTFS rebuilds a Calendar from a GTFS row.
func CalendarFromGTFS(row map[string]string) (Calendar, error) {
	monday, err := parseGTFSBool(row["monday"])
	if err != nil {
		return Calendar{}, err
	}
	tuesday, err := parseGTFSBool(row["tuesday"])
	if err != nil {
		return Calendar{}, err
	}
	wednesday, err := parseGTFSBool(row["wednesday"])
	if err != nil {
		return Calendar{}, err
	}
	thursday, err := parseGTFSBool(row["thursday"])
	if err != nil {
		return Calendar{}, err
	}
	friday, err := parseGTFSBool(row["friday"])
	if err != nil {
		return Calendar{}, err
	}
	saturday, err := parseGTFSBool(row["saturday"])
	if err != nil {
		return Calendar{}, err
	}
	sunday, err := parseGTFSBool(row["sunday"])
	if err != nil {
		return Calendar{}, err
	}
	start, err := ParseDate(row["start_date"])
	if err != nil {
		return Calendar{}, fmt.Errorf("model: invalid start_date %q: %w", row["start_date"], err)
	}
	end, err := ParseDate(row["end_date"])
	if err != nil {
		return Calendar{}, fmt.Errorf("model: invalid end_date %q: %w", row["end_date"], err)
	}
	return Calendar{
		ID: row["service_id"], Monday: monday, Tuesday: tuesday, Wednesday: wednesday,
		Thursday: thursday, Friday: friday, Saturday: saturday, Sunday: sunday,
		StartDate: start, EndDate: end, Desc: row["desc"],
	}, nil
}
