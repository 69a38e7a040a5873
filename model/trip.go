package model

import "fmt"

// WheelchairAccessible enumerates GTFS trips.txt's tri-state
// wheelchair_accessible column.
type WheelchairAccessible int

const (
	WheelchairUnknown      WheelchairAccessible = 0
	WheelchairAccessibleOK WheelchairAccessible = 1
	WheelchairNotAllowed   WheelchairAccessible = 2
)

// BikesAllowed enumerates GTFS trips.txt's tri-state bikes_allowed column.
type BikesAllowed int

const (
	BikesUnknown      BikesAllowed = 0
	BikesAllowedOK    BikesAllowed = 1
	BikesNotAllowed   BikesAllowed = 2
)

// Trip is a single vehicle journey along a Route. Equivalent to GTFS's
// trips.txt.
type Trip struct {
	ID                   string
	RouteID              string
	CalendarID           string
	Headsign             string
	ShortName            string
	DirectionID           *bool
	BlockID              string
	ShapeID              string
	WheelchairAccessible WheelchairAccessible
	BikesAllowed         BikesAllowed
	Exceptional          *bool
	ExtraFieldsJSON      string
}

func (Trip) SQLTableName() string { return "trips" }

func (Trip) SQLCreateTable() string {
	return `CREATE TABLE trips (
		trip_id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL REFERENCES routes(route_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		calendar_id TEXT NOT NULL REFERENCES calendars(calendar_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		headsign TEXT NOT NULL DEFAULT '',
		short_name TEXT NOT NULL DEFAULT '',
		direction_id INTEGER CHECK (direction_id IN (0, 1)),
		block_id TEXT NOT NULL DEFAULT '',
		shape_id TEXT REFERENCES shapes(shape_id) ON DELETE SET NULL ON UPDATE CASCADE,
		wheelchair_accessible INTEGER NOT NULL DEFAULT 0 CHECK (wheelchair_accessible IN (0, 1, 2)),
		bikes_allowed INTEGER NOT NULL DEFAULT 0 CHECK (bikes_allowed IN (0, 1, 2)),
		exceptional INTEGER CHECK (exceptional IN (0, 1)),
		extra_fields_json TEXT NOT NULL DEFAULT '{}'
	) STRICT;
	CREATE INDEX idx_trips_route_id ON trips(route_id);
	CREATE INDEX idx_trips_calendar_id ON trips(calendar_id);
	CREATE INDEX idx_trips_shape_id ON trips(shape_id);`
}

func (Trip) SQLColumns() string {
	return "(trip_id, route_id, calendar_id, headsign, short_name, direction_id, block_id, " +
		"shape_id, wheelchair_accessible, bikes_allowed, exceptional, extra_fields_json)"
}

func (Trip) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)" }

func (Trip) SQLWhereClause() string { return "trip_id = ?" }

func (Trip) SQLSetClause() string {
	return "trip_id = ?, route_id = ?, calendar_id = ?, headsign = ?, short_name = ?, " +
		"direction_id = ?, block_id = ?, shape_id = ?, wheelchair_accessible = ?, " +
		"bikes_allowed = ?, exceptional = ?, extra_fields_json = ?"
}

func (t Trip) SQLMarshall() []SQLValue {
	return []SQLValue{
		t.ID, t.RouteID, t.CalendarID, t.Headsign, t.ShortName, nullableBoolToValue(t.DirectionID),
		t.BlockID, emptyToNull(t.ShapeID), int64(t.WheelchairAccessible), int64(t.BikesAllowed),
		nullableBoolToValue(t.Exceptional), t.ExtraFieldsJSON,
	}
}

func (t Trip) SQLPrimaryKey() []SQLValue { return []SQLValue{t.ID} }

// TripFromRow rebuilds a Trip from a row in SQLColumns order.
func TripFromRow(row []SQLValue) (Trip, error) {
	var t Trip
	var err error
	var wa, ba int
	t.ID, err = asString(row[0], err)
	t.RouteID, err = asString(row[1], err)
	t.CalendarID, err = asString(row[2], err)
	t.Headsign, err = asString(row[3], err)
	t.ShortName, err = asString(row[4], err)
	t.DirectionID, err = asNullableBool(row[5], err)
	t.BlockID, err = asString(row[6], err)
	t.ShapeID = nullToEmpty(row[7])
	wa, err = asInt(row[8], err)
	ba, err = asInt(row[9], err)
	t.Exceptional, err = asNullableBool(row[10], err)
	t.ExtraFieldsJSON, err = asString(row[11], err)
	if err != nil {
		return t, err
	}
	t.WheelchairAccessible = WheelchairAccessible(wa)
	t.BikesAllowed = BikesAllowed(ba)
	if t.ExtraFieldsJSON == "" {
		t.ExtraFieldsJSON = "{}"
	}
	return t, nil
}

func (Trip) GTFSTableName() string { return "trips" }

func (t Trip) GTFSMarshall() map[string]string {
	m := map[string]string{
		"trip_id":               t.ID,
		"route_id":              t.RouteID,
		"service_id":            t.CalendarID,
		"trip_headsign":         t.Headsign,
		"trip_short_name":       t.ShortName,
		"direction_id":          gtfsOptionalBoolZeroNone(t.DirectionID),
		"block_id":              t.BlockID,
		"shape_id":              t.ShapeID,
		"wheelchair_accessible": fmt.Sprintf("%d", t.WheelchairAccessible),
		"bikes_allowed":         fmt.Sprintf("%d", t.BikesAllowed),
		"exceptional":           gtfsOptionalBoolZeroNone(t.Exceptional),
	}
	return m
}

// TripFromGTFS rebuilds a Trip from a GTFS row.
func TripFromGTFS(row map[string]string) (Trip, error) {
	direction, err := parseGTFSOptionalBoolZeroNone(row["direction_id"])
	if err != nil {
		return Trip{}, err
	}
	wheelchair := WheelchairUnknown
	if s := row["wheelchair_accessible"]; s != "" {
		var n int
		fmt.Sscanf(s, "%d", &n)
		wheelchair = WheelchairAccessible(n)
	}
	bikes := BikesUnknown
	if s := row["bikes_allowed"]; s != "" {
		var n int
		fmt.Sscanf(s, "%d", &n)
		bikes = BikesAllowed(n)
	}
	exceptional, err := parseGTFSOptionalBoolZeroNone(row["exceptional"])
	if err != nil {
		return Trip{}, err
	}
	return Trip{
		ID:                   row["trip_id"],
		RouteID:              row["route_id"],
		CalendarID:           row["service_id"],
		Headsign:             row["trip_headsign"],
		ShortName:            row["trip_short_name"],
		DirectionID:          direction,
		BlockID:              row["block_id"],
		ShapeID:              row["shape_id"],
		WheelchairAccessible: wheelchair,
		BikesAllowed:         bikes,
		Exceptional:          exceptional,
		ExtraFieldsJSON:      "{}",
	}, nil
}
