package model

import "fmt"

// PickupDropoffType enumerates GTFS stop_times.txt's pickup_type and
// drop_off_type columns.
type PickupDropoffType int

const (
	PickupDropoffRegular     PickupDropoffType = 0
	PickupDropoffNone        PickupDropoffType = 1
	PickupDropoffPhoneAgency PickupDropoffType = 2
	PickupDropoffCoordinate  PickupDropoffType = 3
)

func validPickupDropoffType(v int) bool {
	switch PickupDropoffType(v) {
	case PickupDropoffRegular, PickupDropoffNone, PickupDropoffPhoneAgency, PickupDropoffCoordinate:
		return true
	}
	return false
}

// StopTime is a single visit of a Trip at a Stop. Equivalent to one row
// of GTFS's stop_times.txt.
type StopTime struct {
	TripID        string
	StopSeq       int
	StopID        string
	ArrivalTime   TimePoint
	DepartureTime TimePoint
	Headsign      string
	PickupType    PickupDropoffType
	DropOffType   PickupDropoffType
	ShapeDistTravelled *float64
}

func (StopTime) SQLTableName() string { return "stop_times" }

func (StopTime) SQLCreateTable() string {
	return `CREATE TABLE stop_times (
		trip_id TEXT NOT NULL REFERENCES trips(trip_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		stop_sequence INTEGER NOT NULL CHECK (stop_sequence >= 0),
		stop_id TEXT NOT NULL REFERENCES stops(stop_id)
			ON DELETE RESTRICT ON UPDATE CASCADE,
		arrival_time INTEGER NOT NULL CHECK (arrival_time >= 0),
		departure_time INTEGER NOT NULL CHECK (departure_time >= arrival_time),
		stop_headsign TEXT NOT NULL DEFAULT '',
		pickup_type INTEGER NOT NULL DEFAULT 0 CHECK (pickup_type IN (0, 1, 2, 3)),
		drop_off_type INTEGER NOT NULL DEFAULT 0 CHECK (drop_off_type IN (0, 1, 2, 3)),
		shape_dist_traveled REAL,
		PRIMARY KEY (trip_id, stop_sequence)
	) STRICT;
	CREATE INDEX idx_stop_times_stop_id ON stop_times(stop_id);`
}

func (StopTime) SQLColumns() string {
	return "(trip_id, stop_sequence, stop_id, arrival_time, departure_time, stop_headsign, " +
		"pickup_type, drop_off_type, shape_dist_traveled)"
}

func (StopTime) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?, ?)" }

func (StopTime) SQLWhereClause() string { return "trip_id = ? AND stop_sequence = ?" }

func (StopTime) SQLSetClause() string {
	return "trip_id = ?, stop_sequence = ?, stop_id = ?, arrival_time = ?, departure_time = ?, " +
		"stop_headsign = ?, pickup_type = ?, drop_off_type = ?, shape_dist_traveled = ?"
}

func (s StopTime) SQLMarshall() []SQLValue {
	return []SQLValue{
		s.TripID, int64(s.StopSeq), s.StopID, int64(s.ArrivalTime.Seconds), int64(s.DepartureTime.Seconds),
		s.Headsign, int64(s.PickupType), int64(s.DropOffType), nullableFloatToValue(s.ShapeDistTravelled),
	}
}

func (s StopTime) SQLPrimaryKey() []SQLValue { return []SQLValue{s.TripID, int64(s.StopSeq)} }

// StopTimeFromRow rebuilds a StopTime from a row in SQLColumns order.
func StopTimeFromRow(row []SQLValue) (StopTime, error) {
	var s StopTime
	var err error
	var arr, dep, pt, dt int
	s.TripID, err = asString(row[0], err)
	s.StopSeq, err = asInt(row[1], err)
	s.StopID, err = asString(row[2], err)
	arr, err = asInt(row[3], err)
	dep, err = asInt(row[4], err)
	s.Headsign, err = asString(row[5], err)
	pt, err = asInt(row[6], err)
	dt, err = asInt(row[7], err)
	s.ShapeDistTravelled, err = asNullableFloat(row[8], err)
	if err != nil {
		return s, err
	}
	s.ArrivalTime = TimePoint{Seconds: arr}
	s.DepartureTime = TimePoint{Seconds: dep}
	s.PickupType = PickupDropoffType(pt)
	s.DropOffType = PickupDropoffType(dt)
	if !validPickupDropoffType(pt) {
		return s, &InvalidFieldError{Entity: "StopTime", Field: "pickup_type", Value: pt}
	}
	if !validPickupDropoffType(dt) {
		return s, &InvalidFieldError{Entity: "StopTime", Field: "drop_off_type", Value: dt}
	}
	return s, nil
}

func (StopTime) GTFSTableName() string { return "stop_times" }

func (s StopTime) GTFSMarshall() map[string]string {
	m := map[string]string{
		"trip_id":        s.TripID,
		"stop_sequence":  fmt.Sprintf("%d", s.StopSeq),
		"stop_id":        s.StopID,
		"arrival_time":   s.ArrivalTime.String(),
		"departure_time": s.DepartureTime.String(),
		"stop_headsign":  s.Headsign,
		"pickup_type":    fmt.Sprintf("%d", s.PickupType),
		"drop_off_type":  fmt.Sprintf("%d", s.DropOffType),
	}
	if s.ShapeDistTravelled != nil {
		m["shape_dist_traveled"] = fmt.Sprintf("%v", *s.ShapeDistTravelled)
	} else {
		m["shape_dist_traveled"] = ""
	}
	return m
}

// StopTimeFromGTFS rebuilds a StopTime from a GTFS row.
func StopTimeFromGTFS(row map[string]string) (StopTime, error) {
	arr, err := ParseTimePoint(row["arrival_time"])
	if err != nil {
		return StopTime{}, fmt.Errorf("model: invalid arrival_time %q: %w", row["arrival_time"], err)
	}
	dep, err := ParseTimePoint(row["departure_time"])
	if err != nil {
		return StopTime{}, fmt.Errorf("model: invalid departure_time %q: %w", row["departure_time"], err)
	}
	var seq int
	if _, err := fmt.Sscanf(row["stop_sequence"], "%d", &seq); err != nil {
		return StopTime{}, fmt.Errorf("model: invalid stop_sequence %q: %w", row["stop_sequence"], err)
	}
	pickup := PickupDropoffRegular
	if s := row["pickup_type"]; s != "" {
		var n int
		fmt.Sscanf(s, "%d", &n)
		pickup = PickupDropoffType(n)
	}
	dropoff := PickupDropoffRegular
	if s := row["drop_off_type"]; s != "" {
		var n int
		fmt.Sscanf(s, "%d", &n)
		dropoff = PickupDropoffType(n)
	}
	if !validPickupDropoffType(int(pickup)) {
		return StopTime{}, &InvalidFieldError{Entity: "StopTime", Field: "pickup_type", Value: pickup}
	}
	if !validPickupDropoffType(int(dropoff)) {
		return StopTime{}, &InvalidFieldError{Entity: "StopTime", Field: "drop_off_type", Value: dropoff}
	}
	var dist *float64
	if s := row["shape_dist_traveled"]; s != "" {
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err == nil {
			dist = &f
		}
	}
	return StopTime{
		TripID: row["trip_id"], StopSeq: seq, StopID: row["stop_id"],
		ArrivalTime: arr, DepartureTime: dep, Headsign: row["stop_headsign"],
		PickupType: pickup, DropOffType: dropoff, ShapeDistTravelled: dist,
	}, nil
}
