package model

import "fmt"

// StopLocationType enumerates the GTFS location_type values this model
// supports.
type StopLocationType int

const (
	StopLocationStop    StopLocationType = 0
	StopLocationStation StopLocationType = 1
	StopLocationExit    StopLocationType = 2
)

func validLocationType(v int) bool {
	switch StopLocationType(v) {
	case StopLocationStop, StopLocationStation, StopLocationExit:
		return true
	}
	return false
}

// Stop is a physical location where vehicles pick up or drop off riders.
// Equivalent to GTFS's stops.txt.
type Stop struct {
	ID                 string
	Name                string
	Lat                 float64
	Lon                 float64
	Code                string
	ZoneID              string
	LocationType        StopLocationType
	ParentStation       string // empty means NULL at the SQL boundary
	WheelchairBoarding  *bool
	PlatformCode        string
	// PkpplkCode and IbnrCode are cross-references into the Polish rail
	// stop registries (PKPPLK and IBNR) carried by some GTFS feeds as
	// extension columns on stops.txt.
	PkpplkCode string
	IbnrCode   string
}

func (Stop) SQLTableName() string { return "stops" }

func (Stop) SQLCreateTable() string {
	return `CREATE TABLE stops (
		stop_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		zone_id TEXT NOT NULL DEFAULT '',
		location_type INTEGER NOT NULL DEFAULT 0 CHECK (location_type IN (0, 1, 2)),
		parent_station TEXT REFERENCES stops(stop_id) ON DELETE CASCADE ON UPDATE CASCADE,
		wheelchair_boarding INTEGER DEFAULT NULL CHECK (wheelchair_boarding IN (0, 1)),
		platform_code TEXT NOT NULL DEFAULT '',
		pkpplk_code TEXT NOT NULL DEFAULT '',
		ibnr_code TEXT NOT NULL DEFAULT ''
	) STRICT;
	CREATE INDEX idx_stops_zone ON stops(zone_id);
	CREATE INDEX idx_stops_parent_station ON stops(parent_station);`
}

func (Stop) SQLColumns() string {
	return "(stop_id, name, lat, lon, code, zone_id, location_type, parent_station, wheelchair_boarding, " +
		"platform_code, pkpplk_code, ibnr_code)"
}

func (Stop) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)" }

func (Stop) SQLWhereClause() string { return "stop_id = ?" }

func (Stop) SQLSetClause() string {
	return "stop_id = ?, name = ?, lat = ?, lon = ?, code = ?, zone_id = ?, location_type = ?, " +
		"parent_station = ?, wheelchair_boarding = ?, platform_code = ?, pkpplk_code = ?, ibnr_code = ?"
}

func (s Stop) SQLMarshall() []SQLValue {
	return []SQLValue{
		s.ID, s.Name, s.Lat, s.Lon, s.Code, s.ZoneID, int64(s.LocationType),
		emptyToNull(s.ParentStation), nullableBoolToValue(s.WheelchairBoarding), s.PlatformCode,
		s.PkpplkCode, s.IbnrCode,
	}
}

func (s Stop) SQLPrimaryKey() []SQLValue { return []SQLValue{s.ID} }

// StopFromRow rebuilds a Stop from a row in SQLColumns order.
func StopFromRow(row []SQLValue) (Stop, error) {
	var s Stop
	var err error
	var lt int
	s.ID, err = asString(row[0], err)
	s.Name, err = asString(row[1], err)
	s.Lat, err = asFloat(row[2], err)
	s.Lon, err = asFloat(row[3], err)
	s.Code, err = asString(row[4], err)
	s.ZoneID, err = asString(row[5], err)
	lt, err = asInt(row[6], err)
	s.ParentStation = nullToEmpty(row[7])
	s.WheelchairBoarding, err = asNullableBool(row[8], err)
	s.PlatformCode, err = asString(row[9], err)
	s.PkpplkCode, err = asString(row[10], err)
	s.IbnrCode, err = asString(row[11], err)
	if err == nil {
		s.LocationType = StopLocationType(lt)
		if !validLocationType(lt) {
			err = &InvalidFieldError{Entity: "Stop", Field: "location_type", Value: lt}
		}
	}
	return s, err
}

func (Stop) GTFSTableName() string { return "stops" }

func (s Stop) GTFSMarshall() map[string]string {
	return map[string]string{
		"stop_id":             s.ID,
		"stop_name":           s.Name,
		"stop_lat":            fmt.Sprintf("%v", s.Lat),
		"stop_lon":            fmt.Sprintf("%v", s.Lon),
		"stop_code":           s.Code,
		"zone_id":             s.ZoneID,
		"location_type":       fmt.Sprintf("%d", s.LocationType),
		"parent_station":      s.ParentStation,
		"wheelchair_boarding": gtfsOptionalBoolZeroNone(s.WheelchairBoarding),
		"platform_code":       s.PlatformCode,
		"pkpplk_code":         s.PkpplkCode,
		"ibnr_code":           s.IbnrCode,
	}
}

// StopFromGTFS rebuilds a Stop from a GTFS row, applying the documented
// fallback values for missing optional columns.
func StopFromGTFS(row map[string]string) (Stop, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(row["stop_lat"], "%g", &lat); err != nil {
		return Stop{}, fmt.Errorf("model: invalid stop_lat %q: %w", row["stop_lat"], err)
	}
	if _, err := fmt.Sscanf(row["stop_lon"], "%g", &lon); err != nil {
		return Stop{}, fmt.Errorf("model: invalid stop_lon %q: %w", row["stop_lon"], err)
	}
	locType := StopLocationStop
	if s := row["location_type"]; s != "" {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			locType = StopLocationType(n)
		}
	}
	if !validLocationType(int(locType)) {
		return Stop{}, &InvalidFieldError{Entity: "Stop", Field: "location_type", Value: locType}
	}
	wheelchair, err := parseGTFSOptionalBoolZeroNone(row["wheelchair_boarding"])
	if err != nil {
		return Stop{}, err
	}
	return Stop{
		ID:                 row["stop_id"],
		Name:               row["stop_name"],
		Lat:                lat,
		Lon:                lon,
		Code:               row["stop_code"],
		ZoneID:             row["zone_id"],
		LocationType:       locType,
		ParentStation:      row["parent_station"],
		WheelchairBoarding: wheelchair,
		PlatformCode:       row["platform_code"],
		PkpplkCode:         row["pkpplk_code"],
		IbnrCode:           row["ibnr_code"],
	}, nil
}
