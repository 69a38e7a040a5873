package model

import "fmt"

// ShapePoint is a single vertex of a Trip's physical path. Equivalent to
// one row of GTFS's shapes.txt.
type ShapePoint struct {
	ShapeID       string
	Seq           int
	Lat           float64
	Lon           float64
	ShapeDistTravelled *float64
}

func (ShapePoint) SQLTableName() string { return "shape_points" }

func (ShapePoint) SQLCreateTable() string {
	return `CREATE TABLE shape_points (
		shape_id TEXT NOT NULL REFERENCES shapes(shape_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		sequence INTEGER NOT NULL CHECK (sequence >= 0),
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		shape_dist_traveled REAL,
		PRIMARY KEY (shape_id, sequence)
	) STRICT;`
}

func (ShapePoint) SQLColumns() string {
	return "(shape_id, sequence, lat, lon, shape_dist_traveled)"
}

func (ShapePoint) SQLPlaceholder() string { return "(?, ?, ?, ?, ?)" }

func (ShapePoint) SQLWhereClause() string { return "shape_id = ? AND sequence = ?" }

func (ShapePoint) SQLSetClause() string {
	return "shape_id = ?, sequence = ?, lat = ?, lon = ?, shape_dist_traveled = ?"
}

func (p ShapePoint) SQLMarshall() []SQLValue {
	return []SQLValue{p.ShapeID, int64(p.Seq), p.Lat, p.Lon, nullableFloatToValue(p.ShapeDistTravelled)}
}

func (p ShapePoint) SQLPrimaryKey() []SQLValue { return []SQLValue{p.ShapeID, int64(p.Seq)} }

// ShapePointFromRow rebuilds a ShapePoint from a row in SQLColumns order.
func ShapePointFromRow(row []SQLValue) (ShapePoint, error) {
	var p ShapePoint
	var err error
	p.ShapeID, err = asString(row[0], err)
	p.Seq, err = asInt(row[1], err)
	p.Lat, err = asFloat(row[2], err)
	p.Lon, err = asFloat(row[3], err)
	p.ShapeDistTravelled, err = asNullableFloat(row[4], err)
	return p, err
}

func (ShapePoint) GTFSTableName() string { return "shapes" }

func (p ShapePoint) GTFSMarshall() map[string]string {
	m := map[string]string{
		"shape_id":            p.ShapeID,
		"shape_pt_sequence":   fmt.Sprintf("%d", p.Seq),
		"shape_pt_lat":        fmt.Sprintf("%v", p.Lat),
		"shape_pt_lon":        fmt.Sprintf("%v", p.Lon),
	}
	if p.ShapeDistTravelled != nil {
		m["shape_dist_traveled"] = fmt.Sprintf("%v", *p.ShapeDistTravelled)
	} else {
		m["shape_dist_traveled"] = ""
	}
	return m
}

// ShapePointFromGTFS rebuilds a ShapePoint from a GTFS row.
func ShapePointFromGTFS(row map[string]string) (ShapePoint, error) {
	var seq int
	if _, err := fmt.Sscanf(row["shape_pt_sequence"], "%d", &seq); err != nil {
		return ShapePoint{}, fmt.Errorf("model: invalid shape_pt_sequence %q: %w", row["shape_pt_sequence"], err)
	}
	var lat, lon float64
	if _, err := fmt.Sscanf(row["shape_pt_lat"], "%g", &lat); err != nil {
		return ShapePoint{}, fmt.Errorf("model: invalid shape_pt_lat %q: %w", row["shape_pt_lat"], err)
	}
	if _, err := fmt.Sscanf(row["shape_pt_lon"], "%g", &lon); err != nil {
		return ShapePoint{}, fmt.Errorf("model: invalid shape_pt_lon %q: %w", row["shape_pt_lon"], err)
	}
	var dist *float64
	if s := row["shape_dist_traveled"]; s != "" {
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err == nil {
			dist = &f
		}
	}
	return ShapePoint{ShapeID: row["shape_id"], Seq: seq, Lat: lat, Lon: lon, ShapeDistTravelled: dist}, nil
}
