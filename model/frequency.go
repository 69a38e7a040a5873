package model

import "fmt"

// Frequency describes headway-based service for a Trip, repeating it at
// a fixed interval over a time window. Equivalent to one row of GTFS's
// frequencies.txt.
type Frequency struct {
	TripID      string
	StartTime   TimePoint
	EndTime     TimePoint
	HeadwaySecs int
	ExactTimes  bool
}

func (Frequency) SQLTableName() string { return "frequencies" }

func (Frequency) SQLCreateTable() string {
	return `CREATE TABLE frequencies (
		trip_id TEXT NOT NULL REFERENCES trips(trip_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		start_time INTEGER NOT NULL CHECK (start_time >= 0),
		end_time INTEGER NOT NULL CHECK (end_time > start_time),
		headway_secs INTEGER NOT NULL CHECK (headway_secs > 0),
		exact_times INTEGER NOT NULL DEFAULT 0 CHECK (exact_times IN (0, 1)),
		PRIMARY KEY (trip_id, start_time)
	) STRICT;`
}

func (Frequency) SQLColumns() string {
	return "(trip_id, start_time, end_time, headway_secs, exact_times)"
}

func (Frequency) SQLPlaceholder() string { return "(?, ?, ?, ?, ?)" }

func (Frequency) SQLWhereClause() string { return "trip_id = ? AND start_time = ?" }

func (Frequency) SQLSetClause() string {
	return "trip_id = ?, start_time = ?, end_time = ?, headway_secs = ?, exact_times = ?"
}

func (f Frequency) SQLMarshall() []SQLValue {
	return []SQLValue{
		f.TripID, int64(f.StartTime.Seconds), int64(f.EndTime.Seconds), int64(f.HeadwaySecs),
		boolToInt(f.ExactTimes),
	}
}

func (f Frequency) SQLPrimaryKey() []SQLValue { return []SQLValue{f.TripID, int64(f.StartTime.Seconds)} }

// FrequencyFromRow rebuilds a Frequency from a row in SQLColumns order.
func FrequencyFromRow(row []SQLValue) (Frequency, error) {
	var f Frequency
	var err error
	var start, end int
	f.TripID, err = asString(row[0], err)
	start, err = asInt(row[1], err)
	end, err = asInt(row[2], err)
	f.HeadwaySecs, err = asInt(row[3], err)
	f.ExactTimes, err = asBool(row[4], err)
	if err != nil {
		return f, err
	}
	f.StartTime = TimePoint{Seconds: start}
	f.EndTime = TimePoint{Seconds: end}
	return f, nil
}

func (Frequency) GTFSTableName() string { return "frequencies" }

func (f Frequency) GTFSMarshall() map[string]string {
	return map[string]string{
		"trip_id":      f.TripID,
		"start_time":   f.StartTime.String(),
		"end_time":     f.EndTime.String(),
		"headway_secs": fmt.Sprintf("%d", f.HeadwaySecs),
		"exact_times":  gtfsBool(f.ExactTimes),
	}
}

// FrequencyFromGTFS rebuilds a Frequency from a GTFS row.
func FrequencyFromGTFS(row map[string]string) (Frequency, error) {
	start, err := ParseTimePoint(row["start_time"])
	if err != nil {
		return Frequency{}, fmt.Errorf("model: invalid start_time %q: %w", row["start_time"], err)
	}
	end, err := ParseTimePoint(row["end_time"])
	if err != nil {
		return Frequency{}, fmt.Errorf("model: invalid end_time %q: %w", row["end_time"], err)
	}
	var headway int
	if _, err := fmt.Sscanf(row["headway_secs"], "%d", &headway); err != nil {
		return Frequency{}, fmt.Errorf("model: invalid headway_secs %q: %w", row["headway_secs"], err)
	}
	exact, err := parseGTFSBool(row["exact_times"])
	if err != nil {
		return Frequency{}, err
	}
	return Frequency{
		TripID: row["trip_id"], StartTime: start, EndTime: end,
		HeadwaySecs: headway, ExactTimes: exact,
	}, nil
}
