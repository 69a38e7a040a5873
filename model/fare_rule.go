package model

// FareRule links a FareAttribute to the Route/zone combination it
// applies to. Equivalent to one row of GTFS's fare_rules.txt.
//
// A rule may leave any of RouteID/OriginID/DestinationID/ContainsID
// empty to mean "applies regardless of this dimension", so no subset of
// columns is a reliable natural key; ID is a surrogate assigned by the
// loader.
type FareRule struct {
	ID            int64
	FareID        string
	RouteID       string
	OriginID      string
	DestinationID string
	ContainsID    string
}

func (FareRule) SQLTableName() string { return "fare_rules" }

func (FareRule) SQLCreateTable() string {
	return `CREATE TABLE fare_rules (
		id INTEGER PRIMARY KEY,
		fare_id TEXT NOT NULL REFERENCES fare_attributes(fare_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		route_id TEXT REFERENCES routes(route_id) ON DELETE CASCADE ON UPDATE CASCADE,
		origin_id TEXT NOT NULL DEFAULT '',
		destination_id TEXT NOT NULL DEFAULT '',
		contains_id TEXT NOT NULL DEFAULT ''
	) STRICT;
	CREATE INDEX idx_fare_rules_fare_id ON fare_rules(fare_id);
	CREATE INDEX idx_fare_rules_route_id ON fare_rules(route_id);`
}

func (FareRule) SQLColumns() string {
	return "(id, fare_id, route_id, origin_id, destination_id, contains_id)"
}

func (FareRule) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?)" }

func (FareRule) SQLWhereClause() string { return "id = ?" }

func (FareRule) SQLSetClause() string {
	return "id = ?, fare_id = ?, route_id = ?, origin_id = ?, destination_id = ?, contains_id = ?"
}

func (r FareRule) SQLMarshall() []SQLValue {
	return []SQLValue{r.ID, r.FareID, emptyToNull(r.RouteID), r.OriginID, r.DestinationID, r.ContainsID}
}

func (r FareRule) SQLPrimaryKey() []SQLValue { return []SQLValue{r.ID} }

// FareRuleFromRow rebuilds a FareRule from a row in SQLColumns order.
func FareRuleFromRow(row []SQLValue) (FareRule, error) {
	var r FareRule
	var err error
	var id int
	id, err = asInt(row[0], err)
	r.ID = int64(id)
	r.FareID, err = asString(row[1], err)
	r.RouteID = nullToEmpty(row[2])
	r.OriginID, err = asString(row[3], err)
	r.DestinationID, err = asString(row[4], err)
	r.ContainsID, err = asString(row[5], err)
	return r, err
}

func (FareRule) GTFSTableName() string { return "fare_rules" }

func (r FareRule) GTFSMarshall() map[string]string {
	return map[string]string{
		"fare_id":        r.FareID,
		"route_id":       r.RouteID,
		"origin_id":      r.OriginID,
		"destination_id": r.DestinationID,
		"contains_id":    r.ContainsID,
	}
}

// FareRuleFromGTFS rebuilds a FareRule from a GTFS row. The caller is
// responsible for assigning ID, since fare_rules.txt carries no id
// column of its own.
func FareRuleFromGTFS(row map[string]string) (FareRule, error) {
	return FareRule{
		FareID: row["fare_id"], RouteID: row["route_id"], OriginID: row["origin_id"],
		DestinationID: row["destination_id"], ContainsID: row["contains_id"],
	}, nil
}
