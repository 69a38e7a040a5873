package model

import "fmt"

// RouteType enumerates the GTFS route types this model supports.
type RouteType int

const (
	RouteTypeTram        RouteType = 0
	RouteTypeMetro       RouteType = 1
	RouteTypeRail        RouteType = 2
	RouteTypeBus         RouteType = 3
	RouteTypeFerry       RouteType = 4
	RouteTypeCableTram   RouteType = 5
	RouteTypeGondola     RouteType = 6
	RouteTypeFunicular   RouteType = 7
	RouteTypeTrolleybus  RouteType = 11
	RouteTypeMonorail    RouteType = 12
)

func validRouteType(v int) bool {
	switch RouteType(v) {
	case RouteTypeTram, RouteTypeMetro, RouteTypeRail, RouteTypeBus, RouteTypeFerry,
		RouteTypeCableTram, RouteTypeGondola, RouteTypeFunicular, RouteTypeTrolleybus, RouteTypeMonorail:
		return true
	}
	return false
}

// Route is a public transport line. Equivalent to GTFS's routes.txt.
type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Type      RouteType
	Color     string
	TextColor string
	SortOrder *int
}

func (Route) SQLTableName() string { return "routes" }

func (Route) SQLCreateTable() string {
	return `CREATE TABLE routes (
		route_id TEXT PRIMARY KEY,
		agency_id TEXT NOT NULL REFERENCES agencies(agency_id)
			ON DELETE CASCADE ON UPDATE CASCADE,
		short_name TEXT NOT NULL,
		long_name TEXT NOT NULL,
		type INTEGER NOT NULL CHECK (type IN (0, 1, 2, 3, 4, 5, 6, 7, 11, 12)),
		color TEXT NOT NULL DEFAULT '',
		text_color TEXT NOT NULL DEFAULT '',
		sort_order INTEGER
	) STRICT;
	CREATE INDEX idx_routes_agency_id ON routes(agency_id);`
}

func (Route) SQLColumns() string {
	return "(route_id, agency_id, short_name, long_name, type, color, text_color, sort_order)"
}

func (Route) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?)" }

func (Route) SQLWhereClause() string { return "route_id = ?" }

func (Route) SQLSetClause() string {
	return "route_id = ?, agency_id = ?, short_name = ?, long_name = ?, type = ?, color = ?, text_color = ?, sort_order = ?"
}

func (r Route) SQLMarshall() []SQLValue {
	return []SQLValue{
		r.ID, r.AgencyID, r.ShortName, r.LongName, int64(r.Type), r.Color, r.TextColor,
		nullableIntToValue(r.SortOrder),
	}
}

func (r Route) SQLPrimaryKey() []SQLValue { return []SQLValue{r.ID} }

// RouteFromRow rebuilds a Route from a row in SQLColumns order.
func RouteFromRow(row []SQLValue) (Route, error) {
	var r Route
	var err error
	var t int
	r.ID, err = asString(row[0], err)
	r.AgencyID, err = asString(row[1], err)
	r.ShortName, err = asString(row[2], err)
	r.LongName, err = asString(row[3], err)
	t, err = asInt(row[4], err)
	r.Color, err = asString(row[5], err)
	r.TextColor, err = asString(row[6], err)
	r.SortOrder, err = asNullableInt(row[7], err)
	if err == nil {
		r.Type = RouteType(t)
		if !validRouteType(t) {
			err = &InvalidFieldError{Entity: "Route", Field: "type", Value: t}
		}
	}
	return r, err
}

func (Route) GTFSTableName() string { return "routes" }

func (r Route) GTFSMarshall() map[string]string {
	m := map[string]string{
		"route_id":         r.ID,
		"agency_id":        r.AgencyID,
		"route_short_name": r.ShortName,
		"route_long_name":  r.LongName,
		"route_type":       fmt.Sprintf("%d", r.Type),
		"route_color":      r.Color,
		"route_text_color": r.TextColor,
	}
	if r.SortOrder != nil {
		m["route_sort_order"] = fmt.Sprintf("%d", *r.SortOrder)
	} else {
		m["route_sort_order"] = ""
	}
	return m
}

// RouteFromGTFS rebuilds a Route from a GTFS row.
func RouteFromGTFS(row map[string]string) (Route, error) {
	var t int
	if _, err := fmt.Sscanf(row["route_type"], "%d", &t); err != nil {
		return Route{}, fmt.Errorf("model: invalid route_type %q: %w", row["route_type"], err)
	}
	if !validRouteType(t) {
		return Route{}, &InvalidFieldError{Entity: "Route", Field: "type", Value: t}
	}
	var sortOrder *int
	if s := row["route_sort_order"]; s != "" {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			sortOrder = &n
		}
	}
	return Route{
		ID:        row["route_id"],
		AgencyID:  row["agency_id"],
		ShortName: row["route_short_name"],
		LongName:  row["route_long_name"],
		Type:      RouteType(t),
		Color:     row["route_color"],
		TextColor: row["route_text_color"],
		SortOrder: sortOrder,
	}, nil
}
