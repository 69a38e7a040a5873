package model

import "fmt"

// TransferType enumerates GTFS transfers.txt's transfer_type column.
type TransferType int

const (
	TransferRecommended TransferType = 0
	TransferTimed       TransferType = 1
	TransferMinimumTime TransferType = 2
	TransferNotPossible TransferType = 3
	TransferInSeat      TransferType = 4
	TransferReboard     TransferType = 5
)

func validTransferType(v int) bool {
	switch TransferType(v) {
	case TransferRecommended, TransferTimed, TransferMinimumTime, TransferNotPossible, TransferInSeat, TransferReboard:
		return true
	}
	return false
}

// Transfer describes how riders can change between two Stops, Routes or
// Trips. Equivalent to one row of GTFS's transfers.txt.
//
// GTFS allows a transfer to be keyed by stop pair, route pair, trip pair
// or any combination, so none of the identifying columns are themselves
// a usable primary key; ID is a surrogate assigned by the loader.
type Transfer struct {
	ID              int64
	FromStopID      string // empty means NULL; required unless Type is in-seat/re-board
	ToStopID        string // empty means NULL; required unless Type is in-seat/re-board
	FromRouteID     string // empty means NULL
	ToRouteID       string // empty means NULL
	FromTripID      string // empty means NULL; required when Type is in-seat/re-board
	ToTripID        string // empty means NULL; required when Type is in-seat/re-board
	Type            TransferType
	MinTransferTime *int
}

// Validate enforces the two CHECK constraints the GTFS spec places on a
// transfer that no single-column SQL CHECK can express on its own: stop
// ids are required unless the transfer is in-seat or re-board, and trip
// ids are required precisely when it is.
func (t Transfer) Validate() error {
	tripBased := t.Type == TransferInSeat || t.Type == TransferReboard
	if !tripBased && (t.FromStopID == "" || t.ToStopID == "") {
		return &InvalidFieldError{
			Entity: "Transfer", Field: "from_stop_id/to_stop_id",
			Value: fmt.Sprintf("transfer_type=%d", t.Type),
		}
	}
	if tripBased && (t.FromTripID == "" || t.ToTripID == "") {
		return &InvalidFieldError{
			Entity: "Transfer", Field: "from_trip_id/to_trip_id",
			Value: fmt.Sprintf("transfer_type=%d", t.Type),
		}
	}
	return nil
}

func (Transfer) SQLTableName() string { return "transfers" }

func (Transfer) SQLCreateTable() string {
	return `CREATE TABLE transfers (
		id INTEGER PRIMARY KEY,
		from_stop_id TEXT REFERENCES stops(stop_id) ON DELETE CASCADE ON UPDATE CASCADE,
		to_stop_id TEXT REFERENCES stops(stop_id) ON DELETE CASCADE ON UPDATE CASCADE,
		from_route_id TEXT REFERENCES routes(route_id) ON DELETE CASCADE ON UPDATE CASCADE,
		to_route_id TEXT REFERENCES routes(route_id) ON DELETE CASCADE ON UPDATE CASCADE,
		from_trip_id TEXT REFERENCES trips(trip_id) ON DELETE CASCADE ON UPDATE CASCADE,
		to_trip_id TEXT REFERENCES trips(trip_id) ON DELETE CASCADE ON UPDATE CASCADE,
		transfer_type INTEGER NOT NULL DEFAULT 0 CHECK (transfer_type IN (0, 1, 2, 3, 4, 5)),
		min_transfer_time INTEGER CHECK (min_transfer_time >= 0 OR min_transfer_time IS NULL),
		CHECK (transfer_type IN (4, 5) OR (from_stop_id IS NOT NULL AND to_stop_id IS NOT NULL)),
		CHECK (transfer_type NOT IN (4, 5) OR (from_trip_id IS NOT NULL AND to_trip_id IS NOT NULL))
	) STRICT;
	CREATE INDEX idx_transfers_from_stop ON transfers(from_stop_id);
	CREATE INDEX idx_transfers_to_stop ON transfers(to_stop_id);
	CREATE INDEX idx_transfers_from_trip ON transfers(from_trip_id);
	CREATE INDEX idx_transfers_to_trip ON transfers(to_trip_id);`
}

func (Transfer) SQLColumns() string {
	return "(id, from_stop_id, to_stop_id, from_route_id, to_route_id, from_trip_id, to_trip_id, " +
		"transfer_type, min_transfer_time)"
}

func (Transfer) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?, ?)" }

func (Transfer) SQLWhereClause() string { return "id = ?" }

func (Transfer) SQLSetClause() string {
	return "id = ?, from_stop_id = ?, to_stop_id = ?, from_route_id = ?, to_route_id = ?, " +
		"from_trip_id = ?, to_trip_id = ?, transfer_type = ?, min_transfer_time = ?"
}

func (t Transfer) SQLMarshall() []SQLValue {
	return []SQLValue{
		t.ID, emptyToNull(t.FromStopID), emptyToNull(t.ToStopID), emptyToNull(t.FromRouteID),
		emptyToNull(t.ToRouteID), emptyToNull(t.FromTripID), emptyToNull(t.ToTripID),
		int64(t.Type), nullableIntToValue(t.MinTransferTime),
	}
}

func (t Transfer) SQLPrimaryKey() []SQLValue { return []SQLValue{t.ID} }

// TransferFromRow rebuilds a Transfer from a row in SQLColumns order.
func TransferFromRow(row []SQLValue) (Transfer, error) {
	var t Transfer
	var err error
	var id, tt int
	id, err = asInt(row[0], err)
	t.ID = int64(id)
	t.FromStopID = nullToEmpty(row[1])
	t.ToStopID = nullToEmpty(row[2])
	t.FromRouteID = nullToEmpty(row[3])
	t.ToRouteID = nullToEmpty(row[4])
	t.FromTripID = nullToEmpty(row[5])
	t.ToTripID = nullToEmpty(row[6])
	tt, err = asInt(row[7], err)
	t.MinTransferTime, err = asNullableInt(row[8], err)
	if err != nil {
		return t, err
	}
	t.Type = TransferType(tt)
	if !validTransferType(tt) {
		return t, &InvalidFieldError{Entity: "Transfer", Field: "transfer_type", Value: tt}
	}
	return t, t.Validate()
}

func (Transfer) GTFSTableName() string { return "transfers" }

func (t Transfer) GTFSMarshall() map[string]string {
	m := map[string]string{
		"from_stop_id":  t.FromStopID,
		"to_stop_id":    t.ToStopID,
		"from_route_id": t.FromRouteID,
		"to_route_id":   t.ToRouteID,
		"transfer_type": fmt.Sprintf("%d", t.Type),
		"from_trip_id":  t.FromTripID,
		"to_trip_id":    t.ToTripID,
	}
	if t.MinTransferTime != nil {
		m["min_transfer_time"] = fmt.Sprintf("%d", *t.MinTransferTime)
	} else {
		m["min_transfer_time"] = ""
	}
	return m
}

// TransferFromGTFS rebuilds a Transfer from a GTFS row. The caller is
// responsible for assigning ID, since transfers.txt carries no id
// column of its own.
func TransferFromGTFS(row map[string]string) (Transfer, error) {
	transferType := TransferRecommended
	if s := row["transfer_type"]; s != "" {
		var n int
		fmt.Sscanf(s, "%d", &n)
		transferType = TransferType(n)
	}
	if !validTransferType(int(transferType)) {
		return Transfer{}, &InvalidFieldError{Entity: "Transfer", Field: "transfer_type", Value: transferType}
	}
	var minTime *int
	if s := row["min_transfer_time"]; s != "" {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			minTime = &n
		}
	}
	t := Transfer{
		FromStopID: row["from_stop_id"], ToStopID: row["to_stop_id"],
		FromRouteID: row["from_route_id"], ToRouteID: row["to_route_id"],
		Type:            transferType,
		MinTransferTime: minTime, FromTripID: row["from_trip_id"], ToTripID: row["to_trip_id"],
	}
	return t, t.Validate()
}
