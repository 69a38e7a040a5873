package model

import "fmt"

// PaymentMethod enumerates GTFS fare_attributes.txt's payment_method
// column.
type PaymentMethod int

const (
	PaymentOnBoard    PaymentMethod = 0
	PaymentBeforeBoarding PaymentMethod = 1
)

// FareAttribute is a row of GTFS fare_attributes.txt. A nil Transfers
// value means unlimited transfers.
type FareAttribute struct {
	ID            string
	Price         float64
	CurrencyType  string
	PaymentMethod PaymentMethod
	Transfers     *int
	TransferDuration *int
	AgencyID      string
}

func (FareAttribute) SQLTableName() string { return "fare_attributes" }

func (FareAttribute) SQLCreateTable() string {
	return `CREATE TABLE fare_attributes (
		fare_id TEXT PRIMARY KEY,
		price REAL NOT NULL CHECK (price >= 0),
		currency_type TEXT NOT NULL,
		payment_method INTEGER NOT NULL CHECK (payment_method IN (0, 1)),
		transfers INTEGER CHECK (transfers IN (0, 1, 2) OR transfers IS NULL),
		transfer_duration INTEGER CHECK (transfer_duration > 0 OR transfer_duration IS NULL),
		agency_id TEXT REFERENCES agencies(agency_id) ON DELETE CASCADE ON UPDATE CASCADE
	) STRICT;`
}

func (FareAttribute) SQLColumns() string {
	return "(fare_id, price, currency_type, payment_method, transfers, transfer_duration, agency_id)"
}

func (FareAttribute) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?)" }

func (FareAttribute) SQLWhereClause() string { return "fare_id = ?" }

func (FareAttribute) SQLSetClause() string {
	return "fare_id = ?, price = ?, currency_type = ?, payment_method = ?, transfers = ?, " +
		"transfer_duration = ?, agency_id = ?"
}

func (f FareAttribute) SQLMarshall() []SQLValue {
	return []SQLValue{
		f.ID, f.Price, f.CurrencyType, int64(f.PaymentMethod), nullableIntToValue(f.Transfers),
		nullableIntToValue(f.TransferDuration), emptyToNull(f.AgencyID),
	}
}

func (f FareAttribute) SQLPrimaryKey() []SQLValue { return []SQLValue{f.ID} }

// FareAttributeFromRow rebuilds a FareAttribute from a row in SQLColumns
// order.
func FareAttributeFromRow(row []SQLValue) (FareAttribute, error) {
	var f FareAttribute
	var err error
	var pm int
	f.ID, err = asString(row[0], err)
	f.Price, err = asFloat(row[1], err)
	f.CurrencyType, err = asString(row[2], err)
	pm, err = asInt(row[3], err)
	f.Transfers, err = asNullableInt(row[4], err)
	f.TransferDuration, err = asNullableInt(row[5], err)
	f.AgencyID = nullToEmpty(row[6])
	if err != nil {
		return f, err
	}
	f.PaymentMethod = PaymentMethod(pm)
	return f, nil
}

func (FareAttribute) GTFSTableName() string { return "fare_attributes" }

func (f FareAttribute) GTFSMarshall() map[string]string {
	m := map[string]string{
		"fare_id":        f.ID,
		"price":          fmt.Sprintf("%v", f.Price),
		"currency_type":  f.CurrencyType,
		"payment_method": fmt.Sprintf("%d", f.PaymentMethod),
		"agency_id":      f.AgencyID,
	}
	if f.Transfers != nil {
		m["transfers"] = fmt.Sprintf("%d", *f.Transfers)
	} else {
		m["transfers"] = ""
	}
	if f.TransferDuration != nil {
		m["transfer_duration"] = fmt.Sprintf("%d", *f.TransferDuration)
	} else {
		m["transfer_duration"] = ""
	}
	return m
}

// FareAttributeFromGTFS rebuilds a FareAttribute from a GTFS row.
func FareAttributeFromGTFS(row map[string]string) (FareAttribute, error) {
	var price float64
	if _, err := fmt.Sscanf(row["price"], "%g", &price); err != nil {
		return FareAttribute{}, fmt.Errorf("model: invalid price %q: %w", row["price"], err)
	}
	var pm int
	if _, err := fmt.Sscanf(row["payment_method"], "%d", &pm); err != nil {
		return FareAttribute{}, fmt.Errorf("model: invalid payment_method %q: %w", row["payment_method"], err)
	}
	var transfers *int
	if s := row["transfers"]; s != "" {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			transfers = &n
		}
	}
	var transferDuration *int
	if s := row["transfer_duration"]; s != "" {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			transferDuration = &n
		}
	}
	return FareAttribute{
		ID: row["fare_id"], Price: price, CurrencyType: row["currency_type"],
		PaymentMethod: PaymentMethod(pm), Transfers: transfers, TransferDuration: transferDuration,
		AgencyID: row["agency_id"],
	}, nil
}
