package model

import "github.com/google/uuid"

// Attribution represents a copyright or other attribution that must be
// attached to the dataset. Equivalent to GTFS's attributions.txt entries.
type Attribution struct {
	ID               string
	OrganizationName string
	IsProducer       bool
	IsOperator       bool
	IsAuthority      bool
	IsDataSource     bool
	URL              string
	Email            string
	Phone            string
}

func (Attribution) SQLTableName() string { return "attributions" }

func (Attribution) SQLCreateTable() string {
	return `CREATE TABLE attributions (
		attribution_id TEXT PRIMARY KEY,
		organization_name TEXT NOT NULL,
		is_producer INTEGER NOT NULL CHECK (is_producer IN (0, 1)),
		is_operator INTEGER NOT NULL CHECK (is_operator IN (0, 1)),
		is_authority INTEGER NOT NULL CHECK (is_authority IN (0, 1)),
		is_data_source INTEGER NOT NULL CHECK (is_data_source IN (0, 1)),
		url TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT ''
	) STRICT;`
}

func (Attribution) SQLColumns() string {
	return "(attribution_id, organization_name, is_producer, is_operator, is_authority, is_data_source, url, email, phone)"
}

func (Attribution) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?, ?)" }

func (Attribution) SQLWhereClause() string { return "attribution_id = ?" }

func (Attribution) SQLSetClause() string {
	return "attribution_id = ?, organization_name = ?, is_producer = ?, is_operator = ?, " +
		"is_authority = ?, is_data_source = ?, url = ?, email = ?, phone = ?"
}

func (a Attribution) SQLMarshall() []SQLValue {
	return []SQLValue{
		a.ID, a.OrganizationName, boolToInt(a.IsProducer), boolToInt(a.IsOperator),
		boolToInt(a.IsAuthority), boolToInt(a.IsDataSource), a.URL, a.Email, a.Phone,
	}
}

func (a Attribution) SQLPrimaryKey() []SQLValue { return []SQLValue{a.ID} }

// AttributionFromRow rebuilds an Attribution from a row in SQLColumns order.
func AttributionFromRow(row []SQLValue) (Attribution, error) {
	var a Attribution
	var err error
	a.ID, err = asString(row[0], err)
	a.OrganizationName, err = asString(row[1], err)
	a.IsProducer, err = asBool(row[2], err)
	a.IsOperator, err = asBool(row[3], err)
	a.IsAuthority, err = asBool(row[4], err)
	a.IsDataSource, err = asBool(row[5], err)
	a.URL, err = asString(row[6], err)
	a.Email, err = asString(row[7], err)
	a.Phone, err = asString(row[8], err)
	return a, err
}

func (Attribution) GTFSTableName() string { return "attributions" }

func (a Attribution) GTFSMarshall() map[string]string {
	return map[string]string{
		"attribution_id":    a.ID,
		"organization_name": a.OrganizationName,
		"is_producer":       gtfsBool(a.IsProducer),
		"is_operator":       gtfsBool(a.IsOperator),
		"is_authority":      gtfsBool(a.IsAuthority),
		"is_data_source":    gtfsBool(a.IsDataSource),
		"attribution_url":   a.URL,
		"attribution_email": a.Email,
		"attribution_phone": a.Phone,
	}
}

// AttributionFromGTFS rebuilds an Attribution from a GTFS row.
func AttributionFromGTFS(row map[string]string) (Attribution, error) {
	isProducer, err := parseGTFSBool(row["is_producer"])
	if err != nil {
		return Attribution{}, err
	}
	isOperator, err := parseGTFSBool(row["is_operator"])
	if err != nil {
		return Attribution{}, err
	}
	isAuthority, err := parseGTFSBool(row["is_authority"])
	if err != nil {
		return Attribution{}, err
	}
	isDataSource, err := parseGTFSBool(row["is_data_source"])
	if err != nil {
		return Attribution{}, err
	}
	id := row["attribution_id"]
	if id == "" {
		// attribution_id is optional in GTFS; synthesize one so every
		// row still has a usable primary key.
		id = uuid.NewString()
	}
	return Attribution{
		ID:               id,
		OrganizationName: row["organization_name"],
		IsProducer:       isProducer,
		IsOperator:       isOperator,
		IsAuthority:      isAuthority,
		IsDataSource:     isDataSource,
		URL:              row["attribution_url"],
		Email:            row["attribution_email"],
		Phone:            row["attribution_phone"],
	}, nil
}
