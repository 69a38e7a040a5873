package model

// Agency is a transit operator. Equivalent to GTFS's agency.txt entries.
type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
	Lang     string
	Phone    string
	FareURL  string
}

func (Agency) SQLTableName() string { return "agencies" }

func (Agency) SQLCreateTable() string {
	return `CREATE TABLE agencies (
		agency_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		timezone TEXT NOT NULL,
		lang TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		fare_url TEXT NOT NULL DEFAULT ''
	) STRICT;`
}

func (Agency) SQLColumns() string {
	return "(agency_id, name, url, timezone, lang, phone, fare_url)"
}

func (Agency) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?)" }

func (Agency) SQLWhereClause() string { return "agency_id = ?" }

func (Agency) SQLSetClause() string {
	return "agency_id = ?, name = ?, url = ?, timezone = ?, lang = ?, phone = ?, fare_url = ?"
}

func (a Agency) SQLMarshall() []SQLValue {
	return []SQLValue{a.ID, a.Name, a.URL, a.Timezone, a.Lang, a.Phone, a.FareURL}
}

func (a Agency) SQLPrimaryKey() []SQLValue { return []SQLValue{a.ID} }

// AgencyFromRow rebuilds an Agency from a row in SQLColumns order.
func AgencyFromRow(row []SQLValue) (Agency, error) {
	var a Agency
	var err error
	a.ID, err = asString(row[0], err)
	a.Name, err = asString(row[1], err)
	a.URL, err = asString(row[2], err)
	a.Timezone, err = asString(row[3], err)
	a.Lang, err = asString(row[4], err)
	a.Phone, err = asString(row[5], err)
	a.FareURL, err = asString(row[6], err)
	return a, err
}

func (Agency) GTFSTableName() string { return "agency" }

func (a Agency) GTFSMarshall() map[string]string {
	return map[string]string{
		"agency_id":       a.ID,
		"agency_name":     a.Name,
		"agency_url":      a.URL,
		"agency_timezone": a.Timezone,
		"agency_lang":     a.Lang,
		"agency_phone":    a.Phone,
		"agency_fare_url": a.FareURL,
	}
}

// AgencyFromGTFS rebuilds an Agency from a GTFS row, applying the
// documented fallback values for optional columns.
func AgencyFromGTFS(row map[string]string) (Agency, error) {
	return Agency{
		ID:       row["agency_id"],
		Name:     row["agency_name"],
		URL:      row["agency_url"],
		Timezone: row["agency_timezone"],
		Lang:     row["agency_lang"],
		Phone:    row["agency_phone"],
		FareURL:  row["agency_fare_url"],
	}, nil
}
