package model

// FeedInfo carries metadata about the published feed. There is always at
// most one row, with id fixed to "0".
type FeedInfo struct {
	PublisherName string
	PublisherURL  string
	Lang          string
	Version       string
	ContactEmail  string
	ContactURL    string
}

// FeedInfoID is the only valid primary key value for FeedInfo.
const FeedInfoID = "0"

func (FeedInfo) SQLTableName() string { return "feed_info" }

func (FeedInfo) SQLCreateTable() string {
	return `CREATE TABLE feed_info (
		feed_info_id TEXT PRIMARY KEY CHECK (feed_info_id = '0'),
		publisher_name TEXT NOT NULL,
		publisher_url TEXT NOT NULL,
		lang TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		contact_url TEXT NOT NULL DEFAULT ''
	) STRICT;`
}

func (FeedInfo) SQLColumns() string {
	return "(feed_info_id, publisher_name, publisher_url, lang, version, contact_email, contact_url)"
}

func (FeedInfo) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?)" }

func (FeedInfo) SQLWhereClause() string { return "feed_info_id = ?" }

func (FeedInfo) SQLSetClause() string {
	return "feed_info_id = ?, publisher_name = ?, publisher_url = ?, lang = ?, version = ?, contact_email = ?, contact_url = ?"
}

func (f FeedInfo) SQLMarshall() []SQLValue {
	return []SQLValue{FeedInfoID, f.PublisherName, f.PublisherURL, f.Lang, f.Version, f.ContactEmail, f.ContactURL}
}

func (f FeedInfo) SQLPrimaryKey() []SQLValue { return []SQLValue{FeedInfoID} }

// FeedInfoFromRow rebuilds a FeedInfo from a row in SQLColumns order.
func FeedInfoFromRow(row []SQLValue) (FeedInfo, error) {
	var f FeedInfo
	var err error
	_, err = asString(row[0], err)
	f.PublisherName, err = asString(row[1], err)
	f.PublisherURL, err = asString(row[2], err)
	f.Lang, err = asString(row[3], err)
	f.Version, err = asString(row[4], err)
	f.ContactEmail, err = asString(row[5], err)
	f.ContactURL, err = asString(row[6], err)
	return f, err
}

func (FeedInfo) GTFSTableName() string { return "feed_info" }

func (f FeedInfo) GTFSMarshall() map[string]string {
	return map[string]string{
		"feed_publisher_name": f.PublisherName,
		"feed_publisher_url":  f.PublisherURL,
		"feed_lang":           f.Lang,
		"feed_version":        f.Version,
		"feed_contact_email":  f.ContactEmail,
		"feed_contact_url":    f.ContactURL,
	}
}

// FeedInfoFromGTFS rebuilds a FeedInfo from a GTFS row.
func FeedInfoFromGTFS(row map[string]string) (FeedInfo, error) {
	return FeedInfo{
		PublisherName: row["feed_publisher_name"],
		PublisherURL:  row["feed_publisher_url"],
		Lang:          row["feed_lang"],
		Version:       row["feed_version"],
		ContactEmail:  row["feed_contact_email"],
		ContactURL:    row["feed_contact_url"],
	}, nil
}
