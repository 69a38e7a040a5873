package model

import "fmt"

// translatableGTFSTables lists the GTFS table names translations.txt is
// allowed to reference in its table_name column.
var translatableGTFSTables = map[string]bool{
	"agency": true, "stops": true, "routes": true, "trips": true,
	"stop_times": true, "feed_info": true, "pathways": true, "levels": true,
	"attributions": true,
}

// Translation provides a localized value for a single field of another
// entity. Equivalent to one row of GTFS's translations.txt.
//
// The GTFS spec allows identifying the translated record either by
// RecordID (a direct primary key reference) or by FieldValue (matching
// by the original field's untranslated value), but never both at once;
// a blanket translation (applying to every row of table_name/field_name)
// leaves both empty. Both the table's CHECK constraint and Validate
// enforce that NAND relationship; Validate also applies the two
// lookup-consistency rules GTFS places on record_sub_id and table_name.
type Translation struct {
	ID          int64
	TableName   string
	FieldName   string
	Lang        string
	Translation string
	RecordID    string
	RecordSubID string
	FieldValue  string
}

// Validate reports whether RecordID and FieldValue are not both set,
// whether RecordSubID is only used alongside a RecordID, and whether
// TableName names a table GTFS allows translating.
func (t Translation) Validate() error {
	if t.RecordID != "" && t.FieldValue != "" {
		return &InvalidFieldError{
			Entity: "Translation", Field: "record_id/field_value",
			Value: fmt.Sprintf("record_id=%q field_value=%q", t.RecordID, t.FieldValue),
		}
	}
	if t.RecordSubID != "" && t.RecordID == "" {
		return &InvalidFieldError{
			Entity: "Translation", Field: "record_sub_id",
			Value: fmt.Sprintf("record_sub_id=%q without record_id", t.RecordSubID),
		}
	}
	if !translatableGTFSTables[t.TableName] {
		return &InvalidFieldError{Entity: "Translation", Field: "table_name", Value: t.TableName}
	}
	return nil
}

func (Translation) SQLTableName() string { return "translations" }

func (Translation) SQLCreateTable() string {
	return `CREATE TABLE translations (
		id INTEGER PRIMARY KEY,
		table_name TEXT NOT NULL,
		field_name TEXT NOT NULL,
		lang TEXT NOT NULL,
		translation TEXT NOT NULL,
		record_id TEXT NOT NULL DEFAULT '',
		record_sub_id TEXT NOT NULL DEFAULT '',
		field_value TEXT NOT NULL DEFAULT '',
		CHECK (NOT (record_id != '' AND field_value != '')),
		CHECK (record_sub_id = '' OR record_id != '')
	) STRICT;
	CREATE INDEX idx_translations_lookup ON translations(table_name, record_id, record_sub_id);`
}

func (Translation) SQLColumns() string {
	return "(id, table_name, field_name, lang, translation, record_id, record_sub_id, field_value)"
}

func (Translation) SQLPlaceholder() string { return "(?, ?, ?, ?, ?, ?, ?, ?)" }

func (Translation) SQLWhereClause() string { return "id = ?" }

func (Translation) SQLSetClause() string {
	return "id = ?, table_name = ?, field_name = ?, lang = ?, translation = ?, record_id = ?, " +
		"record_sub_id = ?, field_value = ?"
}

func (t Translation) SQLMarshall() []SQLValue {
	return []SQLValue{
		t.ID, t.TableName, t.FieldName, t.Lang, t.Translation, t.RecordID, t.RecordSubID, t.FieldValue,
	}
}

func (t Translation) SQLPrimaryKey() []SQLValue { return []SQLValue{t.ID} }

// TranslationFromRow rebuilds a Translation from a row in SQLColumns
// order.
func TranslationFromRow(row []SQLValue) (Translation, error) {
	var t Translation
	var err error
	var id int
	id, err = asInt(row[0], err)
	t.ID = int64(id)
	t.TableName, err = asString(row[1], err)
	t.FieldName, err = asString(row[2], err)
	t.Lang, err = asString(row[3], err)
	t.Translation, err = asString(row[4], err)
	t.RecordID, err = asString(row[5], err)
	t.RecordSubID, err = asString(row[6], err)
	t.FieldValue, err = asString(row[7], err)
	if err != nil {
		return t, err
	}
	return t, t.Validate()
}

func (Translation) GTFSTableName() string { return "translations" }

func (t Translation) GTFSMarshall() map[string]string {
	return map[string]string{
		"table_name":    t.TableName,
		"field_name":    t.FieldName,
		"language":      t.Lang,
		"translation":   t.Translation,
		"record_id":     t.RecordID,
		"record_sub_id": t.RecordSubID,
		"field_value":   t.FieldValue,
	}
}

// TranslationFromGTFS rebuilds a Translation from a GTFS row. The caller
// is responsible for assigning ID, since translations.txt carries no id
// column of its own.
func TranslationFromGTFS(row map[string]string) (Translation, error) {
	t := Translation{
		TableName:   row["table_name"],
		FieldName:   row["field_name"],
		Lang:        row["language"],
		Translation: row["translation"],
		RecordID:    row["record_id"],
		RecordSubID: row["record_sub_id"],
		FieldValue:  row["field_value"],
	}
	return t, t.Validate()
}
