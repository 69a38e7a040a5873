package model

import (
	"encoding/json"
	"fmt"
)

// ExtraTableRow preserves a row from a GTFS table this model has no
// dedicated struct for, so round-tripping a feed never silently drops
// data. FieldsJSON holds the row as a JSON object of column name to
// string value. ID is a surrogate assigned by the loader; RowSortOrder
// records the row's original position within its source file so it can
// be written back out in the same order, since rows from different
// tables otherwise interleave once stored in one SQL table.
type ExtraTableRow struct {
	ID           int64
	TableName    string
	FieldsJSON   string
	RowSortOrder *int
}

func (ExtraTableRow) SQLTableName() string { return "extra_table_rows" }

func (ExtraTableRow) SQLCreateTable() string {
	return `CREATE TABLE extra_table_rows (
		id INTEGER PRIMARY KEY,
		table_name TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		row_sort_order INTEGER
	) STRICT;
	CREATE INDEX idx_extra_table_rows_table_name ON extra_table_rows(table_name);`
}

func (ExtraTableRow) SQLColumns() string { return "(id, table_name, fields_json, row_sort_order)" }

func (ExtraTableRow) SQLPlaceholder() string { return "(?, ?, ?, ?)" }

func (ExtraTableRow) SQLWhereClause() string { return "id = ?" }

func (ExtraTableRow) SQLSetClause() string {
	return "id = ?, table_name = ?, fields_json = ?, row_sort_order = ?"
}

func (r ExtraTableRow) SQLMarshall() []SQLValue {
	return []SQLValue{r.ID, r.TableName, r.FieldsJSON, nullableIntToValue(r.RowSortOrder)}
}

func (r ExtraTableRow) SQLPrimaryKey() []SQLValue { return []SQLValue{r.ID} }

// ExtraTableRowFromRow rebuilds an ExtraTableRow from a row in
// SQLColumns order.
func ExtraTableRowFromRow(row []SQLValue) (ExtraTableRow, error) {
	var r ExtraTableRow
	var err error
	var id int
	id, err = asInt(row[0], err)
	r.ID = int64(id)
	r.TableName, err = asString(row[1], err)
	r.FieldsJSON, err = asString(row[2], err)
	r.RowSortOrder, err = asNullableInt(row[3], err)
	return r, err
}

// Fields decodes FieldsJSON into a plain column map.
func (r ExtraTableRow) Fields() (map[string]string, error) {
	var m map[string]string
	if r.FieldsJSON == "" {
		return map[string]string{}, nil
	}
	if err := json.Unmarshal([]byte(r.FieldsJSON), &m); err != nil {
		return nil, fmt.Errorf("model: decoding extra_table_rows.fields_json: %w", err)
	}
	return m, nil
}

// NewExtraTableRow encodes a raw GTFS row for a table this model has no
// dedicated entity for. id is the row's surrogate primary key and
// sortOrder its 0-based position within the source file.
func NewExtraTableRow(tableName string, id int64, sortOrder int, fields map[string]string) (ExtraTableRow, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return ExtraTableRow{}, err
	}
	return ExtraTableRow{ID: id, TableName: tableName, FieldsJSON: string(b), RowSortOrder: &sortOrder}, nil
}
