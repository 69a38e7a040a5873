package model

// AllEntityTypes lists the SQL table name of every entity this model
// knows about, in an order safe for CREATE TABLE (referenced tables
// before referencing ones) and for DELETE (reverse order, referencing
// tables first).
var AllEntityTypes = []string{
	Agency{}.SQLTableName(),
	FeedInfo{}.SQLTableName(),
	Attribution{}.SQLTableName(),
	Calendar{}.SQLTableName(),
	CalendarException{}.SQLTableName(),
	Route{}.SQLTableName(),
	Shape{}.SQLTableName(),
	ShapePoint{}.SQLTableName(),
	Stop{}.SQLTableName(),
	Trip{}.SQLTableName(),
	Transfer{}.SQLTableName(),
	StopTime{}.SQLTableName(),
	Frequency{}.SQLTableName(),
	FareAttribute{}.SQLTableName(),
	FareRule{}.SQLTableName(),
	Translation{}.SQLTableName(),
	ExtraTableRow{}.SQLTableName(),
}

// AllGTFSEntityTypes lists the GTFS table name (the basename a loader or
// saver maps to a .txt file) of every entity that participates in
// GTFS import/export, i.e. every entity except Shape (its rows are
// derived from shapes.txt points) and ExtraTableRow (re-expanded back
// into its own file by name instead).
var AllGTFSEntityTypes = []string{
	Agency{}.GTFSTableName(),
	FeedInfo{}.GTFSTableName(),
	Attribution{}.GTFSTableName(),
	Calendar{}.GTFSTableName(),
	CalendarException{}.GTFSTableName(),
	Route{}.GTFSTableName(),
	ShapePoint{}.GTFSTableName(),
	Stop{}.GTFSTableName(),
	Transfer{}.GTFSTableName(),
	Trip{}.GTFSTableName(),
	StopTime{}.GTFSTableName(),
	Frequency{}.GTFSTableName(),
	FareAttribute{}.GTFSTableName(),
	FareRule{}.GTFSTableName(),
	Translation{}.GTFSTableName(),
}

// CreateTableStatements returns the CREATE TABLE (and accompanying
// CREATE INDEX) statements for every known entity, in AllEntityTypes
// order.
func CreateTableStatements() []string {
	return []string{
		Agency{}.SQLCreateTable(),
		FeedInfo{}.SQLCreateTable(),
		Attribution{}.SQLCreateTable(),
		Calendar{}.SQLCreateTable(),
		CalendarException{}.SQLCreateTable(),
		Route{}.SQLCreateTable(),
		Shape{}.SQLCreateTable(),
		ShapePoint{}.SQLCreateTable(),
		Stop{}.SQLCreateTable(),
		Trip{}.SQLCreateTable(),
		Transfer{}.SQLCreateTable(),
		StopTime{}.SQLCreateTable(),
		Frequency{}.SQLCreateTable(),
		FareAttribute{}.SQLCreateTable(),
		FareRule{}.SQLCreateTable(),
		Translation{}.SQLCreateTable(),
		ExtraTableRow{}.SQLCreateTable(),
	}
}
