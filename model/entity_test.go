package model

import "testing"

func TestAgencySQLRoundTrip(t *testing.T) {
	a := Agency{ID: "1", Name: "ZTM", URL: "https://ztm.example", Timezone: "Europe/Warsaw"}
	got, err := AgencyFromRow(a.SQLMarshall())
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Fatalf("got %+v, want %+v", got, a)
	}
}

func TestAgencyGTFSRoundTrip(t *testing.T) {
	a := Agency{ID: "1", Name: "ZTM", URL: "https://ztm.example", Timezone: "Europe/Warsaw", Lang: "pl"}
	got, err := AgencyFromGTFS(a.GTFSMarshall())
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Fatalf("got %+v, want %+v", got, a)
	}
}

func TestRouteRejectsInvalidType(t *testing.T) {
	r := Route{ID: "1", AgencyID: "1", Type: 9}
	if _, err := RouteFromRow(r.SQLMarshall()); err == nil {
		t.Fatal("expected error for invalid route type")
	}
}

func TestRouteSQLRoundTrip(t *testing.T) {
	order := 3
	r := Route{ID: "1", AgencyID: "1", ShortName: "7", LongName: "Main Line", Type: RouteTypeTram, SortOrder: &order}
	got, err := RouteFromRow(r.SQLMarshall())
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID || got.Type != r.Type || *got.SortOrder != *r.SortOrder {
		t.Fatalf("got %+v, want %+v", got, r)
	}
}

func TestStopGTFSRoundTrip(t *testing.T) {
	wheelchair := true
	s := Stop{
		ID: "s1", Name: "Central", Lat: 52.1, Lon: 21.0, LocationType: StopLocationStop,
		WheelchairBoarding: &wheelchair,
	}
	got, err := StopFromGTFS(s.GTFSMarshall())
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != s.ID || got.Lat != s.Lat || *got.WheelchairBoarding != *s.WheelchairBoarding {
		t.Fatalf("got %+v, want %+v", got, s)
	}
}

func TestStopTimeSQLRoundTrip(t *testing.T) {
	st := StopTime{
		TripID: "t1", StopSeq: 2, StopID: "s1",
		ArrivalTime: NewTimePoint(8, 0, 0), DepartureTime: NewTimePoint(8, 1, 0),
	}
	got, err := StopTimeFromRow(st.SQLMarshall())
	if err != nil {
		t.Fatal(err)
	}
	if got != st {
		t.Fatalf("got %+v, want %+v", got, st)
	}
}

func TestTranslationValidateRejectsBothIdentifiers(t *testing.T) {
	tr := Translation{TableName: "stops", FieldName: "stop_name", Lang: "pl", RecordID: "s1", FieldValue: "Central"}
	if err := tr.Validate(); err == nil {
		t.Fatal("expected validation error when both identifiers set")
	}
}

func TestTranslationValidateAcceptsNeitherIdentifier(t *testing.T) {
	// A blanket translation (no record_id, no field_value) applies to
	// every row of table_name/field_name and is valid GTFS.
	tr := Translation{TableName: "stops", FieldName: "stop_name", Lang: "pl"}
	if err := tr.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestTranslationValidateAcceptsRecordID(t *testing.T) {
	tr := Translation{TableName: "stops", FieldName: "stop_name", Lang: "pl", RecordID: "s1"}
	if err := tr.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestTranslationValidateRejectsRecordSubIDWithoutRecordID(t *testing.T) {
	tr := Translation{TableName: "stops", FieldName: "stop_name", Lang: "pl", RecordSubID: "sub"}
	if err := tr.Validate(); err == nil {
		t.Fatal("expected validation error for record_sub_id without record_id")
	}
}

func TestTranslationValidateRejectsUnknownTableName(t *testing.T) {
	tr := Translation{TableName: "not_a_gtfs_table", FieldName: "x", Lang: "pl", RecordID: "s1"}
	if err := tr.Validate(); err == nil {
		t.Fatal("expected validation error for unknown table_name")
	}
}

func TestExtraTableRowFieldsRoundTrip(t *testing.T) {
	row, err := NewExtraTableRow("pathways", 1, 0, map[string]string{"pathway_id": "p1"})
	if err != nil {
		t.Fatal(err)
	}
	fields, err := row.Fields()
	if err != nil {
		t.Fatal(err)
	}
	if fields["pathway_id"] != "p1" {
		t.Fatalf("got %+v", fields)
	}
}
