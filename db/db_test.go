package db

import (
	"context"
	"testing"

	"impuls.dev/impuls/model"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestCreateAndRetrieveAgency(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	a := model.Agency{ID: "1", Name: "ZTM", URL: "https://ztm.example", Timezone: "Europe/Warsaw"}
	if err := CreateEntity(ctx, d, a); err != nil {
		t.Fatal(err)
	}

	got, err := RetrieveMust(ctx, d, model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "agency_id = ?", "1")
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Fatalf("got %+v, want %+v", got, a)
	}

	_, found, err := Retrieve(ctx, d, model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "agency_id = ?", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected no row for missing agency id")
	}
}

func TestRetrieveAllAndDelete(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	agencies := []model.Agency{
		{ID: "1", Name: "A", URL: "https://a.example", Timezone: "UTC"},
		{ID: "2", Name: "B", URL: "https://b.example", Timezone: "UTC"},
	}
	if err := CreateMany(ctx, d, agencies); err != nil {
		t.Fatal(err)
	}

	cursor, err := RetrieveAll(ctx, d, model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "1")
	if err != nil {
		t.Fatal(err)
	}
	all, err := cursor.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d agencies", len(all))
	}

	n, err := DeleteWhere(ctx, d, "agencies", "agency_id = ?", "1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("deleted %d rows, want 1", n)
	}

	count, err := Count(ctx, d, "agencies", "1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestUpdateEntityMissingRow(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	a := model.Agency{ID: "missing", Name: "Ghost", URL: "https://ghost.example", Timezone: "UTC"}
	err := UpdateEntity(ctx, d, a)
	if err == nil {
		t.Fatal("expected error updating a row that doesn't exist")
	}
}

func TestUpdateManyAppliesEveryEntity(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	agencies := []model.Agency{
		{ID: "1", Name: "A", URL: "https://a.example", Timezone: "UTC"},
		{ID: "2", Name: "B", URL: "https://b.example", Timezone: "UTC"},
	}
	if err := CreateMany(ctx, d, agencies); err != nil {
		t.Fatal(err)
	}

	agencies[0].Name = "A2"
	agencies[1].Name = "B2"
	if err := UpdateMany(ctx, d, agencies); err != nil {
		t.Fatal(err)
	}

	got, err := RetrieveMust(ctx, d, model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "agency_id = ?", "2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "B2" {
		t.Fatalf("got %+v", got)
	}
}

func TestCursorOneAndMany(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	agencies := []model.Agency{
		{ID: "1", Name: "A", URL: "https://a.example", Timezone: "UTC"},
		{ID: "2", Name: "B", URL: "https://b.example", Timezone: "UTC"},
		{ID: "3", Name: "C", URL: "https://c.example", Timezone: "UTC"},
	}
	if err := CreateMany(ctx, d, agencies); err != nil {
		t.Fatal(err)
	}

	cursor, err := RetrieveAll(ctx, d, model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "1")
	if err != nil {
		t.Fatal(err)
	}
	first, found, err := cursor.One()
	if err != nil {
		t.Fatal(err)
	}
	if !found || first.ID != "1" {
		t.Fatalf("got %+v, found=%v", first, found)
	}

	rest, err := cursor.Many(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 2 {
		t.Fatalf("got %d remaining rows, want 2", len(rest))
	}
}
