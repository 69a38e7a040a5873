package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
)

func newTestRuntime(t *testing.T) (*db.Database, *pipeline.Runtime) {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, &pipeline.Runtime{DB: d}
}

func mustCreate(t *testing.T, ctx context.Context, d *db.Database, e model.Entity) {
	t.Helper()
	require.NoError(t, db.CreateEntity(ctx, d, e))
}

func TestAddEntityInsertsRow(t *testing.T) {
	ctx := context.Background()
	d, rt := newTestRuntime(t)

	task := AddEntity{Entity: model.Agency{ID: "1", Name: "ZTM", URL: "https://ztm.example", Timezone: "Europe/Warsaw"}}
	require.NoError(t, task.Execute(ctx, rt))

	got, err := db.RetrieveMust(ctx, d, model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "agency_id = ?", "1")
	require.NoError(t, err)
	require.Equal(t, "ZTM", got.Name)
}

func TestExecSQLRunsArbitraryStatement(t *testing.T) {
	ctx := context.Background()
	d, rt := newTestRuntime(t)
	mustCreate(t, ctx, d, model.Agency{ID: "1", Name: "Old", URL: "https://a", Timezone: "UTC"})

	task := ExecSQL{SQL: "UPDATE agencies SET name = ? WHERE agency_id = ?", Args: []interface{}{"New", "1"}}
	require.NoError(t, task.Execute(ctx, rt))

	got, err := db.RetrieveMust(ctx, d, model.AgencyFromRow, "agencies", model.Agency{}.SQLColumns(), "agency_id = ?", "1")
	require.NoError(t, err)
	require.Equal(t, "New", got.Name)
}

func TestTruncateCalendarsClipsAndDrops(t *testing.T) {
	ctx := context.Background()
	d, rt := newTestRuntime(t)

	inRange := model.Calendar{
		ID: "keep", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
		StartDate: model.Date{Year: 2026, Month: 1, Day: 1},
		EndDate:   model.Date{Year: 2026, Month: 12, Day: 31},
	}
	outOfRange := model.Calendar{
		ID: "drop", Monday: true,
		StartDate: model.Date{Year: 2020, Month: 1, Day: 1},
		EndDate:   model.Date{Year: 2020, Month: 12, Day: 31},
	}
	mustCreate(t, ctx, d, inRange)
	mustCreate(t, ctx, d, outOfRange)

	task := TruncateCalendars{Range: model.BoundedDateRange(
		model.Date{Year: 2026, Month: 6, Day: 1},
		model.Date{Year: 2026, Month: 6, Day: 30},
	)}
	require.NoError(t, task.Execute(ctx, rt))

	kept, err := db.RetrieveMust(ctx, d, model.CalendarFromRow, "calendars", model.Calendar{}.SQLColumns(), "calendar_id = ?", "keep")
	require.NoError(t, err)
	require.Equal(t, model.Date{Year: 2026, Month: 6, Day: 1}, kept.StartDate)
	require.Equal(t, model.Date{Year: 2026, Month: 6, Day: 30}, kept.EndDate)

	count, err := db.Count(ctx, d, "calendars", "calendar_id = ?", "drop")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestRemoveUnusedEntitiesPrunesOrphans(t *testing.T) {
	ctx := context.Background()
	d, rt := newTestRuntime(t)

	mustCreate(t, ctx, d, model.Agency{ID: "used", Name: "Used", URL: "https://a", Timezone: "UTC"})
	mustCreate(t, ctx, d, model.Agency{ID: "unused", Name: "Unused", URL: "https://b", Timezone: "UTC"})
	mustCreate(t, ctx, d, model.Route{ID: "R1", AgencyID: "used", ShortName: "1", Type: model.RouteTypeBus})
	mustCreate(t, ctx, d, model.Calendar{
		ID: "C1", Monday: true,
		StartDate: model.Date{Year: 2026, Month: 1, Day: 1},
		EndDate:   model.Date{Year: 2026, Month: 12, Day: 31},
	})
	mustCreate(t, ctx, d, model.Trip{ID: "T1", RouteID: "R1", CalendarID: "C1", ExtraFieldsJSON: "{}"})

	require.NoError(t, RemoveUnusedEntities{}.Execute(ctx, rt))

	count, err := db.Count(ctx, d, "agencies", "agency_id = ?", "unused")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	count, err = db.Count(ctx, d, "agencies", "agency_id = ?", "used")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
