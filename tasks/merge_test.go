package tasks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
)

func seedSmallFeed(t *testing.T, ctx context.Context, d *db.Database, suffix, routeShortName string, lat, lon float64) {
	t.Helper()
	require.NoError(t, db.CreateEntity(ctx, d, model.Agency{ID: "1", Name: "ZTM", URL: "https://ztm.example", Timezone: "Europe/Warsaw"}))
	require.NoError(t, db.CreateEntity(ctx, d, model.Route{ID: "R" + suffix, AgencyID: "1", ShortName: routeShortName, Type: model.RouteTypeBus}))
	require.NoError(t, db.CreateEntity(ctx, d, model.Stop{ID: "S" + suffix, Name: "Main St " + suffix, Lat: lat, Lon: lon}))
	require.NoError(t, db.CreateEntity(ctx, d, model.Calendar{
		ID: "C" + suffix, Monday: true,
		StartDate: model.Date{Year: 2026, Month: 1, Day: 1},
		EndDate:   model.Date{Year: 2026, Month: 12, Day: 31},
	}))
	require.NoError(t, db.CreateEntity(ctx, d, model.Trip{ID: "T" + suffix, RouteID: "R" + suffix, CalendarID: "C" + suffix, ExtraFieldsJSON: "{}"}))
	require.NoError(t, db.CreateEntity(ctx, d, model.StopTime{
		TripID: "T" + suffix, StopID: "S" + suffix, StopSeq: 0,
		ArrivalTime: model.NewTimePoint(8, 0, 0), DepartureTime: model.NewTimePoint(8, 0, 0),
	}))
}

func TestMergeFoldsIncomingDatabaseWithPrefixedIds(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	main, err := db.Open(filepath.Join(dir, "main.db"))
	require.NoError(t, err)
	defer main.Close()
	seedSmallFeed(t, ctx, main, "a", "1", 52.1, 21.0)

	incomingPath := filepath.Join(dir, "incoming.db")
	incoming, err := db.Open(incomingPath)
	require.NoError(t, err)
	// distinct route (different short name) and a stop far enough away
	// that it does not merge by proximity with feed a's stop.
	seedSmallFeed(t, ctx, incoming, "b", "2", 53.5, 22.5)
	require.NoError(t, incoming.Close())

	rt := &pipeline.Runtime{DB: main}
	task := Merge{Databases: []DatabaseToMerge{
		{ResourceName: "feed-b", Prefix: "b", Path: incomingPath},
	}}
	require.NoError(t, task.Execute(ctx, rt))

	count, err := db.Count(ctx, main, "trips", "1")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// incoming trip id was prefixed since trips always merge unconditionally,
	// while its route kept its own id since it never matched feed a's route.
	got, err := db.RetrieveMust(ctx, main, model.TripFromRow, "trips", model.Trip{}.SQLColumns(), "trip_id = ?", "b:Tb")
	require.NoError(t, err)
	require.Equal(t, "Rb", got.RouteID)

	// the two feeds' stops are distinct (too far apart to be the same
	// real-world stop), so both survive the merge.
	stopCount, err := db.Count(ctx, main, "stops", "1")
	require.NoError(t, err)
	require.Equal(t, int64(2), stopCount)
}

func TestMergeKeepsSingleRouteWhenValueAndProximityMatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	main, err := db.Open(filepath.Join(dir, "main.db"))
	require.NoError(t, err)
	defer main.Close()
	seedSmallFeed(t, ctx, main, "a", "1", 52.1, 21.0)

	incomingPath := filepath.Join(dir, "incoming.db")
	incoming, err := db.Open(incomingPath)
	require.NoError(t, err)
	// identical route attributes and a stop within merge distance.
	seedSmallFeed(t, ctx, incoming, "b", "1", 52.100001, 21.000001)
	require.NoError(t, incoming.Close())

	rt := &pipeline.Runtime{DB: main}
	task := Merge{Databases: []DatabaseToMerge{
		{ResourceName: "feed-b", Prefix: "b", Path: incomingPath},
	}}
	require.NoError(t, task.Execute(ctx, rt))

	routeCount, err := db.Count(ctx, main, "routes", "1")
	require.NoError(t, err)
	require.Equal(t, int64(1), routeCount)

	got, err := db.RetrieveMust(ctx, main, model.TripFromRow, "trips", model.Trip{}.SQLColumns(), "trip_id = ?", "b:Tb")
	require.NoError(t, err)
	require.Equal(t, "Ra", got.RouteID)
}
