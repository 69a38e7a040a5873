package multifile

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/impulserr"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
	"impuls.dev/impuls/resource"
	"impuls.dev/impuls/tasks"
)

func writeFeedZip(t *testing.T, path, stopID, routeShortName string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	files := map[string][][]string{
		"agency.txt": {
			{"agency_id", "agency_name", "agency_url", "agency_timezone"},
			{"1", "ZTM", "https://ztm.example", "Europe/Warsaw"},
		},
		"routes.txt": {
			{"route_id", "agency_id", "route_short_name", "route_long_name", "route_type"},
			{"R-" + stopID, "1", routeShortName, "Line", "3"},
		},
		"calendar.txt": {
			{"service_id", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "start_date", "end_date"},
			{"C-" + stopID, "1", "1", "1", "1", "1", "0", "0", "20260101", "20261231"},
		},
		"stops.txt": {
			{"stop_id", "stop_name", "stop_lat", "stop_lon"},
			{stopID, "Stop " + stopID, "52.1", "21.0"},
		},
		"trips.txt": {
			{"trip_id", "route_id", "service_id"},
			{"T-" + stopID, "R-" + stopID, "C-" + stopID},
		},
		"stop_times.txt": {
			{"trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"},
			{"T-" + stopID, stopID, "0", "08:00:00", "08:00:00"},
		},
	}
	for name, rows := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		cw := csv.NewWriter(w)
		for _, row := range rows {
			require.NoError(t, cw.Write(row))
		}
		cw.Flush()
		require.NoError(t, cw.Error())
	}
	require.NoError(t, zw.Close())
}

type fakeProvider struct {
	feeds []Feed
}

func (p fakeProvider) Needed() ([]Feed, error) { return p.feeds, nil }

func TestMultiFileResolvesAndMergesTwoVersions(t *testing.T) {
	dir := t.TempDir()

	zip1 := filepath.Join(dir, "source-v1.zip")
	zip2 := filepath.Join(dir, "source-v2.zip")
	writeFeedZip(t, zip1, "S1", "1")
	writeFeedZip(t, zip2, "S2", "2")

	feeds := []Feed{
		{
			Resource:     resource.NewLocalResource("feed-v1.zip", zip1),
			ResourceName: "feed-v1.zip",
			Version:      "v1",
			StartDate:    model.Date{Year: 2026, Month: 1, Day: 1},
		},
		{
			Resource:     resource.NewLocalResource("feed-v2.zip", zip2),
			ResourceName: "feed-v2.zip",
			Version:      "v2",
			StartDate:    model.Date{Year: 2026, Month: 6, Day: 1},
		},
	}

	workspace := filepath.Join(dir, "workspace")
	mf := &MultiFile{
		Provider: fakeProvider{feeds: feeds},
		Tasks: TaskFactories{
			IntermediatePipelineTasks: func(f Feed) ([]pipeline.Task, error) {
				return []pipeline.Task{tasks.LoadGTFS{Resource: f.ResourceName}}, nil
			},
			FinalPipelineTasks: func(fs []Feed) ([]pipeline.Task, error) {
				return nil, nil
			},
		},
		Options: Options{WorkspaceDirectory: workspace},
	}

	ctx := context.Background()
	require.NoError(t, mf.Run(ctx))

	final, err := db.Open(filepath.Join(workspace, "impuls.db"))
	require.NoError(t, err)
	defer final.Close()

	stopCount, err := db.Count(ctx, final, "stops", "1")
	require.NoError(t, err)
	require.Equal(t, int64(2), stopCount)

	tripCount, err := db.Count(ctx, final, "trips", "1")
	require.NoError(t, err)
	require.Equal(t, int64(2), tripCount)
}

func TestMultiFileReturnsErrInputNotModifiedOnSecondRun(t *testing.T) {
	dir := t.TempDir()
	zip1 := filepath.Join(dir, "source-v1.zip")
	writeFeedZip(t, zip1, "S1", "1")

	feeds := []Feed{
		{
			Resource:     resource.NewLocalResource("feed.zip", zip1),
			ResourceName: "feed.zip",
			Version:      "v1",
			StartDate:    model.Date{Year: 2026, Month: 1, Day: 1},
		},
	}

	workspace := filepath.Join(dir, "workspace")
	newMF := func() *MultiFile {
		return &MultiFile{
			Provider: fakeProvider{feeds: feeds},
			Tasks: TaskFactories{
				IntermediatePipelineTasks: func(f Feed) ([]pipeline.Task, error) {
					return []pipeline.Task{tasks.LoadGTFS{Resource: f.ResourceName}}, nil
				},
				FinalPipelineTasks: func(fs []Feed) ([]pipeline.Task, error) {
					return nil, nil
				},
			},
			Options: Options{WorkspaceDirectory: workspace},
		}
	}

	ctx := context.Background()
	require.NoError(t, newMF().Run(ctx))
	require.ErrorIs(t, newMF().Run(ctx), impulserr.ErrInputNotModified)
}
