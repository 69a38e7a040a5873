package tasks

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/pipeline"
	"impuls.dev/impuls/resource"
)

func writeZip(t *testing.T, dir string, files map[string][][]string) string {
	t.Helper()
	path := filepath.Join(dir, "feed.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
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
	return path
}

func TestLoadGTFSThenSaveGTFSRoundTrips(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeZip(t, dir, map[string][][]string{
		"agency.txt": {
			{"agency_id", "agency_name", "agency_url", "agency_timezone"},
			{"1", "ZTM", "https://ztm.example", "Europe/Warsaw"},
		},
		"routes.txt": {
			{"route_id", "agency_id", "route_short_name", "route_long_name", "route_type"},
			{"R1", "1", "1", "Downtown Line", "3"},
		},
		"calendar.txt": {
			{"service_id", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "start_date", "end_date"},
			{"C1", "1", "1", "1", "1", "1", "0", "0", "20260101", "20261231"},
		},
		"stops.txt": {
			{"stop_id", "stop_name", "stop_lat", "stop_lon"},
			{"S1", "Main St", "52.1", "21.0"},
			{"S2", "Park Ave", "52.2", "21.1"},
		},
		"trips.txt": {
			{"trip_id", "route_id", "service_id"},
			{"T1", "R1", "C1"},
		},
		"stop_times.txt": {
			{"trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"},
			{"T1", "S1", "0", "08:00:00", "08:00:00"},
			{"T1", "S2", "1", "08:10:00", "08:10:00"},
		},
	})

	d, err := db.OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	rt := &pipeline.Runtime{
		DB:        d,
		Resources: map[string]resource.ManagedResource{"gtfs.zip": {Path: zipPath}},
		Options:   pipeline.Options{},
	}

	ctx := context.Background()
	require.NoError(t, LoadGTFS{Resource: "gtfs.zip"}.Execute(ctx, rt))

	outPath := filepath.Join(dir, "out.zip")
	require.NoError(t, SaveGTFS{Path: outPath}.Execute(ctx, rt))

	zr, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer zr.Close()

	members := map[string]*zip.File{}
	for _, f := range zr.File {
		members[f.Name] = f
	}
	require.Contains(t, members, "stops.txt")
	require.Contains(t, members, "trips.txt")
	require.Contains(t, members, "stop_times.txt")

	f, err := members["stops.txt"].Open()
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, 3, len(rows)) // header + 2 stops
}

func TestLoadGTFSCapturesUnknownFilesAsExtraTableRow(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeZip(t, dir, map[string][][]string{
		"agency.txt": {
			{"agency_id", "agency_name", "agency_url", "agency_timezone"},
			{"1", "ZTM", "https://ztm.example", "Europe/Warsaw"},
		},
		"fare_media.txt": {
			{"fare_media_id", "fare_media_name"},
			{"card", "Contactless Card"},
		},
	})

	d, err := db.OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	rt := &pipeline.Runtime{
		DB:        d,
		Resources: map[string]resource.ManagedResource{"gtfs.zip": {Path: zipPath}},
	}

	ctx := context.Background()
	require.NoError(t, LoadGTFS{Resource: "gtfs.zip"}.Execute(ctx, rt))

	count, err := db.Count(ctx, d, "extra_table_rows", "table_name = ?", "fare_media.txt")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
