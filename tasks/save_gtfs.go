package tasks

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
)

// SaveGTFS writes the pipeline database back out as a GTFS zip archive
// at Path, one file per entity table plus one per distinct ExtraTableRow
// table name. A loaded feed keeps its unrecognized files on save, but not
// the columns of recognized files that LoadGTFS did not keep.
type SaveGTFS struct {
	Path string
}

func (SaveGTFS) Name() string { return "SaveGTFS" }

func (t SaveGTFS) Execute(ctx context.Context, rt *pipeline.Runtime) error {
	f, err := os.Create(t.Path)
	if err != nil {
		return fmt.Errorf("SaveGTFS: creating %s: %w", t.Path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	if err := saveTable(ctx, rt, zw, "agency.txt", model.AgencyFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "feed_info.txt", model.FeedInfoFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "attributions.txt", model.AttributionFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "calendar.txt", model.CalendarFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "calendar_dates.txt", model.CalendarExceptionFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "routes.txt", model.RouteFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "shapes.txt", model.ShapePointFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "stops.txt", model.StopFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "transfers.txt", model.TransferFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "trips.txt", model.TripFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "stop_times.txt", model.StopTimeFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "frequencies.txt", model.FrequencyFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "fare_attributes.txt", model.FareAttributeFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "fare_rules.txt", model.FareRuleFromRow); err != nil {
		return err
	}
	if err := saveTable(ctx, rt, zw, "translations.txt", model.TranslationFromRow); err != nil {
		return err
	}
	return saveExtraTables(ctx, rt, zw)
}

func saveTable[T model.GTFSEntity](
	ctx context.Context, rt *pipeline.Runtime, zw *zip.Writer, filename string,
	fromRow func([]model.SQLValue) (T, error),
) error {
	var zero T
	cursor, err := db.RetrieveAll(ctx, rt.DB, fromRow, zero.SQLTableName(), zero.SQLColumns(), "1")
	if err != nil {
		return fmt.Errorf("SaveGTFS: loading %s: %w", zero.SQLTableName(), err)
	}
	entities, err := cursor.All()
	if err != nil {
		return fmt.Errorf("SaveGTFS: loading %s: %w", zero.SQLTableName(), err)
	}
	if len(entities) == 0 {
		return nil
	}

	columns := gtfsColumnOrder(entities[0].GTFSMarshall())
	w, err := zw.Create(filename)
	if err != nil {
		return fmt.Errorf("SaveGTFS: creating %s: %w", filename, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, e := range entities {
		row := e.GTFSMarshall()
		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = row[c]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("SaveGTFS: writing %s: %w", filename, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// rowSortOrderValue treats a missing RowSortOrder as sorting last, so rows
// that never had one (e.g. inserted by AddEntity rather than loaded from a
// GTFS file) don't perturb the order of rows that did.
func rowSortOrderValue(order *int) int {
	if order == nil {
		return int(^uint(0) >> 1)
	}
	return *order
}

func gtfsColumnOrder(row map[string]string) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func saveExtraTables(ctx context.Context, rt *pipeline.Runtime, zw *zip.Writer) error {
	cursor, err := db.RetrieveAll(ctx, rt.DB, model.ExtraTableRowFromRow, "extra_table_rows", model.ExtraTableRow{}.SQLColumns(), "1")
	if err != nil {
		return fmt.Errorf("SaveGTFS: loading extra table rows: %w", err)
	}
	rows, err := cursor.All()
	if err != nil {
		return fmt.Errorf("SaveGTFS: loading extra table rows: %w", err)
	}

	byTable := map[string][]model.ExtraTableRow{}
	for _, r := range rows {
		byTable[r.TableName] = append(byTable[r.TableName], r)
	}

	for table, tableRows := range byTable {
		tableRows := tableRows
		sort.SliceStable(tableRows, func(i, j int) bool {
			return rowSortOrderValue(tableRows[i].RowSortOrder) < rowSortOrderValue(tableRows[j].RowSortOrder)
		})

		fields, err := tableRows[0].Fields()
		if err != nil {
			return err
		}
		columns := gtfsColumnOrder(fields)

		w, err := zw.Create(table)
		if err != nil {
			return fmt.Errorf("SaveGTFS: creating %s: %w", table, err)
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return err
		}
		for _, r := range tableRows {
			fields, err := r.Fields()
			if err != nil {
				return err
			}
			record := make([]string, len(columns))
			for i, c := range columns {
				record[i] = fields[c]
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
	}
	return nil
}
