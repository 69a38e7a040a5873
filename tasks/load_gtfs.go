package tasks

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/spkg/bom"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/impulserr"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
	"impuls.dev/impuls/resource"
)

// LoadGTFS reads a GTFS zip archive from the named resource and inserts
// every row it recognizes into the pipeline database, encoding rows of
// files this model has no dedicated entity for as ExtraTableRow. Columns
// of recognized files that the entity does not model are not kept.
type LoadGTFS struct {
	// Resource is the name this task looks up in the pipeline's
	// resource map; it must resolve to a cached .zip file.
	Resource string
}

func (LoadGTFS) Name() string { return "LoadGTFS" }

func (t LoadGTFS) Execute(ctx context.Context, rt *pipeline.Runtime) error {
	managed, ok := rt.Resources[t.Resource]
	if !ok {
		return fmt.Errorf("LoadGTFS: resource %q not materialized", t.Resource)
	}

	zr, err := zip.OpenReader(managed.Path)
	if err != nil {
		return fmt.Errorf("LoadGTFS: opening %s: %w", managed.Path, err)
	}
	defer zr.Close()

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		members[f.Name] = f
	}

	var errs impulserr.MultipleDataErrors

	if err := loadTable[agencyCSV](ctx, rt, members, "agency.txt", model.AgencyFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[feedInfoCSV](ctx, rt, members, "feed_info.txt", model.FeedInfoFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[attributionCSV](ctx, rt, members, "attributions.txt", model.AttributionFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[calendarCSV](ctx, rt, members, "calendar.txt", model.CalendarFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[calendarDateCSV](ctx, rt, members, "calendar_dates.txt", model.CalendarExceptionFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[routeCSV](ctx, rt, members, "routes.txt", model.RouteFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadShapeParents(ctx, rt, members); err != nil {
		return err
	}
	if err := loadTable[shapePointCSV](ctx, rt, members, "shapes.txt", model.ShapePointFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[stopCSV](ctx, rt, members, "stops.txt", model.StopFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[transferCSV](ctx, rt, members, "transfers.txt", transferFromGTFSWithID(), &errs); err != nil {
		return err
	}
	if err := loadTable[tripCSV](ctx, rt, members, "trips.txt", model.TripFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[stopTimeCSV](ctx, rt, members, "stop_times.txt", model.StopTimeFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[frequencyCSV](ctx, rt, members, "frequencies.txt", model.FrequencyFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[fareAttributeCSV](ctx, rt, members, "fare_attributes.txt", model.FareAttributeFromGTFS, &errs); err != nil {
		return err
	}
	if err := loadTable[fareRuleCSV](ctx, rt, members, "fare_rules.txt", fareRuleFromGTFSWithID(), &errs); err != nil {
		return err
	}
	if err := loadTable[translationCSV](ctx, rt, members, "translations.txt", translationFromGTFSWithID(), &errs); err != nil {
		return err
	}

	if err := loadExtraTables(ctx, rt, members); err != nil {
		return err
	}

	return errs.OrNil()
}

var knownGTFSFiles = map[string]bool{
	"agency.txt": true, "feed_info.txt": true, "attributions.txt": true,
	"calendar.txt": true, "calendar_dates.txt": true, "routes.txt": true,
	"shapes.txt": true, "stops.txt": true, "transfers.txt": true,
	"trips.txt": true, "stop_times.txt": true, "frequencies.txt": true,
	"fare_attributes.txt": true, "fare_rules.txt": true, "translations.txt": true,
}

// transferFromGTFSWithID, fareRuleFromGTFSWithID and translationFromGTFSWithID
// wrap the model package's *FromGTFS functions for the three entities that
// carry a surrogate id with no natural key in the GTFS row itself,
// assigning a fresh id to each row as it's decoded.
func transferFromGTFSWithID() func(map[string]string) (model.Transfer, error) {
	var next int64
	return func(row map[string]string) (model.Transfer, error) {
		next++
		t, err := model.TransferFromGTFS(row)
		if err != nil {
			return t, err
		}
		t.ID = next
		return t, nil
	}
}

func fareRuleFromGTFSWithID() func(map[string]string) (model.FareRule, error) {
	var next int64
	return func(row map[string]string) (model.FareRule, error) {
		next++
		r, err := model.FareRuleFromGTFS(row)
		if err != nil {
			return r, err
		}
		r.ID = next
		return r, nil
	}
}

func translationFromGTFSWithID() func(map[string]string) (model.Translation, error) {
	var next int64
	return func(row map[string]string) (model.Translation, error) {
		next++
		tr, err := model.TranslationFromGTFS(row)
		if err != nil {
			return tr, err
		}
		tr.ID = next
		return tr, nil
	}
}

// loadTable decodes one GTFS member file via resource.CSV into the
// gocsv-tagged struct S, flattens each row to a header→value map, and
// feeds it through fromGTFS. Rows that fail fromGTFS are collected as
// DataErrors rather than aborting the whole file.
func loadTable[S any, T model.GTFSEntity](
	ctx context.Context, rt *pipeline.Runtime, members map[string]*zip.File, filename string,
	fromGTFS func(map[string]string) (T, error), errs *impulserr.MultipleDataErrors,
) error {
	f, ok := members[filename]
	if !ok {
		return nil
	}

	managed, cleanup, err := extractZipMember(f)
	if err != nil {
		return fmt.Errorf("LoadGTFS: extracting %s: %w", filename, err)
	}
	defer cleanup()

	structs, err := resource.CSV[S](managed)
	if err != nil {
		return fmt.Errorf("LoadGTFS: reading %s: %w", filename, err)
	}

	var entities []T
	for i, s := range structs {
		row := structToRow(&s)
		err := errs.CatchAll(func() error {
			e, err := fromGTFS(row)
			if err != nil {
				return impulserr.NewDataError(filename, fmt.Sprintf("row %d", i+2), "%s", err)
			}
			entities = append(entities, e)
			return nil
		})
		if err != nil {
			return fmt.Errorf("LoadGTFS: %s: %w", filename, err)
		}
	}
	return db.CreateMany(ctx, rt.DB, entities)
}

// decodeRawRows decodes a CSV member into a slice of header→value maps.
// Used only for extra_table_rows, whose columns aren't known until read,
// so no gocsv-tagged struct can be declared for them ahead of time.
func decodeRawRows(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(bom.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = stripSpace(h)
	}

	var out []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func stripSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

// loadShapeParents populates the shapes table with every distinct
// shape_id referenced by shapes.txt or trips.txt, since both
// shape_points.shape_id and trips.shape_id are foreign keys into it and
// GTFS itself has no shapes-header file to source rows from.
func loadShapeParents(ctx context.Context, rt *pipeline.Runtime, members map[string]*zip.File) error {
	ids := map[string]bool{}
	for _, filename := range []string{"shapes.txt", "trips.txt"} {
		f, ok := members[filename]
		if !ok {
			continue
		}
		managed, cleanup, err := extractZipMember(f)
		if err != nil {
			return fmt.Errorf("LoadGTFS: extracting %s: %w", filename, err)
		}
		rows, err := resource.CSV[shapeIDCSV](managed)
		cleanup()
		if err != nil {
			return fmt.Errorf("LoadGTFS: reading %s: %w", filename, err)
		}
		for _, row := range rows {
			if row.ShapeID != "" {
				ids[row.ShapeID] = true
			}
		}
	}
	for id := range ids {
		if _, err := rt.DB.Exec(ctx, "INSERT OR IGNORE INTO shapes (shape_id) VALUES (?)", id); err != nil {
			return fmt.Errorf("LoadGTFS: registering shape %s: %w", id, err)
		}
	}
	return nil
}

func loadExtraTables(ctx context.Context, rt *pipeline.Runtime, members map[string]*zip.File) error {
	var id int64
	for name, f := range members {
		if knownGTFSFiles[name] || name == "" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("LoadGTFS: opening %s: %w", name, err)
		}
		rows, err := decodeRawRows(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("LoadGTFS: reading %s: %w", name, err)
		}
		for sortOrder, row := range rows {
			id++
			entity, err := model.NewExtraTableRow(name, id, sortOrder, row)
			if err != nil {
				return err
			}
			if err := db.CreateEntity(ctx, rt.DB, entity); err != nil {
				return fmt.Errorf("LoadGTFS: storing extra row from %s: %w", name, err)
			}
		}
	}
	return nil
}
