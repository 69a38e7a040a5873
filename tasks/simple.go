// Package tasks implements the concrete pipeline.Task types: simple
// database edits, GTFS import/export and the multi-feed Merge.
package tasks

import (
	"context"
	"fmt"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
)

// AddEntity inserts a single caller-supplied entity when the pipeline
// runs. Useful for small fixups that don't warrant a whole GTFS file,
// e.g. injecting a synthetic FeedInfo row.
type AddEntity struct {
	Entity model.Entity
}

func (AddEntity) Name() string { return "AddEntity" }

func (t AddEntity) Execute(ctx context.Context, rt *pipeline.Runtime) error {
	return db.CreateEntity(ctx, rt.DB, t.Entity)
}

// ExecSQL runs a caller-supplied SQL statement against the pipeline
// database, for one-off migrations or cleanups that don't need a
// dedicated task type.
type ExecSQL struct {
	SQL  string
	Args []interface{}
}

func (ExecSQL) Name() string { return "ExecSQL" }

func (t ExecSQL) Execute(ctx context.Context, rt *pipeline.Runtime) error {
	_, err := rt.DB.Exec(ctx, t.SQL, t.Args...)
	return err
}

// TruncateCalendars intersects every Calendar's date range (and deletes
// every CalendarException outside it) with Range, dropping calendars
// and exceptions that fall entirely outside. Used by the multi-file
// orchestrator to clip each merged feed to the window it's authoritative
// for before the next feed's data takes over.
type TruncateCalendars struct {
	Range model.DateRange
}

func (TruncateCalendars) Name() string { return "TruncateCalendars" }

func (t TruncateCalendars) Execute(ctx context.Context, rt *pipeline.Runtime) error {
	cursor, err := db.RetrieveAll(ctx, rt.DB, model.CalendarFromRow, "calendars", model.Calendar{}.SQLColumns(), "1")
	if err != nil {
		return fmt.Errorf("TruncateCalendars: loading calendars: %w", err)
	}
	calendars, err := cursor.All()
	if err != nil {
		return fmt.Errorf("TruncateCalendars: loading calendars: %w", err)
	}

	for _, c := range calendars {
		clipped := c.CompiledRange().Intersection(t.Range)
		if clipped.Kind == model.DateRangeEmpty {
			if _, err := db.DeleteWhere(ctx, rt.DB, "calendars", "calendar_id = ?", c.ID); err != nil {
				return fmt.Errorf("TruncateCalendars: dropping calendar %s: %w", c.ID, err)
			}
			continue
		}
		c.StartDate, c.EndDate = clipped.Start, clipped.End
		if err := db.UpdateEntity(ctx, rt.DB, c); err != nil {
			return fmt.Errorf("TruncateCalendars: clipping calendar %s: %w", c.ID, err)
		}
	}

	_, err = rt.DB.Exec(ctx,
		`DELETE FROM calendar_exceptions WHERE date < ? OR date > ?`,
		rangeLowerBoundString(t.Range), rangeUpperBoundString(t.Range))
	if err != nil {
		return fmt.Errorf("TruncateCalendars: pruning exceptions: %w", err)
	}
	return nil
}

func rangeLowerBoundString(r model.DateRange) string {
	switch r.Kind {
	case model.DateRangeRightUnbounded, model.DateRangeBounded:
		return r.Start.String()
	default:
		return "0000-01-01"
	}
}

func rangeUpperBoundString(r model.DateRange) string {
	switch r.Kind {
	case model.DateRangeLeftUnbounded, model.DateRangeBounded:
		return r.End.String()
	default:
		return "9999-12-31"
	}
}

// RemoveUnusedEntities deletes Calendars and Routes no Trip references,
// Agencies no Route references, and plain Stops (location_type 0) that
// no StopTime references and that are no other stop's parent station,
// along with the CalendarExceptions, FareRules and FareAttributes left
// dangling by those deletions; run at the end of a pipeline once
// filtering tasks may have pruned the trip set.
type RemoveUnusedEntities struct{}

func (RemoveUnusedEntities) Name() string { return "RemoveUnusedEntities" }

func (RemoveUnusedEntities) Execute(ctx context.Context, rt *pipeline.Runtime) error {
	statements := []string{
		`DELETE FROM calendars WHERE calendar_id NOT IN (SELECT DISTINCT calendar_id FROM trips)`,
		`DELETE FROM calendar_exceptions WHERE calendar_id NOT IN (SELECT calendar_id FROM calendars)`,
		`DELETE FROM routes WHERE route_id NOT IN (SELECT DISTINCT route_id FROM trips)`,
		`DELETE FROM fare_rules WHERE route_id IS NOT NULL AND route_id NOT IN (SELECT route_id FROM routes)`,
		`DELETE FROM fare_attributes WHERE fare_id NOT IN (SELECT DISTINCT fare_id FROM fare_rules)`,
		`DELETE FROM agencies WHERE agency_id NOT IN (SELECT DISTINCT agency_id FROM routes)`,
		`DELETE FROM stops WHERE location_type = 0 AND stop_id NOT IN (SELECT DISTINCT stop_id FROM stop_times)
			AND stop_id NOT IN (SELECT DISTINCT parent_station FROM stops WHERE parent_station IS NOT NULL)`,
	}
	for _, stmt := range statements {
		if _, err := rt.DB.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("RemoveUnusedEntities: %w", err)
		}
	}
	return nil
}
