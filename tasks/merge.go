package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
)

// DatabaseToMerge names one intermediate database the Merge task folds
// into the runtime database, in the order the orchestrator resolved
// (ascending by the feed's StartDate).
type DatabaseToMerge struct {
	// ResourceName is the feed's resource name, used only for log
	// messages and error context.
	ResourceName string
	// Prefix is prepended (with Separator) to every id this database's
	// entities never merge by value: Calendar, CalendarException, Trip
	// (plus its block_id/shape_id).
	Prefix string
	// Path is the on-disk intermediate database file to merge.
	Path string
	// PreMergeTasks run against a private copy of this database, inside
	// its own pipeline, before it is attached and merged — e.g. a
	// TruncateCalendars clipping this feed's validity window.
	PreMergeTasks []pipeline.Task
}

// Merge folds a sequence of intermediate databases into the pipeline's
// runtime database, reconciling ids per the policies in §4.E: first
// writer wins for Agency/Attribution, value matching (plus proximity for
// Stop) with suffix fallback for Route/Stop, and unconditional prefixing for
// Calendar/CalendarException/Trip.
type Merge struct {
	Databases []DatabaseToMerge

	// Separator joins a Prefix to an id, and a base id to its
	// disambiguating counter. Defaults to ":".
	Separator string
	// DistanceBetweenSimilarStopsM is how close two value-matching stops
	// must be to be considered the same real-world stop. Defaults to 10.
	DistanceBetweenSimilarStopsM float64
	// FeedVersionSeparator joins every incoming FeedInfo.Version when
	// synthesizing the merged feed's version string. Defaults to "/".
	FeedVersionSeparator string
}

func (Merge) Name() string { return "Merge" }

type routeCandidate struct{ id string }

type stopCandidate struct {
	id       string
	lat, lon float64
}

func (m Merge) Execute(ctx context.Context, rt *pipeline.Runtime) error {
	sep := m.Separator
	if sep == "" {
		sep = ":"
	}
	distanceM := m.DistanceBetweenSimilarStopsM
	if distanceM == 0 {
		distanceM = 10
	}
	versionSep := m.FeedVersionSeparator
	if versionSep == "" {
		versionSep = "/"
	}

	knownRoutes, routeIDs, err := m.seedRoutes(ctx, rt)
	if err != nil {
		return err
	}
	knownStops, stopIDs, err := m.seedStops(ctx, rt)
	if err != nil {
		return err
	}

	var incomingVersions []string
	var firstFeedInfo *model.FeedInfo
	allHaveFeedInfo := true

	for _, dtm := range m.Databases {
		changed, err := m.mergeOne(ctx, rt, dtm, sep, distanceM, knownRoutes, routeIDs, knownStops, stopIDs)
		if err != nil {
			return fmt.Errorf("Merge: %s: %w", dtm.ResourceName, err)
		}
		if changed.hasFeedInfo {
			incomingVersions = append(incomingVersions, changed.feedInfo.Version)
			if firstFeedInfo == nil {
				fi := changed.feedInfo
				firstFeedInfo = &fi
			}
		} else {
			allHaveFeedInfo = false
		}
	}

	return m.writeFeedInfo(ctx, rt, allHaveFeedInfo, firstFeedInfo, incomingVersions, versionSep)
}

func (Merge) seedRoutes(ctx context.Context, rt *pipeline.Runtime) (map[string]routeCandidate, map[string]bool, error) {
	known := map[string]routeCandidate{}
	ids := map[string]bool{}
	cursor, err := db.RetrieveAll(ctx, rt.DB, model.RouteFromRow, "routes", model.Route{}.SQLColumns(), "1")
	if err != nil {
		return nil, nil, fmt.Errorf("Merge: seeding routes: %w", err)
	}
	routes, err := cursor.All()
	if err != nil {
		return nil, nil, fmt.Errorf("Merge: seeding routes: %w", err)
	}
	for _, r := range routes {
		known[routeHash(r)] = routeCandidate{id: r.ID}
		ids[r.ID] = true
	}
	return known, ids, nil
}

func (Merge) seedStops(ctx context.Context, rt *pipeline.Runtime) (map[string][]stopCandidate, map[string]bool, error) {
	known := map[string][]stopCandidate{}
	ids := map[string]bool{}
	cursor, err := db.RetrieveAll(ctx, rt.DB, model.StopFromRow, "stops", model.Stop{}.SQLColumns(), "1")
	if err != nil {
		return nil, nil, fmt.Errorf("Merge: seeding stops: %w", err)
	}
	stops, err := cursor.All()
	if err != nil {
		return nil, nil, fmt.Errorf("Merge: seeding stops: %w", err)
	}
	for _, s := range stops {
		h := stopHash(s)
		known[h] = append(known[h], stopCandidate{id: s.ID, lat: s.Lat, lon: s.Lon})
		ids[s.ID] = true
	}
	return known, ids, nil
}

// routeHash identifies a Route for merge-by-value purposes: agency,
// short name, type and color must all match.
func routeHash(r model.Route) string {
	return strings.Join([]string{r.AgencyID, r.ShortName, strconv.Itoa(int(r.Type)), r.Color}, "\x1f")
}

// stopHash identifies a Stop for merge-by-value purposes; geographic
// proximity is checked separately once a hash group is found.
func stopHash(s model.Stop) string {
	boarding := "?"
	if s.WheelchairBoarding != nil {
		boarding = strconv.FormatBool(*s.WheelchairBoarding)
	}
	return strings.Join([]string{
		s.Name, s.Code, s.ZoneID, strconv.Itoa(int(s.LocationType)), s.ParentStation, boarding, s.PlatformCode,
	}, "\x1f")
}

type mergeOutcome struct {
	hasFeedInfo bool
	feedInfo    model.FeedInfo
}

func (m Merge) mergeOne(
	ctx context.Context, rt *pipeline.Runtime, dtm DatabaseToMerge, sep string, distanceM float64,
	knownRoutes map[string]routeCandidate, routeIDs map[string]bool,
	knownStops map[string][]stopCandidate, stopIDs map[string]bool,
) (mergeOutcome, error) {
	var outcome mergeOutcome

	tmpPath, err := db.Cloned(dtm.Path)
	if err != nil {
		return outcome, fmt.Errorf("copying %s: %w", dtm.Path, err)
	}
	defer os.Remove(tmpPath)

	if len(dtm.PreMergeTasks) > 0 {
		incoming, err := db.Open(tmpPath)
		if err != nil {
			return outcome, fmt.Errorf("opening copy for pre-merge tasks: %w", err)
		}
		preRT := &pipeline.Runtime{DB: incoming, Resources: rt.Resources, Options: rt.Options, Logger: rt.Logger}
		for _, task := range dtm.PreMergeTasks {
			if err := task.Execute(ctx, preRT); err != nil {
				incoming.Close()
				return outcome, fmt.Errorf("pre-merge task %s: %w", task.Name(), err)
			}
		}
		if err := incoming.Close(); err != nil {
			return outcome, fmt.Errorf("closing pre-merge copy: %w", err)
		}
	}

	if err := rt.DB.AttachPath(ctx, tmpPath, "incoming"); err != nil {
		return outcome, err
	}
	defer rt.DB.Detach("incoming")

	if err := mergeAgenciesAndAttributions(ctx, rt); err != nil {
		return outcome, err
	}
	if err := mergeRoutes(ctx, rt, sep, knownRoutes, routeIDs); err != nil {
		return outcome, err
	}
	if err := mergeStops(ctx, rt, sep, distanceM, knownStops, stopIDs); err != nil {
		return outcome, err
	}
	if err := mergeShapes(ctx, rt, dtm.Prefix, sep); err != nil {
		return outcome, err
	}
	if err := mergeCalendars(ctx, rt, dtm.Prefix, sep); err != nil {
		return outcome, err
	}
	if err := mergeTrips(ctx, rt, dtm.Prefix, sep); err != nil {
		return outcome, err
	}
	if err := mergeRemainder(ctx, rt); err != nil {
		return outcome, err
	}

	fi, found, err := db.Retrieve(ctx, rt.DB, model.FeedInfoFromRow, "incoming.feed_info", model.FeedInfo{}.SQLColumns(), "1")
	if err != nil {
		return outcome, fmt.Errorf("reading incoming feed_info: %w", err)
	}
	if found {
		outcome.hasFeedInfo = true
		outcome.feedInfo = fi
	}

	return outcome, nil
}

func mergeAgenciesAndAttributions(ctx context.Context, rt *pipeline.Runtime) error {
	if _, err := rt.DB.Exec(ctx, `INSERT OR IGNORE INTO agencies SELECT * FROM incoming.agencies`); err != nil {
		return fmt.Errorf("merging agencies: %w", err)
	}
	if _, err := rt.DB.Exec(ctx, `INSERT OR IGNORE INTO attributions SELECT * FROM incoming.attributions`); err != nil {
		return fmt.Errorf("merging attributions: %w", err)
	}
	return nil
}

func mergeRoutes(ctx context.Context, rt *pipeline.Runtime, sep string, known map[string]routeCandidate, ids map[string]bool) error {
	rows, err := rt.DB.Query(ctx, `SELECT `+strings.Trim(model.Route{}.SQLColumns(), "()")+` FROM incoming.routes`)
	if err != nil {
		return fmt.Errorf("reading incoming routes: %w", err)
	}
	incoming, err := scanRoutes(rows)
	if err != nil {
		return fmt.Errorf("scanning incoming routes: %w", err)
	}

	for _, r := range incoming {
		h := routeHash(r)
		var newID string
		if c, ok := known[h]; ok {
			newID = c.id
		} else {
			newID = uniqueID(r.ID, ids, sep)
			known[h] = routeCandidate{id: newID}
			ids[newID] = true
		}
		if newID != r.ID {
			if _, err := rt.DB.Exec(ctx, `UPDATE incoming.routes SET route_id = ? WHERE route_id = ?`, newID, r.ID); err != nil {
				return fmt.Errorf("renaming route %s: %w", r.ID, err)
			}
		}
	}

	if _, err := rt.DB.Exec(ctx, `INSERT OR IGNORE INTO routes SELECT * FROM incoming.routes`); err != nil {
		return fmt.Errorf("inserting merged routes: %w", err)
	}
	return nil
}

func mergeStops(ctx context.Context, rt *pipeline.Runtime, sep string, distanceM float64, known map[string][]stopCandidate, ids map[string]bool) error {
	rows, err := rt.DB.Query(ctx, `SELECT `+strings.Trim(model.Stop{}.SQLColumns(), "()")+` FROM incoming.stops`)
	if err != nil {
		return fmt.Errorf("reading incoming stops: %w", err)
	}
	incoming, err := scanStops(rows)
	if err != nil {
		return fmt.Errorf("scanning incoming stops: %w", err)
	}

	for _, s := range incoming {
		h := stopHash(s)
		candidates := known[h]
		best := ""
		bestDist := -1.0
		for _, c := range candidates {
			d := model.HaversineDistanceKm(s.Lat, s.Lon, c.lat, c.lon) * 1000
			if d <= distanceM && (bestDist < 0 || d < bestDist) {
				best, bestDist = c.id, d
			}
		}

		var newID string
		if best != "" {
			newID = best
		} else {
			newID = uniqueID(s.ID, ids, sep)
			known[h] = append(known[h], stopCandidate{id: newID, lat: s.Lat, lon: s.Lon})
			ids[newID] = true
		}
		if newID != s.ID {
			if _, err := rt.DB.Exec(ctx, `UPDATE incoming.stops SET stop_id = ? WHERE stop_id = ?`, newID, s.ID); err != nil {
				return fmt.Errorf("renaming stop %s: %w", s.ID, err)
			}
		}
	}

	if _, err := rt.DB.Exec(ctx, `INSERT OR IGNORE INTO stops SELECT * FROM incoming.stops`); err != nil {
		return fmt.Errorf("inserting merged stops: %w", err)
	}
	return nil
}

func scanRoutes(rows *sql.Rows) ([]model.Route, error) {
	defer rows.Close()
	var out []model.Route
	for rows.Next() {
		var r model.Route
		var sortOrder sql.NullInt64
		if err := rows.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Type, &r.Color, &r.TextColor, &sortOrder); err != nil {
			return nil, err
		}
		if sortOrder.Valid {
			n := int(sortOrder.Int64)
			r.SortOrder = &n
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanStops(rows *sql.Rows) ([]model.Stop, error) {
	defer rows.Close()
	var out []model.Stop
	for rows.Next() {
		var s model.Stop
		var parentStation sql.NullString
		var wheelchair sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.Code, &s.ZoneID, &s.LocationType,
			&parentStation, &wheelchair, &s.PlatformCode, &s.PkpplkCode, &s.IbnrCode); err != nil {
			return nil, err
		}
		s.ParentStation = parentStation.String
		if wheelchair.Valid {
			b := wheelchair.Int64 == 1
			s.WheelchairBoarding = &b
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func mergeShapes(ctx context.Context, rt *pipeline.Runtime, prefix, sep string) error {
	if _, err := rt.DB.Exec(ctx, `UPDATE incoming.shapes SET shape_id = ? || shape_id`, prefix+sep); err != nil {
		return fmt.Errorf("prefixing shapes: %w", err)
	}
	if _, err := rt.DB.Exec(ctx, `INSERT OR ABORT INTO shapes SELECT * FROM incoming.shapes`); err != nil {
		return fmt.Errorf("inserting shapes: %w", err)
	}
	if _, err := rt.DB.Exec(ctx, `INSERT OR ABORT INTO shape_points SELECT * FROM incoming.shape_points`); err != nil {
		return fmt.Errorf("inserting shape points: %w", err)
	}
	return nil
}

func mergeCalendars(ctx context.Context, rt *pipeline.Runtime, prefix, sep string) error {
	if _, err := rt.DB.Exec(ctx, `UPDATE incoming.calendars SET calendar_id = ? || calendar_id`, prefix+sep); err != nil {
		return fmt.Errorf("prefixing calendars: %w", err)
	}
	if _, err := rt.DB.Exec(ctx, `INSERT OR ABORT INTO calendars SELECT * FROM incoming.calendars`); err != nil {
		return fmt.Errorf("inserting calendars: %w", err)
	}
	if _, err := rt.DB.Exec(ctx, `INSERT OR ABORT INTO calendar_exceptions SELECT * FROM incoming.calendar_exceptions`); err != nil {
		return fmt.Errorf("inserting calendar exceptions: %w", err)
	}
	return nil
}

func mergeTrips(ctx context.Context, rt *pipeline.Runtime, prefix, sep string) error {
	p := prefix + sep
	_, err := rt.DB.Exec(ctx, `UPDATE incoming.trips SET
		trip_id = ? || trip_id,
		block_id = CASE WHEN block_id != '' THEN ? || block_id ELSE block_id END,
		shape_id = CASE WHEN shape_id IS NOT NULL THEN ? || shape_id ELSE shape_id END`,
		p, p, p)
	if err != nil {
		return fmt.Errorf("prefixing trips: %w", err)
	}
	if _, err := rt.DB.Exec(ctx, `INSERT OR ABORT INTO trips SELECT * FROM incoming.trips`); err != nil {
		return fmt.Errorf("inserting trips: %w", err)
	}
	return nil
}

// mergeRemainder copies the entity types that either always follow the
// renames already applied above (stop_times, frequencies) or never
// conflict across feeds by construction (fare data, translations,
// transfers, extra rows).
func mergeRemainder(ctx context.Context, rt *pipeline.Runtime) error {
	statements := []string{
		`INSERT OR ABORT INTO stop_times SELECT * FROM incoming.stop_times`,
		`INSERT OR ABORT INTO frequencies SELECT * FROM incoming.frequencies`,
		// transfers/fare_rules/translations/extra_table_rows carry a
		// surrogate id assigned independently in each intermediate
		// database, so columns are listed explicitly and id is left out
		// to let SQLite assign a fresh one on insert rather than copying
		// a value that may already be taken in the runtime database.
		`INSERT OR IGNORE INTO transfers (from_stop_id, to_stop_id, from_route_id, to_route_id, from_trip_id, to_trip_id, transfer_type, min_transfer_time)
			SELECT from_stop_id, to_stop_id, from_route_id, to_route_id, from_trip_id, to_trip_id, transfer_type, min_transfer_time FROM incoming.transfers`,
		`INSERT OR IGNORE INTO fare_attributes SELECT * FROM incoming.fare_attributes`,
		`INSERT OR IGNORE INTO fare_rules (fare_id, route_id, origin_id, destination_id, contains_id)
			SELECT fare_id, route_id, origin_id, destination_id, contains_id FROM incoming.fare_rules`,
		`INSERT OR IGNORE INTO translations (table_name, field_name, lang, translation, record_id, record_sub_id, field_value)
			SELECT table_name, field_name, lang, translation, record_id, record_sub_id, field_value FROM incoming.translations`,
		`INSERT OR IGNORE INTO extra_table_rows (table_name, fields_json, row_sort_order)
			SELECT table_name, fields_json, row_sort_order FROM incoming.extra_table_rows`,
	}
	for _, stmt := range statements {
		if _, err := rt.DB.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("merging remainder (%s): %w", stmt, err)
		}
	}
	return nil
}

func (m Merge) writeFeedInfo(ctx context.Context, rt *pipeline.Runtime, allHaveFeedInfo bool, first *model.FeedInfo, versions []string, versionSep string) error {
	_, found, err := db.Retrieve(ctx, rt.DB, model.FeedInfoFromRow, "feed_info", model.FeedInfo{}.SQLColumns(), "1")
	if err != nil {
		return fmt.Errorf("checking for existing feed_info: %w", err)
	}
	if found {
		return nil // pre-existing FeedInfo always wins; nothing to do.
	}
	if len(versions) == 0 || !allHaveFeedInfo || first == nil {
		return nil // not every incoming DB had a FeedInfo: write none.
	}

	fi := *first
	fi.Version = strings.Join(versions, versionSep)
	return db.CreateEntity(ctx, rt.DB, fi)
}

// uniqueID returns base if it is not already taken, otherwise the first
// base+sep+N (N starting at 1) that is free.
func uniqueID(base string, taken map[string]bool, sep string) string {
	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + sep + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}
