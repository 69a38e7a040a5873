// Package multifile implements the orchestrator that assembles one
// continuous GTFS feed out of several versioned intermediate inputs: it
// resolves which versions are needed, runs one pipeline per still-needed
// version to produce an intermediate database, then runs a final
// pipeline whose first task is tasks.Merge, folding every intermediate
// database into the runtime database. Grounded on the teacher's
// Manager (manager.go), generalized from its single-feed SHA-keyed
// cache into the multi-version, per-file-pair cache spec.md's §4.E
// resolution algorithm requires.
package multifile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"impuls.dev/impuls/impulserr"
	"impuls.dev/impuls/model"
	"impuls.dev/impuls/pipeline"
	"impuls.dev/impuls/resource"
	"impuls.dev/impuls/tasks"
)

// Feed names one versioned intermediate input.
type Feed struct {
	Resource     resource.Resource
	ResourceName string
	Version      string
	StartDate    model.Date
}

// IntermediateFeedProvider talks to whatever upstream repository tracks
// available feed versions.
type IntermediateFeedProvider interface {
	Needed() ([]Feed, error)
}

// TaskFactories supplies the task lists the orchestrator cannot invent
// on its own: how to turn one intermediate input into a database, what
// to run against an intermediate database just before it is merged, and
// what to run after every database has been merged.
type TaskFactories struct {
	IntermediatePipelineTasks func(feed Feed) ([]pipeline.Task, error)
	PreMergePipelineTasks     func(feed Feed) ([]pipeline.Task, error)
	FinalPipelineTasks        func(feeds []Feed) ([]pipeline.Task, error)
}

// Options controls the orchestrator the same way pipeline.Options
// controls a single Pipeline.
type Options struct {
	WorkspaceDirectory string
	ForceRun           bool
	FromCache          bool
	// MaxConcurrentFetches bounds the errgroup fan-out in step 4 of the
	// resolution algorithm. Defaults to 4.
	MaxConcurrentFetches int
}

// MultiFile is the orchestrator itself.
type MultiFile struct {
	Provider IntermediateFeedProvider
	Tasks    TaskFactories
	Options  Options
	Logger   *slog.Logger
}

func (m *MultiFile) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *MultiFile) inputsDir() string {
	return filepath.Join(m.Options.WorkspaceDirectory, "intermediate_inputs")
}

func (m *MultiFile) dbsDir() string {
	return filepath.Join(m.Options.WorkspaceDirectory, "intermediate_dbs")
}

// cachedFeedRecord mirrors resource package's own sidecar JSON shape
// (last_modified/fetch_time/extra). Read and rewritten directly, rather
// than through the resource package, because step 2 of the resolution
// algorithm needs the cached feed list before it knows which resources
// to ask resource.CacheResources about, and because version/start_date
// bookkeeping piggybacks on the same file's extra map.
type cachedFeedRecord struct {
	LastModified float64           `json:"last_modified"`
	FetchTime    float64           `json:"fetch_time"`
	Extra        map[string]string `json:"extra"`
}

type localFeed struct {
	Feed
	lastModified time.Time
	fetchTime    time.Time
}

// Run executes the full resolution algorithm and, if any work resulted,
// runs the final pipeline. It returns impulserr.ErrInputNotModified when
// every feed's cache was already current and FromCache is not set.
func (m *MultiFile) Run(ctx context.Context) error {
	p, err := m.Prepare(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	defer p.Close()
	return p.Run(ctx)
}

// Prepare runs steps 1-9 of the resolution algorithm and returns the
// constructed final Pipeline, not yet run, or nil with
// impulserr.ErrInputNotModified if nothing needs doing.
func (m *MultiFile) Prepare(ctx context.Context) (*pipeline.Pipeline, error) {
	workspace := m.Options.WorkspaceDirectory
	if workspace == "" {
		return nil, fmt.Errorf("multifile: WorkspaceDirectory is required")
	}
	if err := os.MkdirAll(m.inputsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("multifile: creating inputs dir: %w", err)
	}
	if err := os.MkdirAll(m.dbsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("multifile: creating dbs dir: %w", err)
	}

	cached, err := m.loadCached()
	if err != nil {
		return nil, err
	}

	// Step 1: list needed versions, or treat cached as needed under
	// FromCache.
	var needed []Feed
	if m.Options.FromCache {
		for _, c := range cached {
			needed = append(needed, c.Feed)
		}
	} else {
		needed, err = m.Provider.Needed()
		if err != nil {
			return nil, fmt.Errorf("multifile: listing needed feeds: %w", err)
		}
	}
	neededByVersion := make(map[string]Feed, len(needed))
	for _, f := range needed {
		neededByVersion[f.Version] = f
	}

	// Step 3: prune cached entries no longer needed; detect a
	// non-deterministic producer (same version, different resource name).
	for version, c := range cached {
		f, ok := neededByVersion[version]
		if !ok {
			m.removeCachedInput(c.ResourceName)
			delete(cached, version)
			continue
		}
		if f.ResourceName != c.ResourceName {
			return nil, fmt.Errorf("multifile: version %s previously cached as %s, now resolves to %s: non-deterministic producer", version, c.ResourceName, f.ResourceName)
		}
	}

	// Step 4: fetch every still-needed feed, fanned out with a bounded
	// errgroup. Conditional-fetch state lives in each resource's own
	// sidecar, already on disk from a prior run, so nothing from cached
	// needs threading through here.
	local, changedVersions, err := m.fetchNeeded(ctx, needed)
	if err != nil {
		return nil, err
	}

	// Step 5: sort ascending by StartDate.
	sort.Slice(local, func(i, j int) bool { return local[i].StartDate.Before(local[j].StartDate) })

	// Step 6: prune stale intermediate DBs.
	if err := m.pruneIntermediateDBs(local, changedVersions); err != nil {
		return nil, err
	}

	// Step 7: build one intermediate pipeline per version without a
	// surviving DB.
	var toBuild []localFeed
	for _, f := range local {
		if _, err := os.Stat(m.dbPath(f.Version)); err != nil {
			toBuild = append(toBuild, f)
		}
	}

	if len(toBuild) == 0 && !m.Options.FromCache {
		// Step 8.
		return nil, impulserr.ErrInputNotModified
	}

	if err := m.runIntermediatePipelines(ctx, toBuild); err != nil {
		return nil, err
	}

	// Step 9: build the final pipeline with Merge first.
	return m.buildFinalPipeline(local)
}

func (m *MultiFile) loadCached() (map[string]localFeed, error) {
	entries, err := os.ReadDir(m.inputsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]localFeed{}, nil
		}
		return nil, fmt.Errorf("multifile: reading inputs dir: %w", err)
	}

	out := map[string]localFeed{}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".metadata") {
			continue
		}
		resourceName := strings.TrimSuffix(name, ".metadata")
		b, err := os.ReadFile(filepath.Join(m.inputsDir(), name))
		if err != nil {
			continue
		}
		var rec cachedFeedRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		version := rec.Extra["version"]
		if version == "" {
			continue
		}
		start, err := model.ParseDate(rec.Extra["start_date"])
		if err != nil {
			continue
		}
		out[version] = localFeed{
			Feed: Feed{ResourceName: resourceName, Version: version, StartDate: start},
			lastModified: unixFloatToTime(rec.LastModified),
		}
	}
	return out, nil
}

func (m *MultiFile) removeCachedInput(resourceName string) {
	os.Remove(filepath.Join(m.inputsDir(), resourceName))
	os.Remove(filepath.Join(m.inputsDir(), resourceName+".metadata"))
}

func (m *MultiFile) fetchNeeded(ctx context.Context, needed []Feed) ([]localFeed, map[string]bool, error) {
	maxConcurrent := m.Options.MaxConcurrentFetches
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	results := make([]localFeed, len(needed))
	changed := make([]bool, len(needed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, f := range needed {
		i, f := i, f
		g.Go(func() error {
			resources := map[string]resource.Resource{f.ResourceName: f.Resource}
			managed, wasChanged, err := resource.CacheResources(gctx, resources, m.inputsDir())
			if err != nil && err != impulserr.ErrInputNotModified {
				return fmt.Errorf("fetching %s: %w", f.ResourceName, err)
			}
			mr := managed[f.ResourceName]
			if err := m.writeFeedSidecar(f, mr); err != nil {
				return err
			}
			results[i] = localFeed{Feed: f, lastModified: mr.LastModified, fetchTime: mr.FetchTime}
			changed[i] = wasChanged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	changedVersions := map[string]bool{}
	for i, f := range needed {
		if changed[i] {
			changedVersions[f.Version] = true
		}
	}
	return results, changedVersions, nil
}

// writeFeedSidecar merges version/start_date bookkeeping into the
// sidecar CacheResources already wrote for this resource, preserving
// the last_modified/fetch_time it recorded so future conditional
// fetches still work.
func (m *MultiFile) writeFeedSidecar(f Feed, mr resource.ManagedResource) error {
	path := filepath.Join(m.inputsDir(), f.ResourceName+".metadata")

	var rec cachedFeedRecord
	if b, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(b, &rec)
	}
	rec.LastModified = timeToUnixFloat(mr.LastModified)
	rec.FetchTime = timeToUnixFloat(mr.FetchTime)
	if rec.Extra == nil {
		rec.Extra = map[string]string{}
	}
	rec.Extra["version"] = f.Version
	rec.Extra["start_date"] = f.StartDate.String()

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// dbDir returns the per-version workspace holding that version's
// intermediate database; pipeline.New always names its file impuls.db
// within whatever workspace it is given, so each version gets its own
// directory rather than its own filename.
func (m *MultiFile) dbDir(version string) string {
	return filepath.Join(m.dbsDir(), version)
}

func (m *MultiFile) dbPath(version string) string {
	return filepath.Join(m.dbDir(version), "impuls.db")
}

func (m *MultiFile) pruneIntermediateDBs(local []localFeed, changedVersions map[string]bool) error {
	byVersion := make(map[string]localFeed, len(local))
	for _, f := range local {
		byVersion[f.Version] = f
	}

	entries, err := os.ReadDir(m.dbsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("multifile: reading intermediate dbs dir: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		version := e.Name()
		path := m.dbPath(version)

		f, stillLocal := byVersion[version]
		if !stillLocal || changedVersions[version] || m.Options.ForceRun {
			os.RemoveAll(m.dbDir(version))
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			os.RemoveAll(m.dbDir(version))
			continue
		}
		if info.ModTime().Before(f.lastModified) {
			os.RemoveAll(m.dbDir(version))
		}
	}
	return nil
}

func (m *MultiFile) runIntermediatePipelines(ctx context.Context, feeds []localFeed) error {
	for _, f := range feeds {
		feedTasks, err := m.Tasks.IntermediatePipelineTasks(f.Feed)
		if err != nil {
			return fmt.Errorf("multifile: building intermediate tasks for %s: %w", f.Version, err)
		}

		if err := os.MkdirAll(m.dbDir(f.Version), 0o755); err != nil {
			return fmt.Errorf("multifile: creating db dir for %s: %w", f.Version, err)
		}

		resources := map[string]resource.Resource{f.ResourceName: f.Resource}
		opts := pipeline.Options{
			WorkspaceDirectory: m.dbDir(f.Version),
			SaveDBInWorkspace:  true,
			FromCache:          true,
		}
		p, err := pipeline.New(f.Version, feedTasks, resources, opts, m.logger())
		if err != nil {
			return fmt.Errorf("multifile: opening intermediate pipeline %s: %w", f.Version, err)
		}

		// The input itself was already fetched into inputsDir by
		// fetchNeeded; point resource resolution there instead of
		// re-fetching into the per-version db directory.
		runErr := m.runAgainstCachedInput(ctx, p, f)
		if runErr != nil {
			p.Close()
			os.RemoveAll(m.dbDir(f.Version))
			return fmt.Errorf("multifile: running intermediate pipeline %s: %w", f.Version, runErr)
		}
		if err := p.Close(); err != nil {
			return fmt.Errorf("multifile: closing intermediate pipeline %s: %w", f.Version, err)
		}
	}
	return nil
}

// runAgainstCachedInput copies the already-fetched resource content (and
// its sidecar) from inputsDir into the pipeline's own workspace so its
// FromCache resource resolution finds it without a second fetch.
func (m *MultiFile) runAgainstCachedInput(ctx context.Context, p *pipeline.Pipeline, f localFeed) error {
	if err := copyFile(filepath.Join(m.inputsDir(), f.ResourceName), filepath.Join(m.dbDir(f.Version), f.ResourceName)); err != nil {
		return err
	}
	sidecarName := f.ResourceName + ".metadata"
	_ = copyFile(filepath.Join(m.inputsDir(), sidecarName), filepath.Join(m.dbDir(f.Version), sidecarName))
	return p.Run(ctx)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("multifile: opening %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("multifile: creating %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("multifile: copying %s: %w", src, err)
	}
	return nil
}

func (m *MultiFile) buildFinalPipeline(feeds []localFeed) (*pipeline.Pipeline, error) {
	var toMerge []tasks.DatabaseToMerge
	for i, f := range feeds {
		var preMerge []pipeline.Task
		if m.Tasks.PreMergePipelineTasks != nil {
			extra, err := m.Tasks.PreMergePipelineTasks(f.Feed)
			if err != nil {
				return nil, fmt.Errorf("multifile: building pre-merge tasks for %s: %w", f.Version, err)
			}
			preMerge = append(preMerge, extra...)
		}

		var validRange model.DateRange
		if i+1 < len(feeds) {
			validRange = model.BoundedDateRange(f.StartDate, feeds[i+1].StartDate.AddDays(-1))
		} else {
			validRange = model.RightUnboundedDateRange(f.StartDate)
		}
		preMerge = append([]pipeline.Task{tasks.TruncateCalendars{Range: validRange}}, preMerge...)

		toMerge = append(toMerge, tasks.DatabaseToMerge{
			ResourceName:  f.ResourceName,
			Prefix:        f.Version,
			Path:          m.dbPath(f.Version),
			PreMergeTasks: preMerge,
		})
	}

	plainFeeds := make([]Feed, len(feeds))
	for i, f := range feeds {
		plainFeeds[i] = f.Feed
	}
	tail, err := m.Tasks.FinalPipelineTasks(plainFeeds)
	if err != nil {
		return nil, fmt.Errorf("multifile: building final tasks: %w", err)
	}

	finalTasks := append([]pipeline.Task{tasks.Merge{Databases: toMerge}}, tail...)

	opts := pipeline.Options{
		WorkspaceDirectory: m.Options.WorkspaceDirectory,
		SaveDBInWorkspace:  true,
		ForceRun:           m.Options.ForceRun,
	}
	return pipeline.New("final", finalTasks, nil, opts, m.logger())
}

func unixFloatToTime(secs float64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*1e9)).UTC()
}

func timeToUnixFloat(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}
