// Package pipeline runs an ordered list of Tasks against one Database,
// materializing a named set of Resources beforehand according to the
// run's Options. Grounded on the task-runner shape of the original
// Python Pipeline/Task/TaskRuntime, rebuilt around Go's context and
// errgroup idioms.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"impuls.dev/impuls/db"
	"impuls.dev/impuls/impulserr"
	"impuls.dev/impuls/resource"
)

// Options controls how a Pipeline materializes resources and where it
// keeps its working database.
type Options struct {
	// ForceRun makes a fetch that would raise ErrInputNotModified fall
	// back to cached resources instead of stopping the run.
	ForceRun bool
	// FromCache disables fetching entirely; missing resources fail.
	FromCache bool
	// WorkspaceDirectory is the root for sidecars, cached inputs and
	// (if SaveDBInWorkspace) the pipeline database. Created if missing.
	WorkspaceDirectory string
	// SaveDBInWorkspace, if true, backs the pipeline database with a
	// file at WorkspaceDirectory/impuls.db instead of an in-memory one.
	SaveDBInWorkspace bool
}

// Runtime is what a Task's Execute receives: the open database, the
// materialized resource set and the run's options.
type Runtime struct {
	DB        *db.Database
	Resources map[string]resource.ManagedResource
	Options   Options
	Logger    *slog.Logger
}

// Task is a single unit of pipeline work.
type Task interface {
	Name() string
	Execute(ctx context.Context, rt *Runtime) error
}

// Pipeline runs a sequence of Tasks against a shared Database.
type Pipeline struct {
	Name      string
	Tasks     []Task
	Resources map[string]resource.Resource
	Options   Options
	DBPath    string // not consulted: New always derives the database path from Options

	logger *slog.Logger
	db     *db.Database
}

// New constructs a Pipeline and opens its Database immediately, per the
// spec's "opens a DB at construction time" rule.
func New(name string, tasks []Task, resources map[string]resource.Resource, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		Name: name, Tasks: tasks, Resources: resources, Options: opts,
		logger: logger.With("pipeline", name),
	}

	dbPath := p.DBPath
	if dbPath == "" {
		if opts.SaveDBInWorkspace {
			if opts.WorkspaceDirectory == "" {
				return nil, fmt.Errorf("pipeline: save_db_in_workspace requires a workspace directory")
			}
			if err := os.MkdirAll(opts.WorkspaceDirectory, 0o755); err != nil {
				return nil, fmt.Errorf("pipeline: creating workspace: %w", err)
			}
			dbPath = filepath.Join(opts.WorkspaceDirectory, "impuls.db")
			os.Remove(dbPath)
		} else {
			dbPath = ":memory:"
		}
	}

	conn, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening database: %w", err)
	}
	p.db = conn
	return p, nil
}

// DB returns the pipeline's database, for callers that need it after
// Run (e.g. to copy it out as a final feed).
func (p *Pipeline) DB() *db.Database { return p.db }

// Close releases the pipeline's database connection.
func (p *Pipeline) Close() error { return p.db.Close() }

// Run materializes resources according to Options and then executes
// every task in order, each under its own implicit transaction. It
// returns impulserr.ErrInputNotModified if resource materialization
// determined nothing changed and neither ForceRun nor FromCache is set.
func (p *Pipeline) Run(ctx context.Context) error {
	managed, proceed, err := p.materializeResources(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		return impulserr.ErrInputNotModified
	}

	rt := &Runtime{DB: p.db, Resources: managed, Options: p.Options, Logger: p.logger}

	for _, task := range p.Tasks {
		if err := p.runTask(ctx, task, rt); err != nil {
			return fmt.Errorf("pipeline %s: task %s: %w", p.Name, task.Name(), err)
		}
	}
	return nil
}

func (p *Pipeline) materializeResources(ctx context.Context) (map[string]resource.ManagedResource, bool, error) {
	if len(p.Resources) == 0 {
		return map[string]resource.ManagedResource{}, true, nil
	}

	workspace := p.Options.WorkspaceDirectory
	if workspace == "" {
		return nil, false, fmt.Errorf("pipeline: resources require a workspace directory")
	}

	if p.Options.FromCache {
		managed, _, err := resource.PrepareResources(ctx, p.Resources, workspace, true)
		return managed, true, err
	}

	managed, proceed, err := resource.PrepareResources(ctx, p.Resources, workspace, false)
	if err != nil {
		return nil, false, err
	}
	if !proceed && p.Options.ForceRun {
		managed, err = resource.EnsureResourcesCached(p.Resources, workspace)
		if err != nil {
			return nil, false, err
		}
		proceed = true
	}
	return managed, proceed, nil
}

func (p *Pipeline) runTask(ctx context.Context, task Task, rt *Runtime) error {
	start := time.Now()
	memBefore := readMemStats()

	if _, err := p.db.Exec(ctx, "BEGIN"); err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	err := task.Execute(ctx, rt)
	if err != nil {
		if _, rbErr := p.db.Exec(ctx, "ROLLBACK"); rbErr != nil {
			p.logger.Error("rollback failed", "task", task.Name(), "error", rbErr)
		}
	} else if _, cErr := p.db.Exec(ctx, "COMMIT"); cErr != nil {
		err = fmt.Errorf("committing: %w", cErr)
	}

	elapsed := time.Since(start)
	memAfter := readMemStats()
	p.logger.Debug("task finished",
		"task", task.Name(), "elapsed", elapsed, "alloc_delta_bytes", memAfter.Alloc-memBefore.Alloc,
		"error", errOrNil(err))
	return err
}

func errOrNil(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type memStats struct{ Alloc uint64 }

func readMemStats() memStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return memStats{Alloc: m.Alloc}
}
