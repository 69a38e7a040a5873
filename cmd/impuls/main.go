// Command impuls runs a single GTFS pipeline against a local GTFS zip or
// URL, grounded on the teacher's cobra-based cmd/ structure but rebuilt
// around Impuls' pipeline/resource/workspace model instead of the
// teacher's Manager.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/natefinch/lumberjack"
	"github.com/spf13/cobra"

	"impuls.dev/impuls/pipeline"
	"impuls.dev/impuls/resource"
	"impuls.dev/impuls/tasks"
)

var (
	flagForceRun  bool
	flagFromCache bool
	flagSaveDB    bool
	flagVerbose   bool
	flagWorkspace string
	flagOutput    string
)

var rootCmd = &cobra.Command{
	Use:          "impuls",
	Short:        "Impuls GTFS batch processor",
	Long:         "Loads, transforms and saves GTFS feeds through a configurable pipeline",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run <gtfs-source>",
	Short: "Run the default load-and-save pipeline against a GTFS zip or URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipeline,
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVarP(&flagForceRun, "force-run", "f", false, "run even if the input has not changed")
	rootCmd.PersistentFlags().BoolVarP(&flagFromCache, "from-cache", "c", false, "never fetch, use only what is already cached")
	rootCmd.PersistentFlags().BoolVarP(&flagSaveDB, "save-db", "s", false, "keep the pipeline's SQLite database in the workspace instead of discarding it")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "directory for cached inputs, sidecars and (with --save-db) the database (default: a fresh ./impuls-run-<uuid> directory)")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "output.zip", "path to write the processed GTFS zip to, relative to the workspace unless absolute")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(flagWorkspace, "impuls.log"),
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     28,
	}
	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if flagWorkspace == "" {
		flagWorkspace = "./impuls-run-" + uuid.NewString()
	}
	if err := os.MkdirAll(flagWorkspace, 0o755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	logger := newLogger()

	source := args[0]
	var res resource.Resource
	if isURL(source) {
		res = resource.NewHTTPResource("gtfs.zip", source)
	} else {
		res = resource.NewLocalResource("gtfs.zip", source)
	}

	opts := pipeline.Options{
		ForceRun:           flagForceRun,
		FromCache:          flagFromCache,
		WorkspaceDirectory: flagWorkspace,
		SaveDBInWorkspace:  flagSaveDB,
	}

	outputPath := flagOutput
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(flagWorkspace, outputPath)
	}

	p, err := pipeline.New("impuls", []pipeline.Task{
		tasks.LoadGTFS{Resource: "gtfs.zip"},
		tasks.RemoveUnusedEntities{},
		tasks.SaveGTFS{Path: outputPath},
	}, map[string]resource.Resource{"gtfs.zip": res}, opts, logger)
	if err != nil {
		return fmt.Errorf("constructing pipeline: %w", err)
	}
	defer p.Close()

	ctx := context.Background()
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	logger.Info("pipeline finished", "source", source, "workspace", flagWorkspace, "output", outputPath)
	return nil
}

func isURL(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || (len(s) > 8 && s[:8] == "https://"))
}
