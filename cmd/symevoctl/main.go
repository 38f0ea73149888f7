package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"symevo/internal/storage"
	"symevo/pkg/symevo"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "symevo.db"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	storeKind    string
	dbPath       string
	artifactsDir string
	logFormat    string
	logLevel     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "symevoctl",
		Short:         "Evolve symbolic expressions that fit a dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	flags.StringVar(&opts.dbPath, "db-path", defaultDBPath, "sqlite database path")
	flags.StringVar(&opts.artifactsDir, "artifacts-dir", defaultArtifactsDir, "directory holding run artifacts and the run index")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text|json")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")

	root.AddCommand(
		newRunCmd(opts),
		newBenchmarkCmd(opts),
		newRunsCmd(opts),
		newShowCmd(opts),
		newGenerationsCmd(opts),
		newExportCmd(opts),
		newDeleteCmd(opts),
		newConfigCmd(),
	)
	return root
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want text or json", format)
	}
}

// openClient builds a client from the global flags and initializes its store.
// The caller closes it.
func openClient(cmd *cobra.Command, opts *globalOptions, clientOpts symevo.Options) (*symevo.Client, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), opts.logFormat, opts.logLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if clientOpts.StoreKind == "" {
		clientOpts.StoreKind = opts.storeKind
	}
	if clientOpts.DBPath == "" {
		clientOpts.DBPath = opts.dbPath
	}
	if clientOpts.ArtifactsDir == "" {
		clientOpts.ArtifactsDir = opts.artifactsDir
	}
	if clientOpts.ExportsDir == "" {
		clientOpts.ExportsDir = defaultExportsDir
	}
	clientOpts.Logger = logger

	client, err := symevo.New(clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
