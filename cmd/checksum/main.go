package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/checksum/internal/config"
	"github.com/bamsammich/checksum/internal/engine"
	"github.com/bamsammich/checksum/internal/event"
	"github.com/bamsammich/checksum/internal/filter"
	"github.com/bamsammich/checksum/internal/history"
	"github.com/bamsammich/checksum/internal/stats"
	"github.com/bamsammich/checksum/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// Exit codes.
const (
	exitOK        = 0
	exitPartial   = 1
	exitFailure   = 2
	exitCancelled = 130
)

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

// cloneFlags holds every flag of the root command.
type cloneFlags struct {
	sources        []string
	destinations   []string
	overwrite      bool
	concurrency    int
	bufferSize     string
	noTimes        bool
	followSymlinks bool
	algorithm      string
	filterFile     string
	minSize        string
	maxSize        string
	bwLimit        string
	jsonOut        bool
	logFile        string
	history        bool
	cleanPartial   bool
	verbose        bool
	quiet          bool
	noProgress     bool
	showVersion    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fl cloneFlags
	chain := filter.NewChain()

	rootCmd := &cobra.Command{
		Use:   "checksum [flags] <source>... <destination>",
		Short: "Copy files to one or more destinations and verify every copy by digest",
		Args: func(cmd *cobra.Command, args []string) error {
			if fl.showVersion {
				return nil
			}
			if len(fl.destinations) == 0 {
				return cobra.MinimumNArgs(max(2-len(fl.sources), 1))(cmd, args)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fl.showVersion {
				fmt.Fprintf(stdout, "checksum %s\n", version)
				return nil
			}
			fl.sources, fl.destinations = splitArgs(fl.sources, fl.destinations, args)
			return clone(cmd, &fl, chain, stdout, stderr)
		},
	}

	f := rootCmd.Flags()
	f.BoolVar(&fl.showVersion, "version", false, "print version and exit")
	f.StringArrayVarP(&fl.sources, "source", "s", nil, "source file or directory (repeatable)")
	f.StringArrayVarP(&fl.destinations, "destination", "d", nil, "destination root (repeatable)")
	f.BoolVarP(&fl.overwrite, "overwrite", "o", false, "replace existing destination files")
	f.IntVarP(&fl.concurrency, "concurrency", "n", 0, "number of copy workers (default: NumCPU-1)")
	f.StringVar(&fl.bufferSize, "buffer-size", "8M", "copy and hash chunk size (e.g. 1M, 64K)")
	f.BoolVar(&fl.noTimes, "no-times", false, "don't preserve access and modification times")
	f.BoolVarP(&fl.followSymlinks, "follow-symlinks", "L", false, "follow symbolic links while walking")
	f.StringVar(&fl.algorithm, "algorithm", "md5", "digest algorithm (md5, blake3, xxh64)")
	f.VarP(&filterFlag{chain: chain}, "exclude", "", "exclude files matching PATTERN (repeatable)")
	f.VarP(&filterFlag{chain: chain, include: true}, "include", "", "include files matching PATTERN (repeatable)")
	f.StringVar(&fl.filterFile, "filter", "", "read filter rules from FILE")
	f.StringVar(&fl.minSize, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	f.StringVar(&fl.maxSize, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")
	f.StringVar(&fl.bwLimit, "bwlimit", "", "write bandwidth limit per second (e.g. 100M, 1G)")
	f.BoolVar(&fl.jsonOut, "json", false, "print one JSON object per verified file")
	f.StringVar(&fl.logFile, "log", "", "write structured JSON log to FILE")
	f.BoolVar(&fl.history, "history", false, "record this run in the job history")
	f.BoolVar(&fl.cleanPartial, "clean-partial", false, "remove unverified destinations after a failed run")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "verbose output")
	f.BoolVarP(&fl.quiet, "quiet", "q", false, "suppress all output except errors")
	f.BoolVar(&fl.noProgress, "no-progress", false, "disable progress display")

	f.VisitAll(func(pf *pflag.Flag) {
		if pf.Name == "exclude" || pf.Name == "include" {
			pf.NoOptDefVal = ""
		}
	})

	rootCmd.AddCommand(newHistoryCmd(stdout))
	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

// splitArgs merges positional arguments into the flag-supplied lists. When no
// --destination was given, the last positional argument is the destination.
func splitArgs(sources, destinations, args []string) ([]string, []string) {
	if len(destinations) > 0 || len(args) == 0 {
		return cleanPaths(append(sources, args...)), cleanPaths(destinations)
	}
	last := len(args) - 1
	return cleanPaths(append(sources, args[:last]...)), cleanPaths(append(destinations, args[last]))
}

// cleanPaths normalizes every path so "./src" and "src/." plan and display
// the same as "src".
func cleanPaths(paths []string) []string {
	for i, p := range paths {
		paths[i] = filepath.Clean(p)
	}
	return paths
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every component
func clone(cmd *cobra.Command, fl *cloneFlags, chain *filter.Chain, stdout, stderr io.Writer) error {
	// Configure logging.
	logLevel := slog.LevelWarn
	if fl.verbose {
		logLevel = slog.LevelDebug
	} else if !fl.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})
	var logHandler slog.Handler = textHandler
	var fileLog *slog.Logger
	if fl.logFile != "" {
		lf, err := os.Create(fl.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
		fileLog = slog.New(jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	// Load optional config file.
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	applyConfigDefaults(cmd, cfg.Defaults, fl)
	ui.ApplyTheme(cfg.Theme)

	opts, err := buildOptions(fl, chain)
	if err != nil {
		return err
	}

	var verifierOpts []engine.VerifierOption
	if fl.bwLimit != "" {
		bw, err := filter.ParseSize(fl.bwLimit)
		if err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
		if bw <= 0 {
			return fmt.Errorf("invalid --bwlimit: %s must be positive", fl.bwLimit)
		}
		verifierOpts = append(verifierOpts, engine.WithBandwidthLimit(engine.NewBWLimiter(bw)))
	}
	verifier := engine.NewVerifier(verifierOpts...)

	concurrency := fl.concurrency
	if concurrency <= 0 {
		concurrency = engine.DefaultConcurrency()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	errFile, _ := stderr.(*os.File)
	presenter := ui.NewPresenter(ui.Config{
		Writer:     stdout,
		ErrWriter:  stderr,
		Stats:      collector,
		DstRoots:   fl.destinations,
		Algorithm:  opts.Algorithm.String(),
		Workers:    concurrency,
		Width:      ui.TermWidth(errFile),
		IsTTY:      ui.IsTTY(errFile),
		Quiet:      fl.quiet,
		JSON:       fl.jsonOut,
		NoProgress: fl.noProgress,
	})

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(events)
	}()
	finishPresenter := func() {
		close(events)
		presenterWg.Wait()
		if presenterErr != nil {
			fmt.Fprintf(stderr, "presenter: %v\n", presenterErr)
		}
	}

	events <- event.Event{Type: event.PlanStarted, Timestamp: time.Now()}
	tasks, err := engine.Expand(engine.CloneRequest{
		Sources:      fl.sources,
		Destinations: fl.destinations,
		Options:      opts,
	})
	if err != nil {
		finishPresenter()
		return fmt.Errorf("plan: %w", err)
	}
	units := engine.Flatten(tasks)

	rec := &recorder{log: fileLog}
	if fl.history {
		store, job, err := openJob(fl.sources, fl.destinations)
		if err != nil {
			slog.Warn("history disabled", "error", err)
		} else {
			defer store.Close()
			rec.store, rec.jobID = store, job.ID
		}
	}

	slog.Debug("starting clone",
		"sources", fl.sources,
		"destinations", fl.destinations,
		"units", len(units),
		"concurrency", concurrency,
		"algorithm", opts.Algorithm,
	)

	if rec.store != nil {
		if err := rec.store.StartJob(rec.jobID); err != nil {
			slog.Warn("record history", "error", err)
		}
	}

	summary := engine.Run(ctx, engine.SchedulerConfig{
		MaxConcurrency: concurrency,
		Options:        opts,
		Verifier:       verifier,
		Events:         events,
		Stats:          collector,
		OnResult:       rec.result,
		OnFailure:      rec.failure,
	}, units)
	stop()
	finishPresenter()

	if !fl.quiet && !fl.jsonOut {
		if s := presenter.Summary(); s != "" {
			fmt.Fprintln(stderr, s)
		}
	}

	if fl.cleanPartial {
		for _, p := range verifier.CleanupPartials() {
			slog.Info("removed unverified destination", "path", p)
		}
	} else if len(summary.Partials) > 0 {
		slog.Warn("unverified destinations left in place", "count", len(summary.Partials))
		for _, p := range summary.Partials {
			slog.Debug("unverified destination", "path", p)
		}
	}

	code := exitCode(summary)
	rec.finish(jobStatus(code), summary.Err())

	if err := summary.Err(); err != nil {
		slog.Error("clone failed", "error", err)
	}
	if code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

// buildOptions turns flags into CopyOptions.
func buildOptions(fl *cloneFlags, chain *filter.Chain) (engine.CopyOptions, error) {
	opts := engine.DefaultCopyOptions()
	opts.Overwrite = fl.overwrite
	opts.PreserveTimestamps = !fl.noTimes
	opts.FollowSymlinks = fl.followSymlinks

	alg, err := engine.ParseAlgorithm(fl.algorithm)
	if err != nil {
		return opts, fmt.Errorf("invalid --algorithm: %w", err)
	}
	opts.Algorithm = alg

	if fl.bufferSize != "" {
		n, err := filter.ParseSize(fl.bufferSize)
		if err != nil {
			return opts, fmt.Errorf("invalid --buffer-size: %w", err)
		}
		if n <= 0 || n > 1<<30 {
			return opts, fmt.Errorf("invalid --buffer-size: %s out of range", fl.bufferSize)
		}
		opts.BufferSize = int(n)
	}

	if fl.filterFile != "" {
		if err := chain.LoadFile(fl.filterFile); err != nil {
			return opts, fmt.Errorf("load filter file: %w", err)
		}
	}
	if fl.minSize != "" {
		n, err := filter.ParseSize(fl.minSize)
		if err != nil {
			return opts, fmt.Errorf("invalid --min-size: %w", err)
		}
		chain.SetMinSize(n)
	}
	if fl.maxSize != "" {
		n, err := filter.ParseSize(fl.maxSize)
		if err != nil {
			return opts, fmt.Errorf("invalid --max-size: %w", err)
		}
		chain.SetMaxSize(n)
	}

	// Only set filter if it has rules/size constraints.
	if !chain.Empty() {
		opts.Filter = chain
	}
	return opts, nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, fl *cloneFlags) {
	changed := cmd.Flags().Changed
	if !changed("overwrite") && defaults.Overwrite != nil {
		fl.overwrite = *defaults.Overwrite
	}
	if !changed("concurrency") && defaults.Concurrency != nil {
		fl.concurrency = *defaults.Concurrency
	}
	if !changed("buffer-size") && defaults.BufferSize != nil {
		fl.bufferSize = *defaults.BufferSize
	}
	if !changed("no-times") && defaults.PreserveTimes != nil {
		fl.noTimes = !*defaults.PreserveTimes
	}
	if !changed("follow-symlinks") && defaults.FollowSymlinks != nil {
		fl.followSymlinks = *defaults.FollowSymlinks
	}
	if !changed("algorithm") && defaults.Algorithm != nil {
		fl.algorithm = *defaults.Algorithm
	}
	if !changed("json") && defaults.JSON != nil {
		fl.jsonOut = *defaults.JSON
	}
	if !changed("bwlimit") && defaults.BWLimit != nil {
		fl.bwLimit = *defaults.BWLimit
	}
	if !changed("history") && defaults.History != nil {
		fl.history = *defaults.History
	}
}

// exitCode maps a run outcome to the process exit status.
func exitCode(s engine.Summary) int {
	switch {
	case s.OK():
		return exitOK
	case s.Cancelled():
		return exitCancelled
	case s.Stats.FilesVerified() > 0:
		return exitPartial
	default:
		return exitFailure
	}
}

func jobStatus(code int) history.Status {
	switch code {
	case exitOK:
		return history.StatusSuccess
	case exitCancelled:
		return history.StatusCancelled
	default:
		return history.StatusFailed
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
