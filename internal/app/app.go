package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tidereport/internal/blocklist"
	"tidereport/internal/classify"
	"tidereport/internal/config"
	"tidereport/internal/domain"
	"tidereport/internal/httpx"
	slackbot "tidereport/internal/integrations/slack"
	"tidereport/internal/integrations/tide"
	"tidereport/internal/lookup"
	"tidereport/internal/progress"
	"tidereport/internal/report"
	"tidereport/internal/schedule"
	"tidereport/internal/storage/sqlite"

	"github.com/google/uuid"
)

const version = "0.9.0"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	input        string
	output       string
	bogus        string
	configPath   string
	activeOnly   bool
	checkDomains bool
	webCats      bool
	localDB      string
	debug        bool
	version      bool
}

// pass holds everything a single run over the input needs.
type pass struct {
	opts     options
	cfg      config.Config
	engine   *classify.Engine
	runOpts  classify.Options
	notifier *slackbot.Notifier
	stdout   io.Writer
	stderr   *os.File
}

func Main(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout io.Writer, stderr *os.File) int {
	opts, code, ok := parseFlags(args, stderr)
	if !ok {
		return code
	}
	if opts.version {
		fmt.Fprintf(stdout, "tidereport %s\n", version)
		return exitOK
	}

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.LoadConfig(opts.configPath)
	if cfg.Source != "" {
		logger.Info("loaded config", "path", cfg.Source)
	}
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	logger.Debug("config loaded",
		"tide_url", cfg.TideURL,
		"failure_policy", cfg.ActiveFailurePolicy,
		"timezone", cfg.Timezone,
		"schedule", cfg.Schedule,
		"external_http_timeout", appliedHTTPTimeout,
	)

	categories, err := blocklist.Load(cfg.BlockCategoriesPath)
	if err != nil {
		logger.Error("loading block categories", "err", err)
		return exitError
	}
	countryCodes, err := blocklist.Load(cfg.CountryCodesPath)
	if err != nil {
		logger.Error("loading country codes", "err", err)
		return exitError
	}
	logger.Debug("block lists loaded", "categories", len(categories), "country_codes", len(countryCodes))

	mode := domain.ModeFull
	if opts.activeOnly || opts.localDB != "" {
		mode = domain.ModeActiveOnly
	}
	if opts.localDB != "" && !opts.activeOnly {
		logger.Info("local database only holds active threats, running in active-only mode")
	}
	if opts.webCats && mode != domain.ModeFull {
		logger.Warn("web categories are only reported in full mode, skipping them")
	}
	if opts.localDB == "" && cfg.APIKey == "" {
		logger.Error("no API key configured, set api_key or TIDE_API_KEY")
		return exitError
	}

	client := tide.NewClient(cfg, logger)
	var active lookup.Source = lookup.ActiveSource{Client: client}
	if opts.localDB != "" {
		store, err := sqlite.Open(opts.localDB)
		if err != nil {
			logger.Error("opening local database", "path", opts.localDB, "err", err)
			return exitError
		}
		defer store.Close()
		logger.Info("using local database", "path", opts.localDB, "table", store.Table())
		active = lookup.LocalSource{Store: store}
	}

	var history lookup.Source
	var categorySource classify.CategorySource
	if mode == domain.ModeFull {
		history = lookup.HistorySource{Client: client}
		if opts.webCats {
			categorySource = client
		}
	}

	p := &pass{
		opts:   opts,
		cfg:    cfg,
		engine: classify.NewEngine(active, history, categorySource, logger),
		runOpts: classify.Options{
			Mode:                      mode,
			CheckDomains:              opts.checkDomains,
			WebCategories:             opts.webCats,
			Lists:                     blocklist.Lists{Categories: categories, CountryCodes: countryCodes},
			SkipChecksOnActiveFailure: cfg.SkipChecksOnActiveFailure(),
		},
		stdout: stdout,
		stderr: stderr,
	}
	if cfg.SlackConfigured() {
		p.notifier = slackbot.NewNotifier(cfg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule == "" {
		if err := p.run(ctx, logger, p.opts.output, p.opts.bogus); err != nil {
			logger.Error("run failed", "err", err)
			return exitError
		}
		return exitOK
	}
	return p.runScheduled(ctx, logger)
}

func parseFlags(args []string, stderr io.Writer) (options, int, bool) {
	var opts options
	fs := flag.NewFlagSet("tidereport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "i", "", "input file, one indicator per line (required)")
	fs.StringVar(&opts.input, "input", "", "alias for -i")
	fs.StringVar(&opts.output, "o", "", "write the report as CSV to this file")
	fs.StringVar(&opts.output, "output", "", "alias for -o")
	fs.StringVar(&opts.bogus, "b", "", "write invalid input lines to this file")
	fs.StringVar(&opts.bogus, "bogus", "", "alias for -b")
	fs.StringVar(&opts.configPath, "c", "", "config file (default CONFIG_PATH or config.yaml)")
	fs.StringVar(&opts.configPath, "config", "", "alias for -c")
	fs.BoolVar(&opts.activeOnly, "a", false, "only check active threats")
	fs.BoolVar(&opts.activeOnly, "active", false, "alias for -a")
	fs.BoolVar(&opts.checkDomains, "C", false, "check the parent domain when a host has no direct hit")
	fs.BoolVar(&opts.checkDomains, "check_domains", false, "alias for -C")
	fs.BoolVar(&opts.webCats, "w", false, "look up web categories for hosts")
	fs.BoolVar(&opts.webCats, "webcat", false, "alias for -w")
	fs.StringVar(&opts.localDB, "l", "", "query a local sqlite snapshot instead of the remote active table")
	fs.StringVar(&opts.localDB, "local", "", "alias for -l")
	fs.BoolVar(&opts.debug, "d", false, "debug logging")
	fs.BoolVar(&opts.debug, "debug", false, "alias for -d")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, exitOK, false
		}
		return opts, exitUsage, false
	}
	if opts.version {
		return opts, exitOK, true
	}
	if opts.input == "" {
		fmt.Fprintln(stderr, "tidereport: -i input file is required")
		fs.Usage()
		return opts, exitUsage, false
	}
	return opts, exitOK, true
}

func (p *pass) runScheduled(ctx context.Context, logger *slog.Logger) int {
	sched, err := schedule.Parse(p.cfg.Schedule)
	if err != nil {
		logger.Error("invalid schedule", "schedule", p.cfg.Schedule, "err", err)
		return exitError
	}
	logger.Info("scheduled mode", "cron", p.cfg.Schedule, "timezone", p.cfg.Timezone)

	runner := schedule.NewRunner(sched, p.cfg.Location, logger)
	err = runner.Run(ctx, func(ctx context.Context, at time.Time) {
		if err := p.run(ctx, logger, stampPath(p.opts.output, at), stampPath(p.opts.bogus, at)); err != nil {
			logger.Error("scheduled run failed", "at", at, "err", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler stopped", "err", err)
		return exitError
	}
	logger.Info("scheduler stopped")
	return exitOK
}

// run does one full pass: read input, classify, write the report and the
// invalid lines, then notify.
func (p *pass) run(ctx context.Context, logger *slog.Logger, outputPath, bogusPath string) error {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	var bogusFile *os.File
	if bogusPath != "" {
		f, err := report.OpenOutput(bogusPath)
		if err != nil {
			return fmt.Errorf("opening bogus output: %w", err)
		}
		bogusFile = f
		defer bogusFile.Close()
	}

	var csvFile *os.File
	if outputPath != "" {
		f, err := report.OpenOutput(outputPath)
		if err != nil {
			logger.Warn("cannot open CSV output, writing to stdout", "path", outputPath, "err", err)
		} else {
			csvFile = f
			defer csvFile.Close()
		}
	}

	lines, err := readLines(p.opts.input)
	if err != nil {
		return err
	}
	logger.Info("starting run", "input", p.opts.input, "lines", len(lines), "mode", p.runOpts.Mode)

	bar := progress.ForTerminal(p.stderr)
	runOpts := p.runOpts
	runOpts.OnProgress = bar.Update
	result, err := p.engine.Run(ctx, lines, runOpts)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("classifying indicators: %w", err)
	}

	var structured io.Writer
	if csvFile != nil {
		structured = csvFile
	}
	if err := report.Generate(p.stdout, structured, result.Mode, result.Rows, result.Summary); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if csvFile != nil {
		fmt.Fprintf(p.stdout, "CSV output written to %s\n", csvFile.Name())
	}

	if len(result.Invalid) > 0 {
		logger.Info("skipped invalid input lines", "count", len(result.Invalid))
	}
	if bogusFile != nil {
		if err := report.WriteInvalid(bogusFile, result.Invalid); err != nil {
			return fmt.Errorf("writing bogus output: %w", err)
		}
	}

	if p.notifier != nil {
		csvPath := ""
		if csvFile != nil {
			if err := csvFile.Sync(); err != nil {
				logger.Warn("syncing CSV output", "err", err)
			}
			csvPath = csvFile.Name()
		}
		err := p.notifier.Notify(ctx, slackbot.RunReport{
			RunID:   runID,
			Mode:    result.Mode.String(),
			Summary: report.SummaryLine(result.Mode, result.Summary),
			Invalid: len(result.Invalid),
			CSVPath: csvPath,
		})
		if err != nil {
			logger.Warn("slack notification failed", "err", err)
		}
	}

	logger.Info("run complete", "total", result.Summary.Total, "active", result.Summary.Active, "invalid", result.Summary.Invalid)
	return nil
}

// readLines returns every line of path without its line ending. Lines of
// any length are kept; oversized ones are rejected later as invalid.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	var lines []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
	}
}

// stampPath inserts the run time before the extension so scheduled passes
// do not overwrite each other.
func stampPath(path string, at time.Time) string {
	if path == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + at.Format("20060102-1504") + ext
}
