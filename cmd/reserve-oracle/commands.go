package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"

	"lendoracle/config"
	"lendoracle/native/lending"
	"lendoracle/native/lending/strategy"
	"lendoracle/native/lending/verify"
	"lendoracle/observability/logging"
	telemetry "lendoracle/observability/otel"
	"lendoracle/storage"
	"lendoracle/storage/journal"
)

// exitDrift is returned when a verification completed but found mismatches.
const exitDrift = 2

// environment holds everything a command may need. Journal and archive are
// nil when not configured.
type environment struct {
	cfg      *config.Config
	registry strategy.Registry
	logger   *slog.Logger
	journal  *journal.Store
	archive  *storage.Archive
	shutdown func(context.Context) error
}

func loadConfig(path string) (*config.Config, strategy.Registry, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, strategy.Registry{}, fmt.Errorf("failed to load config: %w", err)
	}
	registry, err := cfg.Registry()
	if err != nil {
		return nil, strategy.Registry{}, fmt.Errorf("failed to build strategies: %w", err)
	}
	return cfg, registry, nil
}

func openEnvironment(ctx context.Context, path string, stderr io.Writer) (*environment, error) {
	cfg, registry, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	opts := logging.Options{Level: cfg.Logging.Level, Output: stderr}
	if strings.TrimSpace(cfg.Logging.File) != "" {
		opts.File = &logging.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	logger, err := logging.SetupWithOptions(cfg.Service, cfg.Environment, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Service,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise telemetry: %w", err)
	}
	env := &environment{cfg: cfg, registry: registry, logger: logger, shutdown: shutdown}

	if dsn := strings.TrimSpace(cfg.Journal.DSN); dsn != "" {
		store, err := journal.Open(cfg.Journal.Driver, dsn)
		if err != nil {
			env.Close(ctx)
			return nil, err
		}
		env.journal = store
		logger.Debug("journal opened", "driver", cfg.Journal.Driver, "dsn", logging.RedactDSN(dsn))
	}
	if dir := strings.TrimSpace(cfg.Archive.Path); dir != "" {
		db, err := storage.NewLevelDB(dir)
		if err != nil {
			env.Close(ctx)
			return nil, fmt.Errorf("failed to open archive %s: %w", dir, err)
		}
		archive, err := storage.NewArchive(db)
		if err != nil {
			db.Close()
			env.Close(ctx)
			return nil, err
		}
		env.archive = archive
	}
	return env, nil
}

func (e *environment) verifier(journaled bool) *verify.Verifier {
	opts := []verify.Option{verify.WithLogger(e.logger)}
	if journaled && e.journal != nil {
		opts = append(opts, verify.WithJournal(e.journal))
	}
	return verify.New(e.registry, opts...)
}

func (e *environment) Close(ctx context.Context) {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.logger.Warn("journal close failed", "error", err)
		}
	}
	if e.archive != nil {
		if err := e.archive.Close(); err != nil {
			e.logger.Warn("archive close failed", "error", err)
		}
	}
	if e.shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := e.shutdown(shutdownCtx); err != nil {
			e.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func printError(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func singleArg(fs *flag.FlagSet, args []string, stderr io.Writer, what string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: expected exactly one %s\n", what)
		return "", false
	}
	return fs.Arg(0), true
}

type projectionView struct {
	Symbol  string      `json:"symbol"`
	Action  string      `json:"action"`
	Reserve *reserveDoc `json:"reserve"`
	User    *userDoc    `json:"user"`
}

func runProjectCommand(configPath string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("project", flag.ContinueOnError)
	fs.SetOutput(stderr)
	symbol := fs.String("symbol", "", "reserve symbol, overriding the scenario")
	path, ok := singleArg(fs, args, stderr, "scenario file")
	if !ok {
		return 1
	}

	_, registry, err := loadConfig(configPath)
	if err != nil {
		return printError(stderr, err)
	}
	var doc scenarioDoc
	if err := decodeFile(path, &doc); err != nil {
		return printError(stderr, err)
	}
	req, err := doc.Request.request()
	if err != nil {
		return printError(stderr, err)
	}
	reserve, err := doc.Reserve.snapshot()
	if err != nil {
		return printError(stderr, err)
	}
	user, err := doc.User.position()
	if err != nil {
		return printError(stderr, err)
	}
	name := firstNonEmpty(*symbol, doc.Symbol)
	if name == "" && reserve != nil {
		name = reserve.Symbol
	}
	params, err := registry.Lookup(name)
	if err != nil {
		return printError(stderr, err)
	}
	projectedReserve, projectedUser, err := lending.NewProjector(params).Project(req, reserve, user)
	if err != nil {
		return printError(stderr, err)
	}
	if err := printJSON(stdout, projectionView{
		Symbol:  strings.ToUpper(name),
		Action:  string(req.Action),
		Reserve: reserveDocument(projectedReserve),
		User:    userDocument(projectedUser),
	}); err != nil {
		return printError(stderr, err)
	}
	return 0
}

type reportView struct {
	ID                string             `json:"id"`
	Symbol            string             `json:"symbol"`
	Action            string             `json:"action"`
	RateMode          string             `json:"rateMode"`
	User              string             `json:"user"`
	TxTimestamp       uint64             `json:"txTimestamp"`
	CheckedAt         time.Time          `json:"checkedAt"`
	Passed            bool               `json:"passed"`
	ReserveMismatches []lending.Mismatch `json:"reserveMismatches,omitempty"`
	UserMismatches    []lending.Mismatch `json:"userMismatches,omitempty"`
	ExpectedReserve   *reserveDoc        `json:"expectedReserve,omitempty"`
	ExpectedUser      *userDoc           `json:"expectedUser,omitempty"`
}

func viewReport(report verify.Report, detailed bool) reportView {
	view := reportView{
		ID:                report.ID.String(),
		Symbol:            report.Symbol,
		Action:            string(report.Action),
		RateMode:          report.RateMode,
		User:              report.User.Hex(),
		TxTimestamp:       report.TxTimestamp,
		CheckedAt:         report.CheckedAt,
		Passed:            report.Passed(),
		ReserveMismatches: report.ReserveMismatches,
		UserMismatches:    report.UserMismatches,
	}
	if detailed {
		view.ExpectedReserve = reserveDocument(report.ExpectedReserve)
		view.ExpectedUser = userDocument(report.ExpectedUser)
	}
	return view
}

func runVerifyCommand(configPath string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	symbol := fs.String("symbol", "", "reserve symbol, overriding the observation")
	detailed := fs.Bool("expected", false, "include the projected state in the output")
	path, ok := singleArg(fs, args, stderr, "observation file")
	if !ok {
		return 1
	}

	var doc observationDoc
	if err := decodeFile(path, &doc); err != nil {
		return printError(stderr, err)
	}
	obs, err := doc.observation()
	if err != nil {
		return printError(stderr, err)
	}
	obs.Symbol = firstNonEmpty(*symbol, obs.Symbol)
	if obs.Symbol == "" && obs.ReserveBefore != nil {
		obs.Symbol = obs.ReserveBefore.Symbol
	}

	ctx, cancel := signalContext()
	defer cancel()
	env, err := openEnvironment(ctx, configPath, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer env.Close(ctx)

	report, err := env.verifier(true).Verify(ctx, obs)
	if err != nil && report.ID == uuid.Nil {
		return printError(stderr, err)
	}
	if env.archive != nil {
		if archiveErr := env.archive.Put(report.ID, obs); archiveErr != nil {
			env.logger.Error("archive observation failed", "report_id", report.ID.String(), "error", archiveErr)
			err = errors.Join(err, archiveErr)
		}
	}
	if printErr := printJSON(stdout, viewReport(report, *detailed)); printErr != nil {
		return printError(stderr, printErr)
	}
	if err != nil {
		return printError(stderr, err)
	}
	if !report.Passed() {
		return exitDrift
	}
	return 0
}

func runReplayCommand(configPath string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	all := fs.Bool("all", false, "replay every archived observation")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *all == (fs.NArg() == 1) || fs.NArg() > 1 {
		fmt.Fprintln(stderr, "Error: pass either -all or a single report id")
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()
	env, err := openEnvironment(ctx, configPath, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer env.Close(ctx)
	if env.archive == nil {
		return printError(stderr, errors.New("archive not configured"))
	}

	var ids []uuid.UUID
	if *all {
		if ids, err = env.archive.IDs(); err != nil {
			return printError(stderr, err)
		}
	} else {
		id, err := uuid.Parse(fs.Arg(0))
		if err != nil {
			return printError(stderr, fmt.Errorf("invalid report id: %w", err))
		}
		ids = []uuid.UUID{id}
	}

	// Replays reflect the current strategies and are not journaled again.
	verifier := env.verifier(false)
	views := make([]reportView, 0, len(ids))
	drift := false
	for _, id := range ids {
		obs, err := env.archive.Get(id)
		if err != nil {
			return printError(stderr, err)
		}
		report, err := verifier.Verify(ctx, obs)
		if err != nil {
			return printError(stderr, fmt.Errorf("replay %s: %w", id, err))
		}
		env.logger.Info("observation replayed", "report_id", id.String(), "reserve", report.Symbol, "outcome", outcome(report))
		drift = drift || !report.Passed()
		views = append(views, viewReport(report, false))
	}
	if err := printJSON(stdout, views); err != nil {
		return printError(stderr, err)
	}
	if drift {
		return exitDrift
	}
	return 0
}

func outcome(report verify.Report) string {
	if report.Passed() {
		return "match"
	}
	return "drift"
}

type entryView struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	Action          string          `json:"action"`
	RateMode        string          `json:"rateMode"`
	User            string          `json:"user"`
	TxTimestamp     uint64          `json:"txTimestamp"`
	Passed          bool            `json:"passed"`
	MismatchCount   int             `json:"mismatchCount"`
	CheckedAt       time.Time       `json:"checkedAt"`
	Mismatches      json.RawMessage `json:"mismatches,omitempty"`
	ExpectedReserve json.RawMessage `json:"expectedReserve,omitempty"`
	ExpectedUser    json.RawMessage `json:"expectedUser,omitempty"`
}

func viewEntry(entry journal.Entry, detailed bool) entryView {
	view := entryView{
		ID:            entry.ID.String(),
		Symbol:        entry.Symbol,
		Action:        entry.Action,
		RateMode:      entry.RateMode,
		User:          entry.UserAddress,
		TxTimestamp:   entry.TxTimestamp,
		Passed:        entry.Passed,
		MismatchCount: entry.MismatchCount,
		CheckedAt:     entry.CheckedAt,
	}
	if !entry.Passed || detailed {
		view.Mismatches = rawJSON(entry.Mismatches)
	}
	if detailed {
		view.ExpectedReserve = rawJSON(entry.ExpectedReserve)
		view.ExpectedUser = rawJSON(entry.ExpectedUser)
	}
	return view
}

func rawJSON(text string) json.RawMessage {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return json.RawMessage(text)
}

func runJournalCommand(configPath string, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: reserve-oracle journal <list|show> [arguments]")
		return 1
	}
	switch args[0] {
	case "list", "show":
	default:
		fmt.Fprintf(stderr, "Unknown journal subcommand: %s\n", args[0])
		return 1
	}

	fs := flag.NewFlagSet("journal "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	var filter journal.Filter
	fs.StringVar(&filter.Symbol, "symbol", "", "only reports for this reserve")
	fs.StringVar(&filter.Action, "action", "", "only reports for this action")
	fs.BoolVar(&filter.OnlyFailed, "failed", false, "only reports with mismatches")
	fs.IntVar(&filter.Limit, "limit", 50, "maximum number of reports")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()
	env, err := openEnvironment(ctx, configPath, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer env.Close(ctx)
	if env.journal == nil {
		return printError(stderr, errors.New("journal not configured"))
	}

	if args[0] == "show" {
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "Error: expected exactly one report id")
			return 1
		}
		id, err := uuid.Parse(fs.Arg(0))
		if err != nil {
			return printError(stderr, fmt.Errorf("invalid report id: %w", err))
		}
		entry, err := env.journal.Get(ctx, id)
		if err != nil {
			return printError(stderr, err)
		}
		if err := printJSON(stdout, viewEntry(entry, true)); err != nil {
			return printError(stderr, err)
		}
		return 0
	}

	if filter.Action != "" {
		action, err := lending.ParseAction(filter.Action)
		if err != nil {
			return printError(stderr, err)
		}
		filter.Action = string(action)
	}
	entries, err := env.journal.List(ctx, filter)
	if err != nil {
		return printError(stderr, err)
	}
	views := make([]entryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, viewEntry(entry, false))
	}
	if err := printJSON(stdout, views); err != nil {
		return printError(stderr, err)
	}
	return 0
}

type strategyView struct {
	Symbol                 string `json:"symbol"`
	Address                string `json:"address,omitempty"`
	Preset                 string `json:"preset"`
	OptimalUtilizationRate string `json:"optimalUtilizationRate"`
	BaseVariableBorrowRate string `json:"baseVariableBorrowRate"`
	VariableRateSlope1     string `json:"variableRateSlope1"`
	VariableRateSlope2     string `json:"variableRateSlope2"`
	StableRateSlope1       string `json:"stableRateSlope1"`
	StableRateSlope2       string `json:"stableRateSlope2"`
	ReserveFactorBps       uint64 `json:"reserveFactorBps"`
}

func runReservesCommand(configPath string, stdout, stderr io.Writer) int {
	cfg, registry, err := loadConfig(configPath)
	if err != nil {
		return printError(stderr, err)
	}
	views := make([]strategyView, 0, len(cfg.Reserves))
	for _, symbol := range registry.Symbols() {
		params, err := registry.Lookup(symbol)
		if err != nil {
			return printError(stderr, err)
		}
		reserve, _ := cfg.Reserve(symbol)
		view := strategyView{
			Symbol:                 symbol,
			Preset:                 firstNonEmpty(reserve.Preset, "default"),
			OptimalUtilizationRate: formatRay(params.OptimalUtilizationRate),
			BaseVariableBorrowRate: formatRay(params.BaseVariableBorrowRate),
			VariableRateSlope1:     formatRay(params.VariableRateSlope1),
			VariableRateSlope2:     formatRay(params.VariableRateSlope2),
			StableRateSlope1:       formatRay(params.StableRateSlope1),
			StableRateSlope2:       formatRay(params.StableRateSlope2),
			ReserveFactorBps:       params.ReserveFactor,
		}
		if strings.TrimSpace(reserve.Address) != "" {
			view.Address = reserve.AssetAddress().Hex()
		}
		views = append(views, view)
	}
	if err := printJSON(stdout, views); err != nil {
		return printError(stderr, err)
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
