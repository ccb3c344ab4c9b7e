package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"covertrack/internal/adapters/clickhouse"
	"covertrack/internal/adapters/config"
	"covertrack/internal/adapters/errors/noop"
	"covertrack/internal/adapters/errors/sentry"
	"covertrack/internal/adapters/massive"
	pgclient "covertrack/internal/adapters/postgres"
	"covertrack/internal/adapters/stream"
	"covertrack/internal/auditor"
	"covertrack/internal/domain/pick"
	"covertrack/internal/domain/universe"
	"covertrack/internal/ingest"
	"covertrack/internal/picker"
	"covertrack/internal/promoter"
	"covertrack/internal/repository/postgres"
	"covertrack/internal/resolver"
	"covertrack/pkg/errors"
	"covertrack/pkg/logger"
)

const usage = `usage: covertrack <command>

commands:
  sync     seed or refresh the watch-list (-enable/-disable toggle one ticker)
  picker   run one weekly selection pass
  promote  gate the latest run's picks into positions
  audit    recompute the latest run's economics
  cycle    picker, promote and audit in sequence
  stream   run the streaming ingest loop until interrupted
  report   print the latest run's picks, misses, decisions and audit summary
`

var (
	enableTicker  = flag.String("enable", "", "enable a single watch-list ticker")
	disableTicker = flag.String("disable", "", "disable a single watch-list ticker")
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	flag.CommandLine.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s %s in %s mode", cfg.App.Name, command, cfg.App.Env)

	tracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(tracker)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer app.Close()

	if err := app.run(ctx, command); err != nil {
		tracker.CaptureError(ctx, err, map[string]string{"command": command})
		tracker.Flush(ctx)
		log.Errorf("%s failed: %v", command, err)
		logger.Sync()
		os.Exit(1)
	}
}

func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}
	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}
	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// app wires the shared dependency graph once so every subcommand draws from
// the same clients and repositories.
type app struct {
	cfg *config.Config
	pg  *pgclient.Client
	log *logger.Logger

	universeRepo  *postgres.UniverseRepository
	marketRepo    *postgres.MarketDataRepository
	scoresRepo    *postgres.ScoresRepository
	pickRepo      *postgres.PickRepository
	promotionRepo *postgres.PromotionRepository
	auditRepo     *postgres.AuditRepository

	res *resolver.Resolver
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pg, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := postgres.EnsureSchema(ctx, pg.DB()); err != nil {
		pg.Close()
		return nil, err
	}

	a := &app{
		cfg:           cfg,
		pg:            pg,
		log:           logger.Get().With("component", "app"),
		universeRepo:  postgres.NewUniverseRepository(pg.DB()),
		marketRepo:    postgres.NewMarketDataRepository(pg.DB()),
		scoresRepo:    postgres.NewScoresRepository(pg.DB()),
		pickRepo:      postgres.NewPickRepository(pg.DB()),
		promotionRepo: postgres.NewPromotionRepository(pg.DB()),
		auditRepo:     postgres.NewAuditRepository(pg.DB()),
	}
	a.res = resolver.New(cfg.Resolver, massive.NewClient(cfg.Massive), a.marketRepo)
	return a, nil
}

func (a *app) Close() {
	a.pg.Close()
}

func (a *app) run(ctx context.Context, command string) error {
	switch command {
	case "sync":
		return a.runSync(ctx)
	case "picker":
		_, err := a.newPicker().Run(ctx)
		return err
	case "promote":
		_, err := a.newPromoter().Run(ctx)
		return err
	case "audit":
		summary, err := auditor.New(a.pickRepo, a.auditRepo).Run(ctx)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return errors.Newf("audit: %d of %d checks failed", summary.Failed, summary.Checked)
		}
		return nil
	case "cycle":
		return a.runCycle(ctx)
	case "stream":
		return a.runStream(ctx)
	case "report":
		return a.runReport(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return errors.Newf("unknown command %q", command)
	}
}

func (a *app) newPicker() *picker.Picker {
	return picker.New(a.cfg.Picker, a.res, a.universeRepo, a.scoresRepo, a.pickRepo)
}

func (a *app) newPromoter() *promoter.Engine {
	floors := map[pick.Lane]float64{
		pick.LaneConservative: a.cfg.Picker.ConservativeMinYield,
		pick.LaneMid:          a.cfg.Picker.MidMinYield,
		pick.LaneSpeculative:  a.cfg.Picker.SpeculativeMinYield,
	}
	return promoter.New(a.cfg.Promotion, floors, a.pickRepo, a.promotionRepo, a.scoresRepo)
}

// runSync seeds the built-in watch-list. Re-running refreshes categories in
// place and re-enables every seeded ticker. With -enable or -disable it
// toggles that one ticker instead.
func (a *app) runSync(ctx context.Context) error {
	if *enableTicker != "" {
		return a.universeRepo.SetEnabled(ctx, *enableTicker, true)
	}
	if *disableTicker != "" {
		return a.universeRepo.SetEnabled(ctx, *disableTicker, false)
	}

	entries := universe.Default()
	for i := range entries {
		if err := a.universeRepo.Upsert(ctx, &entries[i]); err != nil {
			return err
		}
	}
	a.log.Infof("synced %d universe entries", len(entries))
	return nil
}

// runCycle chains the three batch stages. A failing stage stops the cycle;
// audit failures surface as a non-zero exit like the standalone command.
func (a *app) runCycle(ctx context.Context) error {
	runID, err := a.newPicker().Run(ctx)
	if err != nil {
		return errors.Wrap(err, "picker stage")
	}
	if _, err := a.newPromoter().RunFor(ctx, runID); err != nil {
		return errors.Wrap(err, "promote stage")
	}
	summary, err := auditor.New(a.pickRepo, a.auditRepo).RunFor(ctx, runID)
	if err != nil {
		return errors.Wrap(err, "audit stage")
	}
	if summary.Failed > 0 {
		return errors.Newf("audit: %d of %d checks failed", summary.Failed, summary.Checked)
	}
	return nil
}

// runStream connects the feed, subscribes the enabled universe plus any
// open-position contracts, and drains events through the ingest engine
// until the context ends.
func (a *app) runStream(ctx context.Context) error {
	var journal *clickhouse.Journal
	if a.cfg.ClickHouse.Enabled {
		j, err := clickhouse.NewJournal(a.cfg.ClickHouse)
		if err != nil {
			return err
		}
		journal = j
		defer journal.Close()
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", nil); err != nil {
			a.log.Warnf("metrics server stopped: %v", err)
		}
	}()

	trigger := ingest.NewTriggerBridge(a.cfg.Trigger, nil)
	engine := ingest.NewEngine(a.marketRepo, journal, trigger)

	client := stream.NewClient(a.cfg.Massive.WSURL, a.cfg.Massive.APIKey, stream.DefaultReconnectConfig())
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()

	entries, err := a.universeRepo.ListEnabled(ctx)
	if err != nil {
		return err
	}
	topics := make([]string, 0, len(entries))
	for _, e := range entries {
		topics = append(topics, stream.StockTopic(e.Ticker))
	}

	open, err := a.promotionRepo.OpenPositions(ctx)
	if err != nil {
		return err
	}
	for _, pos := range open {
		occ, err := massive.EncodeOCC(pos.Ticker, pos.Expiry, pos.Right, pos.Strike)
		if err != nil {
			a.log.Warnf("skip position %d: %v", pos.ID, err)
			continue
		}
		topics = append(topics, stream.ContractTopic(occ))
		trigger.Watch(pos.Ticker, pos.Strike)
	}

	if err := client.Subscribe(topics...); err != nil {
		return err
	}
	a.log.Infof("streaming %d topics", len(topics))

	err = engine.Run(ctx, client.Events())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runReport prints the latest run for operators.
func (a *app) runReport(ctx context.Context) error {
	runID, err := a.pickRepo.LatestRunID(ctx)
	if err != nil {
		return err
	}
	picks, err := a.pickRepo.PicksByRun(ctx, runID)
	if err != nil {
		return err
	}
	misses, err := a.pickRepo.MissesByRun(ctx, runID)
	if err != nil {
		return err
	}
	decisions, err := a.promotionRepo.DecisionsByRun(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s)\n\n", runID, humanize.Time(firstRunTS(picks)))
	fmt.Printf("picks (%d):\n", len(picks))
	for _, p := range picks {
		fmt.Printf("  %-12s #%d %-5s %s %.2fC  mid %.2f  premium %s  yield %.4f  [%s | %s]\n",
			p.Lane, p.Rank, p.Ticker, p.Expiry, p.Strike, p.Mid,
			humanize.CommafWithDigits(p.Premium100, 2), p.PremYield,
			p.PriceSource, p.ChainSource)
	}

	fmt.Printf("\nmisses (%d):\n", len(misses))
	for _, m := range misses {
		fmt.Printf("  %-5s %-10s %s %s\n", m.Ticker, m.Stage, m.Reason, m.Detail)
	}

	fmt.Printf("\npromotion decisions (%d):\n", len(decisions))
	for _, d := range decisions {
		line := fmt.Sprintf("  %-9s %-5s %s %.2fC  pack %s",
			d.Decision, d.Ticker, d.Expiry, d.Strike, humanize.CommafWithDigits(d.PackCost, 2))
		if d.Reason != "" {
			line += "  (" + d.Reason + ")"
		}
		fmt.Println(line)
	}

	findings, err := a.auditRepo.ByRun(ctx, runID)
	if err != nil {
		return err
	}
	failed := 0
	for _, f := range findings {
		if !f.Passed {
			failed++
		}
	}
	fmt.Printf("\naudit: %d checks, %d failed\n", len(findings), failed)
	for _, f := range findings {
		if !f.Passed {
			fmt.Printf("  %-5s %-16s expected %s, got %s\n", f.Ticker, f.Field, f.Expected, f.Actual)
		}
	}
	if failed > 0 {
		return errors.Newf("audit: %d of %d checks failed", failed, len(findings))
	}
	return nil
}

func firstRunTS(picks []pick.WeeklyPick) time.Time {
	if len(picks) == 0 {
		return time.Now()
	}
	return picks[0].RunTS
}
