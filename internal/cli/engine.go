package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"idiom-quiz-bot/internal/config"
	"idiom-quiz-bot/internal/game"
	"idiom-quiz-bot/internal/gate"
	"idiom-quiz-bot/internal/handler"
	"idiom-quiz-bot/internal/metrics"
	"idiom-quiz-bot/internal/pkg/lock"
	"idiom-quiz-bot/internal/question"
	"idiom-quiz-bot/internal/repository"
	"idiom-quiz-bot/internal/service"
)

// engine is the transport-independent part of the process.
type engine struct {
	cfg       *config.Config
	store     repository.Store
	window    *gate.Window
	scheduler *gate.Scheduler
	registry  *prometheus.Registry
	ledger    *service.Ledger
	games     *game.Manager
	router    *handler.Router
}

func newEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	bank, err := question.Load(cfg.Game.BankPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("questions", bank.Len()).Str("path", cfg.Game.BankPath).Msg("Question bank loaded")

	sched, err := cfg.Schedule.Window()
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}
	window := gate.NewWindow()
	scheduler, err := gate.NewScheduler(window, sched)
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(registry)

	ledger := service.NewLedger(ctx, store, store, window, rec)
	games := game.NewManager(bank, ledger, window, game.Rules{
		QuestionsPerRound: cfg.Game.QuestionsPerRound,
		CorrectScore:      cfg.Game.CorrectScore,
		SkipScore:         cfg.Game.SkipScore,
	}, rec)

	router := handler.NewRouter(handler.Deps{
		Ledger:      ledger,
		Leaderboard: service.NewLeaderboard(ledger),
		Games:       games,
		Locks:       lock.NewUserLock(),
		AssetRoot:   cfg.Game.AssetRoot,
		Schedule:    fmt.Sprintf("%s-%s", sched.Start, sched.End),
		Metrics:     rec,
	})

	return &engine{
		cfg:       cfg,
		store:     store,
		window:    window,
		scheduler: scheduler,
		registry:  registry,
		ledger:    ledger,
		games:     games,
		router:    router,
	}, nil
}

// serveMetrics blocks until ctx ends; it returns at once when no address is configured.
func (e *engine) serveMetrics(ctx context.Context) error {
	if e.cfg.Metrics.Addr == "" {
		return nil
	}
	return metrics.Serve(ctx, e.cfg.Metrics.Addr, e.registry)
}

func (e *engine) Close() {
	if err := e.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage")
	}
}
