package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/your-denys/meal-fit-ai/internal/config"
	"github.com/your-denys/meal-fit-ai/internal/content"
	"github.com/your-denys/meal-fit-ai/internal/engage"
	"github.com/your-denys/meal-fit-ai/internal/scheduler"
	"github.com/your-denys/meal-fit-ai/internal/store"
	"github.com/your-denys/meal-fit-ai/internal/telegram"
)

// App owns the wired components of the engagement scheduler.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	httpSrv *http.Server
	repo    store.Repo
	engine  *engage.Engine
}

// New wires everything up to (but not including) the run loop.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, httpSrv: srv}, nil
}

// OpenRepo connects the configured storage backend and optionally wraps it
// with the Redis ledger cache.
func OpenRepo(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Repo, error) {
	var (
		repo store.Repo
		err  error
	)
	if cfg.DatabaseURL != "" {
		repo, err = store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("postgres ready")
	} else {
		repo, err = store.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite ready", zap.String("path", cfg.DBPath))
	}

	if cfg.RedisAddr != "" {
		cached, err := store.NewCachedRepo(ctx, repo, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TickInterval)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		log.Info("redis ledger cache ready", zap.String("addr", cfg.RedisAddr))
		return cached, nil
	}
	return repo, nil
}

// buildEngine assembles the evaluation engine with its collaborators.
func (a *App) buildEngine(repo store.Repo) (*engage.Engine, error) {
	gateway, err := telegram.NewGateway(a.cfg.BotToken, a.log)
	if err != nil {
		return nil, err
	}

	var gen engage.Generator
	if a.cfg.GeminiAPIKey != "" {
		gen = content.NewClient(a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
	} else {
		a.log.Warn("GEMINI_API_KEY not set; AI content disabled")
	}

	return engage.NewEngine(repo, gen, gateway, a.log,
		engage.WithWorkers(a.cfg.Workers),
		engage.WithEvalTimeout(a.cfg.EvalTimeout),
	), nil
}

// Run starts storage, the engine, the healthz endpoint and the tick loop,
// and blocks until a shutdown signal.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting engagement scheduler",
		zap.Duration("interval", a.cfg.TickInterval),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := OpenRepo(ctx, a.cfg, a.log)
	if err != nil {
		a.log.Error("open storage failed", zap.Error(err))
		return err
	}
	a.repo = repo

	engine, err := a.buildEngine(repo)
	if err != nil {
		_ = repo.Close()
		return err
	}
	a.engine = engine

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(engine, a.log, a.cfg.TickInterval)
	sched.Run(ctx)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
	return nil
}

// RunOnce performs a single evaluation pass and exits; used by the `tick`
// command for manual or cron-driven runs.
func (a *App) RunOnce(ctx context.Context) error {
	repo, err := OpenRepo(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	engine, err := a.buildEngine(repo)
	if err != nil {
		return err
	}
	engine.RunTick(ctx)
	return nil
}
