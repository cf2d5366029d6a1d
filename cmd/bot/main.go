package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/audit"
	"github.com/Proton-105/rewards-bot/internal/bot"
	"github.com/Proton-105/rewards-bot/internal/bot/handlers"
	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	"github.com/Proton-105/rewards-bot/internal/database"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/health"
	"github.com/Proton-105/rewards-bot/internal/i18n"
	"github.com/Proton-105/rewards-bot/internal/idempotency"
	"github.com/Proton-105/rewards-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/rewards-bot/internal/jobs/handlers"
	"github.com/Proton-105/rewards-bot/internal/ledger"
	"github.com/Proton-105/rewards-bot/internal/lifecycle"
	"github.com/Proton-105/rewards-bot/internal/middleware"
	"github.com/Proton-105/rewards-bot/internal/notify"
	"github.com/Proton-105/rewards-bot/internal/ratelimit"
	"github.com/Proton-105/rewards-bot/internal/repository"
	"github.com/Proton-105/rewards-bot/internal/state"
	"github.com/Proton-105/rewards-bot/internal/verification"
	"github.com/Proton-105/rewards-bot/pkg/config"
	"github.com/Proton-105/rewards-bot/pkg/graceful"
	"github.com/Proton-105/rewards-bot/pkg/logger"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
	appredis "github.com/Proton-105/rewards-bot/pkg/redis"
)

const (
	defaultLanguage = "en"

	uploadAttempts = 3
	uploadDelay    = 2 * time.Second

	stateCleanupInterval       = 5 * time.Minute
	stateCollectInterval       = 30 * time.Second
	rateLimitCleanupInterval   = time.Minute
	rateLimitMaxAge            = 10 * time.Minute
	idempotencyCleanupInterval = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rewards bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	v := viper.New()
	flags, err := config.ParseFlags(pflag.CommandLine, os.Args[1:], v)
	if err != nil {
		return err
	}

	cfg, v, err := config.Load(flags, v)
	if err != nil {
		return err
	}

	flushSentry, err := logger.InitSentry(*cfg)
	if err != nil {
		return err
	}
	defer flushSentry()

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Logger.Level))
	log := logger.NewWithLevel(*cfg, level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting rewards bot",
		slog.String("mode", cfg.Bot.Mode),
		slog.String("db_driver", cfg.Database.Driver),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Int("ops_port", cfg.Server.Port),
	)

	db, dialect, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	migrator, err := database.NewMigrator(db, dialect, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	if err := migrator.Up(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if flags.MigrateOnly {
		log.Info("migrations applied, exiting")
		return db.Close()
	}

	app, err := newApp(ctx, cfg, db, log)
	if err != nil {
		_ = db.Close()
		return err
	}

	config.Watch(v, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
		if err := app.rules.Update(next.RateLimit); err != nil {
			log.Warn("rate limit rules partially applied", slog.Any("error", err))
		}
		log.Info("configuration reloaded", slog.String("log_level", next.Logger.Level))
	}, func(err error) {
		log.Warn("ignoring invalid configuration change", slog.Any("error", err))
	})

	app.start()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
		return err
	}

	log.Info("rewards bot stopped")
	return nil
}

// app holds the long-running parts of the process.
type app struct {
	cfg *config.Config
	log *slog.Logger

	rules      *ratelimit.Rules
	supervisor *bot.Supervisor
	ops        *graceful.Server
	probes     *lifecycle.Probes
	shutdown   *lifecycle.Shutdown

	worker    *jobs.Worker
	scheduler *jobs.Scheduler

	background []func(context.Context)
}

func newApp(ctx context.Context, cfg *config.Config, db *sql.DB, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, shutdown: lifecycle.NewShutdown(log)}

	var (
		redisClient *appredis.Client
		rdb         *goredis.Client
	)
	if cfg.Redis.Enabled {
		client, err := appredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		redisClient, rdb = client, client.Client
	} else {
		log.Warn("redis disabled, dialogs and rate limits are kept in memory")
	}

	// The API client is shared by notifications, downloads and membership
	// checks. The supervisor builds its own polling instance per run.
	api, err := bot.NewTelebot(cfg.Bot)
	if err != nil {
		return nil, err
	}

	breaker := apperrors.NewCircuitBreaker(apperrors.DefaultBreakerSettings())
	direct := notify.NewTelegram(api, breaker, telebot.NoPreview)

	var (
		queued  notify.Notifier = direct
		manager jobs.Manager
	)
	if cfg.Redis.Enabled {
		redisOpt := asynqRedisOpt(cfg.Redis)
		manager = jobs.NewManager(redisOpt)
		queued = jobs.NewQueueNotifier(manager, cfg.Jobs.NotifyRetries, log)

		a.worker = jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, log)
		a.scheduler = jobs.NewScheduler(redisOpt, cfg.Jobs.StockGaugeCron, log)
	}

	sinks := audit.Multi{audit.NewLogSink(log)}
	if cfg.Bot.LogsChannel != 0 {
		sinks = append(sinks, audit.NewChannelSink(queued, strconv.FormatInt(cfg.Bot.LogsChannel, 10), log))
	}

	store := repository.NewStore(db)
	l := ledger.New(store, cfg.Ledger, cfg.Bot.Owners, sinks, notify.NewBestEffort(queued, log), log)

	if a.worker != nil {
		a.worker.Handle(jobs.TaskTypeNotify, jobhandlers.NewNotifyHandler(direct, log))
		a.worker.Handle(jobs.TaskTypeStockRefresh, jobhandlers.NewStockRefreshHandler(l, log))
	}

	var storage state.Storage
	if rdb != nil {
		storage = state.NewRedisStorage(rdb, state.DefaultTTL, log)
	} else {
		storage = state.NewMemoryStorage()
	}
	fsm := state.NewStateMachine(storage, log, rdb)

	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	var limiter ratelimit.Limiter = memoryLimiter
	if rdb != nil {
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb, log), memoryLimiter, log)
	}
	rules, err := ratelimit.NewRules(cfg.RateLimit)
	if err != nil {
		log.Warn("rate limit rules partially applied", slog.Any("error", err))
	}
	a.rules = rules

	var (
		idemStore  idempotency.Store
		idemMemory *idempotency.MemoryStore
	)
	if rdb != nil {
		idemStore = idempotency.NewRedisStore(rdb)
	} else {
		idemMemory = idempotency.NewMemoryStore()
		idemStore = idemMemory
	}

	verifier := verification.NewVerifier(
		api,
		l.Accounts,
		l.Admin,
		cfg.Bot.RequiredChannels,
		verification.NewCache(rdb),
		time.Duration(cfg.Ledger.VerificationTTLSec)*time.Second,
		log,
	)

	translations, err := i18n.Load(defaultLanguage)
	if err != nil {
		return nil, err
	}
	tr := translations.Translator(defaultLanguage)

	username := cfg.Bot.Username
	if username == "" && api.Me != nil {
		username = api.Me.Username
	}

	deps := &handlers.Deps{
		Ledger:         l,
		FSM:            fsm,
		Keyboard:       keyboard.NewBuilder(tr, log),
		Translator:     tr,
		Verifier:       verifier,
		Sender:         api,
		Files:          api,
		Broadcaster:    notify.NewBroadcaster(direct, cfg.Bot.BroadcastRPS, log),
		BotUsername:    username,
		Log:            log,
		UploadAttempts: uploadAttempts,
		UploadDelay:    uploadDelay,
	}
	opts := bot.Options{
		ErrorHandler: apperrors.NewHandler(log, cfg.Sentry.Enabled),
		Idempotency:  idempotency.NewManager(idemStore, log),
		RateLimit:    middleware.NewRateLimitMiddleware(limiter, a.rules, log),
	}

	a.supervisor = bot.NewSupervisor(func() (bot.Runner, error) {
		tb, err := bot.NewTelebot(cfg.Bot)
		if err != nil {
			return nil, err
		}
		return bot.New(tb, deps, opts), nil
	}, cfg.Bot.RestartBackoff, sinks, log)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("telegram", health.NewTelegramChecker(api))
	if rdb != nil {
		checker.AddCheck("redis", health.NewRedisChecker(rdb))
	}
	a.probes = lifecycle.NewProbes(func(ctx context.Context) error {
		if report := checker.Check(ctx); !report.Healthy() {
			return fmt.Errorf("dependencies %s: %v", report.Status, report.Components)
		}
		return nil
	}, log)

	a.ops = graceful.NewServer(log, &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           health.NewRouter(checker, a.probes, log),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)

	a.background = []func(context.Context){
		state.NewCleaner(storage, log, state.DefaultTTL, stateCleanupInterval).Run,
		metrics.NewStateCollector(fsm, stateCollectInterval).Run,
		ratelimit.NewCleaner(rdb, memoryLimiter, log, rateLimitCleanupInterval, rateLimitMaxAge).Run,
		idempotency.NewCleaner(rdb, idemMemory, log, idempotencyCleanupInterval).Run,
	}

	a.registerStorageHooks(db, redisClient, manager)
	return a, nil
}

// start launches the bot, the ops server, the job queue and the
// background loops, and registers their shutdown hooks.
func (a *app) start() {
	botCtx, stopBot := context.WithCancel(context.Background())
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := a.supervisor.Run(botCtx); err != nil {
			a.log.Error("bot supervisor stopped", slog.Any("error", err))
		}
	}()
	a.shutdown.Register("telegram", lifecycle.PhaseIngress, func(ctx context.Context) error {
		a.probes.MarkDraining()
		stopBot()
		return waitDone(ctx, botDone)
	})

	opsCtx, stopOps := context.WithCancel(context.Background())
	opsDone := make(chan struct{})
	go func() {
		defer close(opsDone)
		if err := a.ops.ListenAndServe(opsCtx); err != nil {
			a.log.Error("ops server stopped", slog.Any("error", err))
		}
	}()
	a.shutdown.Register("ops-server", lifecycle.PhaseWorkers, func(ctx context.Context) error {
		stopOps()
		return waitDone(ctx, opsDone)
	})

	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			a.log.Error("job worker failed to start", slog.Any("error", err))
		} else {
			a.shutdown.Register("job-worker", lifecycle.PhaseWorkers, func(context.Context) error {
				a.worker.Shutdown()
				return nil
			})
		}
		if err := a.scheduler.Start(); err != nil {
			a.log.Error("job scheduler failed to start", slog.Any("error", err))
		} else {
			a.shutdown.Register("job-scheduler", lifecycle.PhaseWorkers, func(context.Context) error {
				a.scheduler.Shutdown()
				return nil
			})
		}
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, loop := range a.background {
		wg.Add(1)
		go func(loop func(context.Context)) {
			defer wg.Done()
			loop(bgCtx)
		}(loop)
	}
	bgDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(bgDone)
	}()
	a.shutdown.Register("background", lifecycle.PhaseWorkers, func(ctx context.Context) error {
		stopBackground()
		return waitDone(ctx, bgDone)
	})

	a.probes.MarkReady()
}

func (a *app) registerStorageHooks(db *sql.DB, redisClient *appredis.Client, manager jobs.Manager) {
	if manager != nil {
		a.shutdown.Register("job-client", lifecycle.PhaseStorage, func(context.Context) error {
			return manager.Close()
		})
	}
	if redisClient != nil {
		a.shutdown.Register("redis", lifecycle.PhaseStorage, func(context.Context) error {
			return redisClient.Close()
		})
	}
	a.shutdown.Register("database", lifecycle.PhaseStorage, func(context.Context) error {
		return db.Close()
	})
}

func waitDone(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("timed out waiting for shutdown")
	}
}

func asynqRedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	opts := appredis.Options(cfg)
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	}
}
