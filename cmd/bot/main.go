package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg_concierge_bot/internal/admin"
	"tg_concierge_bot/internal/config"
	"tg_concierge_bot/internal/delivery"
	"tg_concierge_bot/internal/dispatch"
	"tg_concierge_bot/internal/domain"
	"tg_concierge_bot/internal/event"
	"tg_concierge_bot/internal/feature/audit"
	"tg_concierge_bot/internal/feature/group"
	"tg_concierge_bot/internal/feature/user"
	"tg_concierge_bot/internal/health"
	"tg_concierge_bot/internal/logging"
	"tg_concierge_bot/internal/onboarding"
	"tg_concierge_bot/internal/routes"
	"tg_concierge_bot/internal/store"
	"tg_concierge_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
		"admins":   len(cfg.AdminUserIDs),
		"workers":  cfg.Workers,
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	userRegistrar := user.NewRegistrar(mongoManager.Users(), logger)
	groupRegistrar := group.NewRegistrar(mongoManager.Groups(), logger)
	auditRecorder := audit.NewRecorder(mongoManager.AdminLogs(), logger)
	rsvpRepository := domain.NewRSVPRepository(mongoManager.RSVPs())
	userDirectory := domain.NewUserDirectory(mongoManager.Users())
	statsProvider := store.NewStatsProvider(mongoManager.Users(), mongoManager.RSVPs())

	table := routes.NewTable(cfg.URL)
	sessions := onboarding.NewMemoryStore()
	gate := admin.NewGate(cfg.AdminUserIDs)

	// The router depends on the Telegram client for outbound sends, and the
	// client hands inbound events to the pool, which runs the router. The
	// pool's handler closes over the router variable to break the cycle.
	var router *dispatch.Router
	pool := dispatch.NewPool(cfg.Workers, cfg.Workers*8, func(ctx context.Context, ev event.Event) {
		router.Handle(ctx, ev)
	}, logger)

	tgClient, err := telegram.NewClient(cfg, pool, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	strategy := delivery.NewStrategy(tgClient, nil, logger)
	flow := onboarding.NewFlow(sessions, tgClient, cfg.AdminUserIDs, cfg.URL("support"), logger)
	panel := admin.NewPanel(gate, rsvpRepository, userDirectory, statsProvider,
		auditRecorder, sessions, tgClient, logger)

	router = dispatch.NewRouter(dispatch.RouterDeps{
		Table:     table,
		Deliverer: strategy,
		Messenger: tgClient,
		Flow:      flow,
		Admin:     panel,
		Users:     userRegistrar,
		Groups:    groupRegistrar,
		RSVPs:     rsvpRepository,
		Logger:    logger,
	})

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCtx, cancelPool := context.WithCancel(context.Background())
	pool.Start(poolCtx)

	healthServer := health.NewServer(cfg.HTTPPort, mongoManager, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("diagnostics server error")
		}
	}()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	pool.Stop()
	cancelPool()
	logger.WithField("event", "pool_stopped").Info("dispatch pool drained")

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("diagnostics shutdown error")
	}
	cancelHealth()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
