package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paras/internal/api"
	"paras/internal/booking"
	"paras/internal/config"
	"paras/internal/domain"
	"paras/internal/events"
	"paras/internal/google"
	"paras/internal/logging"
	"paras/internal/metrics"
	"paras/internal/notify"
	"paras/internal/paras"
	"paras/internal/service"
	"paras/internal/session"
	"paras/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "gateway").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	upstream := paras.NewClient(cfg.Paras.BaseURL, cfg.Paras.Timeout())
	if redisClient != nil {
		upstream.UseRedisCache(redisClient, cfg.Paras.RoomsCacheTTL())
	}
	bind := func(token string) domain.API {
		return upstream.WithToken(token)
	}

	store, storeCloser, err := initSessionStore(cfg, redisClient, &logger)
	if err != nil {
		return err
	}
	if storeCloser != nil {
		defer storeCloser.Close()
	}

	sessions := session.NewManager(store, bind, cfg.Sessions.TTL(), &logger)

	bus := events.NewEventBus()
	initTelegram(cfg, bus, &logger)

	mirror := initMirror(ctx, cfg, redisClient, &logger)

	bookings := service.NewBookingService(bind, bus, mirror, bookingRules(cfg), &logger)
	rooms := service.NewRoomService(bind, &logger)

	startMetrics(ctx, cfg, &logger)

	server := api.NewServer(cfg, sessions, bookings, rooms, upstream, &logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("gateway stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("gateway shutdown")
	}

	logger.Info().Msg("gateway stopped")
	return nil
}

func bookingRules(cfg *config.Config) booking.Rules {
	return booking.NewRules(
		cfg.Booking.OpeningMinute,
		cfg.Booking.ClosingMinute,
		cfg.Booking.MaxDurationMins,
		cfg.Booking.MinLeadMins,
	)
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := session.NewRedisClient(cfg.Redis)
	if err := session.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initSessionStore builds the session store: Redis primary with SQLite
// failover when Redis is up, SQLite alone otherwise, memory as a last resort.
func initSessionStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) (domain.SessionStore, io.Closer, error) {
	sqlite, err := session.NewSQLiteStore(cfg.Sessions.SQLitePath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Sessions.SQLitePath).Msg("sqlite session store unavailable")
		sqlite = nil
	}

	if redisClient != nil {
		primary := session.NewRedisStore(redisClient, cfg.Sessions.TTL())
		if sqlite != nil {
			return session.NewFailoverStore(primary, sqlite, logger), sqlite, nil
		}
		return session.NewFailoverStore(primary, session.NewMemoryStore(), logger), nil, nil
	}

	if sqlite != nil {
		return sqlite, sqlite, nil
	}

	logger.Warn().Msg("sessions held in memory only; restarts will log everyone out")
	return session.NewMemoryStore(), nil, nil
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled {
		return
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}

	notifier := notify.NewTelegramNotifier(botAPI, cfg.Telegram.AdminChatIDs, logger)
	notifier.SubscribeTo(bus)
	logger.Info().Int("chats", len(cfg.Telegram.AdminChatIDs)).Msg("telegram notifications enabled")
}

// initMirror wires the spreadsheet mirror when credentials are configured.
// Returns nil when disabled; the services treat a nil mirror as a no-op.
func initMirror(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.MirrorEnqueuer {
	if cfg.Google.CredentialsFile == "" || cfg.Google.LoansSpreadsheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.LoansSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without mirror")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("spreadsheet unreachable, continuing without mirror")
		return nil
	}

	w := worker.NewMirrorWorker(sheets, redisClient, worker.RetryPolicy{}, logger)
	go w.Start(ctx)
	logger.Info().Msg("loan mirror enabled")
	return w
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
