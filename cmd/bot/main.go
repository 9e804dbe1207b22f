// Package main is the entry point for the Cerulean Labs growth hub bot.
//
// The bot tracks two referral programs (permanent ambassador points and a
// monthly referral contest), counts weekly group engagement, and serves
// leaderboards for all three. Architecture follows Clean Architecture:
// - Domain: referral and engagement rules, no external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: PostgreSQL repositories, Redis cache, Telegram client
// - Interface: Telegram routing and HTTP probes
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cerulean-labs/growth-hub/config"
	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/persistence/postgres"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/cerulean-labs/growth-hub/internal/interface/http"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
	"github.com/cerulean-labs/growth-hub/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting growth hub bot",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional leaderboard cache)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCache, err = redis.NewCache(redisConfig(cfg))
		if err != nil {
			// The boards fall back to direct database reads.
			log.Warn("failed to connect to Redis, leaderboard caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	ambassadorRepo := postgres.NewAmbassadorRepository(dbConn)
	relationshipRepo := postgres.NewRelationshipRepository(dbConn)
	contestRepo := postgres.NewContestRepository(dbConn)
	engagementRepo := postgres.NewEngagementRepository(dbConn)
	archiveRepo := postgres.NewArchiveRepository(dbConn)
	leaderboardRepo := postgres.NewLeaderboardRepository(dbConn)
	maintenanceRepo := postgres.NewMaintenanceRepository(dbConn)

	var ranker leaderboard.Ranker = leaderboardRepo
	if redisCache != nil {
		ranker = redis.NewLeaderboardCache(redisCache, leaderboardRepo)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER (Commands and Queries)
	// ─────────────────────────────────────────────────────────────────────────
	registerAmbassadorCmd := command.NewRegisterAmbassadorHandler(ambassadorRepo, log)
	registerReferralCmd := command.NewRegisterReferralHandler(ambassadorRepo, relationshipRepo, contestRepo, log)
	completeTaskCmd := command.NewCompleteTaskHandler(relationshipRepo, contestRepo, log)
	ensureContestCmd := command.NewEnsureContestIdentityHandler(contestRepo, log)
	recordActivityCmd := command.NewRecordActivityHandler(engagementRepo, cfg.Telegram.TrackedChatID)
	archiveWeekCmd := command.NewArchiveWeekHandler(engagementRepo, log)
	resetAllCmd := command.NewResetAllHandler(maintenanceRepo, log)

	leaderboardQuery := query.NewGetLeaderboardHandler(ranker, log)
	memberStatsQuery := query.NewGetMemberStatsHandler(ambassadorRepo, contestRepo, engagementRepo)
	adminReportQuery := query.NewGetAdminReportHandler(ambassadorRepo, relationshipRepo, contestRepo, engagementRepo)
	archivesQuery := query.NewListArchivesHandler(archiveRepo)
	exportQuery := query.NewExportDataHandler(ambassadorRepo, relationshipRepo, contestRepo, engagementRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing telegram bot")

	botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token)
	botConfig.BotUsername = cfg.Telegram.BotUsername
	botConfig.AdminIDs = cfg.Telegram.AdminIDs
	botConfig.Links = presenter.CommunityLinks{
		Telegram: cfg.Telegram.TelegramLink,
		X:        cfg.Telegram.XLink,
	}
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log
	botConfig.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrentUpdates
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout

	bot, err := telegram.NewBot(botConfig, telegram.BotDependencies{
		RegisterAmbassadorCmd: registerAmbassadorCmd,
		RegisterReferralCmd:   registerReferralCmd,
		CompleteTaskCmd:       completeTaskCmd,
		EnsureContestCmd:      ensureContestCmd,
		RecordActivityCmd:     recordActivityCmd,
		ArchiveWeekCmd:        archiveWeekCmd,
		ResetAllCmd:           resetAllCmd,
		LeaderboardQuery:      leaderboardQuery,
		MemberStatsQuery:      memberStatsQuery,
		AdminReportQuery:      adminReportQuery,
		ArchivesQuery:         archivesQuery,
		ExportQuery:           exportQuery,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP PROBE SERVER
	// ─────────────────────────────────────────────────────────────────────────
	var httpServer *httpserver.Server
	if cfg.HTTP.Enabled {
		httpConfig := httpserver.DefaultConfig()
		httpConfig.Host = cfg.HTTP.Host
		httpConfig.Port = cfg.HTTP.Port

		deps := httpserver.Dependencies{
			LeaderboardQuery: leaderboardQuery,
			Database:         dbConn,
			Stats:            bot,
			Logger:           log,
		}
		if redisCache != nil {
			deps.Cache = redisCache
		}
		httpServer = httpserver.NewServer(httpConfig, deps)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. START SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 2)

	if httpServer != nil {
		go func() {
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	botCtx, botCancel := context.WithCancel(ctx)
	defer botCancel()
	go func() {
		if err := bot.Start(botCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()

	log.Info("growth hub bot is running",
		logger.String("bot", cfg.Telegram.BotUsername),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	botCancel()

	var shutdownErr error
	if err := bot.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop bot gracefully", logger.Err(err))
		shutdownErr = err
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", logger.Err(err))
			shutdownErr = err
		}
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging from the observability config.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}

// connectDatabase connects to PostgreSQL with retries; cold starts routinely
// race the database container.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	return retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
		var conn *postgres.Connection
		var err error
		if cfg.Database.URL != "" {
			conn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		} else {
			conn, err = postgres.NewConnection(ctx, postgresConfig(cfg))
		}
		if err != nil {
			return nil, retry.Retryable(err)
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, retry.Retryable(err)
		}
		return conn, nil
	}, retry.WithMaxAttempts(5), retry.WithInitialDelay(500*time.Millisecond))
}

// postgresConfig maps the app config onto the connection config.
func postgresConfig(cfg *config.Config) postgres.Config {
	pc := postgres.DefaultConfig()
	pc.Host = cfg.Database.Host
	pc.Port = cfg.Database.Port
	pc.User = cfg.Database.User
	pc.Password = cfg.Database.Password
	pc.Database = cfg.Database.Name
	pc.SSLMode = cfg.Database.SSLMode
	pc.MaxConns = cfg.Database.MaxConns
	pc.MinConns = cfg.Database.MinConns
	pc.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pc.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	return pc
}

// redisConfig maps the app config onto the cache config.
func redisConfig(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}
