// Package main is the entry point for the growth hub background worker.
//
// The worker owns the periodic jobs:
// - Archiving the finished engagement week into the winners table
// - Refreshing the Redis leaderboard cache for the current boards
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"github.com/cerulean-labs/growth-hub/config"
	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/persistence/postgres"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/persistence/redis"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
	"github.com/cerulean-labs/growth-hub/pkg/retry"
)

// cacheRefreshDepth is how many entries each refreshed board carries.
// Boards are rendered top ten, one extra page absorbs ties at the cut.
const cacheRefreshDepth = 20

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
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	log := logger.New(opts).With(logger.String("component", "worker"))

	log.Info("starting growth hub worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled, worker has nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	engagementRepo := postgres.NewEngagementRepository(dbConn)
	leaderboardRepo := postgres.NewLeaderboardRepository(dbConn)
	archiveWeekCmd := command.NewArchiveWeekHandler(engagementRepo, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional, enables cache refresh jobs)
	// ─────────────────────────────────────────────────────────────────────────
	var boardCache *redis.LeaderboardCache
	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(redisConfig(cfg))
		if err != nil {
			log.Warn("failed to connect to Redis, cache refresh disabled", logger.Err(err))
		} else {
			defer cache.Close()
			boardCache = redis.NewLeaderboardCache(cache, leaderboardRepo)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(cfg.App.Location))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	// Weekly archive runs just after the ISO week rolls over, so it has to
	// archive the week that ended, not the one that just started.
	_, err = scheduler.NewJob(
		gocron.WeeklyJob(1,
			gocron.NewWeekdays(cfg.Scheduler.ArchiveWeekday),
			gocron.NewAtTimes(gocron.NewAtTime(
				uint(cfg.Scheduler.ArchiveHour),
				uint(cfg.Scheduler.ArchiveMinute),
				0,
			)),
		),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, cfg.Scheduler.JobTimeout)
			defer cancel()

			now := time.Now().UTC()
			endedWeek := period.Week(now.AddDate(0, 0, -1))

			result, err := archiveWeekCmd.Handle(jobCtx, command.ArchiveWeekCommand{
				Period: endedWeek,
				Now:    now,
			})
			if err != nil {
				log.Error("weekly archive failed", logger.Period(endedWeek.String()), logger.Err(err))
				return
			}
			log.Info("weekly engagement archived",
				logger.Period(result.Period.String()),
				logger.Int("archived", result.Archived),
			)
		}),
		gocron.WithName("archive-week"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule weekly archive: %w", err)
	}

	if boardCache != nil {
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Scheduler.CacheRefreshInterval),
			gocron.NewTask(func() {
				jobCtx, cancel := context.WithTimeout(ctx, cfg.Scheduler.JobTimeout)
				defer cancel()
				refreshBoards(jobCtx, boardCache, log)
			}),
			gocron.WithName("refresh-leaderboards"),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule cache refresh: %w", err)
		}
	}

	scheduler.Start()
	log.Info("scheduler started",
		logger.Int("jobs", len(scheduler.Jobs())),
		logger.String("archive_weekday", cfg.Scheduler.ArchiveWeekday.String()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	if err := scheduler.Shutdown(); err != nil {
		log.Error("scheduler shutdown failed", logger.Err(err))
		return err
	}

	log.Info("worker stopped")
	return nil
}

// refreshBoards rewrites every current-period board in the cache.
func refreshBoards(ctx context.Context, boardCache *redis.LeaderboardCache, log *logger.Logger) {
	week, month := period.Current(time.Now().UTC())

	boards := []struct {
		category  leaderboard.Category
		periodKey string
	}{
		{leaderboard.CategoryAmbassador, ""},
		{leaderboard.CategoryContest, month.String()},
		{leaderboard.CategoryEngagement, week.String()},
	}

	for _, b := range boards {
		if err := boardCache.Refresh(ctx, b.category, b.periodKey, cacheRefreshDepth); err != nil {
			log.Warn("board refresh failed",
				logger.Category(string(b.category)),
				logger.Period(b.periodKey),
				logger.Err(err),
			)
		}
	}
}

// connectDatabase connects to PostgreSQL with retries.
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
