package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/external/telegram"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/handler"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/middleware"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
	"github.com/cerulean-labs/growth-hub/pkg/circuitbreaker"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Token is the Telegram Bot API token.
	Token string

	// BotUsername is the bot's username, used to build deep links.
	BotUsername string

	// AdminIDs lists Telegram IDs allowed to run operator commands.
	AdminIDs []int64

	// Links holds the community URLs shown on task keyboards.
	Links presenter.CommunityLinks

	// PollingTimeout is the timeout for long polling (in seconds).
	PollingTimeout int

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *logger.Logger

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout is the timeout for graceful shutdown.
	GracefulShutdownTimeout time.Duration
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig(token string) BotConfig {
	return BotConfig{
		Token:                   token,
		PollingTimeout:          30,
		Debug:                   false,
		Logger:                  logger.Default(),
		MaxConcurrentUpdates:    100,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// Aggregates all application handlers the bot routes to.
// ══════════════════════════════════════════════════════════════════════════════

// BotDependencies contains all dependencies for the bot handlers.
type BotDependencies struct {
	// Commands
	RegisterAmbassadorCmd *command.RegisterAmbassadorHandler
	RegisterReferralCmd   *command.RegisterReferralHandler
	CompleteTaskCmd       *command.CompleteTaskHandler
	EnsureContestCmd      *command.EnsureContestIdentityHandler
	RecordActivityCmd     *command.RecordActivityHandler
	ArchiveWeekCmd        *command.ArchiveWeekHandler
	ResetAllCmd           *command.ResetAllHandler

	// Queries
	LeaderboardQuery *query.GetLeaderboardHandler
	MemberStatsQuery *query.GetMemberStatsHandler
	AdminReportQuery *query.GetAdminReportHandler
	ArchivesQuery    *query.ListArchivesHandler
	ExportQuery      *query.ExportDataHandler
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// Main bot structure that orchestrates Telegram interactions.
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	client *telegram.Client
	router *Router
	logger *logger.Logger

	// Middleware
	adminGate *middleware.AdminGate
	recovery  *middleware.RecoveryMiddleware

	// Engagement tracking for group messages
	recordActivity *command.RecordActivityHandler

	// apiBreaker guards outbound Telegram calls. Only API and transport
	// errors count as failures, so a broken database never opens it.
	apiBreaker *circuitbreaker.CircuitBreaker

	// Lifecycle management
	running   bool
	runningMu sync.RWMutex
	stopCh    chan struct{}
	updateSem chan struct{}
	wg        sync.WaitGroup

	// Statistics
	stats *BotStats
}

// BotStats holds runtime statistics.
type BotStats struct {
	mu              sync.RWMutex
	StartedAt       time.Time
	UpdatesReceived int64
	UpdatesHandled  int64
	ErrorsCount     int64
	CommandsCount   map[string]int64
}

// NewBot creates a new Telegram bot with all dependencies.
func NewBot(config BotConfig, deps BotDependencies) (*Bot, error) {
	if config.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if config.BotUsername == "" {
		return nil, errors.New("bot username is required to build referral links")
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}

	// Create Telegram client
	clientConfig := telegram.DefaultClientConfig(config.Token)
	clientConfig.Logger = config.Logger
	clientConfig.Debug = config.Debug
	client := telegram.NewClient(clientConfig)

	// Create presenters
	keyboards := presenter.NewKeyboardBuilder(config.Links)
	boardPresenter := presenter.NewLeaderboardPresenter()
	links := handler.NewLinkBuilder(config.BotUsername)

	// Create handlers
	startHandler := handler.NewStartHandler(deps.RegisterReferralCmd, keyboards)
	ambassadorHandler := handler.NewBecomeAmbassadorHandler(deps.RegisterAmbassadorCmd, links)
	refLinkHandler := handler.NewReferralLinkHandler(deps.EnsureContestCmd, links)
	statsHandler := handler.NewStatsHandler(deps.MemberStatsQuery, links)
	leaderboardHandler := handler.NewLeaderboardHandler(deps.LeaderboardQuery, boardPresenter, keyboards)
	doneHandler := handler.NewDoneHandler(deps.CompleteTaskCmd)
	adminHandler := handler.NewAdminHandler(
		deps.AdminReportQuery,
		deps.ExportQuery,
		deps.ArchivesQuery,
		deps.ArchiveWeekCmd,
		deps.ResetAllCmd,
		keyboards,
		boardPresenter,
		config.Logger,
	)

	// Create middleware
	adminGate := middleware.NewAdminGate(middleware.DefaultAdminGateConfig(config.AdminIDs))
	recovery := middleware.NewRecoveryMiddleware(middleware.DefaultRecoveryConfig(config.Logger))

	// Create router with all handlers
	router := NewRouter(RouterConfig{
		Logger: config.Logger,
		Debug:  config.Debug,
	})

	// Register command handlers
	router.RegisterCommand("start", startHandler)
	router.RegisterCommand("become_ambassador", ambassadorHandler)
	router.RegisterCommand("get_referral_link", refLinkHandler)
	router.RegisterCommand("stats", statsHandler)
	router.RegisterCommand("leaderboards", leaderboardHandler)
	router.RegisterCommand("ambassador_leaderboard", leaderboardHandler)
	router.RegisterCommand("referral_leaderboard", leaderboardHandler)
	router.RegisterCommand("engagement_leaderboard", leaderboardHandler)
	router.RegisterCommand("report", adminHandler)
	router.RegisterCommand("export", adminHandler)
	router.RegisterCommand("reset", adminHandler)
	router.RegisterCommand("reset_weekly", adminHandler)
	router.RegisterCommand("weekly_archives", adminHandler)

	// Register callback handlers
	router.RegisterCallbackPrefix("amb_done_", doneHandler)
	router.RegisterCallbackPrefix("ref_done_", doneHandler)
	router.RegisterCallbackPrefix("become_amb", ambassadorHandler)
	router.RegisterCallbackPrefix("get_ref", refLinkHandler)
	router.RegisterCallbackPrefix("my_stats", statsHandler)
	router.RegisterCallbackPrefix("leaderboards", leaderboardHandler)
	router.RegisterCallbackPrefix("lb_amb", leaderboardHandler)
	router.RegisterCallbackPrefix("lb_ref", leaderboardHandler)
	router.RegisterCallbackPrefix("lb_eng", leaderboardHandler)
	router.RegisterCallbackPrefix("confirm_reset", adminHandler)
	router.RegisterCallbackPrefix("cancel_reset", adminHandler)
	router.RegisterCallbackPrefix("archive_", adminHandler)

	log := config.Logger
	apiBreaker := circuitbreaker.TelegramAPIBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state change",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	bot := &Bot{
		config:         config,
		client:         client,
		router:         router,
		logger:         config.Logger,
		adminGate:      adminGate,
		recovery:       recovery,
		recordActivity: deps.RecordActivityCmd,
		apiBreaker:     apiBreaker,
		stopCh:         make(chan struct{}),
		updateSem:      make(chan struct{}, config.MaxConcurrentUpdates),
		stats: &BotStats{
			CommandsCount: make(map[string]int64),
		},
	}

	return bot, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the bot and begins receiving updates. Blocks until the
// context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.stats.StartedAt = time.Now()
	b.runningMu.Unlock()

	b.logger.Info("starting telegram bot",
		logger.String("username", b.config.BotUsername),
		logger.Int("admins", len(b.config.AdminIDs)),
		logger.Bool("debug", b.config.Debug),
	)

	// Verify bot token with getMe
	if err := b.verifyToken(ctx); err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}

	return b.client.StartPolling(ctx, func(ctx context.Context, update *telegram.Update) error {
		return b.handleUpdate(ctx, update)
	})
}

// Stop gracefully stops the bot.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.runningMu.Unlock()

	b.logger.Info("stopping telegram bot")

	close(b.stopCh)

	// Wait for in-flight handlers, bounded by the shutdown timeout.
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	case <-ctx.Done():
		b.logger.Warn("context cancelled during shutdown")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the bot is currently running.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// verifyToken verifies the bot token by calling getMe.
func (b *Bot) verifyToken(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}

	b.logger.Info("bot verified",
		logger.Int64("id", me.ID),
		logger.String("username", me.Username),
	)

	if me.Username != "" && me.Username != b.config.BotUsername {
		b.logger.Warn("configured bot username does not match getMe",
			logger.String("configured", b.config.BotUsername),
			logger.String("actual", me.Username),
		)
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// handleUpdate processes a single Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) error {
	// Acquire semaphore slot
	select {
	case b.updateSem <- struct{}{}:
		defer func() { <-b.updateSem }()
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stopCh:
		return nil
	}

	b.wg.Add(1)
	defer b.wg.Done()

	b.stats.mu.Lock()
	b.stats.UpdatesReceived++
	b.stats.mu.Unlock()

	startTime := time.Now()
	ctx = middleware.ContextWithTelegramID(ctx, extractTelegramID(update))

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
	default:
		// Unknown update type - ignore
		return nil
	}

	if err != nil {
		b.stats.mu.Lock()
		b.stats.ErrorsCount++
		b.stats.mu.Unlock()
		b.logger.Error("failed to handle update",
			logger.Int64("update_id", update.UpdateID),
			logger.Err(err),
			logger.Latency(time.Since(startTime)),
		)
	} else {
		b.stats.mu.Lock()
		b.stats.UpdatesHandled++
		b.stats.mu.Unlock()
	}

	return err
}

// handleMessage processes a Telegram message. Commands route through the
// admin gate and the router; group chatter feeds engagement tracking.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return nil
	}

	telegramID := msg.From.ID
	chatID := msg.Chat.ID

	cmd := telegram.ExtractCommand(msg)
	args := telegram.ExtractCommandArgs(msg)

	if cmd != "" {
		return b.handleCommand(ctx, telegramID, chatID, int(msg.MessageID), cmd, args, msg)
	}

	if msg.Text != "" && telegram.IsGroupChat(msg) {
		return b.trackEngagement(ctx, msg)
	}

	return nil
}

// handleCommand processes a bot command.
func (b *Bot) handleCommand(
	ctx context.Context,
	telegramID, chatID int64,
	messageID int,
	cmd, args string,
	msg *telegram.Message,
) error {
	b.stats.mu.Lock()
	b.stats.CommandsCount[cmd]++
	b.stats.mu.Unlock()

	if b.config.Debug {
		b.logger.Debug("command received",
			logger.String("command", cmd),
			logger.Int64("telegram_id", telegramID),
			logger.Int64("chat_id", chatID),
		)
	}

	gate := b.adminGate.CheckCommand(telegramID, cmd)
	if !gate.Allowed {
		return b.sendReply(ctx, chatID, gate.DeniedMessage)
	}

	result := b.recovery.Run(ctx, telegramID, "/"+cmd, func() error {
		return b.router.HandleCommand(ctx, cmd, CommandContext{
			TelegramID: telegramID,
			ChatID:     chatID,
			MessageID:  messageID,
			Args:       args,
			Message:    msg,
			Client:     b.client,
		})
	})

	if result.Recovered {
		return b.sendReply(ctx, chatID, result.UserMessage)
	}
	return result.Err
}

// trackEngagement records a non-command group message for the weekly
// engagement counters.
func (b *Bot) trackEngagement(ctx context.Context, msg *telegram.Message) error {
	cmd := command.RecordActivityCommand{
		Identity:    referral.Identity(msg.From.ID),
		DisplayName: displayName(msg, msg.From.ID),
		ChatID:      msg.Chat.ID,
		IsGroup:     true,
		Timestamp:   time.Unix(msg.Date, 0).UTC(),
	}
	if err := b.recordActivity.Handle(ctx, cmd); err != nil {
		// Tracking failures never surface to the chat.
		b.logger.Error("failed to record activity",
			logger.Identity(int64(cmd.Identity)),
			logger.Err(err),
		)
	}
	return nil
}

// handleCallbackQuery processes a callback query from an inline keyboard.
func (b *Bot) handleCallbackQuery(ctx context.Context, cq *telegram.CallbackQuery) error {
	if cq == nil || cq.From == nil {
		return nil
	}

	telegramID := cq.From.ID
	chatID := int64(0)
	messageID := int64(0)
	if cq.Message != nil {
		chatID = cq.Message.Chat.ID
		messageID = cq.Message.MessageID
	}

	// Answer first, so the button stops spinning regardless of outcome.
	defer func() {
		_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "", false)
	}()

	gate := b.adminGate.CheckCallback(telegramID, cq.Data)
	if !gate.Allowed {
		return nil
	}

	result := b.recovery.Run(ctx, telegramID, "callback:"+cq.Data, func() error {
		return b.router.HandleCallback(ctx, cq.Data, CallbackContext{
			TelegramID: telegramID,
			ChatID:     chatID,
			MessageID:  int(messageID),
			QueryID:    cq.ID,
			Data:       cq.Data,
			Query:      cq,
			Client:     b.client,
		})
	})

	if result.Recovered && chatID != 0 {
		return b.sendReply(ctx, chatID, result.UserMessage)
	}
	return result.Err
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// sendReply sends a plain reply through the API circuit breaker.
func (b *Bot) sendReply(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		return nil
	}
	return b.apiBreaker.Execute(func() error {
		_, err := b.client.SendText(ctx, chatID, text)
		return err
	})
}

// extractTelegramID extracts the Telegram user ID from an update.
func extractTelegramID(update *telegram.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// GetStats returns current bot statistics.
func (b *Bot) GetStats() map[string]interface{} {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	commandsCopy := make(map[string]int64, len(b.stats.CommandsCount))
	for k, v := range b.stats.CommandsCount {
		commandsCopy[k] = v
	}

	return map[string]interface{}{
		"started_at":       b.stats.StartedAt,
		"uptime":           time.Since(b.stats.StartedAt).String(),
		"updates_received": b.stats.UpdatesReceived,
		"updates_handled":  b.stats.UpdatesHandled,
		"errors_count":     b.stats.ErrorsCount,
		"commands_count":   commandsCopy,
		"running":          b.IsRunning(),
		"api_breaker":      b.apiBreaker.State().String(),
	}
}

// Client returns the Telegram client for direct API access.
// Use sparingly - prefer going through handlers.
func (b *Bot) Client() *telegram.Client {
	return b.client
}

// Router returns the router for handler registration.
func (b *Bot) Router() *Router {
	return b.router
}
