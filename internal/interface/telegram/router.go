// Package telegram implements the Telegram bot interface for the growth hub.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/external/telegram"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/handler"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Logger for structured logging.
	Logger *logger.Logger

	// Debug enables debug logging for routing decisions.
	Debug bool
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT TYPES
// These types carry context information through the routing process.
// ══════════════════════════════════════════════════════════════════════════════

// CommandContext contains context for command handling.
type CommandContext struct {
	// TelegramID is the user's Telegram ID.
	TelegramID int64

	// ChatID is the chat ID where the command was sent.
	ChatID int64

	// MessageID is the ID of the message containing the command.
	MessageID int

	// Args is the command arguments (text after the command).
	Args string

	// Message is the original Telegram message.
	Message *telegram.Message

	// Client is the Telegram client for sending responses.
	Client *telegram.Client
}

// CallbackContext contains context for callback query handling.
type CallbackContext struct {
	// TelegramID is the user's Telegram ID.
	TelegramID int64

	// ChatID is the chat ID where the callback originated.
	ChatID int64

	// MessageID is the ID of the message with the inline keyboard.
	MessageID int

	// QueryID is the callback query ID (for answering).
	QueryID string

	// Data is the callback data string.
	Data string

	// Query is the original callback query.
	Query *telegram.CallbackQuery

	// Client is the Telegram client for sending responses.
	Client *telegram.Client
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// CommandHandler is the interface for generic command handlers.
type CommandHandler interface {
	// Handle processes the command. The handler uses ctx.Client to respond.
	Handle(ctx context.Context, cmdCtx CommandContext) error
}

// CallbackHandler is the interface for generic callback handlers.
type CallbackHandler interface {
	// Handle processes the callback query.
	Handle(ctx context.Context, cbCtx CallbackContext) error
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Routes incoming updates to appropriate handlers.
// ══════════════════════════════════════════════════════════════════════════════

// Router routes Telegram updates to appropriate handlers.
type Router struct {
	config RouterConfig
	logger *logger.Logger

	// Command handlers by command name (without /)
	commandHandlers   map[string]interface{}
	commandHandlersMu sync.RWMutex

	// Callback handlers by prefix
	callbackPrefixHandlers   map[string]interface{}
	callbackPrefixHandlersMu sync.RWMutex

	// Default handlers for unknown commands/callbacks
	defaultCommandHandler  func(ctx context.Context, cmdCtx CommandContext) error
	defaultCallbackHandler func(ctx context.Context, cbCtx CallbackContext) error
}

// NewRouter creates a new router.
func NewRouter(config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}

	r := &Router{
		config:                 config,
		logger:                 config.Logger,
		commandHandlers:        make(map[string]interface{}),
		callbackPrefixHandlers: make(map[string]interface{}),
	}

	r.defaultCommandHandler = r.handleUnknownCommand
	r.defaultCallbackHandler = r.handleUnknownCallback

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION METHODS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterCommand registers a handler for a specific command.
// The command should be without the leading "/".
func (r *Router) RegisterCommand(command string, h interface{}) {
	r.commandHandlersMu.Lock()
	defer r.commandHandlersMu.Unlock()

	r.commandHandlers[command] = h

	if r.config.Debug {
		r.logger.Debug("registered command handler", logger.String("command", command))
	}
}

// RegisterCallbackPrefix registers a handler for callbacks matching a prefix.
func (r *Router) RegisterCallbackPrefix(prefix string, h interface{}) {
	r.callbackPrefixHandlersMu.Lock()
	defer r.callbackPrefixHandlersMu.Unlock()

	r.callbackPrefixHandlers[prefix] = h

	if r.config.Debug {
		r.logger.Debug("registered callback prefix handler", logger.String("prefix", prefix))
	}
}

// SetDefaultCommandHandler sets the handler for unknown commands.
func (r *Router) SetDefaultCommandHandler(h func(ctx context.Context, cmdCtx CommandContext) error) {
	r.defaultCommandHandler = h
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING METHODS
// ══════════════════════════════════════════════════════════════════════════════

// HandleCommand routes a command to its handler.
func (r *Router) HandleCommand(ctx context.Context, command string, cmdCtx CommandContext) error {
	r.commandHandlersMu.RLock()
	h, ok := r.commandHandlers[command]
	r.commandHandlersMu.RUnlock()

	if !ok {
		if r.config.Debug {
			r.logger.Debug("no handler for command", logger.String("command", command))
		}
		return r.defaultCommandHandler(ctx, cmdCtx)
	}

	return r.executeCommandHandler(ctx, h, command, cmdCtx)
}

// executeCommandHandler executes a command handler based on its type.
// Several handler types serve more than one command, so the command name
// participates in dispatch.
func (r *Router) executeCommandHandler(ctx context.Context, h interface{}, command string, cmdCtx CommandContext) error {
	switch hd := h.(type) {
	case *handler.StartHandler:
		resp, err := hd.Handle(ctx, handler.StartRequest{
			TelegramID:    cmdCtx.TelegramID,
			DisplayName:   displayName(cmdCtx.Message, cmdCtx.TelegramID),
			DeepLinkParam: cmdCtx.Args,
		})
		return r.respond(ctx, cmdCtx.Client, cmdCtx.ChatID, cmdCtx.MessageID, resp, err)

	case *handler.BecomeAmbassadorHandler:
		resp, err := hd.Handle(ctx, handler.BecomeAmbassadorRequest{
			TelegramID:  cmdCtx.TelegramID,
			DisplayName: displayName(cmdCtx.Message, cmdCtx.TelegramID),
		})
		return r.respond(ctx, cmdCtx.Client, cmdCtx.ChatID, cmdCtx.MessageID, resp, err)

	case *handler.ReferralLinkHandler:
		resp, err := hd.Handle(ctx, handler.ReferralLinkRequest{
			TelegramID:  cmdCtx.TelegramID,
			DisplayName: displayName(cmdCtx.Message, cmdCtx.TelegramID),
		})
		return r.respond(ctx, cmdCtx.Client, cmdCtx.ChatID, cmdCtx.MessageID, resp, err)

	case *handler.StatsHandler:
		resp, err := hd.Handle(ctx, handler.StatsRequest{TelegramID: cmdCtx.TelegramID})
		return r.respond(ctx, cmdCtx.Client, cmdCtx.ChatID, cmdCtx.MessageID, resp, err)

	case *handler.LeaderboardHandler:
		resp, err := r.runLeaderboard(ctx, hd, command)
		return r.respond(ctx, cmdCtx.Client, cmdCtx.ChatID, cmdCtx.MessageID, resp, err)

	case *handler.AdminHandler:
		resp, err := r.runAdminCommand(ctx, hd, command, cmdCtx.TelegramID)
		return r.respond(ctx, cmdCtx.Client, cmdCtx.ChatID, cmdCtx.MessageID, resp, err)

	case CommandHandler:
		return hd.Handle(ctx, cmdCtx)

	default:
		r.logger.Warn("unknown handler type",
			logger.String("command", command),
			logger.String("type", fmt.Sprintf("%T", h)),
		)
		return r.defaultCommandHandler(ctx, cmdCtx)
	}
}

// runLeaderboard maps a leaderboard command to its board.
func (r *Router) runLeaderboard(ctx context.Context, hd *handler.LeaderboardHandler, command string) (*handler.Response, error) {
	switch command {
	case "ambassador_leaderboard":
		return hd.Board(ctx, leaderboard.CategoryAmbassador)
	case "referral_leaderboard":
		return hd.Board(ctx, leaderboard.CategoryContest)
	case "engagement_leaderboard":
		return hd.Board(ctx, leaderboard.CategoryEngagement)
	default:
		return hd.Menu(ctx)
	}
}

// runAdminCommand maps an operator command to its handler method.
func (r *Router) runAdminCommand(ctx context.Context, hd *handler.AdminHandler, command string, telegramID int64) (*handler.Response, error) {
	switch command {
	case "report":
		return hd.Report(ctx)
	case "export":
		return hd.Export(ctx)
	case "reset":
		return hd.Reset(ctx)
	case "reset_weekly":
		return hd.ResetWeekly(ctx, telegramID)
	case "weekly_archives":
		return hd.Archives(ctx)
	default:
		return nil, fmt.Errorf("unknown admin command %q", command)
	}
}

// HandleCallback routes a callback to its handler.
func (r *Router) HandleCallback(ctx context.Context, data string, cbCtx CallbackContext) error {
	r.callbackPrefixHandlersMu.RLock()
	var matchedPrefix string
	var matchedHandler interface{}
	for prefix, h := range r.callbackPrefixHandlers {
		if strings.HasPrefix(data, prefix) {
			// Find the longest matching prefix
			if len(prefix) > len(matchedPrefix) {
				matchedPrefix = prefix
				matchedHandler = h
			}
		}
	}
	r.callbackPrefixHandlersMu.RUnlock()

	if matchedHandler == nil {
		if r.config.Debug {
			r.logger.Debug("no handler for callback", logger.String("data", data))
		}
		return r.defaultCallbackHandler(ctx, cbCtx)
	}

	return r.executeCallbackHandler(ctx, matchedHandler, matchedPrefix, cbCtx)
}

// executeCallbackHandler executes a callback handler based on its type.
func (r *Router) executeCallbackHandler(ctx context.Context, h interface{}, prefix string, cbCtx CallbackContext) error {
	switch hd := h.(type) {
	case *handler.DoneHandler:
		return r.runDoneCallback(ctx, hd, prefix, cbCtx)

	case *handler.BecomeAmbassadorHandler:
		resp, err := hd.Handle(ctx, handler.BecomeAmbassadorRequest{
			TelegramID:  cbCtx.TelegramID,
			DisplayName: callbackDisplayName(cbCtx.Query, cbCtx.TelegramID),
		})
		return r.respond(ctx, cbCtx.Client, cbCtx.ChatID, cbCtx.MessageID, resp, err)

	case *handler.ReferralLinkHandler:
		resp, err := hd.Handle(ctx, handler.ReferralLinkRequest{
			TelegramID:  cbCtx.TelegramID,
			DisplayName: callbackDisplayName(cbCtx.Query, cbCtx.TelegramID),
		})
		return r.respond(ctx, cbCtx.Client, cbCtx.ChatID, cbCtx.MessageID, resp, err)

	case *handler.StatsHandler:
		resp, err := hd.Handle(ctx, handler.StatsRequest{TelegramID: cbCtx.TelegramID})
		return r.respond(ctx, cbCtx.Client, cbCtx.ChatID, cbCtx.MessageID, resp, err)

	case *handler.LeaderboardHandler:
		resp, err := r.runLeaderboardCallback(ctx, hd, cbCtx.Data)
		return r.respond(ctx, cbCtx.Client, cbCtx.ChatID, cbCtx.MessageID, resp, err)

	case *handler.AdminHandler:
		resp, err := r.runAdminCallback(ctx, hd, cbCtx)
		return r.respond(ctx, cbCtx.Client, cbCtx.ChatID, cbCtx.MessageID, resp, err)

	case CallbackHandler:
		return hd.Handle(ctx, cbCtx)

	case func(ctx context.Context, cbCtx CallbackContext) error:
		return hd(ctx, cbCtx)

	default:
		r.logger.Warn("unknown callback handler type",
			logger.String("prefix", prefix),
			logger.String("type", fmt.Sprintf("%T", h)),
		)
		return r.defaultCallbackHandler(ctx, cbCtx)
	}
}

// runDoneCallback parses the referrer out of a done callback and completes
// the referral. The prefix decides the namespace.
func (r *Router) runDoneCallback(ctx context.Context, hd *handler.DoneHandler, prefix string, cbCtx CallbackContext) error {
	kind := referral.LinkAmbassador
	if prefix == "ref_done_" {
		kind = referral.LinkContest
	}

	referrerID, err := strconv.ParseInt(strings.TrimPrefix(cbCtx.Data, prefix), 10, 64)
	if err != nil {
		r.logger.Warn("malformed done callback", logger.String("data", cbCtx.Data))
		return nil
	}

	resp, err := hd.Handle(ctx, handler.DoneRequest{
		TelegramID: cbCtx.TelegramID,
		ReferrerID: referrerID,
		Kind:       kind,
	})
	return r.respond(ctx, cbCtx.Client, cbCtx.ChatID, cbCtx.MessageID, resp, err)
}

// runLeaderboardCallback maps a leaderboard callback to its board.
func (r *Router) runLeaderboardCallback(ctx context.Context, hd *handler.LeaderboardHandler, data string) (*handler.Response, error) {
	switch data {
	case "lb_amb":
		return hd.Board(ctx, leaderboard.CategoryAmbassador)
	case "lb_ref":
		return hd.Board(ctx, leaderboard.CategoryContest)
	case "lb_eng":
		return hd.Board(ctx, leaderboard.CategoryEngagement)
	default:
		return hd.Menu(ctx)
	}
}

// runAdminCallback maps an operator callback to its handler method.
func (r *Router) runAdminCallback(ctx context.Context, hd *handler.AdminHandler, cbCtx CallbackContext) (*handler.Response, error) {
	switch {
	case cbCtx.Data == "confirm_reset":
		return hd.ConfirmReset(ctx, cbCtx.TelegramID)
	case cbCtx.Data == "cancel_reset":
		return hd.CancelReset(ctx)
	case strings.HasPrefix(cbCtx.Data, "archive_"):
		return hd.ArchiveDetail(ctx, strings.TrimPrefix(cbCtx.Data, "archive_"))
	default:
		return nil, fmt.Errorf("unknown admin callback %q", cbCtx.Data)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleUnknownCommand handles commands that don't have a registered handler.
func (r *Router) handleUnknownCommand(ctx context.Context, cmdCtx CommandContext) error {
	// Commands in groups routinely target other bots; stay silent there.
	if cmdCtx.Message != nil && telegram.IsGroupChat(cmdCtx.Message) {
		return nil
	}

	text := "❓ Unknown command\n\n" +
		"Available commands:\n" +
		"• /start - main menu\n" +
		"• /become_ambassador - join the ambassador program\n" +
		"• /get_referral_link - get your contest link\n" +
		"• /stats - your statistics\n" +
		"• /leaderboards - all leaderboards"

	_, err := cmdCtx.Client.SendText(ctx, cmdCtx.ChatID, text)
	return err
}

// handleUnknownCallback handles callbacks that don't have a registered handler.
func (r *Router) handleUnknownCallback(ctx context.Context, cbCtx CallbackContext) error {
	// Just log it, don't send a message to avoid spam
	r.logger.Warn("unknown callback", logger.String("data", cbCtx.Data))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// respond delivers a handler response: sends or edits the text, then sends
// any document attachments. A handler error becomes the generic error reply.
func (r *Router) respond(
	ctx context.Context,
	client *telegram.Client,
	chatID int64,
	messageID int,
	resp *handler.Response,
	handlerErr error,
) error {
	if handlerErr != nil {
		r.logger.Error("handler failed", logger.Err(handlerErr))
		resp = handler.ErrorResponse()
	}
	if resp == nil {
		return nil
	}

	if resp.Edit && messageID > 0 {
		_, err := client.EditMessageText(ctx, chatID, int64(messageID), resp.Text, resp.ParseMode, convertKeyboard(resp.Keyboard))
		if err != nil {
			return err
		}
	} else if resp.Text != "" {
		params := telegram.SendMessageParams{
			ChatID:    chatID,
			Text:      resp.Text,
			ParseMode: resp.ParseMode,
		}
		if kb := convertKeyboard(resp.Keyboard); kb != nil {
			params.ReplyMarkup = kb
		}
		if _, err := client.SendMessage(ctx, params); err != nil {
			return err
		}
	}

	for _, doc := range resp.Documents {
		_, err := client.SendDocument(ctx, chatID, doc.Filename, doc.Content, doc.Caption)
		if err != nil {
			return err
		}
	}

	if handlerErr != nil {
		return handlerErr
	}
	return nil
}

// convertKeyboard converts presenter.InlineKeyboard to telegram.InlineKeyboardMarkup.
func convertKeyboard(kb *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, len(kb.Rows)),
	}

	for i, row := range kb.Rows {
		markup.InlineKeyboard[i] = make([]telegram.InlineKeyboardButton, len(row))
		for j, btn := range row {
			markup.InlineKeyboard[i][j] = telegram.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.CallbackData,
				URL:          btn.URL,
			}
		}
	}

	return markup
}

// displayName picks the best available name for a message author, matching
// how rows are keyed everywhere: username first, then full name, then a
// synthetic User<id> placeholder.
func displayName(msg *telegram.Message, telegramID int64) string {
	if msg != nil && msg.From != nil {
		if msg.From.Username != "" {
			return msg.From.Username
		}
		if name := msg.From.FullName(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("User%d", telegramID)
}

// callbackDisplayName is displayName for callback query senders.
func callbackDisplayName(q *telegram.CallbackQuery, telegramID int64) string {
	if q != nil && q.From != nil {
		if q.From.Username != "" {
			return q.From.Username
		}
		if name := q.From.FullName(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("User%d", telegramID)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTE INFO (for introspection)
// ══════════════════════════════════════════════════════════════════════════════

// GetRegisteredCommands returns a list of registered command names.
func (r *Router) GetRegisteredCommands() []string {
	r.commandHandlersMu.RLock()
	defer r.commandHandlersMu.RUnlock()

	commands := make([]string, 0, len(r.commandHandlers))
	for cmd := range r.commandHandlers {
		commands = append(commands, cmd)
	}
	return commands
}

// GetRegisteredCallbackPrefixes returns a list of registered callback prefixes.
func (r *Router) GetRegisteredCallbackPrefixes() []string {
	r.callbackPrefixHandlersMu.RLock()
	defer r.callbackPrefixHandlersMu.RUnlock()

	prefixes := make([]string, 0, len(r.callbackPrefixHandlers))
	for prefix := range r.callbackPrefixHandlers {
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}
