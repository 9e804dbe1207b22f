package command

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// Counts qualifying group messages into the weekly engagement table. Only
// messages from the single configured tracked chat count; everything else is
// silently ignored. The store-side upsert makes concurrent increments safe.
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityCommand contains one activity event.
type RecordActivityCommand struct {
	// Identity is the message author.
	Identity referral.Identity

	// DisplayName is the author's current display name; refreshed on the
	// counter row with every message.
	DisplayName string

	// ChatID is the chat the message arrived in (the scope).
	ChatID int64

	// IsGroup reports whether the message came from a group chat.
	IsGroup bool

	// Timestamp is when the message was sent.
	Timestamp time.Time
}

// RecordActivityHandler buckets activity into ISO weeks.
type RecordActivityHandler struct {
	repo        engagement.Repository
	trackedChat int64
}

// NewRecordActivityHandler creates the handler. A zero trackedChat disables
// tracking entirely.
func NewRecordActivityHandler(repo engagement.Repository, trackedChat int64) *RecordActivityHandler {
	return &RecordActivityHandler{repo: repo, trackedChat: trackedChat}
}

// Handle records the event, or does nothing when it is out of scope.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) error {
	if h.trackedChat == 0 || !cmd.IsGroup || cmd.ChatID != h.trackedChat {
		return nil
	}
	if cmd.Identity <= 0 {
		return nil
	}

	ts := cmd.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return h.repo.RecordMessage(ctx, cmd.Identity, cmd.DisplayName, period.Week(ts), ts)
}
