// Package presenter formats data for Telegram display.
// Presenters handle the conversion from domain objects to user-friendly
// Telegram messages, keyboards, and other UI elements.
package presenter

import (
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// These types represent Telegram inline keyboards in a library-agnostic way.
// The transport layer converts them to the wire format.
// ══════════════════════════════════════════════════════════════════════════════

// InlineKeyboard represents an inline keyboard.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton represents a single inline button.
type InlineButton struct {
	// Text is the button text.
	Text string

	// CallbackData is the callback data (for callback buttons).
	CallbackData string

	// URL is the URL to open (for URL buttons).
	URL string
}

// NewInlineKeyboard creates a new empty inline keyboard.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{
		Rows: make([][]InlineButton, 0),
	}
}

// AddRow adds a row of buttons.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// CallbackButton creates a callback button.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL button.
func URLButton(text, url string) InlineButton {
	return InlineButton{
		Text: text,
		URL:  url,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// Builds keyboards for different use cases. Community links are injected so
// the task keyboards always point at the real channels.
// ══════════════════════════════════════════════════════════════════════════════

// CommunityLinks holds the external links shown on task keyboards.
type CommunityLinks struct {
	// Telegram is the community group/channel invite link.
	Telegram string

	// X is the X (Twitter) profile link.
	X string
}

// KeyboardBuilder builds inline keyboards for various handlers.
type KeyboardBuilder struct {
	links CommunityLinks
}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder(links CommunityLinks) *KeyboardBuilder {
	return &KeyboardBuilder{links: links}
}

// ─────────────────────────────────────────────────────────────────────────────
// MAIN MENU
// ─────────────────────────────────────────────────────────────────────────────

// MainMenuKeyboard creates the keyboard for a plain /start.
func (b *KeyboardBuilder) MainMenuKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("👑 Become Ambassador", "become_amb")).
		AddRow(CallbackButton("🔗 Get Referral Link", "get_ref")).
		AddRow(CallbackButton("📊 My Stats", "my_stats")).
		AddRow(CallbackButton("🏆 Leaderboards", "leaderboards"))
}

// ─────────────────────────────────────────────────────────────────────────────
// TASK KEYBOARDS
// ─────────────────────────────────────────────────────────────────────────────

// AmbassadorTaskKeyboard creates the task keyboard shown to a visitor who
// opened an ambassador link. The Done button carries the referrer so the
// completion callback can credit the right ambassador.
func (b *KeyboardBuilder) AmbassadorTaskKeyboard(referrerID int64) *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(URLButton("📱 Join Telegram", b.links.Telegram)).
		AddRow(URLButton("🐦 Follow on X", b.links.X)).
		AddRow(CallbackButton("✅ Done!", fmt.Sprintf("amb_done_%d", referrerID)))
}

// ContestTaskKeyboard creates the task keyboard for a contest link visitor.
func (b *KeyboardBuilder) ContestTaskKeyboard(referrerID int64) *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(URLButton("📱 Join Telegram", b.links.Telegram)).
		AddRow(URLButton("🐦 Follow on X", b.links.X)).
		AddRow(CallbackButton("✅ Done!", fmt.Sprintf("ref_done_%d", referrerID)))
}

// ─────────────────────────────────────────────────────────────────────────────
// LEADERBOARD KEYBOARDS
// ─────────────────────────────────────────────────────────────────────────────

// LeaderboardMenuKeyboard creates the board selection keyboard.
func (b *KeyboardBuilder) LeaderboardMenuKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("👑 Ambassador Leaderboard", "lb_amb")).
		AddRow(CallbackButton("🎁 Referral Contest (Monthly)", "lb_ref")).
		AddRow(CallbackButton("💬 Engagement (Weekly)", "lb_eng"))
}

// ─────────────────────────────────────────────────────────────────────────────
// ADMIN KEYBOARDS
// ─────────────────────────────────────────────────────────────────────────────

// ResetConfirmKeyboard creates the destructive-reset confirmation keyboard.
func (b *KeyboardBuilder) ResetConfirmKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("⚠️ Yes, Reset All Data", "confirm_reset")).
		AddRow(CallbackButton("❌ Cancel", "cancel_reset"))
}

// ArchiveListKeyboard creates one button per archived week, newest first.
// Capped at ten weeks to keep the keyboard usable.
func (b *KeyboardBuilder) ArchiveListKeyboard(periods []string) *InlineKeyboard {
	kb := NewInlineKeyboard()
	for i, p := range periods {
		if i >= 10 {
			break
		}
		kb.AddRow(CallbackButton(fmt.Sprintf("Week %s", p), "archive_"+p))
	}
	return kb
}
