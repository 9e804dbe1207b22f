// Package handler contains Telegram command and callback handlers.
// Each handler follows the pattern: receive request → validate → call
// application layer → format response. Handlers never talk to the Telegram
// API directly; the router sends whatever they return.
package handler

import (
	"fmt"

	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
)

// Response is what every handler returns to the router.
type Response struct {
	// Text is the message text.
	Text string

	// Keyboard is the inline keyboard to attach, nil for none.
	Keyboard *presenter.InlineKeyboard

	// ParseMode is the parse mode ("HTML" or empty for plain text).
	ParseMode string

	// Edit requests editing the originating message instead of sending a
	// new one. Only meaningful for callback handlers.
	Edit bool

	// Documents are files to send after the text (admin export).
	Documents []Document
}

// Document is a file attachment produced by a handler.
type Document struct {
	// Filename is the name shown in the chat.
	Filename string

	// Content is the raw file body.
	Content []byte

	// Caption is the attachment caption.
	Caption string
}

// ErrorResponse is the generic failure reply shown when a handler errors.
func ErrorResponse() *Response {
	return &Response{Text: "❌ An error occurred. Please try again."}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEEP LINK BUILDER
// Builds the t.me deep links that carry referral attribution.
// ══════════════════════════════════════════════════════════════════════════════

// LinkBuilder builds referral deep links for this bot.
type LinkBuilder struct {
	botUsername string
}

// NewLinkBuilder creates a link builder for the given bot username
// (without the leading @).
func NewLinkBuilder(botUsername string) *LinkBuilder {
	return &LinkBuilder{botUsername: botUsername}
}

// AmbassadorLink returns the permanent-program deep link for an identity.
func (b *LinkBuilder) AmbassadorLink(identity int64) string {
	return fmt.Sprintf("https://t.me/%s?start=amb_%d", b.botUsername, identity)
}

// ContestLink returns the monthly-contest deep link for an identity.
func (b *LinkBuilder) ContestLink(identity int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", b.botUsername, identity)
}
