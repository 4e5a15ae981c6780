// Package messaging abstracts the chat platform transport.
package messaging

import (
	"context"

	"github.com/castellan-bot/castellan/internal/models"
)

// Service defines a pluggable chat platform abstraction.
// It supports sending messages and provides a channel of inbound messages.
type Service interface {
	// SendMessage sends a message to a channel.
	SendMessage(ctx context.Context, channelID, body string) error

	// Start begins any background processing (e.g., the gateway connection).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Messages returns a channel of inbound chat messages.
	Messages() <-chan models.IncomingMessage

	// MemberIsAdmin reports whether the author has administrator rights in
	// the channel. Used for ownership-or-admin checks on roster commands.
	MemberIsAdmin(channelID, userID string) (bool, error)
}
