package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/castellan-bot/castellan/internal/models"
)

// messageBufferSize bounds the inbound message channel. Messages arriving
// while the buffer is full are dropped with a warning rather than blocking
// the gateway handler.
const messageBufferSize = 128

// Compile-time check that DiscordService implements Service.
var _ Service = (*DiscordService)(nil)

// DiscordService is the Discord implementation of the messaging Service.
type DiscordService struct {
	session  *discordgo.Session
	messages chan models.IncomingMessage
}

// NewDiscordService creates a Discord service from a bot token.
func NewDiscordService(token string) (*DiscordService, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token not set")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	s := &DiscordService{
		session:  session,
		messages: make(chan models.IncomingMessage, messageBufferSize),
	}
	session.AddHandler(s.onMessageCreate)
	return s, nil
}

// Start opens the gateway connection.
func (s *DiscordService) Start(ctx context.Context) error {
	if err := s.session.Open(); err != nil {
		slog.Error("DiscordService.Start: failed to open gateway", "error", err)
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	slog.Info("DiscordService.Start: gateway connected")
	return nil
}

// Stop closes the gateway connection and the inbound message channel.
func (s *DiscordService) Stop() error {
	err := s.session.Close()
	close(s.messages)
	if err != nil {
		slog.Error("DiscordService.Stop: failed to close gateway", "error", err)
		return err
	}
	slog.Info("DiscordService.Stop: gateway closed")
	return nil
}

// SendMessage sends a message to a channel.
func (s *DiscordService) SendMessage(ctx context.Context, channelID, body string) error {
	_, err := s.session.ChannelMessageSend(channelID, body, discordgo.WithContext(ctx))
	if err != nil {
		slog.Error("DiscordService.SendMessage failed", "error", err, "channelID", channelID)
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	slog.Debug("DiscordService.SendMessage succeeded", "channelID", channelID, "length", len(body))
	return nil
}

// Messages returns the inbound message channel.
func (s *DiscordService) Messages() <-chan models.IncomingMessage {
	return s.messages
}

// MemberIsAdmin reports whether the user holds administrator permission in
// the channel.
func (s *DiscordService) MemberIsAdmin(channelID, userID string) (bool, error) {
	perms, err := s.session.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve permissions for %s: %w", userID, err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

func (s *DiscordService) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	msg := models.IncomingMessage{
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Body:       m.Content,
	}
	select {
	case s.messages <- msg:
	default:
		slog.Warn("DiscordService.onMessageCreate: inbound buffer full, dropping message", "channelID", m.ChannelID)
	}
}
