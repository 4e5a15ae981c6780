// Package bot routes chat commands to the underlying services.
//
// Command parsing and reply rendering live here, behind thin handlers; all
// real work happens in the injected collaborators.
package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/castellan-bot/castellan/internal/messaging"
	"github.com/castellan-bot/castellan/internal/models"
	"github.com/castellan-bot/castellan/internal/schedule"
	"github.com/castellan-bot/castellan/internal/store"
	"github.com/castellan-bot/castellan/internal/translate"
)

// CommandPrefix marks chat messages as bot commands.
const CommandPrefix = "!"

// notificationLead is how far before the announced event time the role ping
// fires.
const notificationLead = 10 * time.Minute

// BatchRedeemer runs one gift code across a roster.
type BatchRedeemer interface {
	RedeemBatch(ctx context.Context, code string, playerIDs []string) (*models.RedemptionBatchResult, error)
}

// GameAPI exposes the read-side game API calls the commands need.
type GameAPI interface {
	GetPlayerInfo(ctx context.Context, playerID string) (*models.PlayerInfo, error)
	GetGiftCodes(ctx context.Context) ([]models.GiftCode, error)
	GetKVKMatches(ctx context.Context, kingdomNumber int) ([]models.KVKMatch, error)
}

// Translator exposes the LLM translation calls the commands need.
type Translator interface {
	ToEnglish(ctx context.Context, text string) (*translate.Translation, error)
	ToLanguage(ctx context.Context, text, targetLanguage string) (*translate.Translation, error)
}

// Extractor exposes schema-guided screenshot extraction.
type Extractor interface {
	Extract(ctx context.Context, schemaName, imageURL string) (json.RawMessage, error)
	Schemas() []string
}

// Bot consumes inbound chat messages and dispatches commands.
type Bot struct {
	svc           messaging.Service
	store         store.Store
	redeemer      BatchRedeemer
	schedules     *schedule.Store
	api           GameAPI
	translator    Translator
	extractor     Extractor
	autoTranslate bool
}

// Option configures bot construction.
type Option func(*Bot)

// WithAutoTranslate enables automatic English translation of ordinary chat
// messages. Requires a configured translator to have any effect.
func WithAutoTranslate(enabled bool) Option {
	return func(b *Bot) { b.autoTranslate = enabled }
}

// New creates a bot over its collaborators. translator and extractor may be
// nil when no LLM credentials are configured; the matching commands then
// report themselves as unavailable.
func New(svc messaging.Service, st store.Store, redeemer BatchRedeemer, schedules *schedule.Store, api GameAPI, translator Translator, extractor Extractor, opts ...Option) *Bot {
	b := &Bot{
		svc:        svc,
		store:      st,
		redeemer:   redeemer,
		schedules:  schedules,
		api:        api,
		translator: translator,
		extractor:  extractor,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run consumes the inbound message channel until it closes or the context is
// cancelled.
func (b *Bot) Run(ctx context.Context) {
	slog.Info("Bot.Run: command loop started", "prefix", CommandPrefix)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Bot.Run: stopping")
			return
		case msg, ok := <-b.svc.Messages():
			if !ok {
				slog.Info("Bot.Run: message channel closed")
				return
			}
			b.handle(ctx, msg)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg models.IncomingMessage) {
	if !strings.HasPrefix(msg.Body, CommandPrefix) {
		b.maybeAutoTranslate(ctx, msg)
		return
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Body, CommandPrefix))
	if len(fields) == 0 {
		return
	}
	command, args := strings.ToLower(fields[0]), fields[1:]
	slog.Debug("Bot.handle: dispatching command", "command", command, "channelID", msg.ChannelID, "author", msg.AuthorID)

	switch command {
	case "redeem":
		b.handleRedeem(ctx, msg, args)
	case "giftcodes":
		b.handleGiftCodes(ctx, msg)
	case "addplayer":
		b.handleAddPlayer(ctx, msg, args)
	case "removeplayer":
		b.handleRemovePlayer(ctx, msg, args)
	case "listplayers":
		b.handleListPlayers(ctx, msg)
	case "toggleplayer":
		b.handleTogglePlayer(ctx, msg, args)
	case "schedule":
		b.handleSchedule(ctx, msg, args)
	case "events":
		b.handleListEvents(ctx, msg)
	case "cancel":
		b.handleCancelEvent(ctx, msg, args)
	case "translate":
		b.handleTranslate(ctx, msg, args)
	case "english":
		b.handleEnglish(ctx, msg, args)
	case "player":
		b.handlePlayerInfo(ctx, msg, args)
	case "kvk":
		b.handleKVKMatches(ctx, msg, args)
	case "ocr":
		b.handleOCR(ctx, msg, args)
	}
}

func (b *Bot) reply(ctx context.Context, msg models.IncomingMessage, body string) {
	if err := b.svc.SendMessage(ctx, msg.ChannelID, body); err != nil {
		slog.Error("Bot.reply: failed to send reply", "error", err, "channelID", msg.ChannelID)
	}
}

func (b *Bot) handleRedeem(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) != 1 {
		b.reply(ctx, msg, "Usage: !redeem CODE")
		return
	}
	code := args[0]

	players, err := b.store.ListPlayers(true)
	if err != nil {
		slog.Error("Bot.handleRedeem: roster lookup failed", "error", err)
		b.reply(ctx, msg, "An unexpected error occurred while processing the redemption. Please try again later.")
		return
	}
	if len(players) == 0 {
		b.reply(ctx, msg, "No registered players found. Use !addplayer PLAYER_ID to add players first.")
		return
	}

	playerIDs := make([]string, len(players))
	names := make(map[string]string, len(players))
	for i, p := range players {
		playerIDs[i] = p.PlayerID
		names[p.PlayerID] = p.PlayerName
	}

	result, err := b.redeemer.RedeemBatch(ctx, code, playerIDs)
	if err != nil {
		slog.Error("Bot.handleRedeem: batch failed", "error", err, "code", code)
		b.reply(ctx, msg, "An unexpected error occurred while processing the redemption. Please try again later.")
		return
	}
	b.reply(ctx, msg, formatBatchResult(result, names))
}

func (b *Bot) handleGiftCodes(ctx context.Context, msg models.IncomingMessage) {
	codes, err := b.api.GetGiftCodes(ctx)
	if err != nil {
		slog.Error("Bot.handleGiftCodes: fetch failed", "error", err)
		b.reply(ctx, msg, "Failed to fetch gift codes from the API. Please try again later.")
		return
	}
	b.reply(ctx, msg, formatGiftCodes(codes, time.Now()))
}

func (b *Bot) handleAddPlayer(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) != 1 {
		b.reply(ctx, msg, "Usage: !addplayer PLAYER_ID")
		return
	}
	playerID := args[0]

	info, err := b.api.GetPlayerInfo(ctx, playerID)
	if err != nil {
		slog.Error("Bot.handleAddPlayer: player lookup failed", "error", err, "playerID", playerID)
		b.reply(ctx, msg, "An error occurred while adding the player.")
		return
	}
	if info == nil {
		b.reply(ctx, msg, "Could not find a player with ID "+playerID+". Please verify the ID in-game and try again.")
		return
	}

	err = b.store.AddPlayer(models.RegisteredPlayer{
		PlayerID:   playerID,
		PlayerName: info.Name,
		AddedBy:    msg.AuthorID,
		Enabled:    true,
	})
	if err != nil {
		slog.Error("Bot.handleAddPlayer: store failed", "error", err, "playerID", playerID)
		b.reply(ctx, msg, "An error occurred while adding the player.")
		return
	}
	slog.Info("Bot.handleAddPlayer: player added", "playerID", playerID, "addedBy", msg.AuthorID)
	b.reply(ctx, msg, "Player "+playerID+" ("+info.Name+") added to the gift code redemption list.")
}

func (b *Bot) handleRemovePlayer(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) != 1 {
		b.reply(ctx, msg, "Usage: !removeplayer PLAYER_ID")
		return
	}
	playerID := args[0]

	player, err := b.store.GetPlayer(playerID)
	if err != nil {
		slog.Error("Bot.handleRemovePlayer: lookup failed", "error", err, "playerID", playerID)
		b.reply(ctx, msg, "An error occurred while removing the player.")
		return
	}
	if player == nil {
		b.reply(ctx, msg, "Player "+playerID+" not found in the redemption list.")
		return
	}

	if player.AddedBy != msg.AuthorID {
		isAdmin, err := b.svc.MemberIsAdmin(msg.ChannelID, msg.AuthorID)
		if err != nil {
			slog.Error("Bot.handleRemovePlayer: admin check failed", "error", err, "author", msg.AuthorID)
			b.reply(ctx, msg, "An error occurred while removing the player.")
			return
		}
		if !isAdmin {
			b.reply(ctx, msg, "You can only remove players that you added, or you must be an admin.")
			return
		}
	}

	removed, err := b.store.RemovePlayer(playerID)
	if err != nil {
		slog.Error("Bot.handleRemovePlayer: remove failed", "error", err, "playerID", playerID)
		b.reply(ctx, msg, "An error occurred while removing the player.")
		return
	}
	if !removed {
		b.reply(ctx, msg, "Player "+playerID+" not found in the redemption list.")
		return
	}
	slog.Info("Bot.handleRemovePlayer: player removed", "playerID", playerID, "removedBy", msg.AuthorID)
	b.reply(ctx, msg, "Player "+playerID+" removed from the gift code redemption list.")
}

func (b *Bot) handleListPlayers(ctx context.Context, msg models.IncomingMessage) {
	players, err := b.store.ListPlayers(false)
	if err != nil {
		slog.Error("Bot.handleListPlayers: list failed", "error", err)
		b.reply(ctx, msg, "An error occurred while retrieving the player list.")
		return
	}
	b.reply(ctx, msg, formatPlayers(players))
}

func (b *Bot) handleTogglePlayer(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) != 1 {
		b.reply(ctx, msg, "Usage: !toggleplayer PLAYER_ID")
		return
	}
	playerID := args[0]

	enabled, err := b.store.TogglePlayer(playerID)
	if err != nil {
		slog.Error("Bot.handleTogglePlayer: toggle failed", "error", err, "playerID", playerID)
		b.reply(ctx, msg, "An error occurred while updating the player status.")
		return
	}
	if enabled == nil {
		b.reply(ctx, msg, "Player "+playerID+" not found in the redemption list.")
		return
	}
	status := "disabled"
	if *enabled {
		status = "enabled"
	}
	b.reply(ctx, msg, "Player "+playerID+" has been "+status+" for gift code redemption.")
}

func (b *Bot) handleSchedule(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) < 3 {
		b.reply(ctx, msg, "Usage: !schedule YYYY-MM-DD HH:MM Your message")
		return
	}
	eventTime, err := time.Parse("2006-01-02 15:04", args[0]+" "+args[1])
	if err != nil {
		b.reply(ctx, msg, "Invalid date/time format. Use: !schedule YYYY-MM-DD HH:MM Your message")
		return
	}
	eventTime = eventTime.UTC()
	message := strings.Join(args[2:], " ")

	fireAt := eventTime.Add(-notificationLead)
	if !b.schedules.Schedule(msg.ChannelID, fireAt, []string{"everyone"}, message) {
		b.reply(ctx, msg, "The event is too soon! Must be more than 10 minutes in the future.")
		return
	}
	slog.Info("Bot.handleSchedule: event scheduled", "channelID", msg.ChannelID, "fireAt", fireAt)
	b.reply(ctx, msg, "Scheduled @everyone ping for "+fireAt.Format("2006-01-02 15:04")+" UTC (10 minutes before "+eventTime.Format("15:04")+").\nMessage: "+message)
}

func (b *Bot) handleListEvents(ctx context.Context, msg models.IncomingMessage) {
	events := b.schedules.List(msg.ChannelID)
	b.reply(ctx, msg, formatEvents(events))
}

func (b *Bot) handleCancelEvent(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) != 1 {
		b.reply(ctx, msg, "Usage: !cancel EVENT_NUMBER")
		return
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(ctx, msg, "Usage: !cancel EVENT_NUMBER")
		return
	}
	// Events are listed 1-based.
	if !b.schedules.Cancel(msg.ChannelID, number-1) {
		b.reply(ctx, msg, "Event #"+args[0]+" not found. Use !events to see available events.")
		return
	}
	b.reply(ctx, msg, "Cancelled event #"+args[0])
}

func (b *Bot) handleTranslate(ctx context.Context, msg models.IncomingMessage, args []string) {
	if b.translator == nil {
		b.reply(ctx, msg, "Translation is not configured.")
		return
	}
	if len(args) < 2 {
		b.reply(ctx, msg, "Usage: !translate LANGUAGE text to translate")
		return
	}
	tr, err := b.translator.ToLanguage(ctx, strings.Join(args[1:], " "), args[0])
	if err != nil {
		slog.Error("Bot.handleTranslate: translation failed", "error", err)
		b.reply(ctx, msg, "Translation failed. Please try again later.")
		return
	}
	b.reply(ctx, msg, tr.Text)
}

func (b *Bot) handleEnglish(ctx context.Context, msg models.IncomingMessage, args []string) {
	if b.translator == nil {
		b.reply(ctx, msg, "Translation is not configured.")
		return
	}
	if len(args) == 0 {
		b.reply(ctx, msg, "Usage: !english text to translate")
		return
	}
	tr, err := b.translator.ToEnglish(ctx, strings.Join(args, " "))
	if err != nil {
		slog.Error("Bot.handleEnglish: translation failed", "error", err)
		b.reply(ctx, msg, "Translation failed. Please try again later.")
		return
	}
	b.reply(ctx, msg, "("+tr.Language+") "+tr.Text)
}

func (b *Bot) handlePlayerInfo(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) != 1 {
		b.reply(ctx, msg, "Usage: !player PLAYER_ID")
		return
	}
	info, err := b.api.GetPlayerInfo(ctx, args[0])
	if err != nil {
		slog.Error("Bot.handlePlayerInfo: lookup failed", "error", err, "playerID", args[0])
		b.reply(ctx, msg, "An error occurred while looking up the player.")
		return
	}
	if info == nil {
		b.reply(ctx, msg, "Could not find a player with ID "+args[0]+".")
		return
	}
	b.reply(ctx, msg, formatPlayerInfo(info))
}

func (b *Bot) handleKVKMatches(ctx context.Context, msg models.IncomingMessage, args []string) {
	if len(args) != 1 {
		b.reply(ctx, msg, "Usage: !kvk KINGDOM_NUMBER")
		return
	}
	kingdom, err := strconv.Atoi(args[0])
	if err != nil || kingdom <= 0 {
		b.reply(ctx, msg, "Kingdom number must be a positive integer.")
		return
	}

	matches, err := b.api.GetKVKMatches(ctx, kingdom)
	if err != nil {
		slog.Error("Bot.handleKVKMatches: fetch failed", "error", err, "kingdom", kingdom)
		b.reply(ctx, msg, "An error occurred while fetching KvK matches. Please try again later.")
		return
	}
	if len(matches) == 0 {
		b.reply(ctx, msg, "No KvK matches found for Kingdom "+args[0]+".")
		return
	}
	b.reply(ctx, msg, formatKVKMatches(matches, kingdom))
}

// autoTranslateSkipPrefixes marks bodies that look like commands to any bot
// in the channel, not just this one.
const autoTranslateSkipPrefixes = "!$/?"

// maybeAutoTranslate replies with the English rendering of an ordinary chat
// message when auto-translation is enabled. Messages already in English and
// anything command-shaped are left alone; failures are logged, never surfaced.
func (b *Bot) maybeAutoTranslate(ctx context.Context, msg models.IncomingMessage) {
	if !b.autoTranslate || b.translator == nil {
		return
	}
	body := strings.TrimSpace(msg.Body)
	if body == "" || strings.ContainsAny(body[:1], autoTranslateSkipPrefixes) {
		return
	}

	tr, err := b.translator.ToEnglish(ctx, body)
	if err != nil {
		slog.Debug("Bot.maybeAutoTranslate: translation failed", "error", err, "channelID", msg.ChannelID)
		return
	}
	if strings.EqualFold(tr.Language, "English") {
		return
	}
	b.reply(ctx, msg, "> "+tr.Text)
}

func (b *Bot) handleOCR(ctx context.Context, msg models.IncomingMessage, args []string) {
	if b.extractor == nil {
		b.reply(ctx, msg, "Screenshot extraction is not configured.")
		return
	}
	if len(args) != 2 {
		b.reply(ctx, msg, "Usage: !ocr SCHEMA IMAGE_URL (schemas: "+strings.Join(b.extractor.Schemas(), ", ")+")")
		return
	}
	data, err := b.extractor.Extract(ctx, args[0], args[1])
	if err != nil {
		slog.Error("Bot.handleOCR: extraction failed", "error", err, "schema", args[0])
		b.reply(ctx, msg, "Extraction failed: "+err.Error())
		return
	}
	b.reply(ctx, msg, "```json\n"+string(data)+"\n```")
}
