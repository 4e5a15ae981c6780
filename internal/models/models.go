// Package models defines the core data structures for Castellan.
//
// It includes types for redemption outcomes, scheduled notifications, and the
// registered player roster, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// OutcomeKind classifies the result of a single gift code redemption attempt.
type OutcomeKind string

const (
	// OutcomeSuccess indicates the external API confirmed the redemption.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeAlreadyRedeemed indicates the code was previously applied to the player.
	OutcomeAlreadyRedeemed OutcomeKind = "already_redeemed"
	// OutcomeInvalidPlayer indicates the player ID is not in the numeric form the API requires.
	OutcomeInvalidPlayer OutcomeKind = "invalid_player"
	// OutcomeNetworkError indicates a transport-level failure reaching the API.
	OutcomeNetworkError OutcomeKind = "network_error"
	// OutcomeAPIError indicates the API rejected the attempt with a structured error.
	OutcomeAPIError OutcomeKind = "api_error"
	// OutcomeUnknownError is the catch-all for unclassifiable failures.
	OutcomeUnknownError OutcomeKind = "unknown_error"
)

// IsValidOutcomeKind checks if the given outcome kind is supported.
func IsValidOutcomeKind(k OutcomeKind) bool {
	switch k {
	case OutcomeSuccess, OutcomeAlreadyRedeemed, OutcomeInvalidPlayer,
		OutcomeNetworkError, OutcomeAPIError, OutcomeUnknownError:
		return true
	default:
		return false
	}
}

// Redeemed reports whether the outcome counts the (player, code) pair as
// consumed, i.e. no further external call should ever be made for it.
func (k OutcomeKind) Redeemed() bool {
	return k == OutcomeSuccess || k == OutcomeAlreadyRedeemed
}

// Error variables for better error handling and testability
var (
	ErrEmptyCode       = errors.New("gift code cannot be empty")
	ErrEmptyPlayerID   = errors.New("player ID cannot be empty")
	ErrEmptyChannelID  = errors.New("channel ID cannot be empty")
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrInvalidKingdom  = errors.New("kingdom number must be positive")
	ErrUnknownSchema   = errors.New("unknown OCR schema")
	ErrNoCompletion    = errors.New("no completion choices returned")
	ErrUnparsableReply = errors.New("model reply did not contain a JSON object")
)

// RedemptionOutcome is a single immutable record of one redemption attempt.
// The ledger is append-only; later outcomes for the same (player, code) pair
// never overwrite earlier ones.
type RedemptionOutcome struct {
	PlayerID  string      `json:"player_id"`
	Code      string      `json:"code"`
	Kind      OutcomeKind `json:"kind"`
	Message   string      `json:"message,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// RedemptionBatchResult aggregates the per-player outcomes of one batch run.
// PerPlayer preserves roster order.
type RedemptionBatchResult struct {
	Code         string              `json:"code"`
	PerPlayer    []RedemptionOutcome `json:"per_player"`
	SuccessCount int                 `json:"success_count"`
	FailureCount int                 `json:"failure_count"`
}

// Add appends an outcome to the result and updates the counters. Success and
// AlreadyRedeemed both count as successful for reporting purposes.
func (r *RedemptionBatchResult) Add(o RedemptionOutcome) {
	r.PerPlayer = append(r.PerPlayer, o)
	if o.Kind.Redeemed() {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
}

// RegisteredPlayer is a roster entry for bulk gift code redemption.
type RegisteredPlayer struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name,omitempty"`
	AddedBy    string    `json:"added_by"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScheduledNotification is a pending role-ping held by the schedule store
// until it fires or is cancelled. It has no existence after either transition.
type ScheduledNotification struct {
	ChannelID string    `json:"channel_id"`
	FireAt    time.Time `json:"fire_at"`
	Targets   []string  `json:"targets"`
	Message   string    `json:"message"`
}

// PlayerInfo is the public profile returned by the game API.
type PlayerInfo struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Kingdom     string `json:"kingdom,omitempty"`
	CastleLevel string `json:"levelRendered,omitempty"`
}

// KVKMatch is one Kingdom-vs-Kingdom season result as reported by the game
// API. Kingdom fields carry kingdom numbers; winner fields name the kingdom
// that took the phase.
type KVKMatch struct {
	KingdomA       int    `json:"kingdom_a"`
	KingdomB       int    `json:"kingdom_b"`
	Attacker       int    `json:"attacker"`
	Defender       int    `json:"defender"`
	CastleWinner   int    `json:"castle_winner"`
	PrepWinner     int    `json:"prep_winner"`
	CastleCaptured bool   `json:"castle_captured"`
	Title          string `json:"kvk_title"`
	SeasonDate     string `json:"season_date"`
}

// Opponent returns the other side of the match from the given kingdom's
// perspective.
func (m KVKMatch) Opponent(kingdom int) int {
	if m.KingdomA == kingdom {
		return m.KingdomB
	}
	return m.KingdomA
}

// GiftCode describes a promotional code as listed by the game API.
type GiftCode struct {
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Active reports whether the code is usable at the given instant. Codes
// without an expiry are permanent.
func (g GiftCode) Active(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// IncomingMessage is a chat message received from the platform transport.
type IncomingMessage struct {
	ChannelID  string `json:"channel_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}
