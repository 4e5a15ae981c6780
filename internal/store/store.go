// Package store provides storage backends for Castellan.
//
// It defines the redemption ledger and player roster contracts, with
// in-memory, SQLite, and PostgreSQL implementations.
package store

import (
	"strings"

	"github.com/castellan-bot/castellan/internal/models"
)

// Ledger is the append-only record of gift code redemption outcomes. It is
// the source of truth for which (player, code) pairs have already been
// consumed by the external API.
type Ledger interface {
	// FindExisting returns the most recent Success or AlreadyRedeemed outcome
	// for the pair, or nil if the pair has never been confirmed redeemed.
	FindExisting(playerID, code string) (*models.RedemptionOutcome, error)

	// RedeemedSet returns the IDs of every player with a Success or
	// AlreadyRedeemed record for the code. It must reflect all prior Append
	// calls for that code.
	RedeemedSet(code string) (map[string]struct{}, error)

	// Append durably records one outcome. Outcomes are never updated or
	// deleted; concurrent appenders must not lose writes.
	Append(outcome models.RedemptionOutcome) error
}

// PlayerRepo manages the roster of players registered for bulk redemption.
type PlayerRepo interface {
	// AddPlayer inserts or updates a roster entry keyed by player ID.
	AddPlayer(p models.RegisteredPlayer) error

	// GetPlayer returns a roster entry, or nil if not registered.
	GetPlayer(playerID string) (*models.RegisteredPlayer, error)

	// RemovePlayer deletes a roster entry. Returns false if not registered.
	RemovePlayer(playerID string) (bool, error)

	// TogglePlayer flips the enabled flag and returns the new value, or nil
	// if the player is not registered.
	TogglePlayer(playerID string) (*bool, error)

	// ListPlayers returns roster entries ordered by player ID.
	ListPlayers(enabledOnly bool) ([]models.RegisteredPlayer, error)
}

// Store combines all persistence contracts behind one backend.
type Store interface {
	Ledger
	PlayerRepo
	Close() error
}

// Opts holds configuration for store construction.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Anything that is
// not recognizably a PostgreSQL connection string is treated as a SQLite file
// path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
