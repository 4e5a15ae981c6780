// Package store provides storage backends for Castellan.
//
// This file implements a PostgreSQL-backed store for the redemption ledger
// and the player roster.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/castellan-bot/castellan/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) FindExisting(playerID, code string) (*models.RedemptionOutcome, error) {
	row := s.db.QueryRow(
		`SELECT player_id, code, kind, message, error_code, created_at
		 FROM gift_code_redemptions
		 WHERE player_id = $1 AND code = $2 AND kind IN ($3, $4)
		 ORDER BY id DESC LIMIT 1`,
		playerID, code, models.OutcomeSuccess, models.OutcomeAlreadyRedeemed,
	)
	o, err := scanOutcomeRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore FindExisting failed", "error", err, "playerID", playerID, "code", code)
		return nil, fmt.Errorf("failed to query redemption for %s: %w", playerID, err)
	}
	return o, nil
}

func (s *PostgresStore) RedeemedSet(code string) (map[string]struct{}, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT player_id FROM gift_code_redemptions WHERE code = $1 AND kind IN ($2, $3)`,
		code, models.OutcomeSuccess, models.OutcomeAlreadyRedeemed,
	)
	if err != nil {
		slog.Error("PostgresStore RedeemedSet query failed", "error", err, "code", code)
		return nil, fmt.Errorf("failed to query redeemed set for %s: %w", code, err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Error("PostgresStore RedeemedSet scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan redeemed player row: %w", err)
		}
		set[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore RedeemedSet rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate redeemed player rows: %w", err)
	}
	slog.Debug("PostgresStore RedeemedSet succeeded", "code", code, "count", len(set))
	return set, nil
}

func (s *PostgresStore) Append(o models.RedemptionOutcome) error {
	_, err := s.db.Exec(
		`INSERT INTO gift_code_redemptions (player_id, code, kind, message, error_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.PlayerID, o.Code, o.Kind, nilIfEmpty(o.Message), nilIfEmpty(o.ErrorCode), o.Timestamp,
	)
	if err != nil {
		slog.Error("PostgresStore Append failed", "error", err, "playerID", o.PlayerID, "code", o.Code)
		return fmt.Errorf("failed to insert redemption outcome for %s: %w", o.PlayerID, err)
	}
	slog.Debug("PostgresStore Append succeeded", "playerID", o.PlayerID, "code", o.Code, "kind", o.Kind)
	return nil
}

func (s *PostgresStore) AddPlayer(p models.RegisteredPlayer) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO registered_players (player_id, player_name, added_by, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (player_id) DO UPDATE SET
		   player_name = COALESCE(NULLIF(EXCLUDED.player_name, ''), registered_players.player_name),
		   added_by = EXCLUDED.added_by,
		   enabled = EXCLUDED.enabled,
		   updated_at = EXCLUDED.updated_at`,
		p.PlayerID, p.PlayerName, p.AddedBy, p.Enabled, now, now,
	)
	if err != nil {
		slog.Error("PostgresStore AddPlayer failed", "error", err, "playerID", p.PlayerID)
		return fmt.Errorf("failed to upsert player %s: %w", p.PlayerID, err)
	}
	slog.Debug("PostgresStore AddPlayer succeeded", "playerID", p.PlayerID, "enabled", p.Enabled)
	return nil
}

func (s *PostgresStore) GetPlayer(playerID string) (*models.RegisteredPlayer, error) {
	row := s.db.QueryRow(
		`SELECT player_id, player_name, added_by, enabled, created_at, updated_at
		 FROM registered_players WHERE player_id = $1`, playerID,
	)
	p, err := scanPlayerRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetPlayer failed", "error", err, "playerID", playerID)
		return nil, fmt.Errorf("failed to query player %s: %w", playerID, err)
	}
	return p, nil
}

func (s *PostgresStore) RemovePlayer(playerID string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM registered_players WHERE player_id = $1`, playerID)
	if err != nil {
		slog.Error("PostgresStore RemovePlayer failed", "error", err, "playerID", playerID)
		return false, fmt.Errorf("failed to remove player %s: %w", playerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read remove result for %s: %w", playerID, err)
	}
	return n > 0, nil
}

func (s *PostgresStore) TogglePlayer(playerID string) (*bool, error) {
	row := s.db.QueryRow(
		`UPDATE registered_players SET enabled = NOT enabled, updated_at = $1
		 WHERE player_id = $2 RETURNING enabled`,
		time.Now().UTC(), playerID,
	)
	var enabled bool
	err := row.Scan(&enabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore TogglePlayer failed", "error", err, "playerID", playerID)
		return nil, fmt.Errorf("failed to toggle player %s: %w", playerID, err)
	}
	slog.Debug("PostgresStore TogglePlayer succeeded", "playerID", playerID, "enabled", enabled)
	return &enabled, nil
}

func (s *PostgresStore) ListPlayers(enabledOnly bool) ([]models.RegisteredPlayer, error) {
	query := `SELECT player_id, player_name, added_by, enabled, created_at, updated_at
	          FROM registered_players`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY player_id`

	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("PostgresStore ListPlayers query failed", "error", err)
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []models.RegisteredPlayer
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			slog.Error("PostgresStore ListPlayers scan failed", "error", err)
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListPlayers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate player rows: %w", err)
	}
	slog.Debug("PostgresStore ListPlayers succeeded", "count", len(players))
	return players, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
