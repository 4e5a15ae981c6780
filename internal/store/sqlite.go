// Package store provides storage backends for Castellan.
//
// This file implements a SQLite-backed store for the redemption ledger and
// the player roster.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/castellan-bot/castellan/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FindExisting(playerID, code string) (*models.RedemptionOutcome, error) {
	row := s.db.QueryRow(
		`SELECT player_id, code, kind, message, error_code, created_at
		 FROM gift_code_redemptions
		 WHERE player_id = ? AND code = ? AND kind IN (?, ?)
		 ORDER BY id DESC LIMIT 1`,
		playerID, code, models.OutcomeSuccess, models.OutcomeAlreadyRedeemed,
	)
	o, err := scanOutcomeRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore FindExisting failed", "error", err, "playerID", playerID, "code", code)
		return nil, fmt.Errorf("failed to query redemption for %s: %w", playerID, err)
	}
	return o, nil
}

func (s *SQLiteStore) RedeemedSet(code string) (map[string]struct{}, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT player_id FROM gift_code_redemptions WHERE code = ? AND kind IN (?, ?)`,
		code, models.OutcomeSuccess, models.OutcomeAlreadyRedeemed,
	)
	if err != nil {
		slog.Error("SQLiteStore RedeemedSet query failed", "error", err, "code", code)
		return nil, fmt.Errorf("failed to query redeemed set for %s: %w", code, err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Error("SQLiteStore RedeemedSet scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan redeemed player row: %w", err)
		}
		set[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore RedeemedSet rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate redeemed player rows: %w", err)
	}
	slog.Debug("SQLiteStore RedeemedSet succeeded", "code", code, "count", len(set))
	return set, nil
}

func (s *SQLiteStore) Append(o models.RedemptionOutcome) error {
	_, err := s.db.Exec(
		`INSERT INTO gift_code_redemptions (player_id, code, kind, message, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.PlayerID, o.Code, o.Kind, nilIfEmpty(o.Message), nilIfEmpty(o.ErrorCode), o.Timestamp,
	)
	if err != nil {
		slog.Error("SQLiteStore Append failed", "error", err, "playerID", o.PlayerID, "code", o.Code)
		return fmt.Errorf("failed to insert redemption outcome for %s: %w", o.PlayerID, err)
	}
	slog.Debug("SQLiteStore Append succeeded", "playerID", o.PlayerID, "code", o.Code, "kind", o.Kind)
	return nil
}

func (s *SQLiteStore) AddPlayer(p models.RegisteredPlayer) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO registered_players (player_id, player_name, added_by, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET
		   player_name = COALESCE(NULLIF(excluded.player_name, ''), player_name),
		   added_by = excluded.added_by,
		   enabled = excluded.enabled,
		   updated_at = excluded.updated_at`,
		p.PlayerID, p.PlayerName, p.AddedBy, p.Enabled, now, now,
	)
	if err != nil {
		slog.Error("SQLiteStore AddPlayer failed", "error", err, "playerID", p.PlayerID)
		return fmt.Errorf("failed to upsert player %s: %w", p.PlayerID, err)
	}
	slog.Debug("SQLiteStore AddPlayer succeeded", "playerID", p.PlayerID, "enabled", p.Enabled)
	return nil
}

func (s *SQLiteStore) GetPlayer(playerID string) (*models.RegisteredPlayer, error) {
	row := s.db.QueryRow(
		`SELECT player_id, player_name, added_by, enabled, created_at, updated_at
		 FROM registered_players WHERE player_id = ?`, playerID,
	)
	p, err := scanPlayerRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetPlayer failed", "error", err, "playerID", playerID)
		return nil, fmt.Errorf("failed to query player %s: %w", playerID, err)
	}
	return p, nil
}

func (s *SQLiteStore) RemovePlayer(playerID string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM registered_players WHERE player_id = ?`, playerID)
	if err != nil {
		slog.Error("SQLiteStore RemovePlayer failed", "error", err, "playerID", playerID)
		return false, fmt.Errorf("failed to remove player %s: %w", playerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read remove result for %s: %w", playerID, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) TogglePlayer(playerID string) (*bool, error) {
	p, err := s.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	enabled := !p.Enabled
	_, err = s.db.Exec(
		`UPDATE registered_players SET enabled = ?, updated_at = ? WHERE player_id = ?`,
		enabled, time.Now().UTC(), playerID,
	)
	if err != nil {
		slog.Error("SQLiteStore TogglePlayer failed", "error", err, "playerID", playerID)
		return nil, fmt.Errorf("failed to toggle player %s: %w", playerID, err)
	}
	slog.Debug("SQLiteStore TogglePlayer succeeded", "playerID", playerID, "enabled", enabled)
	return &enabled, nil
}

func (s *SQLiteStore) ListPlayers(enabledOnly bool) ([]models.RegisteredPlayer, error) {
	query := `SELECT player_id, player_name, added_by, enabled, created_at, updated_at
	          FROM registered_players`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY player_id`

	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("SQLiteStore ListPlayers query failed", "error", err)
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []models.RegisteredPlayer
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			slog.Error("SQLiteStore ListPlayers scan failed", "error", err)
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListPlayers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate player rows: %w", err)
	}
	slog.Debug("SQLiteStore ListPlayers succeeded", "count", len(players))
	return players, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
