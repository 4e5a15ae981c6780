package store

import (
	"database/sql"
	"fmt"

	"github.com/castellan-bot/castellan/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanOutcomeRow scans a RedemptionOutcome from a single sql.Row.
func scanOutcomeRow(row *sql.Row) (*models.RedemptionOutcome, error) {
	var o models.RedemptionOutcome
	var message, errorCode sql.NullString
	err := row.Scan(&o.PlayerID, &o.Code, &o.Kind, &message, &errorCode, &o.Timestamp)
	if err != nil {
		return nil, err
	}
	o.Message = message.String
	o.ErrorCode = errorCode.String
	return &o, nil
}

// scanPlayer scans a RegisteredPlayer from sql.Rows.
func scanPlayer(rows *sql.Rows) (models.RegisteredPlayer, error) {
	var p models.RegisteredPlayer
	var name sql.NullString
	err := rows.Scan(&p.PlayerID, &name, &p.AddedBy, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, fmt.Errorf("scan player failed: %w", err)
	}
	p.PlayerName = name.String
	return p, nil
}

// scanPlayerRow scans a RegisteredPlayer from a single sql.Row.
func scanPlayerRow(row *sql.Row) (*models.RegisteredPlayer, error) {
	var p models.RegisteredPlayer
	var name sql.NullString
	err := row.Scan(&p.PlayerID, &name, &p.AddedBy, &p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PlayerName = name.String
	return &p, nil
}
