// Package redeem orchestrates bulk gift code redemption against the game API.
//
// The coordinator guarantees that each (player, code) pair triggers the
// non-idempotent external redemption call at most once across the process
// lifetime, using the append-only redemption ledger as the source of truth.
package redeem

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/castellan-bot/castellan/internal/models"
	"github.com/castellan-bot/castellan/internal/store"
)

// Result is the reply of one external redemption call. Message is
// human-readable free text; ErrorCode is the optional structured code the
// API attaches to failures.
type Result struct {
	Success   bool
	Message   string
	ErrorCode string
}

// Client issues one redemption call per (player, code) pair. Implementations
// return an error only for transport-level failures; API-level rejections are
// reported through Result.
type Client interface {
	RedeemGiftCode(ctx context.Context, playerID int64, code string) (Result, error)
}

// Coordinator runs batch redemptions against a roster.
type Coordinator struct {
	ledger store.Ledger
	client Client
	now    func() time.Time
}

// NewCoordinator creates a coordinator over the given ledger and API client.
func NewCoordinator(ledger store.Ledger, client Client) *Coordinator {
	return &Coordinator{ledger: ledger, client: client, now: time.Now}
}

// RedeemBatch applies one gift code to an ordered roster of player IDs.
//
// Players already confirmed redeemed (per one bulk ledger query) are reported
// as AlreadyRedeemed without an API call or a new ledger write. Every other
// player gets exactly one API call; the classified outcome is appended to the
// ledger before the next player is attempted, so AlreadyRedeemed discoveries
// permanently widen the dedup set for later batches.
//
// Per-player failures never abort the batch. A ledger failure does: the
// returned error is the only error path, and outcomes already written plus
// API calls already issued stand — the external side effect is irreversible.
func (c *Coordinator) RedeemBatch(ctx context.Context, code string, playerIDs []string) (*models.RedemptionBatchResult, error) {
	if code == "" {
		return nil, models.ErrEmptyCode
	}

	result := &models.RedemptionBatchResult{Code: code}
	if len(playerIDs) == 0 {
		return result, nil
	}

	redeemed, err := c.ledger.RedeemedSet(code)
	if err != nil {
		slog.Error("Coordinator.RedeemBatch: dedup lookup failed", "error", err, "code", code)
		return nil, fmt.Errorf("failed to load redeemed set for %q: %w", code, err)
	}
	slog.Info("Coordinator.RedeemBatch: starting batch", "code", code, "players", len(playerIDs), "alreadyRedeemed", len(redeemed))

	for _, playerID := range playerIDs {
		if _, ok := redeemed[playerID]; ok {
			slog.Debug("Coordinator.RedeemBatch: skipping player, already redeemed", "playerID", playerID, "code", code)
			result.Add(models.RedemptionOutcome{
				PlayerID:  playerID,
				Code:      code,
				Kind:      models.OutcomeAlreadyRedeemed,
				Message:   "Already redeemed",
				Timestamp: c.now().UTC(),
			})
			continue
		}

		outcome := c.attempt(ctx, playerID, code)
		if err := c.ledger.Append(outcome); err != nil {
			slog.Error("Coordinator.RedeemBatch: ledger append failed, aborting batch", "error", err, "playerID", playerID, "code", code)
			return nil, fmt.Errorf("failed to record outcome for player %s: %w", playerID, err)
		}
		result.Add(outcome)
	}

	slog.Info("Coordinator.RedeemBatch: batch complete", "code", code, "success", result.SuccessCount, "failed", result.FailureCount)
	return result, nil
}

// attempt issues and classifies one redemption call. The numeric-ID check
// runs locally so malformed roster entries never reach the API.
func (c *Coordinator) attempt(ctx context.Context, playerID, code string) models.RedemptionOutcome {
	outcome := models.RedemptionOutcome{
		PlayerID:  playerID,
		Code:      code,
		Timestamp: c.now().UTC(),
	}

	numericID, err := strconv.ParseInt(playerID, 10, 64)
	if err != nil {
		slog.Warn("Coordinator.attempt: invalid player ID format", "playerID", playerID)
		outcome.Kind = models.OutcomeInvalidPlayer
		outcome.Message = "Invalid player ID format"
		return outcome
	}

	res, err := c.client.RedeemGiftCode(ctx, numericID, code)
	if err != nil {
		slog.Error("Coordinator.attempt: redemption call failed", "error", err, "playerID", playerID, "code", code)
		outcome.Kind = models.OutcomeNetworkError
		outcome.Message = "Network error occurred while redeeming gift code"
		return outcome
	}

	outcome.Kind = ClassifyResult(res)
	outcome.Message = res.Message
	outcome.ErrorCode = res.ErrorCode
	slog.Debug("Coordinator.attempt: classified outcome", "playerID", playerID, "code", code, "kind", outcome.Kind)
	return outcome
}
