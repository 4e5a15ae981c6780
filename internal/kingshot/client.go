// Package kingshot implements the HTTP client for the kingshot.net game API.
package kingshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/castellan-bot/castellan/internal/models"
	"github.com/castellan-bot/castellan/internal/redeem"
)

// DefaultBaseURL is the production game API endpoint.
const DefaultBaseURL = "https://kingshot.net/api"

// DefaultTimeout bounds every API call.
const DefaultTimeout = 10 * time.Second

// Compile-time check that Client implements the coordinator's client contract.
var _ redeem.Client = (*Client)(nil)

// Client is a thin wrapper over the game's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Opts holds configuration for client construction.
type Opts struct {
	BaseURL string
	HTTP    *http.Client
}

// Option configures client construction.
type Option func(*Opts)

// WithBaseURL overrides the API base URL (primarily for tests).
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTP = c }
}

// NewClient creates a game API client.
func NewClient(opts ...Option) *Client {
	cfg := Opts{BaseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("kingshot.NewClient: client initialized", "baseURL", cfg.BaseURL)
	return &Client{baseURL: cfg.BaseURL, http: cfg.HTTP}
}

// redeemRequest is the wire payload for a redemption call.
type redeemRequest struct {
	PlayerID int64  `json:"playerId"`
	GiftCode string `json:"giftCode"`
}

// apiEnvelope is the common response shape of the game API.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Code    string `json:"code"`
		Details struct {
			Code string `json:"code"`
		} `json:"details"`
	} `json:"meta"`
}

// RedeemGiftCode attempts to redeem one code for one player. Transport
// failures return an error; API-level rejections are reported through the
// Result with the API's message and optional structured error code.
func (c *Client) RedeemGiftCode(ctx context.Context, playerID int64, code string) (redeem.Result, error) {
	body, err := json.Marshal(redeemRequest{PlayerID: playerID, GiftCode: code})
	if err != nil {
		return redeem.Result{}, fmt.Errorf("failed to encode redeem request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gift-codes/redeem", bytes.NewReader(body))
	if err != nil {
		return redeem.Result{}, fmt.Errorf("failed to build redeem request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return redeem.Result{}, fmt.Errorf("redeem request failed: %w", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return redeem.Result{}, fmt.Errorf("failed to decode redeem response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && env.Status == "success" {
		message := env.Message
		if message == "" {
			message = "Gift code redeemed successfully"
		}
		slog.Debug("kingshot.RedeemGiftCode: success", "playerID", playerID, "code", code)
		return redeem.Result{Success: true, Message: message}, nil
	}

	message := env.Message
	if message == "" {
		message = "Unknown error occurred"
	}
	var errorCode string
	if env.Meta != nil {
		errorCode = env.Meta.Code
		if errorCode == "" {
			errorCode = env.Meta.Details.Code
		}
	}
	slog.Warn("kingshot.RedeemGiftCode: redemption rejected", "playerID", playerID, "code", code, "message", message, "errorCode", errorCode)
	return redeem.Result{Success: false, Message: message, ErrorCode: errorCode}, nil
}

// GetPlayerInfo fetches a player's public profile. A 404 returns (nil, nil).
func (c *Client) GetPlayerInfo(ctx context.Context, playerID string) (*models.PlayerInfo, error) {
	u := fmt.Sprintf("%s/player-info?%s", c.baseURL, url.Values{"playerId": {playerID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build player info request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("player info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player info request returned status %d", resp.StatusCode)
	}

	var env struct {
		Data models.PlayerInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode player info response: %w", err)
	}
	return &env.Data, nil
}

// GetKVKMatches lists a kingdom's Kingdom-vs-Kingdom season results. The
// kingdom number must be positive; the API matches it against either side.
func (c *Client) GetKVKMatches(ctx context.Context, kingdomNumber int) ([]models.KVKMatch, error) {
	if kingdomNumber <= 0 {
		return nil, models.ErrInvalidKingdom
	}

	u := fmt.Sprintf("%s/kvk/matches?%s", c.baseURL, url.Values{"kingdom_a": {strconv.Itoa(kingdomNumber)}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build kvk matches request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kvk matches request failed: %w", err)
	}
	defer resp.Body.Close()

	var env struct {
		Status  string            `json:"status"`
		Message string            `json:"message"`
		Data    []models.KVKMatch `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode kvk matches response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || env.Status != "success" {
		message := env.Message
		if message == "" {
			message = "Failed to fetch KvK matches"
		}
		return nil, fmt.Errorf("kvk matches request rejected: %s", message)
	}
	slog.Debug("kingshot.GetKVKMatches: fetched matches", "kingdom", kingdomNumber, "count", len(env.Data))
	return env.Data, nil
}

// GetGiftCodes lists the promotional codes currently known to the API.
func (c *Client) GetGiftCodes(ctx context.Context) ([]models.GiftCode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gift-codes", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gift codes request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gift codes request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gift codes request returned status %d", resp.StatusCode)
	}

	var env struct {
		Data struct {
			GiftCodes []models.GiftCode `json:"giftCodes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode gift codes response: %w", err)
	}
	slog.Debug("kingshot.GetGiftCodes: fetched codes", "count", len(env.Data.GiftCodes))
	return env.Data.GiftCodes, nil
}
