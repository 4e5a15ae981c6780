package kingshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/castellan-bot/castellan/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestRedeemGiftCodeSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/gift-codes/redeem" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			PlayerID int64  `json:"playerId"`
			GiftCode string `json:"giftCode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if req.PlayerID != 12345 || req.GiftCode != "XMAS" {
			t.Errorf("unexpected payload: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","message":"Gift code redeemed successfully"}`))
	})

	res, err := client.RedeemGiftCode(context.Background(), 12345, "XMAS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.Message != "Gift code redeemed successfully" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if res.ErrorCode != "" {
		t.Errorf("unexpected error code: %q", res.ErrorCode)
	}
}

func TestRedeemGiftCodeRejectedWithMetaCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"error","message":"Gift code expired","meta":{"code":"40007"}}`))
	})

	res, err := client.RedeemGiftCode(context.Background(), 12345, "OLDCODE")
	if err != nil {
		t.Fatalf("API rejection must not be a transport error: %v", err)
	}
	if res.Success {
		t.Error("expected failure")
	}
	if res.Message != "Gift code expired" || res.ErrorCode != "40007" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRedeemGiftCodeNestedDetailsCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"error","message":"Gift code already redeemed","meta":{"details":{"code":"40014"}}}`))
	})

	res, err := client.RedeemGiftCode(context.Background(), 12345, "XMAS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ErrorCode != "40014" {
		t.Errorf("expected nested details code, got %q", res.ErrorCode)
	}
}

func TestRedeemGiftCodeEmptyMessageFallbacks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error"}`))
	})

	res, err := client.RedeemGiftCode(context.Background(), 12345, "XMAS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Unknown error occurred" {
		t.Errorf("expected fallback message, got %q", res.Message)
	}
}

func TestRedeemGiftCodeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force connection refused

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.RedeemGiftCode(context.Background(), 12345, "XMAS"); err == nil {
		t.Error("expected transport error")
	}
}

func TestGetPlayerInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/player-info" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("playerId"); got != "12345" {
			t.Errorf("unexpected playerId: %q", got)
		}
		w.Write([]byte(`{"status":"success","data":{"playerId":"12345","name":"LordFarquaad","kingdom":"77","levelRendered":"TC 25"}}`))
	})

	info, err := client.GetPlayerInfo(context.Background(), "12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil {
		t.Fatal("expected player info, got nil")
	}
	if info.Name != "LordFarquaad" || info.Kingdom != "77" || info.CastleLevel != "TC 25" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestGetPlayerInfoNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	info, err := client.GetPlayerInfo(context.Background(), "999")
	if err != nil {
		t.Fatalf("404 must not be an error: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil info for unknown player, got %+v", info)
	}
}

func TestGetPlayerInfoServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.GetPlayerInfo(context.Background(), "12345"); err == nil {
		t.Error("expected error on 500")
	}
}

func TestGetKVKMatches(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/kvk/matches" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("kingdom_a"); got != "77" {
			t.Errorf("unexpected kingdom_a: %q", got)
		}
		w.Write([]byte(`{"status":"success","data":[
			{"kingdom_a":77,"kingdom_b":102,"attacker":77,"defender":102,"castle_winner":77,"prep_winner":102,"castle_captured":true,"kvk_title":"KvK Season 5","season_date":"2025-05-01"},
			{"kingdom_a":88,"kingdom_b":77,"attacker":88,"defender":77,"castle_winner":88,"prep_winner":77,"kvk_title":"KvK Season 4","season_date":"2025-03-01"}
		]}`))
	})

	matches, err := client.GetKVKMatches(context.Background(), 77)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	first := matches[0]
	if first.Title != "KvK Season 5" || first.CastleWinner != 77 || !first.CastleCaptured {
		t.Errorf("unexpected first match: %+v", first)
	}
	if got := first.Opponent(77); got != 102 {
		t.Errorf("expected opponent 102, got %d", got)
	}
	if got := matches[1].Opponent(77); got != 88 {
		t.Errorf("expected opponent 88, got %d", got)
	}
}

func TestGetKVKMatchesRejectsNonPositiveKingdom(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	for _, kingdom := range []int{0, -1} {
		if _, err := client.GetKVKMatches(context.Background(), kingdom); !errors.Is(err, models.ErrInvalidKingdom) {
			t.Errorf("kingdom %d: expected ErrInvalidKingdom, got %v", kingdom, err)
		}
	}
	if called {
		t.Error("invalid kingdom numbers must not reach the API")
	}
}

func TestGetKVKMatchesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"error","message":"kingdom not found"}`))
	})

	_, err := client.GetKVKMatches(context.Background(), 77)
	if err == nil || !strings.Contains(err.Error(), "kingdom not found") {
		t.Errorf("expected rejection with API message, got %v", err)
	}
}

func TestGetGiftCodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gift-codes" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","data":{"giftCodes":[
			{"code":"XMAS","expiresAt":"2025-12-31T23:59:59Z"},
			{"code":"WELCOME"}
		]}}`))
	})

	codes, err := client.GetGiftCodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(codes))
	}
	if codes[0].Code != "XMAS" || codes[0].ExpiresAt == nil {
		t.Errorf("unexpected first code: %+v", codes[0])
	}
	if codes[1].Code != "WELCOME" || codes[1].ExpiresAt != nil {
		t.Errorf("unexpected second code: %+v", codes[1])
	}
}
