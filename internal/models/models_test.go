package models

import (
	"testing"
	"time"
)

func TestIsValidOutcomeKind(t *testing.T) {
	valid := []OutcomeKind{
		OutcomeSuccess, OutcomeAlreadyRedeemed, OutcomeInvalidPlayer,
		OutcomeNetworkError, OutcomeAPIError, OutcomeUnknownError,
	}
	for _, k := range valid {
		if !IsValidOutcomeKind(k) {
			t.Errorf("expected %q to be valid", k)
		}
	}
	for _, k := range []OutcomeKind{"", "bogus", "SUCCESS"} {
		if IsValidOutcomeKind(k) {
			t.Errorf("expected %q to be invalid", k)
		}
	}
}

func TestOutcomeKindRedeemed(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want bool
	}{
		{OutcomeSuccess, true},
		{OutcomeAlreadyRedeemed, true},
		{OutcomeInvalidPlayer, false},
		{OutcomeNetworkError, false},
		{OutcomeAPIError, false},
		{OutcomeUnknownError, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Redeemed(); got != tt.want {
			t.Errorf("%q.Redeemed() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestRedemptionBatchResultAdd(t *testing.T) {
	r := &RedemptionBatchResult{Code: "XMAS"}
	r.Add(RedemptionOutcome{PlayerID: "100", Kind: OutcomeSuccess})
	r.Add(RedemptionOutcome{PlayerID: "200", Kind: OutcomeAlreadyRedeemed})
	r.Add(RedemptionOutcome{PlayerID: "300", Kind: OutcomeAPIError})

	if r.SuccessCount != 2 {
		t.Errorf("expected 2 successes, got %d", r.SuccessCount)
	}
	if r.FailureCount != 1 {
		t.Errorf("expected 1 failure, got %d", r.FailureCount)
	}
	if len(r.PerPlayer) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(r.PerPlayer))
	}
	for i, want := range []string{"100", "200", "300"} {
		if r.PerPlayer[i].PlayerID != want {
			t.Errorf("position %d: got %s, want %s", i, r.PerPlayer[i].PlayerID, want)
		}
	}
}

func TestKVKMatchOpponent(t *testing.T) {
	m := KVKMatch{KingdomA: 77, KingdomB: 102}
	if got := m.Opponent(77); got != 102 {
		t.Errorf("Opponent(77) = %d, want 102", got)
	}
	if got := m.Opponent(102); got != 77 {
		t.Errorf("Opponent(102) = %d, want 77", got)
	}
}

func TestGiftCodeActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	if !(GiftCode{Code: "PERM"}).Active(now) {
		t.Error("code without expiry must be active")
	}
	if !(GiftCode{Code: "SOON", ExpiresAt: &future}).Active(now) {
		t.Error("code expiring later must be active")
	}
	if (GiftCode{Code: "GONE", ExpiresAt: &past}).Active(now) {
		t.Error("expired code must not be active")
	}
	if (GiftCode{Code: "EDGE", ExpiresAt: &now}).Active(now) {
		t.Error("code expiring exactly now must not be active")
	}
}
