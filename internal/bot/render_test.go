package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/castellan-bot/castellan/internal/models"
)

func TestFormatBatchResultTruncates(t *testing.T) {
	result := &models.RedemptionBatchResult{Code: "XMAS"}
	for i := 0; i < maxListedEntries+5; i++ {
		result.Add(models.RedemptionOutcome{
			PlayerID: fmt.Sprintf("%d", 100+i),
			Code:     "XMAS",
			Kind:     models.OutcomeSuccess,
		})
	}

	out := formatBatchResult(result, nil)
	if !strings.Contains(out, "... and 5 more") {
		t.Errorf("expected truncation marker:\n%s", out)
	}
	if !strings.Contains(out, "20/20 redeemed") {
		t.Errorf("expected full counts in the header:\n%s", out)
	}
}

func TestFormatBatchResultShowsNamesAndKinds(t *testing.T) {
	result := &models.RedemptionBatchResult{Code: "XMAS"}
	result.Add(models.RedemptionOutcome{PlayerID: "100", Kind: models.OutcomeSuccess})
	result.Add(models.RedemptionOutcome{PlayerID: "200", Kind: models.OutcomeAlreadyRedeemed, Message: "Already redeemed"})
	result.Add(models.RedemptionOutcome{PlayerID: "300", Kind: models.OutcomeAPIError, Message: "Gift code expired"})

	out := formatBatchResult(result, map[string]string{"100": "Alice"})
	if !strings.Contains(out, "100 (Alice)") {
		t.Errorf("expected display name:\n%s", out)
	}
	if !strings.Contains(out, "200 - already redeemed") {
		t.Errorf("expected already redeemed line:\n%s", out)
	}
	if !strings.Contains(out, "300 - Gift code expired") {
		t.Errorf("expected failure message:\n%s", out)
	}
}

func TestFormatEventsNumbering(t *testing.T) {
	at := time.Date(2025, 6, 1, 18, 50, 0, 0, time.UTC)
	events := []models.ScheduledNotification{
		{FireAt: at, Message: "war starts"},
		{FireAt: at.Add(time.Hour), Message: "rally"},
	}

	out := formatEvents(events)
	if !strings.Contains(out, "1. 2025-06-01 18:50 UTC - war starts") {
		t.Errorf("unexpected first line:\n%s", out)
	}
	if !strings.Contains(out, "2. 2025-06-01 19:50 UTC - rally") {
		t.Errorf("unexpected second line:\n%s", out)
	}
}

func TestFormatKVKMatchesSectionsAndRate(t *testing.T) {
	matches := []models.KVKMatch{
		{KingdomA: 77, KingdomB: 102, Attacker: 77, CastleWinner: 77, PrepWinner: 102, CastleCaptured: true, Title: "KvK Season 5", SeasonDate: "2025-05-01"},
		{KingdomA: 88, KingdomB: 77, Attacker: 88, CastleWinner: 77, PrepWinner: 77, Title: "KvK Season 4", SeasonDate: "2025-03-01"},
		{KingdomA: 77, KingdomB: 95, Attacker: 95, CastleWinner: 95, PrepWinner: 95, CastleCaptured: true, Title: "KvK Season 3", SeasonDate: "2025-01-01"},
	}

	out := formatKVKMatches(matches, 77)
	if !strings.Contains(out, "Victories (2)") || !strings.Contains(out, "Defeats (1)") {
		t.Errorf("unexpected sections:\n%s", out)
	}
	if !strings.Contains(out, "Attacker | Castle Won (Captured)") {
		t.Errorf("expected captured win line:\n%s", out)
	}
	if !strings.Contains(out, "Defender | Castle Won (Defended)") {
		t.Errorf("expected defended win line:\n%s", out)
	}
	if !strings.Contains(out, "Defender | Castle Lost (Castle Fell)") {
		t.Errorf("expected fallen castle loss line:\n%s", out)
	}
	if !strings.Contains(out, "Win Rate: 2/3 (66.7%)") {
		t.Errorf("expected win rate footer:\n%s", out)
	}
}

func TestFormatKVKMatchesTruncates(t *testing.T) {
	var matches []models.KVKMatch
	for i := 0; i < maxListedMatches+4; i++ {
		matches = append(matches, models.KVKMatch{
			KingdomA: 77, KingdomB: 100 + i, CastleWinner: 77,
			Title: fmt.Sprintf("KvK Season %d", i+1), SeasonDate: "2025-01-01",
		})
	}

	out := formatKVKMatches(matches, 77)
	if !strings.Contains(out, "... and 4 more") {
		t.Errorf("expected truncation marker:\n%s", out)
	}
	if !strings.Contains(out, fmt.Sprintf("Victories (%d)", maxListedMatches+4)) {
		t.Errorf("expected full count in the header:\n%s", out)
	}
}

func TestFormatPlayersSections(t *testing.T) {
	players := []models.RegisteredPlayer{
		{PlayerID: "100", PlayerName: "Alice", Enabled: true},
		{PlayerID: "200", Enabled: false},
	}

	out := formatPlayers(players)
	if !strings.Contains(out, "2 total, 1 enabled, 1 disabled") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "100 - Alice") {
		t.Errorf("expected name rendering:\n%s", out)
	}
}
