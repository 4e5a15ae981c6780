package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/castellan-bot/castellan/internal/models"
)

// maxListedEntries caps how many per-player or per-code lines a reply shows.
const maxListedEntries = 15

// formatBatchResult renders a redemption batch as a plain text report.
func formatBatchResult(result *models.RedemptionBatchResult, names map[string]string) string {
	var b strings.Builder
	total := len(result.PerPlayer)
	fmt.Fprintf(&b, "Gift code %s: %d/%d redeemed, %d failed\n", result.Code, result.SuccessCount, total, result.FailureCount)

	listed := 0
	for _, o := range result.PerPlayer {
		if listed == maxListedEntries {
			fmt.Fprintf(&b, "... and %d more\n", total-listed)
			break
		}
		display := o.PlayerID
		if name := names[o.PlayerID]; name != "" {
			display += " (" + name + ")"
		}
		switch o.Kind {
		case models.OutcomeSuccess:
			fmt.Fprintf(&b, "✅ %s\n", display)
		case models.OutcomeAlreadyRedeemed:
			fmt.Fprintf(&b, "☑️ %s - already redeemed\n", display)
		default:
			fmt.Fprintf(&b, "❌ %s - %s\n", display, o.Message)
		}
		listed++
	}
	b.WriteString("Check in-game mail for successfully redeemed codes!")
	return b.String()
}

// formatGiftCodes renders the available code list, splitting active from
// expired.
func formatGiftCodes(codes []models.GiftCode, now time.Time) string {
	if len(codes) == 0 {
		return "No gift codes available at the moment."
	}

	var active, expired []models.GiftCode
	for _, c := range codes {
		if c.Active(now) {
			active = append(active, c)
		} else {
			expired = append(expired, c)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Gift codes: %d total, %d active, %d expired\n", len(codes), len(active), len(expired))
	for i, c := range active {
		if i == maxListedEntries {
			fmt.Fprintf(&b, "... and %d more\n", len(active)-i)
			break
		}
		if c.ExpiresAt != nil {
			fmt.Fprintf(&b, "✅ %s (expires %s UTC)\n", c.Code, c.ExpiresAt.UTC().Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(&b, "✅ %s (permanent)\n", c.Code)
		}
	}
	for i, c := range expired {
		if i == 5 {
			fmt.Fprintf(&b, "... and %d more expired\n", len(expired)-i)
			break
		}
		fmt.Fprintf(&b, "⛔ %s\n", c.Code)
	}
	b.WriteString("Use !redeem CODE to redeem for all registered players.")
	return b.String()
}

// formatPlayers renders the roster with enabled and disabled sections.
func formatPlayers(players []models.RegisteredPlayer) string {
	if len(players) == 0 {
		return "No players registered for gift code redemption."
	}

	var enabled, disabled []models.RegisteredPlayer
	for _, p := range players {
		if p.Enabled {
			enabled = append(enabled, p)
		} else {
			disabled = append(disabled, p)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Registered players: %d total, %d enabled, %d disabled\n", len(players), len(enabled), len(disabled))
	for i, p := range enabled {
		if i == maxListedEntries {
			fmt.Fprintf(&b, "... and %d more\n", len(enabled)-i)
			break
		}
		fmt.Fprintf(&b, "✅ %s\n", playerDisplay(p))
	}
	for i, p := range disabled {
		if i == maxListedEntries {
			fmt.Fprintf(&b, "... and %d more disabled\n", len(disabled)-i)
			break
		}
		fmt.Fprintf(&b, "⛔ %s\n", playerDisplay(p))
	}
	return strings.TrimRight(b.String(), "\n")
}

func playerDisplay(p models.RegisteredPlayer) string {
	if p.PlayerName != "" {
		return p.PlayerID + " - " + p.PlayerName
	}
	return p.PlayerID
}

// formatEvents renders a channel's pending notifications, numbered 1-based
// to match !cancel.
func formatEvents(events []models.ScheduledNotification) string {
	if len(events) == 0 {
		return "No scheduled events in this channel."
	}
	var b strings.Builder
	b.WriteString("Scheduled events:\n")
	for i, e := range events {
		fmt.Fprintf(&b, "%d. %s UTC - %s\n", i+1, e.FireAt.UTC().Format("2006-01-02 15:04"), e.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// maxListedMatches caps how many wins or losses a KvK reply shows.
const maxListedMatches = 12

// formatKVKMatches renders a kingdom's KvK history, wins before losses, with
// a win rate footer. Wins and losses are split by the castle phase outcome.
func formatKVKMatches(matches []models.KVKMatch, kingdom int) string {
	var wins, losses []models.KVKMatch
	for _, m := range matches {
		if m.CastleWinner == kingdom {
			wins = append(wins, m)
		} else {
			losses = append(losses, m)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "KvK Matches - Kingdom %d (%d total)\n", kingdom, len(matches))

	writeSection := func(label, marker string, section []models.KVKMatch) {
		if len(section) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s (%d):\n", label, len(section))
		for i, m := range section {
			if i == maxListedMatches {
				fmt.Fprintf(&b, "... and %d more\n", len(section)-i)
				break
			}
			fmt.Fprintf(&b, "%s %s vs Kingdom %d | %s | %s | %s | %s\n",
				marker, m.Title, m.Opponent(kingdom), m.SeasonDate,
				kvkRole(m, kingdom), kvkCastleResult(m, kingdom), kvkPrepResult(m, kingdom))
		}
	}
	writeSection("Victories", "✅", wins)
	writeSection("Defeats", "❌", losses)

	rate := float64(len(wins)) / float64(len(matches)) * 100
	fmt.Fprintf(&b, "Win Rate: %d/%d (%.1f%%)", len(wins), len(matches), rate)
	return b.String()
}

func kvkRole(m models.KVKMatch, kingdom int) string {
	if m.Attacker == kingdom {
		return "Attacker"
	}
	return "Defender"
}

func kvkCastleResult(m models.KVKMatch, kingdom int) string {
	detail := "Defended"
	if m.CastleCaptured {
		detail = "Captured"
	}
	if m.CastleWinner == kingdom {
		return "Castle Won (" + detail + ")"
	}
	if m.CastleCaptured {
		detail = "Castle Fell"
	}
	return "Castle Lost (" + detail + ")"
}

func kvkPrepResult(m models.KVKMatch, kingdom int) string {
	if m.PrepWinner == kingdom {
		return "Won Prep"
	}
	return "Lost Prep"
}

// formatPlayerInfo renders a player profile.
func formatPlayerInfo(info *models.PlayerInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nID: %s", info.Name, info.PlayerID)
	if info.CastleLevel != "" {
		fmt.Fprintf(&b, "\nCastle Level: %s", info.CastleLevel)
	}
	if info.Kingdom != "" {
		fmt.Fprintf(&b, "\nKingdom: %s", info.Kingdom)
	}
	return b.String()
}
