package redeem

import (
	"strings"

	"github.com/castellan-bot/castellan/internal/models"
)

// alreadyRedeemedPhrases is the fixed phrase set matched against API failure
// messages. The gift code API reports "already redeemed" only as free text,
// so matching is heuristic by necessity. Extend the list here; call sites
// never inspect message text themselves.
var alreadyRedeemedPhrases = []string{
	"already redeemed",
	"already used",
	"already claimed",
}

// IsAlreadyRedeemedMessage reports whether an API failure message indicates
// the code was previously applied to the player. Matching is case-insensitive
// substring containment.
func IsAlreadyRedeemedMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range alreadyRedeemedPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ClassifyResult maps an explicit (non-transport-error) API reply to an
// outcome kind. The reply message is untrusted free text, not a stable enum.
func ClassifyResult(res Result) models.OutcomeKind {
	switch {
	case res.Success:
		return models.OutcomeSuccess
	case IsAlreadyRedeemedMessage(res.Message):
		return models.OutcomeAlreadyRedeemed
	case res.ErrorCode != "":
		return models.OutcomeAPIError
	default:
		return models.OutcomeUnknownError
	}
}
