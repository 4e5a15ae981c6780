package redeem

import (
	"testing"

	"github.com/castellan-bot/castellan/internal/models"
)

func TestIsAlreadyRedeemedMessage(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"Gift code already redeemed", true},
		{"ALREADY REDEEMED", true},
		{"This code was Already Used by the player", true},
		{"reward already claimed", true},
		{"code expired", false},
		{"invalid gift code", false},
		{"", false},
		{"redeemed already", false},
	}

	for _, tt := range tests {
		if got := IsAlreadyRedeemedMessage(tt.message); got != tt.want {
			t.Errorf("IsAlreadyRedeemedMessage(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestClassifyResult(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want models.OutcomeKind
	}{
		{
			name: "success",
			res:  Result{Success: true, Message: "Gift code redeemed"},
			want: models.OutcomeSuccess,
		},
		{
			name: "success wins over message text",
			res:  Result{Success: true, Message: "already redeemed"},
			want: models.OutcomeSuccess,
		},
		{
			name: "already redeemed phrase",
			res:  Result{Message: "Gift code already redeemed by this player"},
			want: models.OutcomeAlreadyRedeemed,
		},
		{
			name: "already redeemed wins over error code",
			res:  Result{Message: "already claimed", ErrorCode: "40014"},
			want: models.OutcomeAlreadyRedeemed,
		},
		{
			name: "structured api error",
			res:  Result{Message: "Gift code expired", ErrorCode: "40007"},
			want: models.OutcomeAPIError,
		},
		{
			name: "bare failure",
			res:  Result{Message: "something went wrong"},
			want: models.OutcomeUnknownError,
		},
		{
			name: "empty failure",
			res:  Result{},
			want: models.OutcomeUnknownError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyResult(tt.res); got != tt.want {
				t.Errorf("ClassifyResult(%+v) = %v, want %v", tt.res, got, tt.want)
			}
		})
	}
}
