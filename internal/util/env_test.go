package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"ON", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{" true ", false, true},
		{"garbage", true, true},
		{"garbage", false, false},
		{"", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Setenv("CASTELLAN_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("CASTELLAN_TEST_BOOL", tt.defaultValue); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"30s", time.Minute, 30 * time.Second},
		{"2m", time.Minute, 2 * time.Minute},
		{" 1h ", time.Minute, time.Hour},
		{"garbage", time.Minute, time.Minute},
		{"", 5 * time.Minute, 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("CASTELLAN_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("CASTELLAN_TEST_DURATION", tt.defaultValue); got != tt.want {
			t.Errorf("ParseDurationEnv(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}
