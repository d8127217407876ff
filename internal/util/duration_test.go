package util

import (
	"math"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "00:00"},
		{"90 seconds", 90, "01:30"},
		{"fraction floored", 59.9, "00:59"},
		{"over an hour", 3700, "1:01:40"},
		{"many hours", 36000, "10:00:00"},
		{"NaN", math.NaN(), "N/A"},
		{"infinite", math.Inf(1), "N/A"},
		{"negative", -1, "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := FormatElapsed(2*time.Minute + 5*time.Second + 300*time.Millisecond); got != "02:05" {
		t.Errorf("FormatElapsed() = %q, want %q", got, "02:05")
	}
}
