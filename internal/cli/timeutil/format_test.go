package timeutil

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"seconds only", 15 * time.Second, "15s"},
		{"minutes and seconds", 2*time.Minute + 5*time.Second, "2m 5s"},
		{"hours", 3*time.Hour + 30*time.Minute, "3h 30m 0s"},
		{"days", 72*time.Hour + 30*time.Minute + 15*time.Second, "3d 0h 30m 15s"},
		{"zero", 0, "0s"},
		{"negative clamps to zero", -5 * time.Second, "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatLocalZero(t *testing.T) {
	if got := FormatLocal(time.Time{}); got != "-" {
		t.Errorf("FormatLocal(zero) = %q, want -", got)
	}
}

func TestFormatAgeZero(t *testing.T) {
	if got := FormatAge(time.Time{}); got != "-" {
		t.Errorf("FormatAge(zero) = %q, want -", got)
	}
}
