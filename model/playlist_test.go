package model

import "testing"

func TestFormatTotalDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "empty playlist", seconds: 0, want: "0m"},
		{name: "under a minute", seconds: 45, want: "0m"},
		{name: "single track", seconds: 240, want: "4m"},
		{name: "just under an hour", seconds: 3599, want: "59m"},
		{name: "exactly one hour", seconds: 3600, want: "1h 0m"},
		{name: "one hour one minute", seconds: 3660, want: "1h 1m"},
		{name: "multiple hours", seconds: 7325, want: "2h 2m"},
		{name: "negative clamps to zero", seconds: -10, want: "0m"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatTotalDuration(tc.seconds); got != tc.want {
				t.Fatalf("FormatTotalDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
			}
		})
	}
}
