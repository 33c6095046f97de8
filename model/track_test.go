package model

import "testing"

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "typical track", input: "3:45", want: 225},
		{name: "whole minutes", input: "4:00", want: 240},
		{name: "zero", input: "0:00", want: 0},
		{name: "long podcast", input: "125:07", want: 7507},
		{name: "missing colon", input: "345", wantErr: true},
		{name: "one-digit seconds", input: "3:5", wantErr: true},
		{name: "three-digit seconds", input: "3:450", wantErr: true},
		{name: "seconds overflow", input: "3:75", wantErr: true},
		{name: "negative minutes", input: "-1:00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "trailing junk", input: "3:45x", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDuration(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseDuration(%q) expected error, got %d", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("ParseDuration(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory(CategorySong) || !ValidCategory(CategoryPodcast) {
		t.Fatal("known categories should validate")
	}
	if ValidCategory("video") || ValidCategory("") {
		t.Fatal("unknown categories should not validate")
	}
}
