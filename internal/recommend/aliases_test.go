package recommend_test

import (
	"testing"

	"github.com/nycscout/scout/internal/recommend"
)

func TestNormalizeCuisine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"sushi", "japanese"},
		{"Sushi", "japanese"},
		{"tacos", "mexican"},
		{"ethiopian", "ethiopian"},
		{"Thai", "thai"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := recommend.NormalizeCuisine(tt.in); got != tt.want {
				t.Errorf("NormalizeCuisine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"standup", "comedy"},
		{"concert", "music"},
		{"DJ", "nightlife"},
		{"gallery", "art"},
		{"play", "theater"},
		{"trivia", "trivia"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := recommend.NormalizeCategory(tt.in); got != tt.want {
				t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePriceTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"cheap", "$"},
		{"budget", "$"},
		{"moderate", "$$"},
		{"upscale", "$$$"},
		{"splurge", "$$$$"},
		{"$$", "$$"},
		{"whatever", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run("in_"+tt.in, func(t *testing.T) {
			t.Parallel()

			if got := recommend.NormalizePriceTier(tt.in); got != tt.want {
				t.Errorf("NormalizePriceTier(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsBroadLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Citywide", true},
		{"anywhere", true},
		{"New York City", true},
		{"NYC", true},
		{"Brooklyn", false},
		{"Astoria", false},
	}

	for _, tt := range tests {
		t.Run("in_"+tt.in, func(t *testing.T) {
			t.Parallel()

			if got := recommend.IsBroadLocation(tt.in); got != tt.want {
				t.Errorf("IsBroadLocation(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
