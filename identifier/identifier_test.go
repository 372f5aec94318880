package identifier

import "testing"

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"":            false,
		"home":        true,
		"pre-heat":    true,
		"job_1.final": true,
		"bad label":   false,
		"bad!":        false,
		"G1":          false, // looks like gcode
		"M115":        false,
		"g28":         false,
		"Axis":        true, // letter+letter, not gcode-shaped
	}
	for in, want := range cases {
		if got := Valid(in); got != want {
			t.Errorf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLooksLikeGcode(t *testing.T) {
	cases := map[string]bool{
		"G1":   true,
		"M115": true,
		"g0":   true,
		"":     false,
		"G":    false,
		"AB":   false,
		"home": false,
	}
	for in, want := range cases {
		if got := LooksLikeGcode(in); got != want {
			t.Errorf("LooksLikeGcode(%q) = %v, want %v", in, got, want)
		}
	}
}
