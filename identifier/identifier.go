// Package identifier implements the single identifier rule shared by
// macro names, task names, and logger pattern value labels: non-empty,
// alphanumeric plus -_. , and not itself parseable as a bare G-code
// token.
package identifier

// Valid reports whether s is a legal macro/task/label name.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return !LooksLikeGcode(s)
}

// LooksLikeGcode reports whether s opens with a letter immediately
// followed by a digit, e.g. "G1", "M115" — the heuristic the DSL uses
// to accept bare gcode input without a leading keyword.
func LooksLikeGcode(s string) bool {
	if len(s) < 2 {
		return false
	}
	c0 := s[0]
	isLetter := (c0 >= 'a' && c0 <= 'z') || (c0 >= 'A' && c0 <= 'Z')
	if !isLetter {
		return false
	}
	c1 := s[1]
	return c1 >= '0' && c1 <= '9'
}
