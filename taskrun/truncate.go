package taskrun

import "fmt"

// truncateMiddle caps s at maxChars using head/tail truncation, keeping the
// start and end of the output and eliding the middle. Step outputs can be
// arbitrarily large; planning prompts must stay bounded.
func truncateMiddle(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	half := maxChars / 2
	removed := len(s) - maxChars
	return s[:half] +
		fmt.Sprintf("\n[... %d characters elided ...]\n", removed) +
		s[len(s)-(maxChars-half):]
}
