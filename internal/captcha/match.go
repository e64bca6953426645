package captcha

import "unicode"

// Matches reports whether input is accepted for the challenge: either an
// exact match or a close match (one forgiven case slip).
func Matches(input, challenge string) bool {
	return input == challenge || CloseMatch(input, challenge)
}

// CloseMatch reports whether a and b differ in exactly one position, and at
// that position the characters are equal under case-insensitive comparison.
// A single case-confusion typo is tolerated; any other kind of mismatch, a
// second differing position, or zero differences all return false. In
// particular a whole-string case inversion is rejected.
func CloseMatch(a, b string) bool {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) != len(rb) {
		return false
	}

	diffs := 0
	for i := range ra {
		if ra[i] == rb[i] {
			continue
		}
		if unicode.ToLower(ra[i]) != unicode.ToLower(rb[i]) {
			return false
		}
		diffs++
		if diffs > 1 {
			return false
		}
	}

	return diffs == 1
}
