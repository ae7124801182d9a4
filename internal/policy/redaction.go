package policy

import "regexp"

// Students occasionally paste contact details into a tutoring chat; those are
// masked before the turn enters the conversation record.
var piiPatterns = []struct {
	re     *regexp.Regexp
	marker string
}{
	// Card redaction runs before phone so card numbers are not classified as
	// phone numbers.
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// RedactPII masks common high-risk PII patterns and reports whether anything
// was replaced.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, p := range piiPatterns {
		next := p.re.ReplaceAllString(out, p.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}
