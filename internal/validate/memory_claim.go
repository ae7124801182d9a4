package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fmattioli/socrates/internal/memory"
)

// claimPattern finds assistant statements asserting shared history. The
// claimed subject runs from the end of the trigger to the end of the sentence
// or the next trigger, whichever comes first, so chained claims in one
// sentence stay independent. The phrase set is tunable policy rather than a
// fixed contract.
var claimPattern = regexp.MustCompile(
	`(?i)\b(as you said|as we discussed|you told me|we discussed|we talked about|you mentioned)[,:]?\s+(?:that\s+|about\s+)?`)

// MemoryClaimValidator checks history claims in generated text against the
// full conversation record. The orchestrator skips this check entirely on a
// conversation's first exchange, where the user's own message would otherwise
// be the only history to claim against.
type MemoryClaimValidator struct{}

func NewMemoryClaimValidator() *MemoryClaimValidator {
	return &MemoryClaimValidator{}
}

// Validate scans responseText for history claims and rewrites unsupported
// ones in place to an honest alternative. Claims are checked independently, a
// single pass over the original text; a claim that cannot be parsed is
// treated as unverifiable and left alone. Never fails.
func (v *MemoryClaimValidator) Validate(responseText string, store *memory.ConversationStore) (string, []Finding) {
	matches := claimPattern.FindAllStringSubmatchIndex(responseText, -1)
	if len(matches) == 0 {
		return responseText, nil
	}

	var (
		findings []Finding
		out      strings.Builder
		last     int
	)
	for i, m := range matches {
		start := m[0]
		subjectEnd := len(responseText)
		if idx := strings.IndexAny(responseText[m[1]:], ".!?\n"); idx >= 0 {
			subjectEnd = m[1] + idx
		}
		if i+1 < len(matches) && matches[i+1][0] < subjectEnd {
			subjectEnd = matches[i+1][0]
		}
		subject, end := trimClaimSubject(responseText, m[1], subjectEnd)
		if subject == "" {
			continue
		}
		keywords := memory.ExtractKeywords(subject)
		if len(keywords) == 0 {
			// Unverifiable: nothing to match against, skip rather than abort.
			continue
		}

		if claimSupported(store, keywords) {
			findings = append(findings, Finding{
				Kind:         KindMemoryClaim,
				Valid:        true,
				OriginalSpan: responseText[start:end],
				Confidence:   0.8,
			})
			continue
		}

		replacement := fmt.Sprintf(
			"I don't have a record of us discussing %s yet. Want to go over it now?", subject)
		findings = append(findings, Finding{
			Kind:          KindMemoryClaim,
			Valid:         false,
			OriginalSpan:  responseText[start:end],
			CorrectedSpan: replacement,
			Confidence:    0.8,
		})
		out.WriteString(responseText[last:start])
		out.WriteString(replacement)
		last = end
	}
	out.WriteString(responseText[last:])
	return out.String(), findings
}

// trimClaimSubject cleans one claim's subject, dropping the trailing
// connector that joins it to a following claim, and returns the subject plus
// the text offset its span ends at.
func trimClaimSubject(text string, from, to int) (string, int) {
	raw := strings.TrimRight(text[from:to], " \t")
	lower := strings.ToLower(raw)
	for _, connector := range []string{" and", " but", ","} {
		if strings.HasSuffix(lower, connector) {
			raw = strings.TrimRight(raw[:len(raw)-len(connector)], " \t,")
			break
		}
	}
	return strings.TrimSpace(raw), from + len(raw)
}

// claimSupported reports whether any claimed keyword appears anywhere in the
// full stored history, not just the recency window.
func claimSupported(store *memory.ConversationStore, keywords []string) bool {
	for _, t := range store.Turns() {
		text := strings.ToLower(t.Text)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}
