package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// epsilon bounds the tolerated difference between a stated value and the
// evaluated expression.
const epsilon = 1e-9

// narrativePattern catches prose-form statements such as
// "the expression '2 + 2' simplified gives '5'".
var narrativePattern = regexp.MustCompile(
	`(?is)expression\s+['"]([^'"]+)['"][^'"=]*?(?:gives|equals|results in|evaluates to|is)\s+['"]([^'"]+)['"]`)

// statedValuePattern locates "= <number>" anchors for inline candidates.
var statedValuePattern = regexp.MustCompile(`=\s*(-?\d+(?:\.\d+)?)`)

// MathValidator re-evaluates arithmetic statements in generated text and
// appends a correction block for every mismatch. It is self-contained: no
// conversation state is consulted.
type MathValidator struct{}

func NewMathValidator() *MathValidator {
	return &MathValidator{}
}

type mathCandidate struct {
	expr   string
	stated string
	span   string
}

// Validate extracts `<expr> = <value>` candidates (inline and narrative),
// evaluates each left-hand side with standard precedence and compares within
// epsilon. Unparsable candidates are skipped; the validator never fails. A
// candidate is checkable only when its left-hand side consists solely of
// numeric tokens and arithmetic operators, so prose assignments like
// "a = -1" produce no findings.
func (v *MathValidator) Validate(responseText string) (string, []Finding) {
	var findings []Finding
	var corrections []string

	for _, cand := range extractCandidates(responseText) {
		got, err := evalExpression(cand.expr)
		if err != nil {
			// Unverifiable candidate, skip and continue the batch.
			continue
		}
		stated, err := strconv.ParseFloat(strings.TrimSpace(cand.stated), 64)
		if err != nil {
			continue
		}

		if math.Abs(got-stated) <= epsilon {
			findings = append(findings, Finding{
				Kind:         KindMathExpression,
				Valid:        true,
				OriginalSpan: cand.span,
				Confidence:   1,
			})
			continue
		}

		corrected := fmt.Sprintf("%s = %s", strings.TrimSpace(cand.expr), formatNumber(got))
		findings = append(findings, Finding{
			Kind:          KindMathExpression,
			Valid:         false,
			OriginalSpan:  cand.span,
			CorrectedSpan: corrected,
			Confidence:    1,
		})
		corrections = append(corrections, fmt.Sprintf(
			"Correction: %s, not %s.", corrected, strings.TrimSpace(cand.stated)))
	}

	if len(corrections) == 0 {
		return responseText, findings
	}
	return responseText + "\n\n" + strings.Join(corrections, "\n"), findings
}

func extractCandidates(text string) []mathCandidate {
	var out []mathCandidate

	consumed := make([][2]int, 0, 4)
	for _, m := range narrativePattern.FindAllStringSubmatchIndex(text, -1) {
		expr := text[m[2]:m[3]]
		stated := text[m[4]:m[5]]
		if !checkableExpression(expr) || !isNumeric(stated) {
			continue
		}
		out = append(out, mathCandidate{expr: expr, stated: stated, span: text[m[0]:m[1]]})
		consumed = append(consumed, [2]int{m[0], m[1]})
	}

	for _, m := range statedValuePattern.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(consumed, m[0], m[1]) {
			continue
		}
		expr, start := scanExpressionLeft(text, m[0])
		if !checkableExpression(expr) {
			continue
		}
		out = append(out, mathCandidate{
			expr:   expr,
			stated: text[m[2]:m[3]],
			span:   strings.TrimSpace(text[start:m[1]]),
		})
	}
	return out
}

// scanExpressionLeft walks backwards from the '=' collecting the maximal run
// of characters an arithmetic expression may contain. When the scan stopped at
// a letter, the '=' belongs to a symbolic statement ("x - 3 = -1") whose true
// left-hand side extends into the prose; the truncated remainder is only kept
// if it stands alone as an expression, starting with a digit or '(' rather
// than a binary operator.
func scanExpressionLeft(text string, eq int) (string, int) {
	start := eq
	for start > 0 {
		c := text[start-1]
		if c >= '0' && c <= '9' {
			start--
			continue
		}
		switch c {
		case '+', '-', '*', '/', '(', ')', '.', ' ', '\t':
			start--
			continue
		}
		break
	}
	expr := strings.TrimSpace(text[start:eq])
	if expr != "" && start > 0 && isAlpha(text[start-1]) {
		lead := expr[0]
		if lead != '(' && (lead < '0' || lead > '9') {
			return "", start
		}
	}
	return expr, start
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// checkableExpression requires at least one digit and one operator so that
// bare numbers and prose fragments are not treated as arithmetic claims.
func checkableExpression(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	hasDigit, hasOp := false, false
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '+' || r == '-' || r == '*' || r == '/':
			hasOp = true
		case r == '(' || r == ')' || r == '.' || r == ' ' || r == '\t':
		default:
			return false
		}
	}
	return hasDigit && hasOp
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
