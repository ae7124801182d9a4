// Package validate inspects generated replies for two defect classes:
// unsupported claims of shared history and self-inconsistent arithmetic.
// Validators are rule-based, never return errors, and only read state, so the
// orchestrator may run them concurrently.
package validate

// Kind identifies the defect class a finding belongs to.
type Kind string

const (
	KindMemoryClaim    Kind = "memory_claim"
	KindMathExpression Kind = "math_expression"
)

// Finding records one validation outcome. Findings are created fresh per
// post-process call and are not persisted.
type Finding struct {
	Kind          Kind    `json:"kind"`
	Valid         bool    `json:"valid"`
	OriginalSpan  string  `json:"original_span"`
	CorrectedSpan string  `json:"corrected_span,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Corrections counts the findings that required a correction.
func Corrections(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if !f.Valid {
			n++
		}
	}
	return n
}
