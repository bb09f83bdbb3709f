package extractor

import (
	"regexp"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

// ─────────────────────────────────────────────────────────────────────────────
// Period patterns
// ─────────────────────────────────────────────────────────────────────────────

// Durations normalize to days using the conventions insurance clauses
// assume: a year is 365 days, a month 30, a week 7.
const (
	daysPerYear  = 365
	daysPerMonth = 30
	daysPerWeek  = 7
)

// periodPatterns are tried in order; 개월 precedes bare 일 and 주 so the
// interval exclusion never matters in practice, but it is kept for safety
// against overlapping notation.
var periodPatterns = []struct {
	re       *regexp.Regexp
	unitDays int
}{
	{regexp.MustCompile(`(\d[\d,]*)\s*년`), daysPerYear},
	{regexp.MustCompile(`(\d[\d,]*)\s*개월`), daysPerMonth},
	{regexp.MustCompile(`(\d[\d,]*)\s*주(?:일|간)?`), daysPerWeek},
	{regexp.MustCompile(`(\d[\d,]*)\s*일`), 1},
}

// extractPeriods returns durations in source order, normalized to days.
func extractPeriods(text string) []policy.ExtractedPeriod {
	var (
		periods  []policy.ExtractedPeriod
		consumed consumedSpans
	)
	for _, p := range periodPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			span := policy.TextSpan{Start: m[0], End: m[1]}
			if consumed.overlaps(span) {
				continue
			}
			consumed = append(consumed, span)
			periods = append(periods, policy.ExtractedPeriod{
				Days:       int(parseDigits(text[m[2]:m[3]])) * p.unitDays,
				Raw:        text[span.Start:span.End],
				Span:       span,
				Confidence: policy.FactConfidence,
			})
		}
	}
	sortBySpan(periods, func(p policy.ExtractedPeriod) policy.TextSpan { return p.Span })
	return periods
}
