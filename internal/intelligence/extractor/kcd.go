package extractor

import (
	"regexp"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

// ─────────────────────────────────────────────────────────────────────────────
// KCD code patterns
// ─────────────────────────────────────────────────────────────────────────────

// reKCD matches a Korean Standard Classification of Diseases code (letter
// plus two digits) with an optional range suffix: C77, I21-I25, I21~I25.
var reKCD = regexp.MustCompile(`\b([A-Z]\d{2})(?:\s*[-~]\s*([A-Z]\d{2}))?\b`)

// extractKCDCodes returns code references in source order.  A range is only
// recognized when both endpoints share the letter prefix and the end does
// not precede the start; anything else degrades to two single codes.
func extractKCDCodes(text string) []policy.ExtractedKCDCode {
	var codes []policy.ExtractedKCDCode
	for _, m := range reKCD.FindAllStringSubmatchIndex(text, -1) {
		span := policy.TextSpan{Start: m[0], End: m[1]}
		start := text[m[2]:m[3]]

		if m[4] < 0 {
			codes = append(codes, singleCode(start, text, span))
			continue
		}

		end := text[m[4]:m[5]]
		if validRange(start, end) {
			codes = append(codes, policy.ExtractedKCDCode{
				Code:       start,
				RangeEnd:   end,
				IsRange:    true,
				Raw:        text[span.Start:span.End],
				Span:       span,
				Confidence: policy.FactConfidence,
			})
			continue
		}

		// Malformed range: keep both endpoints as single codes so no
		// reference is silently dropped.
		codes = append(codes,
			singleCode(start, text, policy.TextSpan{Start: m[2], End: m[3]}),
			singleCode(end, text, policy.TextSpan{Start: m[4], End: m[5]}),
		)
	}
	return codes
}

func singleCode(code, text string, span policy.TextSpan) policy.ExtractedKCDCode {
	return policy.ExtractedKCDCode{
		Code:       code,
		Raw:        text[span.Start:span.End],
		Span:       span,
		Confidence: policy.FactConfidence,
	}
}

// validRange reports whether start-end is a well-formed code range.
func validRange(start, end string) bool {
	return start[0] == end[0] && end[1:] >= start[1:]
}
