package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

// ─────────────────────────────────────────────────────────────────────────────
// Amount patterns, highest denomination first
// ─────────────────────────────────────────────────────────────────────────────

// Korean amount notation stacks denomination words: 1억 5천만원 is 1×10⁸ +
// 5×10⁷ won.  The cascade tries compound 억 forms first, then each single
// denomination down to bare 원; once a pattern claims a text interval, lower
// patterns skip it so 1억 5천만원 never additionally yields a 5천만원 match.
const (
	unitEok      = 100_000_000
	unitCheonman = 10_000_000
	unitMan      = 10_000
	unitCheon    = 1_000
)

var denominationValue = map[string]int64{
	"천만": unitCheonman,
	"만":  unitMan,
	"천":  unitCheon,
}

var (
	// reAmountEokCompound: 1억 5천만원, 2억3천만원, 1억 500만원
	reAmountEokCompound = regexp.MustCompile(`(\d[\d,]*)\s*억\s*(\d[\d,]*)\s*(천만|만|천)\s*원`)

	// reAmountEok: 1억원, 3억 (the 원 suffix is customary but optional
	// after 억)
	reAmountEok = regexp.MustCompile(`(\d[\d,]*)\s*억(?:\s*원)?`)

	// reAmountCheonman: 1천만원
	reAmountCheonman = regexp.MustCompile(`(\d[\d,]*)\s*천만\s*원`)

	// reAmountMan: 500만원
	reAmountMan = regexp.MustCompile(`(\d[\d,]*)\s*만\s*원`)

	// reAmountCheon: 5천원
	reAmountCheon = regexp.MustCompile(`(\d[\d,]*)\s*천\s*원`)

	// reAmountWon: 10,000원
	reAmountWon = regexp.MustCompile(`(\d[\d,]*)\s*원`)
)

// extractAmounts runs the amount cascade and returns amounts in source
// order.
func extractAmounts(text string) []policy.ExtractedAmount {
	var (
		amounts  []policy.ExtractedAmount
		consumed consumedSpans
	)

	claim := func(span policy.TextSpan, value int64) {
		if consumed.overlaps(span) {
			return
		}
		consumed = append(consumed, span)
		amounts = append(amounts, policy.ExtractedAmount{
			Value:      value,
			Raw:        text[span.Start:span.End],
			Span:       span,
			Confidence: policy.FactConfidence,
		})
	}

	for _, m := range reAmountEokCompound.FindAllStringSubmatchIndex(text, -1) {
		eok := parseDigits(text[m[2]:m[3]])
		rest := parseDigits(text[m[4]:m[5]])
		unit := denominationValue[text[m[6]:m[7]]]
		claim(policy.TextSpan{Start: m[0], End: m[1]}, eok*unitEok+rest*unit)
	}
	for _, m := range reAmountEok.FindAllStringSubmatchIndex(text, -1) {
		claim(policy.TextSpan{Start: m[0], End: m[1]}, parseDigits(text[m[2]:m[3]])*unitEok)
	}
	for _, m := range reAmountCheonman.FindAllStringSubmatchIndex(text, -1) {
		claim(policy.TextSpan{Start: m[0], End: m[1]}, parseDigits(text[m[2]:m[3]])*unitCheonman)
	}
	for _, m := range reAmountMan.FindAllStringSubmatchIndex(text, -1) {
		claim(policy.TextSpan{Start: m[0], End: m[1]}, parseDigits(text[m[2]:m[3]])*unitMan)
	}
	for _, m := range reAmountCheon.FindAllStringSubmatchIndex(text, -1) {
		claim(policy.TextSpan{Start: m[0], End: m[1]}, parseDigits(text[m[2]:m[3]])*unitCheon)
	}
	for _, m := range reAmountWon.FindAllStringSubmatchIndex(text, -1) {
		claim(policy.TextSpan{Start: m[0], End: m[1]}, parseDigits(text[m[2]:m[3]]))
	}

	sortBySpan(amounts, func(a policy.ExtractedAmount) policy.TextSpan { return a.Span })
	return amounts
}

// parseDigits parses a digit run with optional thousands commas.
func parseDigits(s string) int64 {
	n, _ := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	return n
}
