package similarity

import (
	"regexp"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Structural similarity for template matching
// ─────────────────────────────────────────────────────────────────────────────

// Template matching compares document SHAPE, not content: two policies built
// from the same form differ only in product names, amounts, and dates.  The
// skeleton masks those variable slots so the comparison sees the shared
// boilerplate.

var (
	// reAmountSlot masks a whole monetary expression so 1억원, 5천만원,
	// and 1억 5천만원 all collapse to the same placeholder.
	reAmountSlot = regexp.MustCompile(`(?:\d[\d,.]*\s*(?:억|천만|만|천)?\s*)+원`)
	reDigitRun   = regexp.MustCompile(`\d[\d,.]*`)
	reQuoted     = regexp.MustCompile(`[「"'][^」"']*[」"']`)
)

// Skeleton produces the structural fingerprint of a document: monetary
// expressions and digit runs collapse to #, quoted product names collapse
// to a placeholder, whitespace collapses.  Documents from the same template
// yield near-identical skeletons.
func Skeleton(text string) string {
	s := reQuoted.ReplaceAllString(text, "「…」")
	s = reAmountSlot.ReplaceAllString(s, "#원")
	s = reDigitRun.ReplaceAllString(s, "#")
	return strings.Join(strings.Fields(s), " ")
}

// Dice computes the Sørensen-Dice coefficient over the token sets of two
// skeletons: 2·|A∩B| / (|A|+|B|).  Returns 1 for identical token sets and 0
// for disjoint ones; two empty inputs count as identical.
func Dice(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if tb[tok] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// TemplateScore compares a document against a stored template skeleton.
func TemplateScore(docText, templateSkeleton string) float64 {
	return Dice(Skeleton(docText), templateSkeleton)
}

// ─────────────────────────────────────────────────────────────────────────────
// Version similarity for incremental learning
// ─────────────────────────────────────────────────────────────────────────────

// VersionScore measures how much of a new document is already covered by a
// prior version: the fraction of chunk hashes the two versions share,
// against the larger version.  1 means identical chunking, 0 means nothing
// survived.
func VersionScore(prior, current []string) float64 {
	if len(prior) == 0 && len(current) == 0 {
		return 1
	}
	if len(prior) == 0 || len(current) == 0 {
		return 0
	}
	known := make(map[string]bool, len(prior))
	for _, h := range prior {
		known[h] = true
	}
	shared := 0
	for _, h := range current {
		if known[h] {
			shared++
		}
	}
	longest := len(prior)
	if len(current) > longest {
		longest = len(current)
	}
	return float64(shared) / float64(longest)
}
