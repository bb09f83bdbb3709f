// Package extractor pulls critical numeric facts out of policy clause text:
// monetary amounts normalized to won, durations normalized to days, and KCD
// disease-code references.  Extraction is rule-based and deterministic; it
// never fails and attaches a fixed confidence of 1.0 to every fact.
package extractor

import (
	"sort"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

// Extractor runs the full rule set over a text unit.  The zero value is
// ready to use and safe for concurrent callers.
type Extractor struct{}

// New returns a fact extractor.
func New() *Extractor { return &Extractor{} }

// Extract runs amount, period, and KCD extraction over text and returns the
// combined fact set.  Spans index the given text.  Text with no extractable
// facts yields an empty set, never an error.
func (e *Extractor) Extract(text string) policy.FactSet {
	facts := policy.FactSet{
		Amounts:  extractAmounts(text),
		Periods:  extractPeriods(text),
		KCDCodes: extractKCDCodes(text),
	}
	return facts
}

// ExtractOffset is Extract with every span shifted by base, for callers that
// extract from a slice of a larger document and want document offsets.
func (e *Extractor) ExtractOffset(text string, base int) policy.FactSet {
	facts := e.Extract(text)
	for i := range facts.Amounts {
		facts.Amounts[i].Span = shift(facts.Amounts[i].Span, base)
	}
	for i := range facts.Periods {
		facts.Periods[i].Span = shift(facts.Periods[i].Span, base)
	}
	for i := range facts.KCDCodes {
		facts.KCDCodes[i].Span = shift(facts.KCDCodes[i].Span, base)
	}
	return facts
}

func shift(s policy.TextSpan, base int) policy.TextSpan {
	return policy.TextSpan{Start: s.Start + base, End: s.End + base}
}

// consumedSpans tracks the text intervals already claimed by an earlier
// pattern in a cascade.  First match wins: later patterns skip any match
// overlapping a claimed interval.
type consumedSpans []policy.TextSpan

func (c consumedSpans) overlaps(s policy.TextSpan) bool {
	for _, claimed := range c {
		if claimed.Overlaps(s) {
			return true
		}
	}
	return false
}

// sortBySpan orders facts by their position in the source text.
func sortBySpan[T any](items []T, span func(T) policy.TextSpan) {
	sort.SliceStable(items, func(i, j int) bool {
		return span(items[i]).Start < span(items[j]).Start
	})
}
