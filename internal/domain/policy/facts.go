package policy

// ─────────────────────────────────────────────────────────────────────────────
// Critical facts: amounts, periods, KCD codes
// ─────────────────────────────────────────────────────────────────────────────

// FactConfidence is the confidence attached to rule-extracted facts.  Rule
// extraction is deterministic, so the value is fixed.
const FactConfidence = 1.0

// ExtractedAmount is one monetary amount found in clause text, normalized to
// won.
type ExtractedAmount struct {
	// Value is the amount in won.
	Value int64 `json:"value"`

	// Raw is the matched source text, e.g. "1억 5천만원".
	Raw string `json:"raw"`

	// Span locates the match in the original text.
	Span TextSpan `json:"span"`

	// Confidence is always FactConfidence for rule-based extraction.
	Confidence float64 `json:"confidence"`
}

// ExtractedPeriod is one duration found in clause text, normalized to days.
type ExtractedPeriod struct {
	// Days is the normalized duration: 년×365, 개월×30, 주×7, 일×1.
	Days int `json:"days"`

	// Raw is the matched source text, e.g. "90일", "3개월".
	Raw string `json:"raw"`

	Span       TextSpan `json:"span"`
	Confidence float64  `json:"confidence"`
}

// ExtractedKCDCode is one Korean Standard Classification of Diseases code
// reference, either a single code or a range.
type ExtractedKCDCode struct {
	// Code is the single code ("C77") or the range start when IsRange.
	Code string `json:"code"`

	// RangeEnd is the range end code ("I25" in "I21-I25"), empty for
	// single codes.
	RangeEnd string `json:"range_end,omitempty"`

	// IsRange reports whether the reference spans a code range.
	IsRange bool `json:"is_range"`

	// Raw is the matched source text.
	Raw string `json:"raw"`

	Span       TextSpan `json:"span"`
	Confidence float64  `json:"confidence"`
}

// Codes expands the reference into the individual codes it covers.  Single
// codes return themselves; ranges expand within the shared letter prefix, so
// "I21-I25" yields I21 I22 I23 I24 I25.
func (k ExtractedKCDCode) Codes() []string {
	if !k.IsRange {
		return []string{k.Code}
	}
	start := int(k.Code[1]-'0')*10 + int(k.Code[2]-'0')
	end := int(k.RangeEnd[1]-'0')*10 + int(k.RangeEnd[2]-'0')
	if end < start || k.Code[0] != k.RangeEnd[0] {
		return []string{k.Code, k.RangeEnd}
	}
	codes := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		codes = append(codes, string(k.Code[0])+pad2(n))
	}
	return codes
}

func pad2(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

// FactSet bundles everything the extractor found in one text unit.
type FactSet struct {
	Amounts  []ExtractedAmount  `json:"amounts,omitempty"`
	Periods  []ExtractedPeriod  `json:"periods,omitempty"`
	KCDCodes []ExtractedKCDCode `json:"kcd_codes,omitempty"`
}

// IsEmpty reports whether no facts were extracted.
func (f FactSet) IsEmpty() bool {
	return len(f.Amounts) == 0 && len(f.Periods) == 0 && len(f.KCDCodes) == 0
}

// Merge appends every fact from other into the receiver's copy and returns
// the combined set.  Input sets are not modified.
func (f FactSet) Merge(other FactSet) FactSet {
	merged := FactSet{
		Amounts:  append(append([]ExtractedAmount(nil), f.Amounts...), other.Amounts...),
		Periods:  append(append([]ExtractedPeriod(nil), f.Periods...), other.Periods...),
		KCDCodes: append(append([]ExtractedKCDCode(nil), f.KCDCodes...), other.KCDCodes...),
	}
	return merged
}

// AmountValues returns the normalized won values in extraction order.
func (f FactSet) AmountValues() []int64 {
	vals := make([]int64, len(f.Amounts))
	for i, a := range f.Amounts {
		vals[i] = a.Value
	}
	return vals
}

// PeriodDays returns the normalized day counts in extraction order.
func (f FactSet) PeriodDays() []int {
	days := make([]int, len(f.Periods))
	for i, p := range f.Periods {
		days[i] = p.Days
	}
	return days
}
