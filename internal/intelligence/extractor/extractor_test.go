package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

func TestExtractAmountCascade(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"보험가입금액은 1억 5천만원으로 합니다.", 150_000_000},
		{"진단보험금 1억원을 지급합니다.", 100_000_000},
		{"소액암은 1천만원을 지급합니다.", 10_000_000},
		{"통원 1회당 5천원을 지급합니다.", 5_000},
		{"수술보험금 500만원", 5_000_000},
		{"자기부담금 10,000원", 10_000},
		{"2억3천만원 한도", 230_000_000},
		{"가입금액 3억 한도", 300_000_000},
	}
	for _, tc := range cases {
		facts := New().Extract(tc.text)
		require.Len(t, facts.Amounts, 1, "text: %s", tc.text)
		assert.Equal(t, tc.want, facts.Amounts[0].Value, "text: %s", tc.text)
		assert.Equal(t, policy.FactConfidence, facts.Amounts[0].Confidence)
	}
}

func TestExtractAmountsNoDoubleCount(t *testing.T) {
	// the compound match must claim its interval so the 5천만원 inside
	// 1억 5천만원 is not also extracted on its own
	facts := New().Extract("암 진단 시 1억 5천만원, 재진단 시 1천만원을 지급합니다.")
	require.Len(t, facts.Amounts, 2)
	assert.Equal(t, int64(150_000_000), facts.Amounts[0].Value)
	assert.Equal(t, int64(10_000_000), facts.Amounts[1].Value)
}

func TestExtractAmountSpansIndexSource(t *testing.T) {
	text := "일반암 진단 시 1억원을 지급합니다."
	facts := New().Extract(text)
	require.Len(t, facts.Amounts, 1)
	a := facts.Amounts[0]
	assert.Equal(t, text[a.Span.Start:a.Span.End], a.Raw)
	assert.Equal(t, "1억원", a.Raw)
}

func TestExtractPeriods(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"계약일로부터 90일 이내", 90},
		{"면책기간은 3개월입니다.", 90},
		{"2주 이내에 제출하여야 합니다.", 14},
		{"보장기간은 1년으로 합니다.", 365},
	}
	for _, tc := range cases {
		facts := New().Extract(tc.text)
		require.Len(t, facts.Periods, 1, "text: %s", tc.text)
		assert.Equal(t, tc.want, facts.Periods[0].Days, "text: %s", tc.text)
	}
}

func TestExtractPeriodsMultiple(t *testing.T) {
	facts := New().Extract("계약일로부터 90일이 지나고 1년 이내에 진단된 경우")
	require.Len(t, facts.Periods, 2)
	assert.Equal(t, 90, facts.Periods[0].Days)
	assert.Equal(t, 365, facts.Periods[1].Days)
}

func TestExtractKCDSingle(t *testing.T) {
	facts := New().Extract("림프절의 이차성 악성 신생물(C77)은 소액암으로 분류합니다.")
	require.Len(t, facts.KCDCodes, 1)
	code := facts.KCDCodes[0]
	assert.Equal(t, "C77", code.Code)
	assert.False(t, code.IsRange)
	assert.Equal(t, []string{"C77"}, code.Codes())
}

func TestExtractKCDRange(t *testing.T) {
	facts := New().Extract("허혈성 심장질환(I21-I25)으로 진단 확정된 경우")
	require.Len(t, facts.KCDCodes, 1)
	code := facts.KCDCodes[0]
	require.True(t, code.IsRange)
	assert.Equal(t, "I21", code.Code)
	assert.Equal(t, "I25", code.RangeEnd)
	assert.Equal(t, []string{"I21", "I22", "I23", "I24", "I25"}, code.Codes())
}

func TestExtractKCDMalformedRange(t *testing.T) {
	// reversed endpoints degrade to two single codes
	facts := New().Extract("I25-I21에 해당하는 질병")
	require.Len(t, facts.KCDCodes, 2)
	assert.False(t, facts.KCDCodes[0].IsRange)
	assert.Equal(t, "I25", facts.KCDCodes[0].Code)
	assert.Equal(t, "I21", facts.KCDCodes[1].Code)
}

func TestExtractKCDCrossLetterNotRange(t *testing.T) {
	facts := New().Extract("C97~D03 구간")
	require.Len(t, facts.KCDCodes, 2)
	for _, c := range facts.KCDCodes {
		assert.False(t, c.IsRange)
	}
}

func TestExtractCombined(t *testing.T) {
	text := "① 일반암(C77 제외): 1억원 ② 다만 계약일로부터 90일 이내 진단 시 제외"
	facts := New().Extract(text)

	require.Len(t, facts.Amounts, 1)
	assert.Equal(t, int64(100_000_000), facts.Amounts[0].Value)
	require.Len(t, facts.Periods, 1)
	assert.Equal(t, 90, facts.Periods[0].Days)
	require.Len(t, facts.KCDCodes, 1)
	assert.Equal(t, "C77", facts.KCDCodes[0].Code)
}

func TestExtractEmpty(t *testing.T) {
	facts := New().Extract("이 조항에는 추출할 수치가 없습니다.")
	assert.True(t, facts.IsEmpty())
}

func TestExtractOffset(t *testing.T) {
	doc := "머리말입니다. 보험금 1억원을 지급합니다."
	base := len("머리말입니다. ")
	facts := New().ExtractOffset(doc[base:], base)
	require.Len(t, facts.Amounts, 1)
	a := facts.Amounts[0]
	assert.Equal(t, "1억원", doc[a.Span.Start:a.Span.End])
}

func TestExtractFactsNeverOverlap(t *testing.T) {
	text := "1억 5천만원 또는 1천만원 또는 5천원 또는 10,000원을 지급하며 90일 및 3개월을 적용합니다."
	facts := New().Extract(text)
	for i := range facts.Amounts {
		for j := i + 1; j < len(facts.Amounts); j++ {
			assert.False(t, facts.Amounts[i].Span.Overlaps(facts.Amounts[j].Span),
				"amounts %d and %d overlap", i, j)
		}
	}
	require.Len(t, facts.Amounts, 4)
	assert.Equal(t, []int64{150_000_000, 10_000_000, 5_000, 10_000}, facts.AmountValues())
}
