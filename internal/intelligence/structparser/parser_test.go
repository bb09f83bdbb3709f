package structparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

const samplePolicyText = `제10조 [보험금 지급]
① 회사는 다음과 같이 보험금을 지급합니다. 1. 일반암(C77 제외): 1억원 2. 소액암(C77): 1천만원
② 다만, 계약일로부터 90일 이내에 진단 확정된 경우에는 지급하지 않습니다.
제11조 [보험금 청구]
① 보험금 청구 시 다음 서류를 제출하여야 합니다.`

func TestParseFullHierarchy(t *testing.T) {
	p := New()
	result := p.Parse(samplePolicyText)

	require.Len(t, result.Articles, 2)
	assert.Empty(t, result.Warnings)

	art := result.Articles[0]
	assert.Equal(t, 10, art.Number)
	assert.Equal(t, "보험금 지급", art.Title)
	assert.Equal(t, "제10조", art.Label())
	require.Len(t, art.Paragraphs, 2)

	first := art.Paragraphs[0]
	assert.Equal(t, "①", first.Marker)
	assert.Equal(t, 1, first.Number)
	assert.False(t, first.HasException)
	require.Len(t, first.Subclauses, 2)
	assert.Equal(t, "1", first.Subclauses[0].Marker)
	assert.Contains(t, first.Subclauses[0].Text, "일반암")
	assert.Equal(t, "2", first.Subclauses[1].Marker)
	assert.Contains(t, first.Subclauses[1].Text, "소액암")

	second := art.Paragraphs[1]
	assert.Equal(t, "②", second.Marker)
	assert.True(t, second.HasException, "다만 proviso must flag the paragraph")
	assert.Empty(t, second.Subclauses)

	assert.Equal(t, 11, result.Articles[1].Number)
	assert.Equal(t, "보험금 청구", result.Articles[1].Title)
}

func TestParseSyntheticLeadingParagraph(t *testing.T) {
	text := "제5조 [용어의 정의] 이 약관에서 사용하는 용어의 뜻은 다음과 같습니다.\n① 피보험자: 보험사고의 대상이 되는 사람"
	result := New().Parse(text)

	require.Len(t, result.Articles, 1)
	paras := result.Articles[0].Paragraphs
	require.Len(t, paras, 2)
	assert.Equal(t, policy.SyntheticParagraphMarker, paras[0].Marker)
	assert.Equal(t, 0, paras[0].Number)
	assert.Contains(t, paras[0].Text, "용어의 뜻은")
	assert.Equal(t, "①", paras[1].Marker)
}

func TestParseArticleWithoutParagraphMarkers(t *testing.T) {
	text := "제1조 [목적] 이 약관은 보험계약의 성립과 유지에 관한 사항을 정합니다."
	result := New().Parse(text)

	require.Len(t, result.Articles, 1)
	paras := result.Articles[0].Paragraphs
	require.Len(t, paras, 1, "body with no ① markers becomes a single 본문 paragraph")
	assert.Equal(t, policy.SyntheticParagraphMarker, paras[0].Marker)
	assert.Contains(t, paras[0].Text, "보험계약의 성립")
}

func TestParseArticleSubNumber(t *testing.T) {
	text := "제10조의2 [특별약관] ① 이 특별약관은 보통약관에 우선합니다."
	result := New().Parse(text)

	require.Len(t, result.Articles, 1)
	assert.Equal(t, 10, result.Articles[0].Number)
	assert.Equal(t, 2, result.Articles[0].SubNumber)
	assert.Equal(t, "제10조의2", result.Articles[0].Label())
}

func TestParseNoStructure(t *testing.T) {
	result := New().Parse("이 문서에는 조문 구조가 전혀 없습니다.")

	assert.Empty(t, result.Articles)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "no_structure_found", result.Warnings[0].Code)
}

func TestParseDuplicateArticleMarker(t *testing.T) {
	text := "제3조 [고지의무] ① 계약자는 청약 시 사실대로 알려야 합니다.\n제3조 [고지의무] ① 중복된 조문입니다."
	result := New().Parse(text)

	require.Len(t, result.Articles, 2, "duplicates are kept, not dropped")
	found := false
	for _, w := range result.Warnings {
		if w.Code == "duplicate_article_marker" {
			found = true
		}
	}
	assert.True(t, found, "duplicate marker must produce a warning")
}

func TestParseOutOfOrderParagraph(t *testing.T) {
	text := "제7조 ① 첫 번째 항입니다.\n③ 번호가 건너뛴 항입니다."
	result := New().Parse(text)

	require.Len(t, result.Articles, 1)
	assert.Len(t, result.Articles[0].Paragraphs, 2)
	found := false
	for _, w := range result.Warnings {
		if w.Code == "out_of_order_paragraph" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseCrossReferenceNotHeading(t *testing.T) {
	text := "제9조 [면책] ① 제3조에 따라 고지의무를 위반한 경우 보험금을 지급하지 않습니다."
	result := New().Parse(text)

	require.Len(t, result.Articles, 1, "mid-line 제3조 reference must not open a new article")
	assert.Equal(t, 9, result.Articles[0].Number)
}

func TestParseLetteredSubclauses(t *testing.T) {
	text := "제12조 ① 다음 각 목의 서류를 제출합니다. 가. 청구서 나. 진단서 다. 신분증 사본"
	result := New().Parse(text)

	require.Len(t, result.Articles, 1)
	subs := result.Articles[0].Paragraphs[0].Subclauses
	require.Len(t, subs, 3)
	assert.Equal(t, "가", subs[0].Marker)
	assert.Equal(t, "나", subs[1].Marker)
	assert.Equal(t, "다", subs[2].Marker)
	assert.Contains(t, subs[2].Text, "신분증")
}

func TestParseSpansIndexSource(t *testing.T) {
	result := New().Parse(samplePolicyText)

	require.Len(t, result.Articles, 2)
	for _, art := range result.Articles {
		slice := samplePolicyText[art.Span.Start:art.Span.End]
		assert.True(t, strings.HasPrefix(slice, art.Label()), "article span must start at its marker")
		for _, para := range art.Paragraphs {
			assert.LessOrEqual(t, art.Span.Start, para.Span.Start)
			assert.GreaterOrEqual(t, art.Span.End, para.Span.End)
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	a := New().Parse(samplePolicyText)
	b := New().Parse(samplePolicyText)
	assert.Equal(t, a, b)
}

func TestMatchExceptions(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"다만, 계약일로부터 90일 이내는 제외합니다.", []string{"다만"}},
		{"단서 조항이 적용됩니다.", []string{"단서"}},
		{"C77을 제외하고 지급합니다.", []string{"제외하고"}},
		{"보험금을 지급합니다. 단, 고지의무 위반 시 예외로 합니다.", []string{"단"}},
		{"단체보험 계약에는 적용됩니다.", nil},
		{"보험금을 지급합니다.", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, matchExceptions(tc.text), "text: %s", tc.text)
	}
}

func TestNormalizeText(t *testing.T) {
	decomposed := "보험금" // composed already; NFC must be a no-op
	assert.Equal(t, decomposed, NormalizeText(decomposed))

	// decomposed jamo sequence for 가 (U+1100 U+1161) composes to U+AC00
	assert.Equal(t, "가", NormalizeText("가"))
}
