package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/intelligence/structparser"
)

const structuredText = `제1조 [목적] 이 약관의 목적을 정합니다.
제2조 [정의] ① 용어를 정의합니다.
제3조 [보험금 지급] ① 일반암 진단 시 1억원을 지급합니다.`

func TestChunkDocumentByArticle(t *testing.T) {
	parsed := structparser.New().Parse(structuredText)
	chunks := ChunkDocument(structuredText, parsed)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, structuredText[c.Span.Start:c.Span.End], c.Text)
		assert.Len(t, c.Hash, 64)
	}
	assert.Contains(t, chunks[2].Text, "보험금 지급")
}

func TestChunkDocumentBlankLineFallback(t *testing.T) {
	text := "첫 번째 문단입니다.\n\n두 번째 문단입니다.\n\n\n세 번째 문단입니다."
	chunks := ChunkDocument(text, policy.ParseResult{})

	require.Len(t, chunks, 3)
	assert.Contains(t, chunks[1].Text, "두 번째")
	assert.Equal(t, text[chunks[2].Span.Start:chunks[2].Span.End], chunks[2].Text)
}

func TestHashTextContentIdentity(t *testing.T) {
	// identical content hashes identically regardless of surrounding
	// whitespace or position
	assert.Equal(t, HashText("제1조 내용"), HashText("  제1조 내용\n"))
	assert.NotEqual(t, HashText("제1조 내용"), HashText("제1조 내용."))
}

func TestChangedChunks(t *testing.T) {
	parsed := structparser.New().Parse(structuredText)
	chunks := ChunkDocument(structuredText, parsed)
	prior := ChunkHashes(chunks)

	// same document: nothing changed
	assert.Empty(t, ChangedChunks(prior, chunks))

	// amend the third article only
	amended := `제1조 [목적] 이 약관의 목적을 정합니다.
제2조 [정의] ① 용어를 정의합니다.
제3조 [보험금 지급] ① 일반암 진단 시 2억원을 지급합니다.`
	amendedChunks := ChunkDocument(amended, structparser.New().Parse(amended))
	changed := ChangedChunks(prior, amendedChunks)
	require.Len(t, changed, 1)
	assert.Contains(t, changed[0].Text, "2억원")
}

func TestSkeletonMasksVariableContent(t *testing.T) {
	a := Skeleton(`「무배당 암보험」 제3조 일반암 진단 시 1억원을 지급합니다.`)
	b := Skeleton(`「든든한 암보험」 제3조 일반암 진단 시 5천만원을 지급합니다.`)
	assert.Equal(t, a, b, "product name and amount are variable slots")
}

func TestDice(t *testing.T) {
	assert.Equal(t, 1.0, Dice("가 나 다", "다 나 가"))
	assert.Equal(t, 0.0, Dice("가 나", "다 라"))
	assert.Equal(t, 1.0, Dice("", ""))
	assert.Equal(t, 0.0, Dice("가", ""))
	// {가,나,다} vs {가,나,라}: 2·2/(3+3)
	assert.InDelta(t, 2.0/3.0, Dice("가 나 다", "가 나 라"), 0.001)
}

func TestTemplateScoreSameForm(t *testing.T) {
	doc := `제1조 [목적] 이 약관의 목적. 제2조 [지급] 진단 시 1억원 지급.`
	tpl := Skeleton(`제1조 [목적] 이 약관의 목적. 제2조 [지급] 진단 시 3천만원 지급.`)
	assert.Equal(t, 1.0, TemplateScore(doc, tpl))
}

func TestVersionScore(t *testing.T) {
	assert.Equal(t, 1.0, VersionScore([]string{"a", "b"}, []string{"a", "b"}))
	assert.Equal(t, 0.0, VersionScore([]string{"a"}, []string{"b"}))
	assert.Equal(t, 1.0, VersionScore(nil, nil))
	assert.Equal(t, 0.0, VersionScore([]string{"a"}, nil))
	// 2 shared of max(3,4)
	assert.InDelta(t, 0.5, VersionScore([]string{"a", "b", "c"}, []string{"a", "b", "x", "y"}), 0.001)
}
