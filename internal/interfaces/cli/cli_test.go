package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliSampleText = `제10조 [보험금 지급]
① 회사는 다음과 같이 보험금을 지급합니다. 1. 일반암(C77 제외): 1억원 2. 소액암(C77): 1천만원
② 다만, 계약일로부터 90일 이내에 진단 확정된 경우에는 지급하지 않습니다.`

const cliSampleOntology = `version: "2026-08"
entities:
  - id: dis-general-cancer
    name: 일반암
    kcd_codes: [C00, C50]
  - id: dis-minor-cancer
    name: 소액암
    aliases: [유사암]
    kcd_codes: [C77, C44]
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	root.SetContext(context.Background())
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["learn"])
	assert.True(t, names["parse"])
	assert.True(t, names["link"])
	assert.True(t, names["stats"])
}

func TestParseCommand(t *testing.T) {
	doc := writeTempFile(t, "policy.txt", cliSampleText)

	out, err := execute(t, "parse", doc)
	require.NoError(t, err)

	assert.Contains(t, out, "제10조")
	assert.Contains(t, out, "[단서]")
	assert.Contains(t, out, "100000000원")
	assert.Contains(t, out, "90 day(s)")
	assert.Contains(t, out, "C77")
}

func TestParseCommandJSON(t *testing.T) {
	doc := writeTempFile(t, "policy.txt", cliSampleText)

	out, err := execute(t, "parse", doc, "--output", "json")
	require.NoError(t, err)

	assert.Contains(t, out, `"articles"`)
	assert.Contains(t, out, `"amounts"`)
}

func TestParseCommandMissingFile(t *testing.T) {
	_, err := execute(t, "parse", filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestLearnCommandOffline(t *testing.T) {
	doc := writeTempFile(t, "policy.txt", cliSampleText)
	ont := writeTempFile(t, "diseases.yaml", cliSampleOntology)

	out, err := execute(t, "learn", doc,
		"--backend", "noop", "--ontology", ont, "--product-id", "prod-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Strategy : FULL")
	assert.Contains(t, out, "일반암")
	assert.Contains(t, out, "소액암")
}

func TestLearnCommandOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	doc := writeTempFile(t, "policy.txt", cliSampleText)

	_, err := execute(t, "learn", doc, "--backend", "openai", "--api-key", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLinkCommand(t *testing.T) {
	ont := writeTempFile(t, "diseases.yaml", cliSampleOntology)

	out, err := execute(t, "link", "유사암", "--ontology", ont)
	require.NoError(t, err)
	assert.Contains(t, out, "소액암")
	assert.Contains(t, out, "exact")
}

func TestLinkCommandByCode(t *testing.T) {
	ont := writeTempFile(t, "diseases.yaml", cliSampleOntology)

	out, err := execute(t, "link", "C77", "--ontology", ont, "--code")
	require.NoError(t, err)
	assert.Contains(t, out, "소액암")
	assert.Contains(t, out, "kcd")
}

func TestLinkCommandNoMatch(t *testing.T) {
	ont := writeTempFile(t, "diseases.yaml", cliSampleOntology)

	out, err := execute(t, "link", "골절", "--ontology", ont)
	require.NoError(t, err)
	assert.Contains(t, out, "no match")
}

func TestStatsRequiresConfig(t *testing.T) {
	_, err := execute(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestFormatTable(t *testing.T) {
	out := FormatTable(
		[]string{"STRATEGY", "DECISIONS"},
		[][]string{{"FULL", "12"}, {"TEMPLATE", "3"}},
	)

	assert.Contains(t, out, "STRATEGY")
	assert.Contains(t, out, "--------")
	assert.Contains(t, out, "TEMPLATE")
}
