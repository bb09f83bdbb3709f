package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/intelligence/extractor"
	"github.com/nuriwon/yakgwan/internal/intelligence/structparser"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

var parseShowText bool

// parseOutput is the JSON shape of the parse command.
type parseOutput struct {
	Articles []policy.Article      `json:"articles"`
	Warnings []policy.ParseWarning `json:"warnings,omitempty"`
	Facts    policy.FactSet        `json:"facts"`
}

// NewParseCmd creates the parse command: structure and critical facts only,
// no learning and no external calls.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a policy file's legal structure and critical facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&parseShowText, "show-text", false, "print each paragraph's text")

	return cmd
}

func runParse(cmd *cobra.Command, path string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read document file")
	}
	text := structparser.NormalizeText(string(raw))
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.ErrCodeParseEmpty, "document has no text")
	}

	parsed := structparser.New().Parse(text)
	facts := extractor.New().Extract(text)

	if strings.EqualFold(cliCtx.OutputFormat, "json") {
		return printJSON(cmd, parseOutput{
			Articles: parsed.Articles,
			Warnings: parsed.Warnings,
			Facts:    facts,
		})
	}

	out := cmd.OutOrStdout()
	for _, art := range parsed.Articles {
		fmt.Fprintf(out, "%s %s\n", art.Label(), art.Title)
		for _, p := range art.Paragraphs {
			marker := p.Marker
			if marker == policy.SyntheticParagraphMarker {
				marker = "(본문)"
			}
			exception := ""
			if p.HasException {
				exception = "  [단서]"
			}
			fmt.Fprintf(out, "  %s  %d subclause(s)%s\n", marker, len(p.Subclauses), exception)
			if parseShowText {
				fmt.Fprintf(out, "    %s\n", p.Text)
			}
		}
	}
	for _, w := range parsed.Warnings {
		fmt.Fprintf(out, "warning: %s (%s)\n", w.Message, w.Code)
	}

	fmt.Fprintf(out, "\n%d amount(s), %d period(s), %d KCD code(s)\n",
		len(facts.Amounts), len(facts.Periods), len(facts.KCDCodes))
	for _, a := range facts.Amounts {
		fmt.Fprintf(out, "  %12d원  %q\n", a.Value, a.Raw)
	}
	for _, p := range facts.Periods {
		fmt.Fprintf(out, "  %6d day(s)  %q\n", p.Days, p.Raw)
	}
	for _, k := range facts.KCDCodes {
		fmt.Fprintf(out, "  %s\n", k.Raw)
	}

	return nil
}
