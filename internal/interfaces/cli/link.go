package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/intelligence/entitylink"
)

var (
	linkOntology  string
	linkAsCode    bool
	linkThreshold float64
)

// NewLinkCmd creates the link command: resolve a disease mention or KCD
// code against the ontology file.
func NewLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <mention>",
		Short: "Link a disease mention or KCD code to an ontology entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&linkOntology, "ontology", "", "disease ontology YAML path")
	cmd.Flags().BoolVar(&linkAsCode, "code", false, "treat the argument as a KCD code")
	cmd.Flags().Float64Var(&linkThreshold, "threshold", 0, "fuzzy similarity threshold override")

	return cmd
}

func runLink(cmd *cobra.Command, mention string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	cfg := cliCtx.Config
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}

	path := linkOntology
	if path == "" {
		path = cfg.Ontology.Path
	}
	threshold := cfg.Ontology.FuzzyThreshold
	if linkThreshold > 0 {
		threshold = linkThreshold
	}

	linker, err := entitylink.NewLinkerFromFile(path, threshold, cliCtx.Logger)
	if err != nil {
		return err
	}

	result := linker.Link(mention)
	if linkAsCode {
		result = linker.LinkCode(mention)
	}

	if strings.EqualFold(cliCtx.OutputFormat, "json") {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	if !result.Linked() {
		fmt.Fprintf(out, "no match for %q (ontology %s, %d entities)\n",
			mention, linker.Version(), linker.Size())
		return nil
	}

	fmt.Fprintf(out, "%s → %s (%s)\n", result.Mention, result.Entity.Name, result.Entity.ID)
	fmt.Fprintf(out, "  method %s, score %.2f, matched %q\n",
		result.Method, result.Score, result.MatchedName)
	if len(result.Entity.KCDCodes) > 0 {
		fmt.Fprintf(out, "  kcd: %s\n", strings.Join(result.Entity.KCDCodes, ", "))
	}
	if len(result.Entity.Aliases) > 0 {
		fmt.Fprintf(out, "  aliases: %s\n", strings.Join(result.Entity.Aliases, ", "))
	}

	return nil
}
