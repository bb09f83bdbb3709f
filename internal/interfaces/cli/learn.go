package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nuriwon/yakgwan/internal/application/ingest"
	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/database/redis"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/internal/intelligence/common"
	"github.com/nuriwon/yakgwan/internal/intelligence/entitylink"
	"github.com/nuriwon/yakgwan/internal/intelligence/extractor"
	"github.com/nuriwon/yakgwan/internal/intelligence/learning"
	"github.com/nuriwon/yakgwan/internal/intelligence/structparser"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

var (
	learnProductID string
	learnTitle     string
	learnBackend   string
	learnOntology  string
	learnAPIKey    string
	learnModel     string
)

// NewLearnCmd creates the learn command: run the full learning pipeline on
// a local policy text file, with caches held in process memory.
func NewLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn <file>",
		Short: "Learn a policy document from a local text file",
		Long: `Run the complete learning pipeline offline: parse the legal structure,
extract critical amounts/periods/KCD codes, link disease entities against
the ontology, and select a learning strategy.  Caches live in process
memory, so every run starts cold and the first document always takes the
FULL tier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLearn(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&learnProductID, "product-id", "", "insurance product identifier")
	cmd.Flags().StringVar(&learnTitle, "title", "", "document title (default: file name)")
	cmd.Flags().StringVar(&learnBackend, "backend", "noop", "extraction backend (noop, openai)")
	cmd.Flags().StringVar(&learnOntology, "ontology", "", "disease ontology YAML path")
	cmd.Flags().StringVar(&learnAPIKey, "api-key", "", "API key for the openai backend (or OPENAI_API_KEY)")
	cmd.Flags().StringVar(&learnModel, "model", "", "model name for the openai backend")

	return cmd
}

func runLearn(cmd *cobra.Command, path string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read document file")
	}

	title := learnTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	doc := policy.NewDocument(learnProductID, title, string(raw))

	svc, err := buildOfflineService(cliCtx)
	if err != nil {
		return err
	}

	result, err := svc.Learn(cmd.Context(), doc)
	if err != nil {
		return err
	}

	if strings.EqualFold(cliCtx.OutputFormat, "json") {
		return printJSON(cmd, result)
	}
	printLearnSummary(cmd, result)
	return nil
}

// buildOfflineService wires the pipeline over an in-memory cache.  Config
// file settings are honored when present; flags win over config.
func buildOfflineService(cliCtx *CLIContext) (*ingest.Service, error) {
	cfg := cliCtx.Config
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}

	extCfg := cfg.Extraction
	if learnBackend != "" {
		extCfg.Backend = learnBackend
	}
	if learnAPIKey != "" {
		extCfg.APIKey = learnAPIKey
	}
	if extCfg.APIKey == "" {
		extCfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if learnModel != "" {
		extCfg.Model = learnModel
	}
	if extCfg.Backend == "openai" && extCfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeValidation,
			"openai backend requires --api-key or OPENAI_API_KEY")
	}

	ext, err := common.NewExtractor(extCfg, cliCtx.Logger)
	if err != nil {
		return nil, err
	}

	linker, err := buildLinker(cliCtx, cfg)
	if err != nil {
		return nil, err
	}

	cache := redis.NewMemoryCache()
	templates := learning.NewTemplateStore(cache, cfg.Learning.TemplateTTL, cliCtx.Logger)
	versions := learning.NewVersionStore(cache, cfg.Learning.ChunkTTL)
	chunks := learning.NewChunkStore(cache, cfg.Learning.ChunkTTL, cfg.Learning.LocalCacheTTL, cliCtx.Logger)
	selector := learning.NewSelector(templates, versions, chunks,
		cfg.Learning.TemplateSimilarityThreshold, cfg.Learning.IncrementalSimilarityThreshold,
		cliCtx.Logger)
	engine := learning.NewEngine(selector, chunks, versions, templates, ext, nil, cliCtx.Logger)

	return ingest.NewService(structparser.New(), extractor.New(), linker,
		engine, nil, nil, nil, cliCtx.Logger), nil
}

// buildLinker loads the ontology from the flag or config path.  A missing
// file degrades to an empty ontology so the structural stages still run.
func buildLinker(cliCtx *CLIContext, cfg *config.Config) (*entitylink.Linker, error) {
	path := learnOntology
	if path == "" {
		path = cfg.Ontology.Path
	}

	if _, err := os.Stat(path); err != nil {
		cliCtx.Logger.Warn("ontology file not found, entity linking disabled",
			logging.String("path", path))
		empty := &policy.Ontology{Version: "empty"}
		return entitylink.NewLinker(empty, cfg.Ontology.FuzzyThreshold, cliCtx.Logger), nil
	}

	return entitylink.NewLinkerFromFile(path, cfg.Ontology.FuzzyThreshold, cliCtx.Logger)
}

func printLearnSummary(cmd *cobra.Command, result ingest.Result) {
	out := cmd.OutOrStdout()
	d := result.Decision

	fmt.Fprintf(out, "Document : %s (%s)\n", result.Document.Title, result.Document.ID)
	fmt.Fprintf(out, "Strategy : %s", d.Strategy)
	if d.Fallback {
		fmt.Fprint(out, " (after fallback)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Chunks   : %d total, %d reused (saving %.0f%%)\n",
		d.ChunksTotal, d.ChunksReused, d.CostSaving*100)
	fmt.Fprintf(out, "Duration : %s\n", d.Duration)

	fmt.Fprintf(out, "\nStructure: %d article(s)\n", len(result.Parsed.Articles))
	for _, art := range result.Parsed.Articles {
		fmt.Fprintf(out, "  %s %s — %d paragraph(s)\n", art.Label(), art.Title, len(art.Paragraphs))
	}
	for _, w := range result.Parsed.Warnings {
		fmt.Fprintf(out, "  warning: %s (%s)\n", w.Message, w.Code)
	}

	fmt.Fprintf(out, "\nFacts: %d amount(s), %d period(s), %d KCD code(s)\n",
		len(result.Facts.Amounts), len(result.Facts.Periods), len(result.Facts.KCDCodes))
	for _, a := range result.Facts.Amounts {
		fmt.Fprintf(out, "  amount  %12d원  (%q)\n", a.Value, a.Raw)
	}
	for _, p := range result.Facts.Periods {
		fmt.Fprintf(out, "  period  %6d day(s)  (%q)\n", p.Days, p.Raw)
	}
	for _, k := range result.Facts.KCDCodes {
		fmt.Fprintf(out, "  kcd     %s\n", k.Raw)
	}

	if len(result.Links) > 0 {
		fmt.Fprintf(out, "\nEntity links: %d\n", len(result.Links))
		for _, l := range result.Links {
			if !l.Linked() {
				fmt.Fprintf(out, "  %-12s → (unresolved)\n", l.Mention)
				continue
			}
			fmt.Fprintf(out, "  %-12s → %s [%s, score %.2f]\n",
				l.Mention, l.Entity.Name, l.Method, l.Score)
		}
	}

	if len(result.Relations) > 0 {
		fmt.Fprintf(out, "\nRelations: %d\n", len(result.Relations))
		for _, r := range result.Relations {
			fmt.Fprintf(out, "  (%s, %s, %s)\n", r.Subject, r.Predicate, r.Object)
		}
	}
}
