package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nuriwon/yakgwan/internal/infrastructure/database/postgres"
	"github.com/nuriwon/yakgwan/internal/infrastructure/database/postgres/repositories"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

var (
	statsSince    time.Duration
	statsDocument string
)

// NewStatsCmd creates the stats command: learning-decision statistics from
// the decision store.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show learning decision statistics per strategy",
		RunE:  runStats,
	}

	cmd.Flags().DurationVar(&statsSince, "since", 7*24*time.Hour, "window to aggregate over")
	cmd.Flags().StringVar(&statsDocument, "document", "", "list decisions for one document instead")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if cliCtx.Config == nil {
		return errors.New(errors.ErrCodeValidation,
			"stats requires a config file with postgres settings (use --config)")
	}

	db, err := postgres.Connect(cliCtx.Config.Postgres, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewDecisionRepository(db)
	ctx := cmd.Context()

	if statsDocument != "" {
		decisions, err := repo.ListByDocument(ctx, statsDocument)
		if err != nil {
			return err
		}
		if len(decisions) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no decisions for document %s\n", statsDocument)
			return nil
		}

		rows := make([][]string, 0, len(decisions))
		for _, d := range decisions {
			rows = append(rows, []string{
				d.DecidedAt.Format(time.RFC3339),
				string(d.Strategy),
				fmt.Sprintf("%.2f", d.Similarity),
				fmt.Sprintf("%d/%d", d.ChunksReused, d.ChunksTotal),
				fmt.Sprintf("%.0f%%", d.CostSaving*100),
				strconv.FormatBool(d.Fallback),
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(
			[]string{"DECIDED", "STRATEGY", "SIMILARITY", "CHUNKS", "SAVING", "FALLBACK"}, rows))
		return nil
	}

	stats, err := repo.StatsSince(ctx, time.Now().Add(-statsSince))
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no decisions in window")
		return nil
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			string(s.Strategy),
			strconv.FormatInt(s.Decisions, 10),
			strconv.FormatInt(s.Fallbacks, 10),
			fmt.Sprintf("%.0f%%", s.AvgCostSaving*100),
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), FormatTable(
		[]string{"STRATEGY", "DECISIONS", "FALLBACKS", "AVG SAVING"}, rows))
	return nil
}
