package cmd

import (
	"strings"

	"mercagasto/cmd/config"
	migration "mercagasto/cmd/database/migrate"
	"mercagasto/domain"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDB()
		if err != nil {
			return err
		}
		return migration.Migrate(db)
	},
}

var loadCatalogCmd = &cobra.Command{
	Use:   "load-catalog <file>",
	Short: "Load categories and products from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services()
		if err != nil {
			return err
		}
		summary, err := svc.Catalog.LoadSeedFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printf(cmd, "catalog loaded: %d categories, %d subcategories, %d products\n",
			summary.Categories, summary.Subcategories, summary.Products)
		return nil
	},
}

var (
	processFlags sourceFlags
	retryFlags   sourceFlags
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process every receipt in the inbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		svc, err := servicesWithSource(ctx, &processFlags)
		if err != nil {
			return err
		}
		summary, err := svc.Processing.RunBatch(ctx, svc.Source)
		if err != nil {
			return err
		}
		printSummary(cmd, summary)
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Run the entries parked for retry again",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		svc, err := servicesWithSource(ctx, &retryFlags)
		if err != nil {
			return err
		}
		summary, err := svc.Processing.RetryBatch(ctx, svc.Source)
		if err != nil {
			return err
		}
		printSummary(cmd, summary)
		return nil
	},
}

var rematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Match unmatched and weak line items against the current catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services()
		if err != nil {
			return err
		}
		summary, err := svc.Receipts.Rematch(cmd.Context())
		if err != nil {
			return err
		}
		printf(cmd, "examined %d, improved %d, unchanged %d\n", summary.Examined, summary.Improved, summary.Unchanged)
		printf(cmd, "coverage of examined items: %.1f%%\n", summary.Matches.CoverageRate*100)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show matching coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services()
		if err != nil {
			return err
		}
		stats, err := svc.Receipts.GetMatchingStats(cmd.Context())
		if err != nil {
			return err
		}
		printf(cmd, "items:          %d\n", stats.TotalItems)
		printf(cmd, "categorized:    %d (%.1f%%)\n", stats.Categorized, stats.CoverageRate*100)
		printf(cmd, "uncategorized:  %d\n", stats.Uncategorized)
		printf(cmd, "bands:          auto %d, review %d, weak %d\n", stats.AutoAccepted, stats.NeedsReview, stats.Weak)
		for _, m := range stats.ByMethod {
			printf(cmd, "  %-8s %5d  avg %.2f  min %.2f  max %.2f\n", m.Method, m.Count, m.AvgConfidence, m.MinConfidence, m.MaxConfidence)
		}
		return nil
	},
}

func printSummary(cmd *cobra.Command, s domain.BatchSummary) {
	printf(cmd, "found %d: completed %d, duplicates %d, retry %d, failed %d, skipped %d\n",
		s.Found, s.Completed, s.Duplicates, s.Retry, s.Failed, s.Skipped)
	if s.Cancelled {
		printf(cmd, "batch cancelled before every message ran\n")
	}
	for _, r := range s.Results {
		if r.Outcome == domain.OutcomeRetry || r.Outcome == domain.OutcomeFailed {
			printf(cmd, "  %s %s at %s: %s\n", r.MessageID, r.Outcome, r.ErrorStage, r.Error)
		}
	}
	if len(s.Errors) > 0 {
		printf(cmd, "errors:\n  %s\n", strings.Join(s.Errors, "\n  "))
	}
}

func init() {
	processFlags.register(processCmd)
	retryFlags.register(retryCmd)
}
