package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amaumene/watchtrack/internal/app"
	"github.com/amaumene/watchtrack/internal/config"
	"github.com/amaumene/watchtrack/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the average rating and the number of records per status",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()
	tools, cleanup, err := app.InitializeTools(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	avg, err := tools.Records.AverageRating(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute average rating: %w", err)
	}
	counts, err := tools.Records.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}

	out := cmd.OutOrStdout()
	if avg == nil {
		fmt.Fprintln(out, "Average rating: n/a")
	} else {
		fmt.Fprintf(out, "Average rating: %.2f\n", *avg)
	}

	var total int64
	for _, s := range models.Statuses {
		fmt.Fprintf(out, "%-14s %s\n", string(s)+":", humanize.Comma(counts[s]))
		total += counts[s]
	}
	fmt.Fprintf(out, "%-14s %s\n", "Total:", humanize.Comma(total))
	return nil
}
