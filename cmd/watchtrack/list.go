package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amaumene/watchtrack/internal/app"
	"github.com/amaumene/watchtrack/internal/config"
	"github.com/amaumene/watchtrack/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print tracked records as a table",
	Long: `Print every tracked record. Without flags records are listed in id order.

Examples:
  watchtrack list --status watched
  watchtrack list --sort-by rating --desc`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("status", "", "only show records with this status")
	listCmd.Flags().String("sort-by", "", "sort column (title, rating, last_watched_date, ...)")
	listCmd.Flags().Bool("desc", false, "sort descending")
}

func runList(cmd *cobra.Command, args []string) error {
	statusFlag, _ := cmd.Flags().GetString("status")
	sortBy, _ := cmd.Flags().GetString("sort-by")
	desc, _ := cmd.Flags().GetBool("desc")

	if statusFlag != "" && sortBy != "" {
		return fmt.Errorf("--status and --sort-by cannot be combined")
	}

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

	var recs []*models.Record
	switch {
	case statusFlag != "":
		status, ok := models.ParseStatus(statusFlag)
		if !ok {
			return fmt.Errorf("unknown status %q", statusFlag)
		}
		recs, err = tools.Records.ByStatus(ctx, status)
	case sortBy != "":
		field, ok := models.ParseSortField(sortBy)
		if !ok {
			return fmt.Errorf("unknown sort column %q", sortBy)
		}
		recs, err = tools.Records.Sorted(ctx, models.Sort{Field: field, Descending: desc})
	default:
		recs, err = tools.Records.List(ctx, 0, 0)
	}
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No records yet.")
		return nil
	}
	return printRecords(cmd.OutOrStdout(), recs)
}

func printRecords(out io.Writer, recs []*models.Record) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tRATING\tPROGRESS\tREWATCHES\tLAST WATCHED")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Title, r.Status, formatRating(r.Rating), formatProgress(r), r.RewatchCount, formatWatched(r))
	}
	return w.Flush()
}

func formatRating(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func formatProgress(r *models.Record) string {
	if r.CurrentSeason == nil && r.CurrentEpisode == nil {
		return "-"
	}
	season, episode := 0, 0
	if r.CurrentSeason != nil {
		season = *r.CurrentSeason
	}
	if r.CurrentEpisode != nil {
		episode = *r.CurrentEpisode
	}
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

func formatWatched(r *models.Record) string {
	if r.LastWatchedAt == nil {
		return "never"
	}
	return humanize.Time(*r.LastWatchedAt)
}
