package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/class-schedule-api/internal/app"
	"github.com/noah-isme/class-schedule-api/internal/service"
)

var (
	queryDate   string
	queryBudget int
	queryPlain  bool

	exportFormat string
	exportOutput string
)

var queryCmd = &cobra.Command{
	Use:   "query <teacher>",
	Short: "Show the classes of a teacher around a date",
	Long: `Finds the classes whose teacher matches the given name fragment within the
lookup window around --date (today by default).

Output is split into pages of at most --budget characters, separated by a line
of dashes. --plain prints one line per class instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var exportCmd = &cobra.Command{
	Use:   "export <teacher>",
	Short: "Export the classes of a teacher to CSV or PDF",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

func init() {
	queryCmd.Flags().StringVar(&queryDate, "date", "", "Reference date, YYYY-MM-DD")
	queryCmd.Flags().IntVar(&queryBudget, "budget", 0, "Page size in characters (0 uses the configured budget)")
	queryCmd.Flags().BoolVar(&queryPlain, "plain", false, "Print one line per class")

	exportCmd.Flags().StringVar(&queryDate, "date", "", "Reference date, YYYY-MM-DD")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Export format: csv or pdf")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (defaults to the generated name)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	at, err := referenceDate(queryDate, time.Now())
	if err != nil {
		return err
	}
	teacher := strings.Join(args, " ")
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		result, err := a.Schedule.Query(ctx, teacher, at, queryBudget)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if queryPlain {
			for _, record := range result.Records {
				fmt.Fprint(out, service.RenderPlain(record.ScheduleRecord))
			}
			return nil
		}
		for i, page := range result.Pages {
			if i > 0 {
				fmt.Fprintln(out, strings.Repeat("-", 40))
			}
			fmt.Fprint(out, page)
		}
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	at, err := referenceDate(queryDate, time.Now())
	if err != nil {
		return err
	}
	teacher := strings.Join(args, " ")
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		result, err := a.Schedule.Export(ctx, teacher, at, exportFormat)
		if err != nil {
			return err
		}
		path := exportOutput
		if path == "" {
			path = result.Filename
		}
		if err := os.WriteFile(path, result.Body, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d classes written to %s\n", result.Records, path)
		return nil
	})
}

// referenceDate parses a YYYY-MM-DD flag, keeping the time of day of now.
func referenceDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", raw)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), 0, now.Location()), nil
}
