package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/class-schedule-api/internal/app"
	"github.com/noah-isme/class-schedule-api/internal/service"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest schedule workbooks into the store",
	Long: `Parses each workbook and appends its new classes to the store.

Files are identified by their base name. A file that was already ingested is
reported and skipped; the remaining files are still processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		failed := 0
		for _, path := range args {
			name := filepath.Base(path)
			if !service.HasAllowedExtension(name, a.Config.Ingest.AllowedExtensions) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, appErrors.ErrUnsupportedFormat.Message)
				failed++
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
				failed++
				continue
			}
			result, err := a.Schedule.Ingest(ctx, name, data)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, describe(err))
				failed++
				continue
			}
			printIngestResult(cmd, result)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(args))
		}
		return nil
	})
}

func printIngestResult(cmd *cobra.Command, result *service.IngestResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d new, %d duplicates, %d rows skipped (store: %d records from %d documents)\n",
		result.DocumentID, result.NewRecords, result.Duplicates, result.RowsSkipped, result.TotalRecords, result.TotalDocuments)
	if !verbose {
		return
	}
	for _, sheet := range result.Sheets {
		if sheet.Skipped {
			reason := sheet.Reason
			if len(sheet.Missing) > 0 {
				reason += ": " + strings.Join(sheet.Missing, ", ")
			}
			fmt.Fprintf(out, "  %s: skipped (%s)\n", sheet.Name, reason)
			continue
		}
		fmt.Fprintf(out, "  %s: %d new, %d duplicates, %d rows skipped\n", sheet.Name, sheet.Accepted, sheet.Duplicates, sheet.RowsSkipped)
	}
}
