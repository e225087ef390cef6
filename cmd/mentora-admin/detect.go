package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/mentora/internal/audit"
	"github.com/p-n-ai/mentora/internal/content"
	"github.com/p-n-ai/mentora/internal/dedup"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report groups of near-duplicate questions",
	Long: `Scan active questions for near-duplicates and print the groups as JSON.
Nothing is deleted.

Examples:
  # Everything, default threshold
  mentora-admin detect

  # Grade 5 only, stricter threshold, as a spreadsheet
  mentora-admin detect --class-level 5 --threshold 0.9 --output report.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := detectRequest(cmd)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := content.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		svc := dedup.NewService(dedup.ServiceConfig{
			Store:            store,
			Events:           audit.NopEventLogger{},
			DefaultThreshold: cfg.Dedup.DefaultThreshold,
		})

		report, err := svc.Detect(ctx, req, func(p dedup.Progress) {
			slog.Debug("detection progress", "stage", p.Stage, "percent", p.Percent)
		})
		if err != nil {
			return err
		}

		if output == "" {
			return writeReportJSON(cmd.OutOrStdout(), report)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		if err := dedup.WriteWorkbook(f, report); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d groups, %d duplicates written to %s\n",
			report.TotalGroups, report.TotalDuplicates, output)
		return nil
	},
}

func init() {
	addDetectFlags(detectCmd)
	rootCmd.AddCommand(detectCmd)
}

func addDetectFlags(cmd *cobra.Command) {
	cmd.Flags().Int("class-level", 0, "Only compare questions of this class level")
	cmd.Flags().String("subject", "", "Only compare questions of this subject id")
	cmd.Flags().Float64("threshold", 0, "Similarity threshold in (0,1] (default from MENTORA_DEDUP_DEFAULT_THRESHOLD)")
	cmd.Flags().StringP("output", "o", "", "Write an .xlsx workbook instead of JSON")
}

// detectRequest builds a request from the flags that were set.
func detectRequest(cmd *cobra.Command) (dedup.DetectRequest, error) {
	var req dedup.DetectRequest
	flags := cmd.Flags()

	if flags.Changed("class-level") {
		level, _ := flags.GetInt("class-level")
		req.Filter.ClassLevel = &level
	}
	req.Filter.SubjectID, _ = flags.GetString("subject")
	if err := dedup.ValidateFilter(req.Filter); err != nil {
		return req, err
	}
	if flags.Changed("threshold") {
		th, _ := flags.GetFloat64("threshold")
		if err := dedup.ValidateThreshold(th); err != nil {
			return req, err
		}
		req.Threshold = &th
	}
	return req, nil
}

func writeReportJSON(w io.Writer, report dedup.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
