package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/mentora/internal/audit"
	"github.com/p-n-ai/mentora/internal/content"
	"github.com/p-n-ai/mentora/internal/dedup"
	"github.com/p-n-ai/mentora/internal/platform/cache"
)

var deleteGroupCmd = &cobra.Command{
	Use:   "delete-group <question-id>...",
	Short: "Delete a duplicate group, keeping its oldest question",
	Long: `Delete every listed question except the oldest one, with its answer
choices, in a single transaction. Unknown ids are ignored.

Use --dry-run to see which question would be kept and which would go.

Examples:
  # Preview
  mentora-admin delete-group --dry-run 6f1c... 9a2e... 0b7d...

  # Delete, recording the group id in the audit log
  mentora-admin delete-group --group-id 6f1c... 6f1c... 9a2e... 0b7d...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		groupID, _ := cmd.Flags().GetString("group-id")
		if groupID == "" {
			groupID = args[0]
		}

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
		svcCfg := dedup.ServiceConfig{
			Store:              store,
			Events:             audit.NewPostgresEventLogger(db.Pool),
			DefaultThreshold:   cfg.Dedup.DefaultThreshold,
			VerifyBeforeDelete: cfg.Dedup.VerifyBeforeDelete,
		}
		// Deleting must invalidate the server's cached reports.
		if cfg.HasCache() && !dryRun {
			c, err := cache.New(ctx, cfg.Cache.URL)
			if err != nil {
				slog.Warn("cache unavailable, cached reports may be stale until they expire", "error", err)
			} else {
				defer c.Close()
				svcCfg.Reports = dedup.NewReportCache(c, cfg.Dedup.ReportCacheDuration())
			}
		}
		svc := dedup.NewService(svcCfg)

		req := dedup.DeleteRequest{GroupID: groupID, QuestionIDs: args, Actor: "mentora-admin"}
		var res dedup.DeleteResult
		if dryRun {
			res, err = svc.PreviewDelete(ctx, req)
		} else {
			res, err = svc.DeleteGroup(ctx, req)
		}
		if err != nil {
			return err
		}
		return writeDeleteResult(cmd.OutOrStdout(), res, dryRun)
	},
}

func init() {
	addDeleteFlags(deleteGroupCmd)
	rootCmd.AddCommand(deleteGroupCmd)
}

func addDeleteFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Show what would be deleted without deleting")
	cmd.Flags().String("group-id", "", "Group id for the audit log (default: first id)")
}

func writeDeleteResult(w io.Writer, res dedup.DeleteResult, dryRun bool) error {
	out := struct {
		dedup.DeleteResult
		DryRun bool `json:"dry_run,omitempty"`
	}{res, dryRun}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
