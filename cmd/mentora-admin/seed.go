package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/mentora/internal/content"
)

var seedCmd = &cobra.Command{
	Use:   "seed <dir>",
	Short: "Load question banks from YAML files",
	Long: `Load every question bank under <dir> into the database.

Subjects, class levels and topics are matched by name, so re-seeding does not
duplicate them. Questions are always inserted, which makes seeding the same
bank twice a quick way to produce duplicates for detect.

Examples:
  mentora-admin seed ./banks`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := content.NewLoader(args[0])
		if err != nil {
			return err
		}
		if len(loader.Banks()) == 0 {
			return fmt.Errorf("no question banks found in %s", args[0])
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
		res, err := loader.Seed(ctx, store)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d banks: %d topics, %d questions\n",
			res.Banks, res.Topics, res.Questions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
