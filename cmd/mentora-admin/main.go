// Command mentora-admin runs content maintenance tasks against the Mentora
// database: schema migration, question bank seeding, duplicate reports and
// staff account creation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/mentora/internal/platform/config"
	"github.com/p-n-ai/mentora/internal/platform/database"
	"github.com/p-n-ai/mentora/internal/platform/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "mentora-admin",
	Short:         "Mentora content administration",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		level, _ := cmd.Flags().GetString("log-level")
		if level != "" {
			loaded.Log.Level = level
		}
		loaded.Log.Format = "text"
		logging.Setup(cmd.ErrOrStderr(), loaded.Log)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Override MENTORA_LOG_LEVEL (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDB connects to the configured database. Callers close it.
func openDB(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}
