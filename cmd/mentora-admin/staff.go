package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/mentora/internal/audit"
	"github.com/p-n-ai/mentora/internal/auth"
)

const passwordEnv = "MENTORA_STAFF_PASSWORD"

var createStaffCmd = &cobra.Command{
	Use:   "create-staff",
	Short: "Create a staff account that can use the duplicate tools",
	Long: `Create a staff account.

The password is read from --password or, if unset, from ` + passwordEnv + `.

Examples:
  MENTORA_STAFF_PASSWORD=... mentora-admin create-staff --email ops@example.com --name "Ops"
  mentora-admin create-staff --email lead@example.com --role admin --password ...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		role, _ := cmd.Flags().GetString("role")
		password, err := staffPassword(cmd)
		if err != nil {
			return err
		}

		user, err := auth.NewStaffUser(email, name, password, role)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		users, err := auth.NewPostgresUserStore(db.Pool)
		if err != nil {
			return err
		}
		user, err = users.CreateUser(ctx, user)
		if err != nil {
			return fmt.Errorf("creating %s: %w", email, err)
		}

		events := audit.NewPostgresEventLogger(db.Pool)
		if err := events.LogEvent(ctx, audit.Event{
			Actor: "mentora-admin",
			Type:  audit.EventStaffCreated,
			Data:  map[string]any{"email": user.Email, "role": user.Role},
		}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Email, user.Role)
		return nil
	},
}

func init() {
	addStaffFlags(createStaffCmd)
	_ = createStaffCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(createStaffCmd)
}

func addStaffFlags(cmd *cobra.Command) {
	cmd.Flags().String("email", "", "Login email")
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("password", "", "Password (default from "+passwordEnv+")")
	cmd.Flags().String("role", auth.RoleStaff, "Role: staff, admin or viewer")
}

func staffPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if password == "" {
		return "", fmt.Errorf("password required: set --password or %s", passwordEnv)
	}
	return password, nil
}
