package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearpath-immigration/authkit/pkg/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local session state without contacting the backend",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	phase := app.sessions.Init(cmd.Context())
	snap := app.sessions.Snapshot()

	switch phase {
	case session.PhaseRestored:
		fmt.Printf("Signed in as %s (%s)\n", snap.User.DisplayName(), snap.User.Role)
	default:
		fmt.Println("Not signed in.")
	}
	return nil
}
