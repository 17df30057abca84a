package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user according to the backend",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx := cmd.Context()
	app.sessions.Init(ctx)

	u, err := app.service.RefreshProfile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s <%s>\n", u.DisplayName(), u.Email)
	fmt.Printf("Role: %s  Verified: %t  Active: %t\n", u.Role, u.EmailVerified, u.Active)
	return nil
}
