package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var googleCmd = &cobra.Command{
	Use:   "google",
	Short: "Sign in with a Google account",
	Long: `Sign in with a Google account. A browser window opens for consent;
the account is matched or created server-side.`,
	RunE: runGoogle,
}

func init() {
	rootCmd.AddCommand(googleCmd)
}

func runGoogle(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx := cmd.Context()
	app.sessions.Init(ctx)

	result, err := app.service.LoginWithGoogle(ctx)
	if err != nil {
		return err
	}

	if result.IsNewUser {
		fmt.Printf("Welcome, %s. Your account has been created.\n", result.User.DisplayName())
	} else {
		fmt.Printf("Signed in as %s (%s)\n", result.User.DisplayName(), result.User.Role)
	}
	return nil
}
