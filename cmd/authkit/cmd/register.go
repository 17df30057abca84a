package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearpath-immigration/authkit/pkg/auth"
)

var registerInput auth.RegisterInput

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Create a new account. The account itself is created server-side
after validation; on success you are signed in immediately.`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerInput.FirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerInput.LastName, "last-name", "", "Last name")
	registerCmd.Flags().StringVarP(&registerInput.Email, "email", "e", "", "Email address")
	registerCmd.Flags().StringVar(&registerInput.Phone, "phone", "", "Phone number (optional)")
	registerCmd.Flags().BoolVar(&registerInput.TermsAccepted, "accept-terms", false, "Accept the terms of service")
	registerCmd.Flags().BoolVar(&registerInput.PrivacyAccepted, "accept-privacy", false, "Accept the privacy policy")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx := cmd.Context()
	app.sessions.Init(ctx)

	password, err := promptPassword("Choose a password: ")
	if err != nil {
		return err
	}
	registerInput.Password = password

	result, err := app.service.Register(ctx, registerInput)
	if err != nil {
		return err
	}

	fmt.Printf("Welcome, %s. Your account has been created.\n", result.User.DisplayName())
	return nil
}
