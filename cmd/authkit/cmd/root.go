package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "dev" // Set by build
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "authkit",
	Short: "authkit - session and sign-in client for the ClearPath portal",
	Long: `authkit manages the local sign-in session for the ClearPath
immigration-services portal: password and Google sign-in, registration,
session restoration across restarts, and sign-out.

Session state is persisted locally (LevelDB by default) and expires
seven days after the last sign-in.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "authkit.yaml", "Path to configuration file")
}
