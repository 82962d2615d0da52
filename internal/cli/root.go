package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/cli/commands"
	"github.com/ivalora-gadget/console/internal/logger"
)

var version = "dev" // Will be set during build

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "ivalora",
	Short: "Ivalora - Gadget POS admin console",
	Long: `Ivalora CLI - Sign in to the Ivalora Gadget POS admin console from a terminal.

Accounts are held by the hosted backend; new admin accounts stay pending
until an administrator approves them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.InitWithWriter(os.Stderr, logLevel, "console")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ivalora version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectProjectCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewForgotPasswordCmd())
	rootCmd.AddCommand(commands.NewResetPasswordCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewWatchCmd())
	rootCmd.AddCommand(commands.NewHistoryCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
