package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/forms"
)

type loginOptions struct {
	email    string
	password string
	from     string
	project  string
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set IVALORA_EMAIL)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set IVALORA_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Destination that required sign-in")
	cmd.Flags().StringVar(&opts.project, "project", "", "Project alias (uses the selected project if not specified)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	out := cmd.OutOrStdout()

	// Check for environment variables (useful for CI/CD)
	envDefault(&opts.email, "IVALORA_EMAIL")
	envDefault(&opts.password, "IVALORA_PASSWORD")

	if err := promptValue(&opts.email, "Email", "--email flag or IVALORA_EMAIL env var"); err != nil {
		return err
	}
	if err := promptPassword(out, &opts.password, "Password", "--password flag or IVALORA_PASSWORD env var"); err != nil {
		return err
	}

	rt, err := openRuntime(cmd, opts.project)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Fprintf(out, "Signing in to %s (%s)...\n", rt.project.Alias, rt.project.URL)

	result, err := rt.flow.Login(cmd.Context(), forms.LoginForm{
		Email:    opts.email,
		Password: opts.password,
	}, opts.from)
	if err != nil {
		return flowError(err)
	}

	user := result.Session.User
	if result.Status == account.StatusPending {
		fmt.Fprintln(out, "✓ Signed in, waiting for admin approval")
	} else {
		fmt.Fprintln(out, "✓ Login successful!")
	}
	if user.FullName != "" {
		fmt.Fprintf(out, "  User: %s (%s)\n", user.FullName, user.Email)
	} else {
		fmt.Fprintf(out, "  User: %s\n", user.Email)
	}
	if result.Status.Known() {
		fmt.Fprintf(out, "  Status: %s\n", result.Status)
	}
	fmt.Fprintf(out, "  Next: %s\n", result.Redirect)

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd, project)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.flow.Logout(cmd.Context()); err != nil {
				return flowError(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project alias (uses the selected project if not specified)")

	return cmd
}
