package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/authflow"
	"github.com/ivalora-gadget/console/internal/forms"
	"github.com/ivalora-gadget/console/internal/supabase"
)

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd() *cobra.Command {
	var email, project string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password recovery link",
		RunE: func(cmd *cobra.Command, args []string) error {
			envDefault(&email, "IVALORA_EMAIL")
			if err := promptValue(&email, "Email", "--email flag or IVALORA_EMAIL env var"); err != nil {
				return err
			}

			rt, err := openRuntime(cmd, project)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.flow.ForgotPassword(cmd.Context(), forms.ForgotPasswordForm{Email: email}); err != nil {
				return flowError(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Link reset password telah dikirim ke email Anda.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set IVALORA_EMAIL)")
	cmd.Flags().StringVar(&project, "project", "", "Project alias (uses the selected project if not specified)")

	return cmd
}

type resetOptions struct {
	link     string
	password string
	confirm  string
	project  string
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd() *cobra.Command {
	opts := &resetOptions{}

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password from a recovery link",
		Long: `Set a new password from a recovery link.

Paste the full link from the recovery email; the session it carries is used
to update the password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPassword(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.link, "link", "", "Recovery link from the email")
	cmd.Flags().StringVar(&opts.password, "password", "", "New password (will prompt if not provided)")
	cmd.Flags().StringVar(&opts.project, "project", "", "Project alias (uses the selected project if not specified)")

	return cmd
}

func runResetPassword(cmd *cobra.Command, opts *resetOptions) error {
	out := cmd.OutOrStdout()

	if opts.password != "" {
		opts.confirm = opts.password
	}
	if err := promptValue(&opts.link, "Recovery link", "--link flag"); err != nil {
		return err
	}
	if err := promptPassword(out, &opts.password, "New password", "--password flag"); err != nil {
		return err
	}
	if err := promptPassword(out, &opts.confirm, "Confirm password", "--password flag"); err != nil {
		return err
	}

	rt, err := openRuntime(cmd, opts.project)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.client.SessionFromURL(opts.link); err != nil {
		if errors.Is(err, supabase.ErrNoTokenInLink) {
			return flowError(authflow.ErrRecoveryRequired)
		}
		return flowError(err)
	}

	err = rt.flow.ResetPassword(cmd.Context(), forms.ResetPasswordForm{
		Password: opts.password,
		Confirm:  opts.confirm,
	})
	if err != nil {
		return flowError(err)
	}

	fmt.Fprintln(out, "✓ Password diperbarui")
	fmt.Fprintf(out, "  Run 'ivalora login' to sign in (%s)\n", account.LoginPath)
	return nil
}
