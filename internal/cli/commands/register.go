package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/authflow"
	"github.com/ivalora-gadget/console/internal/forms"
)

type registerOptions struct {
	customer bool
	name     string
	email    string
	password string
	confirm  string
	project  string
}

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	opts := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an admin (or customer) account",
		Long: `Create an account.

Admin accounts start pending until an existing administrator approves them.
When --password is given, it is also used as the confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.customer, "customer", false, "Register a customer account instead of an admin")
	cmd.Flags().StringVar(&opts.name, "name", "", "Full name")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set IVALORA_EMAIL)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set IVALORA_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&opts.project, "project", "", "Project alias (uses the selected project if not specified)")

	return cmd
}

func runRegister(cmd *cobra.Command, opts *registerOptions) error {
	out := cmd.OutOrStdout()

	envDefault(&opts.email, "IVALORA_EMAIL")
	envDefault(&opts.password, "IVALORA_PASSWORD")
	if opts.password != "" {
		opts.confirm = opts.password
	}

	if err := promptValue(&opts.name, "Full name", "--name flag"); err != nil {
		return err
	}
	if err := promptValue(&opts.email, "Email", "--email flag or IVALORA_EMAIL env var"); err != nil {
		return err
	}
	if err := promptPassword(out, &opts.password, "Password", "--password flag or IVALORA_PASSWORD env var"); err != nil {
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

	var result *authflow.RegistrationResult
	if opts.customer {
		result, err = rt.flow.RegisterCustomer(cmd.Context(), forms.CustomerRegistrationForm{
			FullName:        opts.name,
			Email:           opts.email,
			Password:        opts.password,
			ConfirmPassword: opts.confirm,
		})
	} else {
		result, err = rt.flow.RegisterAdmin(cmd.Context(), forms.AdminRegistrationForm{
			FullName:        opts.name,
			Email:           opts.email,
			Password:        opts.password,
			ConfirmPassword: opts.confirm,
		})
	}
	if err != nil {
		return flowError(err)
	}

	fmt.Fprintf(out, "✓ Registered %s\n", result.Email)
	if result.VerificationPending {
		fmt.Fprintln(out, "  Check your email to confirm the account before signing in.")
	}
	if !opts.customer {
		fmt.Fprintln(out, "  An administrator must approve the account before it can use the console.")
	}

	return nil
}
