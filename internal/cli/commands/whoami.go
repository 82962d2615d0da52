package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/session"
	"github.com/ivalora-gadget/console/internal/supabase"
)

// ErrAccountBlocked is returned when the stored session belongs to a
// suspended or rejected account
var ErrAccountBlocked = errors.New("account is blocked")

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account, its status and role",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd, project)
			if err != nil {
				return err
			}
			defer rt.Close()

			synchronizer := session.New(rt.client, session.WithLogger(rt.logger))
			defer synchronizer.Close()

			if err := synchronizer.Start(cmd.Context()); err != nil {
				return err
			}

			return gateView(cmd, synchronizer, synchronizer.View())
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project alias (uses the selected project if not specified)")

	return cmd
}

// gateView prints the view and applies the account-status gate to it
func gateView(cmd *cobra.Command, synchronizer *session.Synchronizer, view session.View) error {
	out := cmd.OutOrStdout()

	if !view.SignedIn() {
		fmt.Fprintln(out, "Not signed in. Run 'ivalora login' to sign in.")
		return nil
	}

	printView(out, view)

	decision := account.Decide(view.Status, "")
	switch {
	case decision.TerminateSession:
		fmt.Fprintln(out, account.BlockedNotice(view.Status))
		if err := synchronizer.Terminate(cmd.Context()); err != nil {
			return fmt.Errorf("%w: failed to revoke session: %v", ErrAccountBlocked, err)
		}
		return ErrAccountBlocked
	case decision.Redirect == account.WaitingApprovalPath:
		fmt.Fprintln(out, "Waiting for admin approval.")
	}

	return nil
}

func printView(out io.Writer, view session.View) {
	if view.User == nil {
		fmt.Fprintln(out, "Signed out")
		return
	}

	if view.User.FullName != "" {
		fmt.Fprintf(out, "User:   %s (%s)\n", view.User.FullName, view.User.Email)
	} else {
		fmt.Fprintf(out, "User:   %s\n", view.User.Email)
	}

	status := string(view.Status)
	if view.Status == account.StatusUnknown {
		status = "unknown"
	}
	fmt.Fprintf(out, "Status: %s\n", status)

	if view.IsAdmin() {
		fmt.Fprintf(out, "Role:   %s\n", view.Role)
	}
}

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	var project, schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive and print every auth change",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd, project)
			if err != nil {
				return err
			}
			defer rt.Close()

			refresher, err := supabase.NewRefresher(rt.client, schedule, rt.logger)
			if err != nil {
				return err
			}

			synchronizer := session.New(rt.client, session.WithLogger(rt.logger))
			defer synchronizer.Close()

			changes, stop := synchronizer.Changes()
			defer stop()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := synchronizer.Start(ctx); err != nil {
				return err
			}
			refresher.Start()
			defer refresher.Stop()

			out := cmd.OutOrStdout()
			printView(out, synchronizer.View())

			// The initial load already shows in the view above
			select {
			case <-changes:
			default:
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-changes:
					if !ok {
						return nil
					}
					view := synchronizer.View()
					fmt.Fprintf(out, "\n[%s]\n", time.Now().Format(time.TimeOnly))
					printView(out, view)
				}
			}
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project alias (uses the selected project if not specified)")
	cmd.Flags().StringVar(&schedule, "refresh", supabase.DefaultRefreshSchedule, "How often to check session expiry")

	return cmd
}
