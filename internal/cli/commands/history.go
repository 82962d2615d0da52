package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/cli/userconfig"
	"github.com/ivalora-gadget/console/internal/journal"
	"github.com/ivalora-gadget/console/internal/logger"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sign-in, registration and password activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userconfig.JournalPath()
			if err != nil {
				return err
			}

			activity, err := journal.Open(path, logger.Component("cli"))
			if err != nil {
				return err
			}
			defer activity.Close()

			entries, err := activity.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No activity recorded yet")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tEMAIL\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Email, e.Detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", journal.DefaultLimit, "Maximum entries to show")

	return cmd
}
