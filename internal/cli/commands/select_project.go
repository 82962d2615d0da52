package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/cli/config"
	"github.com/ivalora-gadget/console/internal/cli/projectselect"
	"github.com/ivalora-gadget/console/internal/cli/userconfig"
)

// NewSelectProjectCmd creates the select-project command
func NewSelectProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-project [url-or-alias]",
		Short: "Select the project to use for commands",
		Long: `Select the project to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ ivalora select-project                            # Interactive selection
  $ ivalora select-project https://abcd.supabase.co   # Select by URL
  $ ivalora select-project production                 # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectProject(cmd, urlOrAlias)
		},
	}

	return cmd
}

func runSelectProject(cmd *cobra.Command, urlOrAlias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'ivalora init' to create a configuration file", err)
	}

	var project *config.Project

	if urlOrAlias != "" {
		project, err = projectselect.GetProjectByURLOrAlias(cfg, urlOrAlias)
	} else {
		project, err = projectselect.Prompt(cfg)
	}
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedProject(project.URL); err != nil {
		return fmt.Errorf("failed to save selected project: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Selected project: %s (%s)\n", project.Alias, project.URL)
	return nil
}
