package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/cli/config"
)

type initOptions struct {
	anonKey string
	siteURL string
	alias   string
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <project-url>",
		Short: "Add a backend project to ./ivalora.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.anonKey, "anon-key", "", "Public anon key of the project (will prompt if not provided)")
	cmd.Flags().StringVar(&opts.siteURL, "site-url", "", "Public origin verification and reset links open")
	cmd.Flags().StringVar(&opts.alias, "alias", "", "Project alias (defaults to production, then project-N)")

	return cmd
}

func runInit(cmd *cobra.Command, projectURL string, opts *initOptions) error {
	out := cmd.OutOrStdout()
	projectURL = strings.TrimRight(projectURL, "/")

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{Projects: []config.Project{}}
		isNewConfig = true
	}

	if _, err := cfg.GetProjectByURL(projectURL); err == nil {
		fmt.Fprintf(out, "Project %s already exists in %s\n", projectURL, config.ConfigFileName)
		return nil
	}

	if err := promptValue(&opts.anonKey, "Anon key", "--anon-key flag"); err != nil {
		return err
	}

	alias := opts.alias
	if alias == "" {
		if len(cfg.Projects) == 0 {
			alias = "production"
		} else {
			alias = fmt.Sprintf("project-%d", len(cfg.Projects)+1)
		}
	}
	if _, err := cfg.GetProjectByAlias(alias); err == nil {
		return fmt.Errorf("alias %q is already used in %s", alias, config.ConfigFileName)
	}

	project := config.Project{
		Alias:   alias,
		URL:     projectURL,
		AnonKey: opts.anonKey,
		SiteURL: strings.TrimRight(opts.siteURL, "/"),
	}
	if err := project.Validate(); err != nil {
		return err
	}

	cfg.Projects = append(cfg.Projects, project)
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with project %s (%s)\n", config.ConfigFileName, projectURL, alias)
	} else {
		fmt.Fprintf(out, "✓ Added project %s (%s) to ./%s\n", projectURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'ivalora register' to create the first admin account")
	fmt.Fprintln(out, "  2. Run 'ivalora login' to sign in")

	return nil
}
