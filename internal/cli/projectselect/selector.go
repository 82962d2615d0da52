package projectselect

import (
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/ivalora-gadget/console/internal/cli/config"
	"github.com/ivalora-gadget/console/internal/cli/userconfig"
)

// Prompt asks the user to pick one of the configured projects. Tests swap it
// out since promptui needs a terminal.
var Prompt = PromptProjectSelection

// ResolveProject determines which project to use based on the following priority:
// 1. If projectAlias flag is provided, use that project
// 2. If user has a selected project in their local config, use that
// 3. If only one project in ivalora.yaml, use that
// 4. Otherwise, prompt user to select a project interactively
func ResolveProject(projectConfig *config.Config, projectAlias string, warn io.Writer) (*config.Project, error) {
	// Priority 1: Use project alias if provided
	if projectAlias != "" {
		return projectConfig.GetProjectByAlias(projectAlias)
	}

	// Priority 2: Use selected project from user config
	selectedURL, err := userconfig.GetSelectedProject()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		project, err := projectConfig.GetProjectByURL(selectedURL)
		if err == nil {
			return project, nil
		}
		// Selected project no longer exists in ivalora.yaml, clear it and continue
		_ = userconfig.SetSelectedProject("")
	}

	var project *config.Project
	switch len(projectConfig.Projects) {
	case 0:
		return nil, config.ErrNoProjects
	case 1:
		// Priority 3: If only one project, use it automatically
		project = &projectConfig.Projects[0]
	default:
		// Priority 4: Prompt user to select a project
		project, err = Prompt(projectConfig)
		if err != nil {
			return nil, err
		}
	}

	if err := userconfig.SetSelectedProject(project.URL); err != nil {
		// Don't fail if we can't save, just continue
		fmt.Fprintf(warn, "Warning: failed to save selected project: %v\n", err)
	}

	return project, nil
}

// PromptProjectSelection shows an interactive prompt for the user to select a project
func PromptProjectSelection(projectConfig *config.Config) (*config.Project, error) {
	if len(projectConfig.Projects) == 0 {
		return nil, config.ErrNoProjects
	}

	type projectOption struct {
		Label   string
		Project *config.Project
	}

	options := make([]projectOption, len(projectConfig.Projects))
	for i := range projectConfig.Projects {
		project := &projectConfig.Projects[i]
		options[i] = projectOption{
			Label:   fmt.Sprintf("%s (%s)", project.Alias, project.URL),
			Project: project,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a project",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("project selection cancelled: %w", err)
	}

	return options[index].Project, nil
}

// GetProjectByURLOrAlias finds a project by backend URL or alias
func GetProjectByURLOrAlias(cfg *config.Config, urlOrAlias string) (*config.Project, error) {
	if project, err := cfg.GetProjectByURL(urlOrAlias); err == nil {
		return project, nil
	}
	if project, err := cfg.GetProjectByAlias(urlOrAlias); err == nil {
		return project, nil
	}
	return nil, fmt.Errorf("project with url or alias '%s' not found", urlOrAlias)
}
