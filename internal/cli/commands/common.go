package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ivalora-gadget/console/internal/authflow"
	"github.com/ivalora-gadget/console/internal/cli/config"
	"github.com/ivalora-gadget/console/internal/cli/projectselect"
	"github.com/ivalora-gadget/console/internal/cli/userconfig"
	"github.com/ivalora-gadget/console/internal/journal"
	"github.com/ivalora-gadget/console/internal/logger"
	"github.com/ivalora-gadget/console/internal/supabase"
)

// storeFor picks where sessions survive between invocations. Tests replace
// it with an in-memory store.
var storeFor = func(project *config.Project) supabase.SessionStore {
	return supabase.NewKeyringStore(project.URL)
}

// runtime is everything a command needs to talk to one project
type runtime struct {
	project *config.Project
	client  *supabase.Client
	journal *journal.Journal
	flow    *authflow.Service
	logger  zerolog.Logger
}

// getSelectedProject loads the config and returns the selected project.
// This is common logic used by most commands.
func getSelectedProject(cmd *cobra.Command, projectAlias string) (*config.Project, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'ivalora init' to create a configuration file", err)
	}

	project, err := projectselect.ResolveProject(cfg, projectAlias, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	if err := project.Validate(); err != nil {
		return nil, err
	}

	return project, nil
}

// openRuntime wires the backend client, the activity journal and the auth
// flows for the selected project. Callers must Close it.
func openRuntime(cmd *cobra.Command, projectAlias string) (*runtime, error) {
	project, err := getSelectedProject(cmd, projectAlias)
	if err != nil {
		return nil, err
	}

	log := logger.Component("cli")

	client := supabase.New(supabase.Config{
		URL:     project.URL,
		AnonKey: project.AnonKey,
	})
	client.SetStore(storeFor(project))
	client.SetLogger(log)

	journalPath, err := userconfig.JournalPath()
	if err != nil {
		return nil, err
	}
	activity, err := journal.Open(journalPath, log)
	if err != nil {
		return nil, err
	}

	flow := authflow.NewService(client, authflow.Config{
		SiteURL: project.LinkBase(),
		Sink:    activity,
	}, log)

	return &runtime{
		project: project,
		client:  client,
		journal: activity,
		flow:    flow,
		logger:  log,
	}, nil
}

func (r *runtime) Close() {
	if err := r.journal.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to close activity journal")
	}
}

// screenError prints the message the screen would show while keeping the
// underlying error for errors.As
type screenError struct {
	err error
}

func (e *screenError) Error() string {
	return authflow.Message(e.err)
}

func (e *screenError) Unwrap() error {
	return e.err
}

func flowError(err error) error {
	return &screenError{err: err}
}
