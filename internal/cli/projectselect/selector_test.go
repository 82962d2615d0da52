package projectselect

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivalora-gadget/console/internal/cli/config"
	"github.com/ivalora-gadget/console/internal/cli/userconfig"
)

func twoProjects() *config.Config {
	return &config.Config{Projects: []config.Project{
		{Alias: "production", URL: "https://prod.supabase.co", AnonKey: "a"},
		{Alias: "staging", URL: "https://staging.supabase.co", AnonKey: "b"},
	}}
}

func stubPrompt(t *testing.T, fn func(*config.Config) (*config.Project, error)) {
	t.Helper()
	original := Prompt
	Prompt = fn
	t.Cleanup(func() { Prompt = original })
}

func TestResolveProject_Alias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	project, err := ResolveProject(twoProjects(), "staging", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.supabase.co", project.URL)

	_, err = ResolveProject(twoProjects(), "missing", io.Discard)
	assert.Error(t, err)
}

func TestResolveProject_SelectedFromUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedProject("https://staging.supabase.co"))
	stubPrompt(t, func(*config.Config) (*config.Project, error) {
		t.Fatal("prompt should not run")
		return nil, nil
	})

	project, err := ResolveProject(twoProjects(), "", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "staging", project.Alias)
}

func TestResolveProject_StaleSelectionPrompts(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedProject("https://gone.supabase.co"))

	cfg := twoProjects()
	stubPrompt(t, func(c *config.Config) (*config.Project, error) {
		return &c.Projects[0], nil
	})

	project, err := ResolveProject(cfg, "", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "production", project.Alias)

	selected, err := userconfig.GetSelectedProject()
	require.NoError(t, err)
	assert.Equal(t, "https://prod.supabase.co", selected)
}

func TestResolveProject_SingleProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &config.Config{Projects: []config.Project{{Alias: "only", URL: "https://only.supabase.co"}}}
	project, err := ResolveProject(cfg, "", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "only", project.Alias)

	selected, err := userconfig.GetSelectedProject()
	require.NoError(t, err)
	assert.Equal(t, "https://only.supabase.co", selected)
}

func TestResolveProject_PromptCancelled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stubPrompt(t, func(*config.Config) (*config.Project, error) {
		return nil, errors.New("project selection cancelled: ^C")
	})

	_, err := ResolveProject(twoProjects(), "", io.Discard)
	assert.ErrorContains(t, err, "cancelled")
}

func TestResolveProject_NoProjects(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := ResolveProject(&config.Config{}, "", io.Discard)
	assert.ErrorIs(t, err, config.ErrNoProjects)
}

func TestGetProjectByURLOrAlias(t *testing.T) {
	cfg := twoProjects()

	p, err := GetProjectByURLOrAlias(cfg, "https://prod.supabase.co")
	require.NoError(t, err)
	assert.Equal(t, "production", p.Alias)

	p, err = GetProjectByURLOrAlias(cfg, "staging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.supabase.co", p.URL)

	_, err = GetProjectByURLOrAlias(cfg, "nope")
	assert.Error(t, err)
}
