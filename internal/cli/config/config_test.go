package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := &Config{Projects: []Project{
		{Alias: "production", URL: "https://abcd.supabase.co", AnonKey: "anon", SiteURL: "https://pos.ivalora.id"},
		{Alias: "staging", URL: "https://efgh.supabase.co", AnonKey: "anon-2"},
	}}
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("projects: [unterminated"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, Save(filepath.Join(root, ConfigFileName), &Config{}))

	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(originalDir)

	found, err := FindConfigFile()
	require.NoError(t, err)

	// Resolve symlinks (macOS temp dirs live under /private)
	want, _ := filepath.EvalSymlinks(filepath.Join(root, ConfigFileName))
	got, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, want, got)
}

func TestLookups(t *testing.T) {
	cfg := &Config{Projects: []Project{
		{Alias: "production", URL: "https://abcd.supabase.co"},
	}}

	p, err := cfg.GetProjectByAlias("production")
	require.NoError(t, err)
	assert.Equal(t, "https://abcd.supabase.co", p.URL)

	p, err = cfg.GetProjectByURL("https://abcd.supabase.co/")
	require.NoError(t, err)
	assert.Equal(t, "production", p.Alias)

	_, err = cfg.GetProjectByAlias("staging")
	assert.Error(t, err)

	_, err = (&Config{}).GetDefaultProject()
	assert.ErrorIs(t, err, ErrNoProjects)
}

func TestProjectValidate(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		wantErr bool
	}{
		{name: "valid", project: Project{Alias: "p", URL: "https://abcd.supabase.co", AnonKey: "k"}},
		{name: "no url", project: Project{Alias: "p", AnonKey: "k"}, wantErr: true},
		{name: "relative url", project: Project{Alias: "p", URL: "abcd.supabase.co", AnonKey: "k"}, wantErr: true},
		{name: "no key", project: Project{Alias: "p", URL: "https://abcd.supabase.co"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLinkBase(t *testing.T) {
	p := Project{URL: "https://abcd.supabase.co/"}
	assert.Equal(t, "https://abcd.supabase.co", p.LinkBase())

	p.SiteURL = "https://pos.ivalora.id/"
	assert.Equal(t, "https://pos.ivalora.id", p.LinkBase())
}
