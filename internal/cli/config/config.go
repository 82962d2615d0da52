package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = "ivalora.yaml"

var ErrNoProjects = errors.New("no projects configured in ivalora.yaml")

// Project is one hosted backend this terminal can sign in to
type Project struct {
	Alias   string `yaml:"alias"`
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`
	// SiteURL is the public origin verification and recovery links open
	SiteURL string `yaml:"site_url,omitempty"`
}

// Validate checks that the project can be used to reach the backend
func (p *Project) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("project %q has no url. Please edit ivalora.yaml", p.Alias)
	}
	if u, err := url.Parse(p.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("project %q has an invalid url %q", p.Alias, p.URL)
	}
	if p.AnonKey == "" {
		return fmt.Errorf("project %q has no anon_key. Please edit ivalora.yaml", p.Alias)
	}
	return nil
}

// LinkBase returns the origin links should point to, falling back to the
// project URL
func (p *Project) LinkBase() string {
	if p.SiteURL != "" {
		return strings.TrimRight(p.SiteURL, "/")
	}
	return strings.TrimRight(p.URL, "/")
}

// Config represents the project configuration file
type Config struct {
	Projects []Project `yaml:"projects"`
}

// FindConfigFile searches for ivalora.yaml in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find ivalora.yaml or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file. The anon key is public, but the
// file is still kept private to the user.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetProjectByAlias returns a project by its alias
func (c *Config) GetProjectByAlias(alias string) (*Project, error) {
	for i := range c.Projects {
		if c.Projects[i].Alias == alias {
			return &c.Projects[i], nil
		}
	}
	return nil, fmt.Errorf("project with alias '%s' not found", alias)
}

// GetProjectByURL returns a project by its backend URL
func (c *Config) GetProjectByURL(rawURL string) (*Project, error) {
	want := strings.TrimRight(rawURL, "/")
	for i := range c.Projects {
		if strings.TrimRight(c.Projects[i].URL, "/") == want {
			return &c.Projects[i], nil
		}
	}
	return nil, fmt.Errorf("project with url '%s' not found", rawURL)
}

// GetDefaultProject returns the first project in the list
func (c *Config) GetDefaultProject() (*Project, error) {
	if len(c.Projects) == 0 {
		return nil, ErrNoProjects
	}
	return &c.Projects[0], nil
}
