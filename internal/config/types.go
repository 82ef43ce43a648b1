package config

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultFileName is the manifest looked up next to the devrun binary when no
// explicit path is provided.
const DefaultFileName = "devrun.yaml"

// Config mirrors the devrun.yaml document structure. Every field is optional;
// omitted fields keep the values returned by Default.
type Config struct {
	Command  []string          `yaml:"command"`
	Workdir  string            `yaml:"workdir"`
	Env      map[string]string `yaml:"env"`
	Messages Messages          `yaml:"messages"`
	Log      LogConfig         `yaml:"log"`
	Metrics  MetricsConfig     `yaml:"metrics"`

	// Source is the absolute path of the manifest the configuration was
	// loaded from, or empty when only defaults apply.
	Source string `yaml:"-"`
}

// Messages holds the plain-text lines devrun prints on its own behalf.
type Messages struct {
	Banner   string `yaml:"banner"`
	Shutdown string `yaml:"shutdown"`
	NotFound string `yaml:"notFound"`
	Failure  string `yaml:"failure"`
}

// LogConfig controls the diagnostics logger written to stderr.
type LogConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig controls the optional Prometheus scrape endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the fixed configuration: run the package manager's dev
// script from the directory containing the devrun executable.
func Default() *Config {
	return &Config{
		Command: []string{"npm", "run", "dev"},
		Messages: Messages{
			Banner:   "Starting Terminal Portfolio Development Server...",
			Shutdown: "\nShutting down development server...",
			NotFound: "Error: npm not found. Make sure Node.js is installed.",
			Failure:  "Error starting development server: %v",
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	dup := *c
	dup.Command = append([]string(nil), c.Command...)
	if c.Env != nil {
		dup.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			dup.Env[k] = v
		}
	}
	return &dup
}

// Environ renders the configured overrides as KEY=VALUE pairs in a stable
// order. A nil result means the child inherits the parent environment as is.
func (c *Config) Environ() []string {
	if len(c.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, c.Env[k]))
	}
	return out
}

// CommandLine renders the command for display.
func (c *Config) CommandLine() string {
	return strings.Join(c.Command, " ")
}
