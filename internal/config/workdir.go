package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigurationError reports that the working directory for the child could
// not be determined or entered. It is always fatal for a run.
type ConfigurationError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// executable is swapped in tests.
var executable = os.Executable

// ExecutableDir returns the directory containing the running devrun binary
// with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := executable()
	if err != nil {
		return "", &ConfigurationError{Op: "locate executable", Err: err}
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", &ConfigurationError{Op: "resolve executable", Path: exe, Err: err}
	}
	return filepath.Dir(resolved), nil
}

// ResolveWorkdir returns the directory the child runs in. An empty Workdir
// selects the executable directory; a relative one is joined to it.
func (c *Config) ResolveWorkdir() (string, error) {
	if filepath.IsAbs(c.Workdir) {
		return filepath.Clean(c.Workdir), nil
	}
	base, err := ExecutableDir()
	if err != nil {
		return "", err
	}
	if c.Workdir == "" {
		return base, nil
	}
	return filepath.Clean(filepath.Join(base, c.Workdir)), nil
}

// Enter makes dir the current working directory of the devrun process.
func Enter(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &ConfigurationError{Op: "enter workdir", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &ConfigurationError{Op: "enter workdir", Path: dir, Err: fmt.Errorf("not a directory")}
	}
	if err := os.Chdir(dir); err != nil {
		return &ConfigurationError{Op: "enter workdir", Path: dir, Err: err}
	}
	return nil
}
