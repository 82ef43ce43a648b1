package config

import (
	"errors"
	"fmt"
	"strings"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate ensures the configuration describes a runnable command.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Command) == 0 {
		return errors.New("command: must contain at least one argument")
	}
	if strings.TrimSpace(c.Command[0]) == "" {
		return errors.New("command[0]: executable must not be empty")
	}
	for key := range c.Env {
		if key == "" || strings.ContainsAny(key, "=\x00") {
			return fmt.Errorf("env: invalid variable name %q", key)
		}
	}
	if c.Messages.Failure != "" && !strings.Contains(c.Messages.Failure, "%v") {
		return fmt.Errorf("messages.failure: %q must contain a %%v verb", c.Messages.Failure)
	}
	if _, ok := validLogLevels[strings.ToLower(c.Log.Level)]; !ok {
		return fmt.Errorf("log.level: unsupported level %q", c.Log.Level)
	}
	return nil
}
