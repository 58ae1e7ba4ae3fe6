package process

import (
	"errors"
	"time"
)

// Config describes the external program that evaluates input.
// Only the configured command is ever executed; input never selects what runs.
type Config struct {
	Command string            `mapstructure:"command" json:"command"`
	Args    []string          `mapstructure:"args" json:"args"`
	Env     map[string]string `mapstructure:"env" json:"env"`
	Dir     string            `mapstructure:"dir" json:"dir"`
	Timeout time.Duration     `mapstructure:"timeout" json:"timeout"`
}

// Enabled reports whether a command is configured.
func (c Config) Enabled() bool {
	return c.Command != ""
}

// Validate checks the configuration of an enabled engine.
func (c Config) Validate() error {
	if !c.Enabled() {
		return errors.New("process.command is required for the process engine")
	}
	if c.Timeout < 0 {
		return errors.New("process.timeout must not be negative")
	}
	return nil
}
