// File: internal/config/config.go
// Brief: CLI options, flag binding, and derived paths.

// Package config defines the flag plumbing and runtime options shared
// by devup's commands, translating Cobra/Viper flag values into a
// strongly typed struct the pipeline consumes.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
)

const (
	defaultConfigFile   = "setup_config.yaml"
	defaultStateDirName = ".devup"
	progressFileName    = "setup_progress.json"
)

// Options holds all CLI configuration used by the provisioning run.
type Options struct {
	ConfigFile      string
	StateDir        string
	Force           bool
	ContinueOnError bool
	Yes             bool

	ProgressFile string
}

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		ConfigFile: defaultConfigFile,
	}
}

// BindFlags attaches run flags to an arbitrary FlagSet and returns the
// flag names for further customization.
func (o *Options) BindFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the setup configuration file")
	names = append(names, "config")
	fs.StringVar(&o.StateDir, "state-dir", "", "Directory holding the progress file (default ~/"+defaultStateDirName+")")
	names = append(names, "state-dir")
	fs.BoolVar(&o.Force, "force", false, "Re-run stages even if they already completed")
	names = append(names, "force")
	fs.BoolVar(&o.ContinueOnError, "continue-on-error", false, "Keep executing later stages after a stage fails")
	names = append(names, "continue-on-error")
	fs.BoolVarP(&o.Yes, "yes", "y", false, "Skip the confirmation prompt")
	names = append(names, "yes")
	return names
}

// Validate expands the state directory and derives the progress file
// path.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.ConfigFile) == "" {
		return fmt.Errorf("--config cannot be empty")
	}
	dir := strings.TrimSpace(o.StateDir)
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, defaultStateDirName)
	} else {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return fmt.Errorf("expand --state-dir %q: %w", o.StateDir, err)
		}
		dir = expanded
	}
	o.StateDir = dir
	o.ProgressFile = filepath.Join(dir, progressFileName)
	return nil
}
