// Package config handles facet.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/facet/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "facet.toml"

// DefaultMaxRebuilds bounds how many stale ranges one update may rebuild.
const DefaultMaxRebuilds = 8

// Config represents a facet.toml file.
type Config struct {
	Project Project `toml:"project"`
	VM      VM      `toml:"vm"`
	Update  Update  `toml:"update"`
	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`

	// Dir is the directory containing facet.toml (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// VM configures the append and update VMs.
type VM struct {
	StackSize int  `toml:"stack-size"`
	MaxFrames int  `toml:"max-frames"`
	Trace     bool `toml:"trace"`
}

// Update configures update passes.
type Update struct {
	AlwaysRevalidate bool `toml:"always-revalidate"`
	MaxRebuilds      int  `toml:"max-rebuilds"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Metrics configures the prometheus collectors.
type Metrics struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Default returns the configuration used when no facet.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses a facet.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a facet.toml file, then loads
// it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.VM.StackSize == 0 {
		c.VM.StackSize = vm.DefaultStackSize
	}
	if c.VM.MaxFrames == 0 {
		c.VM.MaxFrames = vm.DefaultMaxFrames
	}
	if c.Update.MaxRebuilds == 0 {
		c.Update.MaxRebuilds = DefaultMaxRebuilds
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "facet"
	}
}

func (c *Config) validate() error {
	switch {
	case c.VM.StackSize < 0:
		return fmt.Errorf("vm.stack-size must be positive, got %d", c.VM.StackSize)
	case c.VM.MaxFrames < 0:
		return fmt.Errorf("vm.max-frames must be positive, got %d", c.VM.MaxFrames)
	case c.Update.MaxRebuilds < 0:
		return fmt.Errorf("update.max-rebuilds must be positive, got %d", c.Update.MaxRebuilds)
	}
	return nil
}

// LogPath returns the log file path resolved against Dir, or nil to log to
// stderr.
func (c *Config) LogPath() *string {
	if c.Log.File == "" {
		return nil
	}
	p := c.Log.File
	if !filepath.IsAbs(p) && c.Dir != "" {
		p = filepath.Join(c.Dir, p)
	}
	return &p
}

// VMOptions translates the [vm] and [update] sections into VM options.
func (c *Config) VMOptions() []vm.Option {
	return []vm.Option{
		vm.WithStackSize(c.VM.StackSize),
		vm.WithMaxFrames(c.VM.MaxFrames),
		vm.WithTrace(c.VM.Trace),
		vm.WithAlwaysRevalidate(c.Update.AlwaysRevalidate),
	}
}
