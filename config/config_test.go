package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/facet/vm"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "todo"

[vm]
stack-size = 64
max-frames = 32
trace = true

[update]
always-revalidate = true
max-rebuilds = 3

[log]
verbosity = 2
file = "facet.log"

[metrics]
enabled = true
namespace = "todo"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Project.Name != "todo" {
		t.Errorf("project name = %q, want todo", c.Project.Name)
	}
	if c.VM.StackSize != 64 || c.VM.MaxFrames != 32 || !c.VM.Trace {
		t.Errorf("vm = %+v, want 64/32/trace", c.VM)
	}
	if !c.Update.AlwaysRevalidate || c.Update.MaxRebuilds != 3 {
		t.Errorf("update = %+v", c.Update)
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", c.Log.Verbosity)
	}
	if got := c.LogPath(); got == nil || *got != filepath.Join(c.Dir, "facet.log") {
		t.Errorf("log path = %v, want facet.log under %s", got, c.Dir)
	}
	if !c.Metrics.Enabled || c.Metrics.Namespace != "todo" {
		t.Errorf("metrics = %+v", c.Metrics)
	}
	if len(c.VMOptions()) != 4 {
		t.Errorf("VMOptions returned %d options, want 4", len(c.VMOptions()))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "minimal"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.VM.StackSize != vm.DefaultStackSize {
		t.Errorf("stack size = %d, want %d", c.VM.StackSize, vm.DefaultStackSize)
	}
	if c.VM.MaxFrames != vm.DefaultMaxFrames {
		t.Errorf("max frames = %d, want %d", c.VM.MaxFrames, vm.DefaultMaxFrames)
	}
	if c.Update.MaxRebuilds != DefaultMaxRebuilds {
		t.Errorf("max rebuilds = %d, want %d", c.Update.MaxRebuilds, DefaultMaxRebuilds)
	}
	if c.Metrics.Namespace != "facet" {
		t.Errorf("metrics namespace = %q, want facet", c.Metrics.Namespace)
	}
	if c.LogPath() != nil {
		t.Errorf("log path = %v, want stderr", *c.LogPath())
	}

	d := Default()
	if d.VM != c.VM || d.Update != c.Update {
		t.Errorf("Default() = %+v, want the loaded defaults %+v", d, c)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[vm\nstack-size = 1", "parse error"},
		{"unknown key", "[vm]\nstack-depth = 1", `unknown key "vm.stack-depth"`},
		{"negative", "[update]\nmax-rebuilds = -1", "max-rebuilds must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load succeeded without a facet.toml")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[project]
name = "parent"
`)
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil || c.Project.Name != "parent" {
		t.Fatalf("FindAndLoad = %+v, want the parent config", c)
	}
}
