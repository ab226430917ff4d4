package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/facet/config"
)

var log = commonlog.GetLogger("facet.cli")

// cli holds state shared by every subcommand.
type cli struct {
	configDir string
	verbose   int
	cfg       *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "facet",
		Short:         "Render and update reactive templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.PersistentFlags().StringVar(&c.configDir, "config", "", "directory containing facet.toml (default: search upward from .)")
	root.PersistentFlags().CountVarP(&c.verbose, "verbose", "v", "increase log verbosity")

	root.AddCommand(
		newDemoCommand(c),
		newDisasmCommand(c),
		newRenderCommand(c),
		newServeCommand(c),
	)
	return root
}

// setup loads configuration and configures logging.
func (c *cli) setup() error {
	var err error
	if c.configDir != "" {
		c.cfg, err = config.Load(c.configDir)
	} else {
		c.cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.cfg == nil {
		c.cfg = config.Default()
	}

	verbosity := c.cfg.Log.Verbosity
	if c.verbose > 0 {
		verbosity = c.verbose
	}
	commonlog.Configure(verbosity, c.cfg.LogPath())
	if c.cfg.Dir != "" {
		log.Debugf("using %s/%s", c.cfg.Dir, config.FileName)
	}
	return nil
}
