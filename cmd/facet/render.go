package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/chazu/facet/engine"
	"github.com/chazu/facet/host/htmldoc"
	"github.com/chazu/facet/reference"
	"github.com/chazu/facet/vm/wire"
)

func newRenderCommand(c *cli) *cobra.Command {
	var (
		data    []string
		stats   bool
		inspect bool
	)
	cmd := &cobra.Command{
		Use:   "render FILE --data SNAPSHOT.json [--data SNAPSHOT.json ...]",
		Short: "Render a bundle, then update it with each following snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(data) == 0 {
				return fmt.Errorf("at least one --data snapshot is required")
			}
			_, p, err := wire.ReadFile(args[0])
			if err != nil {
				return err
			}
			s := &session{out: cmd.OutOrStdout(), stats: stats, state: reference.NewObject(nil)}
			if err := s.apply(data[0]); err != nil {
				return err
			}

			doc := htmldoc.New()
			eng := engine.New(c.cfg, doc)
			view, err := eng.Mount(p, doc.Root(), reference.NewRoot(s.state))
			if err != nil {
				return err
			}
			s.print(data[0], doc)

			for _, path := range data[1:] {
				if err := s.apply(path); err != nil {
					return err
				}
				doc.ResetStats()
				report, err := view.Update()
				if err != nil {
					return err
				}
				s.print(path, doc)
				if err := s.report(report, doc.Stats()); err != nil {
					return err
				}
			}

			if inspect {
				js, err := view.Result().InspectJSON()
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "%s\n", js)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&data, "data", nil, "JSON snapshot of self; repeat to update")
	cmd.Flags().BoolVar(&stats, "stats", false, "print pass statistics after each update")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "print the updating opcode tree at the end")
	return cmd
}

// session is the mutable self a bundle renders against. Each snapshot
// replaces its top-level fields.
type session struct {
	out   io.Writer
	stats bool
	state *reference.Object
}

func loadSnapshot(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap map[string]any
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return snap, nil
}

func (s *session) apply(path string) error {
	snap, err := loadSnapshot(path)
	if err != nil {
		return err
	}
	for _, k := range s.state.Keys() {
		if _, ok := snap[k]; !ok {
			s.state.Delete(k)
		}
	}
	for k, v := range snap {
		s.state.Set(k, reference.FromData(v))
	}
	log.Debugf("applied %s (%d fields)", path, len(snap))
	return nil
}

func (s *session) print(label string, doc *htmldoc.Document) {
	fmt.Fprintf(s.out, "<!-- %s -->\n%s\n", label, doc.Render())
}

func (s *session) report(r engine.UpdateReport, dom htmldoc.Stats) error {
	if !s.stats {
		return nil
	}
	js, err := json.Marshal(struct {
		engine.UpdateReport
		Mutations int `json:"mutations"`
	}{r, dom.Mutations()})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s\n", js)
	return nil
}
