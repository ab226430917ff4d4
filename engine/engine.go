// Package engine mounts programs into a host document and keeps them up to
// date. It is the layer that decides to rebuild: the VM only reports which
// range went stale.
package engine

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tliron/commonlog"

	"github.com/chazu/facet/config"
	"github.com/chazu/facet/host"
	"github.com/chazu/facet/metrics"
	"github.com/chazu/facet/reference"
	"github.com/chazu/facet/vm"
)

var log = commonlog.GetLogger("facet.engine")

// ErrTooManyRebuilds is returned when an update keeps going stale after
// the configured number of rebuilds.
var ErrTooManyRebuilds = errors.New("too many rebuilds")

// Engine owns the environment, configuration and metrics shared by the
// views it mounts.
type Engine struct {
	cfg      *config.Config
	env      *vm.DefaultEnvironment
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

// New creates an engine over doc. A nil cfg uses config.Default.
func New(cfg *config.Config, doc host.Document) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{cfg: cfg, env: vm.NewEnvironment(doc)}
	if cfg.Metrics.Enabled {
		e.registry = prometheus.NewRegistry()
		e.metrics = metrics.New(e.registry, cfg.Metrics.Namespace)
	}
	return e
}

// Environment returns the environment every view renders against.
func (e *Engine) Environment() *vm.DefaultEnvironment { return e.env }

// Registry returns the metrics registry, or nil when metrics are disabled.
func (e *Engine) Registry() *prometheus.Registry { return e.registry }

// Mount renders p into parent with self as the root scope's self.
func (e *Engine) Mount(p *vm.Program, parent host.Node, self reference.PathReference) (*View, error) {
	tmpl, err := vm.NewTemplate(p, e.env, e.cfg.VMOptions()...)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	res, err := tmpl.Render(self, parent, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	log.Infof("mounted view %s", res.ID())
	return &View{engine: e, result: res}, nil
}

// View is one mounted program.
type View struct {
	engine *Engine
	result *vm.RenderResult
}

// UpdateReport describes one call to View.Update.
type UpdateReport struct {
	Passes   []vm.PassStats `json:"passes"`
	Rebuilds int            `json:"rebuilds"`
}

// Result returns the underlying render result.
func (v *View) Result() *vm.RenderResult { return v.result }

// Update brings the view up to date with its inputs. Each pass that ends
// in a stale range rebuilds that range and runs again, up to the
// configured limit.
func (v *View) Update() (UpdateReport, error) {
	var report UpdateReport
	limit := v.engine.cfg.Update.MaxRebuilds
	for {
		err := v.result.Rerender()
		pass := v.result.LastPass()
		report.Passes = append(report.Passes, pass)

		var se *vm.StaleError
		switch {
		case err == nil:
			v.observe(pass, metrics.ResultOK)
			log.Debugf("view %s updated: %d evaluated, %d skipped", v.result.ID(), pass.Evaluated, pass.Skipped)
			return report, nil
		case !errors.As(err, &se):
			v.observe(pass, metrics.ResultError)
			return report, fmt.Errorf("update view %s: %w", v.result.ID(), err)
		}

		v.observe(pass, metrics.ResultStale)
		if report.Rebuilds >= limit {
			return report, fmt.Errorf("update view %s: %w (%d): %w", v.result.ID(), ErrTooManyRebuilds, limit, err)
		}
		log.Infof("rebuilding %s", se.Range.ID())
		if err := v.result.Rebuild(se); err != nil {
			return report, fmt.Errorf("update view %s: %w", v.result.ID(), err)
		}
		report.Rebuilds++
		if m := v.engine.metrics; m != nil {
			m.ObserveRebuild()
		}
	}
}

// Unmount destroys the view and removes its nodes.
func (v *View) Unmount() {
	v.result.Destroy()
	log.Infof("unmounted view %s", v.result.ID())
}

func (v *View) observe(pass vm.PassStats, result string) {
	if m := v.engine.metrics; m != nil {
		m.ObservePass(pass, result)
	}
}
