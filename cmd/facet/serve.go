package main

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/spf13/cobra"

	"github.com/chazu/facet/engine"
	"github.com/chazu/facet/host/htmldoc"
	"github.com/chazu/facet/metrics"
	"github.com/chazu/facet/reference"
	"github.com/chazu/facet/vm/wire"
)

func newServeCommand(c *cli) *cobra.Command {
	var (
		data string
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve FILE --data SNAPSHOT.json",
		Short: "Serve a bundle over HTTP, re-reading the snapshot on every request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newPageHandler(c, args[0], data)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle("/", h)
			if reg := h.eng.Registry(); reg != nil {
				mux.Handle("/metrics", metrics.Handler(reg))
			}
			log.Noticef("serving %s on %s", args[0], addr)
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "JSON snapshot of self")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// pageHandler keeps one view mounted and brings it up to date with the
// snapshot file before every response.
type pageHandler struct {
	mu   sync.Mutex
	eng  *engine.Engine
	doc  *htmldoc.Document
	view *engine.View
	s    *session
	data string
}

func newPageHandler(c *cli, bundle, data string) (*pageHandler, error) {
	_, p, err := wire.ReadFile(bundle)
	if err != nil {
		return nil, err
	}
	s := &session{state: reference.NewObject(nil)}
	if err := s.apply(data); err != nil {
		return nil, err
	}
	doc := htmldoc.New()
	eng := engine.New(c.cfg, doc)
	view, err := eng.Mount(p, doc.Root(), reference.NewRoot(s.state))
	if err != nil {
		return nil, err
	}
	return &pageHandler{eng: eng, doc: doc, view: view, s: s, data: data}, nil
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.s.apply(h.data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	report, err := h.view.Update()
	if err != nil {
		log.Errorf("update: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Debugf("%s %s: %d passes, %d rebuilds", r.Method, r.URL.Path, len(report.Passes), report.Rebuilds)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><body>%s</body></html>\n", h.doc.Render())
}
