package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chazu/facet/vm"
)

func TestObservePass(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "facet")

	c.ObservePass(vm.PassStats{Evaluated: 5, Skipped: 1, Retained: 2, Moved: 1, Duration: time.Millisecond}, ResultOK)
	c.ObservePass(vm.PassStats{Evaluated: 2, Inserted: 3}, ResultStale)
	c.ObserveRebuild()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"ok passes", testutil.ToFloat64(c.passes.WithLabelValues(ResultOK)), 1},
		{"stale passes", testutil.ToFloat64(c.passes.WithLabelValues(ResultStale)), 1},
		{"evaluated", testutil.ToFloat64(c.evaluated), 7},
		{"skipped", testutil.ToFloat64(c.skipped), 1},
		{"retain", testutil.ToFloat64(c.listOps.WithLabelValues("retain")), 2},
		{"insert", testutil.ToFloat64(c.listOps.WithLabelValues("insert")), 3},
		{"move", testutil.ToFloat64(c.listOps.WithLabelValues("move")), 1},
		{"delete", testutil.ToFloat64(c.listOps.WithLabelValues("delete")), 0},
		{"rebuilds", testutil.ToFloat64(c.rebuilds), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorsAreScopedToRegistry(t *testing.T) {
	// Two collectors on separate registries must not conflict.
	New(prometheus.NewRegistry(), "facet")
	New(prometheus.NewRegistry(), "facet")

	reg := prometheus.NewRegistry()
	New(reg, "facet")
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration on one registry did not panic")
		}
	}()
	New(reg, "facet")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "todo")
	c.ObservePass(vm.PassStats{Evaluated: 1}, ResultOK)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), `todo_update_passes_total{result="ok"} 1`) {
		t.Fatalf("exposition missing pass counter:\n%s", body)
	}
}
