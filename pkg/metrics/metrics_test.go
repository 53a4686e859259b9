package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/Sternrassler/reqstate/pkg/cache"
	_ "github.com/Sternrassler/reqstate/pkg/executor"
	_ "github.com/Sternrassler/reqstate/pkg/request"
	_ "github.com/Sternrassler/reqstate/pkg/state"
	_ "github.com/Sternrassler/reqstate/pkg/transport"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestMetricsRegistered(t *testing.T) {
	// Unlabelled metrics are exported from the start; labelled ones only
	// once a label combination has been observed.
	unlabelled := []string{
		"reqstate_cache_misses_total",
		"reqstate_inflight_requests",
		"reqstate_dedup_attach_total",
		"reqstate_call_aborts_total",
		"reqstate_transport_duration_seconds",
		"reqstate_stale_outcomes_total",
	}

	families, err := Gatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	seen := make(map[string]bool, len(families))
	for _, mf := range families {
		seen[mf.GetName()] = true
	}

	for _, name := range unlabelled {
		if !seen[name] {
			t.Errorf("metric %s not registered", name)
		}
	}

	documented := make(map[string]bool, len(Names))
	for _, name := range Names {
		documented[name] = true
	}
	for name := range seen {
		if strings.HasPrefix(name, "reqstate_") && !documented[name] {
			t.Errorf("metric %s missing from Names", name)
		}
	}
}

func TestHandler(t *testing.T) {
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "# HELP reqstate_inflight_requests") {
		t.Error("Expected reqstate metrics in output")
	}
}
