package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint,
// mounted by `anvil watch` at the configured path.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}

// NewServer returns an HTTP server exposing the collector at path on addr.
// Each mount function may register further handlers on the same mux.
func (c *Collector) NewServer(addr, path string, mount ...func(*http.ServeMux)) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	for _, m := range mount {
		m(mux)
	}
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
