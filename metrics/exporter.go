package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewPrometheusRegistry returns a registry preloaded with the Go runtime and
// process collectors.
func NewPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Exporter serves a gatherer over HTTP for pull based scrapers.
type Exporter struct {
	ln  net.Listener
	srv *http.Server
}

// Listen binds addr. Binding is split from serving so that a bind failure is
// reported synchronously at startup.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not bind metrics listener on %s: %w", addr, err)
	}
	return ln, nil
}

func NewExporter(ln net.Listener, g prometheus.Gatherer) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Exporter{
		ln: ln,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Addr is the bound address.
func (e *Exporter) Addr() net.Addr {
	return e.ln.Addr()
}

// Serve blocks until Shutdown. It returns nil after a clean shutdown.
func (e *Exporter) Serve() error {
	err := e.srv.Serve(e.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.srv.Shutdown(ctx)
}
