// Package prometheus periodically dumps links and routes and publishes them
// as prometheus gauges on a non-global registry.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/procfs/sysfs"
	"github.com/scitags/rtnl/internal/qdisc"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/types"
)

var logger *slog.Logger

// Source is satisfied by *netlink.Session.
type Source interface {
	Links(ctx context.Context, tmpl netlink.LinkRecord) (netlink.List[netlink.LinkRecord], error)
	Routes(ctx context.Context, tmpl netlink.RouteRecord) (netlink.List[netlink.RouteRecord], error)
}

// QdiscLister is satisfied by *qdisc.Client.
type QdiscLister interface {
	List(ifindex uint32) ([]qdisc.Qdisc, error)
}

type PrometheusExporter struct {
	Config

	src    Source
	qdiscs QdiscLister

	// carrier reads the carrier of every link; it's backed by sysfs.
	carrier func() (map[string]int64, error)

	reg    *prometheus.Registry
	m      *metrics
	server *http.Server
}

func (e *PrometheusExporter) String() string {
	return "Prometheus"
}

// NewPrometheusExporter wires src into a fresh registry. When src also
// exposes its own collectors through Register (as *netlink.Session does)
// they are published alongside the gauges.
func NewPrometheusExporter(c *Config, src Source) (*PrometheusExporter, error) {
	if c.Log {
		logger = slog.Default().With("t", "prometheus")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initialising the prometheus exporter")

	if src == nil {
		return nil, fmt.Errorf("%w: no netlink source", netlink.ErrInvalidParameter)
	}

	if c.PollIntervalMs <= 0 {
		return nil, fmt.Errorf("%w: pollIntervalMs=%d", netlink.ErrInvalidParameter, c.PollIntervalMs)
	}

	e := PrometheusExporter{Config: *c, src: src, carrier: sysfsCarrier}

	// Create a non-global registry.
	e.reg = prometheus.NewRegistry()

	e.m = newMetrics()
	if err := e.m.register(e.reg); err != nil {
		return nil, fmt.Errorf("error registering the metrics: %v", err)
	}

	if r, ok := src.(interface {
		Register(prometheus.Registerer) error
	}); ok {
		if err := r.Register(e.reg); err != nil {
			return nil, fmt.Errorf("error registering the session metrics: %w", err)
		}
	}

	handler := http.NewServeMux()
	handler.Handle("/metrics", e.Handler())

	e.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", e.BindAddress, e.Port),
		Handler: handler,
	}

	return &e, nil
}

// WithQdiscs enables the qdisc gauges.
func (e *PrometheusExporter) WithQdiscs(q QdiscLister) {
	e.qdiscs = q
}

func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{Registry: e.reg})
}

// Run serves the metrics and polls until ctx is done.
func (e *PrometheusExporter) Run(ctx context.Context) {
	logger.Debug("running the prometheus exporter", "addr", e.server.Addr, "interval", e.PollInterval())

	go func() {
		if err := e.server.ListenAndServe(); err != nil {
			logger.Info("stopped listening", "err", err)
		}
	}()

	ticker := time.NewTicker(e.PollInterval())
	defer ticker.Stop()

	for {
		if err := e.Poll(ctx); err != nil {
			logger.Warn("error polling", "err", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Debug("cleanly exiting the prometheus exporter")
			return
		}
	}
}

func (e *PrometheusExporter) Cleanup() error {
	logger.Debug("cleaning up the prometheus exporter")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return e.server.Shutdown(ctx)
}

// Poll refreshes every gauge once. A failing source leaves its gauges as
// they were and is reported in the returned error.
func (e *PrometheusExporter) Poll(ctx context.Context) error {
	var errs error

	e.m.Polls.WithLabelValues("links").Inc()
	links, err := e.src.Links(ctx, netlink.DefaultLinkRecord())
	if err != nil {
		e.m.PollErrors.WithLabelValues("links").Inc()
		errs = errors.Join(errs, fmt.Errorf("error dumping links: %w", err))
	} else {
		carrier, err := e.carrier()
		if err != nil {
			logger.Debug("error reading carriers from sysfs", "err", err)
		}
		e.m.updateLinks(links, carrier)
	}

	e.m.Polls.WithLabelValues("routes").Inc()
	routes, err := e.routes(ctx)
	if err != nil {
		e.m.PollErrors.WithLabelValues("routes").Inc()
		errs = errors.Join(errs, err)
	} else {
		e.m.updateRoutes(routes)
	}

	if e.qdiscs != nil {
		e.m.Polls.WithLabelValues("qdiscs").Inc()
		qdiscs, err := e.qdiscs.List(0)
		if err != nil {
			e.m.PollErrors.WithLabelValues("qdiscs").Inc()
			errs = errors.Join(errs, err)
		} else {
			e.m.updateQdiscs(qdiscs)
		}
	}

	logger.Log(ctx, types.LevelTrace, "polled", "links", links.Len(), "routes", len(routes))

	return errs
}

func (e *PrometheusExporter) routes(ctx context.Context) ([]netlink.RouteRecord, error) {
	var routes []netlink.RouteRecord
	for _, family := range []types.Family{types.IPv4, types.IPv6} {
		tmpl := netlink.DefaultRouteRecord()
		tmpl.Family = family

		rs, err := e.src.Routes(ctx, tmpl)
		if err != nil {
			return nil, fmt.Errorf("error dumping %s routes: %w", family, err)
		}
		routes = append(routes, rs...)
	}
	return routes, nil
}

func sysfsCarrier() (map[string]int64, error) {
	fs, err := sysfs.NewFS("/sys")
	if err != nil {
		return nil, err
	}

	class, err := fs.NetClass()
	if err != nil {
		return nil, err
	}

	carrier := map[string]int64{}
	for name, iface := range class {
		// Reading carrier on a down link fails with EINVAL.
		if iface.Carrier != nil {
			carrier[name] = *iface.Carrier
		}
	}
	return carrier, nil
}
