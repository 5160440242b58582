package prometheus

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/fatih/structs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/scitags/rtnl/internal/qdisc"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/types"
)

// Metric labels (note these are **always** strings):
//
//	link: the link's name
//	index: the link's ifindex
//
// The remaining labels are specific to each gauge.
var linkLabels = []string{"link", "index"}

type metrics struct {
	Up        *prometheus.GaugeVec
	MTU       *prometheus.GaugeVec
	TxQLen    *prometheus.GaugeVec
	OperState *prometheus.GaugeVec
	Carrier   *prometheus.GaugeVec

	// Stats has one series per rtnl_link_stats field, named by the stat label.
	Stats *prometheus.GaugeVec

	Routes *prometheus.GaugeVec

	QdiscBytes   *prometheus.GaugeVec
	QdiscDrops   *prometheus.GaugeVec
	QdiscBacklog *prometheus.GaugeVec

	Polls      *prometheus.CounterVec
	PollErrors *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		Up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_link_up",
			Help: "Whether IFF_UP is set on the link",
		}, linkLabels),
		MTU: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_link_mtu_bytes",
			Help: "Link MTU [B]",
		}, linkLabels),
		TxQLen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_link_txqlen",
			Help: "Transmit queue length [packets]",
		}, linkLabels),
		OperState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_link_operstate",
			Help: "RFC 2863 operational state, always 1 with the state as a label",
		}, append(linkLabels, "state")),
		Carrier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_link_carrier",
			Help: "Carrier as read from /sys/class/net/<link>/carrier",
		}, linkLabels),

		Stats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_link_stats",
			Help: "Link statistics as reported through IFLA_STATS (32 bit, wrapping)",
		}, append(linkLabels, "stat")),

		Routes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_routes",
			Help: "Number of routes",
		}, []string{"family", "table", "protocol"}),

		QdiscBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_qdisc_bytes",
			Help: "Bytes sent through the qdisc [B]",
		}, []string{"index", "kind", "handle", "parent"}),
		QdiscDrops: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_qdisc_drops",
			Help: "Packets dropped by the qdisc",
		}, []string{"index", "kind", "handle", "parent"}),
		QdiscBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtnl_qdisc_backlog_bytes",
			Help: "Bytes queued in the qdisc [B]",
		}, []string{"index", "kind", "handle", "parent"}),

		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtnl_exporter_polls_total",
			Help: "Number of polls run by the exporter",
		}, []string{"source"}),
		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtnl_exporter_poll_errors_total",
			Help: "Number of polls that failed",
		}, []string{"source"}),
	}

	return m
}

// (Nastily) use reflection to avoid having to manually register everything.
func (m *metrics) register(req prometheus.Registerer) error {
	v := reflect.ValueOf(*m)

	i := 0
	for i = 0; i < v.NumField(); i++ {
		vv, ok := v.Field(i).Interface().(prometheus.Collector)
		if !ok {
			return fmt.Errorf("error casting the interface for index %d", i)
		}
		if err := req.Register(vv); err != nil {
			return fmt.Errorf("error registering index %d: %w", i, err)
		}
	}
	logger.Log(context.Background(), types.LevelTrace, "registered collectors", "i", i)

	return nil
}

func newLabels(l *netlink.LinkRecord) prometheus.Labels {
	return prometheus.Labels{
		"link":  l.Name,
		"index": strconv.Itoa(l.Index),
	}
}

// with copies labels before adding extra ones. The map handed to With() must
// not change underneath it.
func with(labels prometheus.Labels, k, v string) prometheus.Labels {
	newLabels := prometheus.Labels{}
	for kk, vv := range labels {
		newLabels[kk] = vv
	}
	newLabels[k] = v
	return newLabels
}

// updateLinks replaces every per-link series so vanished links drop out.
func (m *metrics) updateLinks(links []netlink.LinkRecord, carrier map[string]int64) {
	m.Up.Reset()
	m.MTU.Reset()
	m.TxQLen.Reset()
	m.OperState.Reset()
	m.Carrier.Reset()
	m.Stats.Reset()

	for i := range links {
		l := &links[i]
		labels := newLabels(l)

		up := 0.0
		if l.Up() {
			up = 1
		}
		m.Up.With(labels).Set(up)
		m.MTU.With(labels).Set(float64(l.MTU))
		m.TxQLen.With(labels).Set(float64(l.TxQLen))
		m.OperState.With(with(labels, "state", l.OperState.String())).Set(1)

		if c, ok := carrier[l.Name]; ok {
			m.Carrier.With(labels).Set(float64(c))
		}

		if l.Stats == nil {
			continue
		}

		// The structs tags carry the kernel's own field names.
		for stat, v := range structs.Map(l.Stats) {
			n, ok := v.(uint32)
			if !ok {
				continue
			}
			m.Stats.With(with(labels, "stat", stat)).Set(float64(n))
		}
	}
}

func (m *metrics) updateRoutes(routes []netlink.RouteRecord) {
	m.Routes.Reset()

	for i := range routes {
		r := &routes[i]
		m.Routes.With(prometheus.Labels{
			"family":   r.Family.String(),
			"table":    r.Table.String(),
			"protocol": r.Protocol.String(),
		}).Inc()
	}
}

func (m *metrics) updateQdiscs(qdiscs []qdisc.Qdisc) {
	m.QdiscBytes.Reset()
	m.QdiscDrops.Reset()
	m.QdiscBacklog.Reset()

	for _, q := range qdiscs {
		labels := prometheus.Labels{
			"index":  strconv.FormatUint(uint64(q.Ifindex), 10),
			"kind":   q.Kind,
			"handle": q.Handle,
			"parent": q.Parent,
		}
		m.QdiscBytes.With(labels).Set(float64(q.Bytes))
		m.QdiscDrops.With(labels).Set(float64(q.Drops))
		m.QdiscBacklog.With(labels).Set(float64(q.Backlog))
	}
}
