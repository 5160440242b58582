package prometheus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/structs"
	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/scitags/rtnl/internal/qdisc"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/types"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Remove the directory from the source's filename.
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

type fakeSource struct {
	links      netlink.List[netlink.LinkRecord]
	routes     map[types.Family]netlink.List[netlink.RouteRecord]
	err        error
	registered bool
	counter    prometheus.Counter
}

func (f *fakeSource) Links(ctx context.Context, tmpl netlink.LinkRecord) (netlink.List[netlink.LinkRecord], error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.links, nil
}

func (f *fakeSource) Routes(ctx context.Context, tmpl netlink.RouteRecord) (netlink.List[netlink.RouteRecord], error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.routes[tmpl.Family], nil
}

func (f *fakeSource) Register(reg prometheus.Registerer) error {
	f.registered = true
	f.counter = prometheus.NewCounter(prometheus.CounterOpts{Name: "rtnl_fake_total", Help: "Fake session counter"})
	return reg.Register(f.counter)
}

type fakeQdiscs []qdisc.Qdisc

func (f fakeQdiscs) List(ifindex uint32) ([]qdisc.Qdisc, error) {
	return f, nil
}

func newFakeSource() *fakeSource {
	lo := netlink.DefaultLinkRecord()
	lo.Name, lo.Index, lo.Flags, lo.MTU = "lo", 1, netlink.IFF_UP, 65536
	lo.Type, lo.OperState = netlink.ARPHRD_LOOPBACK, types.IF_OPER_UNKNOWN

	eth0 := netlink.DefaultLinkRecord()
	eth0.Name, eth0.Index, eth0.MTU, eth0.TxQLen = "eth0", 2, 1500, 1000
	eth0.Type, eth0.OperState = netlink.ARPHRD_ETHER, types.IF_OPER_DOWN
	eth0.Stats = &netlink.LinkStats{RxPackets: 10, TxBytes: 4096, RxNoHandler: 3}

	def := netlink.DefaultRouteRecord()
	def.Table, def.Protocol, def.Gateway = types.RT_TABLE_MAIN, types.RTPROT_DHCP, "192.168.1.1"

	local := netlink.DefaultRouteRecord()
	local.Table, local.Protocol, local.Dst, local.DstLen = types.RT_TABLE_MAIN, types.RTPROT_KERNEL, "192.168.1.0", 24

	v6 := netlink.DefaultRouteRecord()
	v6.Family, v6.Table, v6.Protocol, v6.Dst, v6.DstLen = types.IPv6, types.RT_TABLE_MAIN, types.RTPROT_KERNEL, "fe80::", 64

	return &fakeSource{
		links: netlink.List[netlink.LinkRecord]{lo, eth0},
		routes: map[types.Family]netlink.List[netlink.RouteRecord]{
			types.IPv4: {def, local},
			types.IPv6: {v6},
		},
	}
}

func newTestExporter(t *testing.T, src Source) *PrometheusExporter {
	t.Helper()

	var c Config
	if err := yaml.Unmarshal([]byte("log: true"), &c); err != nil {
		t.Fatalf("error unmarshalling the config: %v", err)
	}

	e, err := NewPrometheusExporter(&c, src)
	if err != nil {
		t.Fatalf("error creating the exporter: %v", err)
	}
	e.carrier = func() (map[string]int64, error) {
		return map[string]int64{"eth0": 0}, nil
	}

	return e
}

func TestPoll(t *testing.T) {
	src := newFakeSource()
	e := newTestExporter(t, src)

	if !src.registered {
		t.Errorf("the source's collectors weren't registered")
	}

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("error polling: %v", err)
	}

	gauges := []struct {
		name string
		g    prometheus.Collector
		want float64
	}{
		{"lo up", e.m.Up.WithLabelValues("lo", "1"), 1},
		{"eth0 up", e.m.Up.WithLabelValues("eth0", "2"), 0},
		{"eth0 mtu", e.m.MTU.WithLabelValues("eth0", "2"), 1500},
		{"eth0 txqlen", e.m.TxQLen.WithLabelValues("eth0", "2"), 1000},
		{"eth0 operstate", e.m.OperState.WithLabelValues("eth0", "2", "down"), 1},
		{"eth0 carrier", e.m.Carrier.WithLabelValues("eth0", "2"), 0},
		{"eth0 rx_packets", e.m.Stats.WithLabelValues("eth0", "2", "rx_packets"), 10},
		{"eth0 tx_bytes", e.m.Stats.WithLabelValues("eth0", "2", "tx_bytes"), 4096},
		{"eth0 rx_nohandler", e.m.Stats.WithLabelValues("eth0", "2", "rx_nohandler"), 3},
		{"ipv4 kernel routes", e.m.Routes.WithLabelValues("ipv4", "main", "kernel"), 1},
		{"ipv4 dhcp routes", e.m.Routes.WithLabelValues("ipv4", "main", "dhcp"), 1},
		{"ipv6 kernel routes", e.m.Routes.WithLabelValues("ipv6", "main", "kernel"), 1},
	}

	for _, g := range gauges {
		if got := testutil.ToFloat64(g.g); got != g.want {
			t.Errorf("%q: got %v, want %v", g.name, got, g.want)
		}
	}

	// Every rtnl_link_stats field gets a series, but only for eth0.
	if got, want := testutil.CollectAndCount(e.m.Stats), len(structs.Names(&netlink.LinkStats{})); got != want {
		t.Errorf("got %d stat series, want %d", got, want)
	}

	// The carrier map has no entry for lo.
	if got := testutil.CollectAndCount(e.m.Carrier); got != 1 {
		t.Errorf("got %d carrier series, want 1", got)
	}
}

func TestPollDropsVanishedLinks(t *testing.T) {
	src := newFakeSource()
	e := newTestExporter(t, src)

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("error polling: %v", err)
	}

	src.links = src.links[:1]
	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("error polling: %v", err)
	}

	if got := testutil.CollectAndCount(e.m.MTU); got != 1 {
		t.Errorf("got %d mtu series, want 1", got)
	}
	if got := testutil.CollectAndCount(e.m.Stats); got != 0 {
		t.Errorf("got %d stat series, want 0", got)
	}
}

func TestPollErrors(t *testing.T) {
	src := newFakeSource()
	e := newTestExporter(t, src)

	src.err = netlink.ErrNotOpen
	if err := e.Poll(context.Background()); !errors.Is(err, netlink.ErrNotOpen) {
		t.Errorf("got %v, want %v", err, netlink.ErrNotOpen)
	}

	for _, source := range []string{"links", "routes"} {
		if got := testutil.ToFloat64(e.m.PollErrors.WithLabelValues(source)); got != 1 {
			t.Errorf("%q: got %v errors, want 1", source, got)
		}
	}
}

func TestQdiscs(t *testing.T) {
	e := newTestExporter(t, newFakeSource())
	e.WithQdiscs(fakeQdiscs{
		{Ifindex: 2, Kind: "fq_codel", Handle: "none", Parent: "root", Bytes: 2048, Drops: 4, Backlog: 64},
	})

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("error polling: %v", err)
	}

	labels := []string{"2", "fq_codel", "none", "root"}
	for _, g := range []struct {
		name string
		g    *prometheus.GaugeVec
		want float64
	}{
		{"bytes", e.m.QdiscBytes, 2048},
		{"drops", e.m.QdiscDrops, 4},
		{"backlog", e.m.QdiscBacklog, 64},
	} {
		if got := testutil.ToFloat64(g.g.WithLabelValues(labels...)); got != g.want {
			t.Errorf("%q: got %v, want %v", g.name, got, g.want)
		}
	}
}

func TestHandler(t *testing.T) {
	src := newFakeSource()
	e := newTestExporter(t, src)

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("error polling: %v", err)
	}
	src.counter.Inc()

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("error scraping: %v", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("error reading the body: %v", err)
	}

	for _, want := range []string{
		`rtnl_link_mtu_bytes{index="2",link="eth0"} 1500`,
		`rtnl_routes{family="ipv6",protocol="kernel",table="main"} 1`,
		`rtnl_fake_total 1`,
	} {
		if !strings.Contains(string(b), want) {
			t.Errorf("missing %q in the scrape", want)
		}
	}
}

func TestConf(t *testing.T) {
	tests := []struct {
		in   string
		want Config
	}{
		{"{}", Config{Log: true, BindAddress: "127.0.0.1", Port: 9153, PollIntervalMs: 5000}},
		{"port: 9999\nqdiscs: true", Config{Log: true, BindAddress: "127.0.0.1", Port: 9999, PollIntervalMs: 5000, Qdiscs: true}},
	}

	for _, test := range tests {
		var got Config
		if err := yaml.Unmarshal([]byte(test.in), &got); err != nil {
			t.Errorf("%q: error unmarshalling: %v", test.in, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%q: unexpected config (-want +got):\n%s", test.in, diff)
		}
	}

	c := Config{PollIntervalMs: 0}
	if _, err := NewPrometheusExporter(&c, newFakeSource()); !errors.Is(err, netlink.ErrInvalidParameter) {
		t.Errorf("got %v, want %v", err, netlink.ErrInvalidParameter)
	}
}
