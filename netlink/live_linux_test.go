//go:build linux

package netlink

import (
	"os"
	"testing"

	"github.com/prometheus/procfs/sysfs"
	vnl "github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// These talk to the running kernel and are skipped unless we're root.
func openLive(t *testing.T) *Session {
	t.Helper()

	if os.Geteuid() != 0 {
		t.Skip("live rtnetlink tests need root")
	}

	s, err := Open(testContext(t), nil)
	if err != nil {
		t.Fatalf("error opening the session: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if s.PID() == 0 {
		t.Errorf("the kernel assigned port id 0")
	}

	return s
}

func TestLiveLinks(t *testing.T) {
	s := openLive(t)

	links, err := s.Links(testContext(t), DefaultLinkRecord())
	if err != nil {
		t.Fatalf("error dumping links: %v", err)
	}

	want, err := vnl.LinkList()
	if err != nil {
		t.Fatalf("error listing links through vishvananda/netlink: %v", err)
	}

	if links.Len() != len(want) {
		t.Errorf("got %d links, want %d", links.Len(), len(want))
	}

	byIndex := map[int]LinkRecord{}
	for _, l := range links {
		byIndex[l.Index] = l
	}
	for _, w := range want {
		attrs := w.Attrs()
		got, ok := byIndex[attrs.Index]
		if !ok {
			t.Errorf("%q: missing", attrs.Name)
			continue
		}
		if got.Name != attrs.Name || int(got.MTU) != attrs.MTU {
			t.Errorf("%q: got name %q and mtu %d, want mtu %d", attrs.Name, got.Name, got.MTU, attrs.MTU)
		}
		if got.HardwareAddr() != attrs.HardwareAddr.String() && got.Type == ARPHRD_ETHER {
			t.Errorf("%q: got address %q, want %q", attrs.Name, got.HardwareAddr(), attrs.HardwareAddr)
		}
	}

	fs, err := sysfs.NewFS("/sys")
	if err != nil {
		t.Skipf("sysfs isn't available: %v", err)
	}
	class, err := fs.NetClass()
	if err != nil {
		t.Skipf("error reading /sys/class/net: %v", err)
	}
	for _, l := range links {
		iface, ok := class[l.Name]
		if !ok || iface.IfIndex == nil {
			continue
		}
		if int(*iface.IfIndex) != l.Index {
			t.Errorf("%q: got index %d, sysfs says %d", l.Name, l.Index, *iface.IfIndex)
		}
	}
}

func TestLiveLoopback(t *testing.T) {
	s := openLive(t)

	tmpl := DefaultLinkRecord()
	tmpl.Name = "lo"

	links, err := s.Links(testContext(t), tmpl)
	if err != nil {
		t.Fatalf("error dumping links: %v", err)
	}
	if links.Len() != 1 {
		t.Fatalf("got %d links named lo, want 1", links.Len())
	}
	if links[0].Type != ARPHRD_LOOPBACK || LinkTypeName(links[0].Type) != "LOOPBACK" {
		t.Errorf("got type %d (%s)", links[0].Type, LinkTypeName(links[0].Type))
	}
}

func TestLiveRoutes(t *testing.T) {
	s := openLive(t)

	routes, err := s.Routes(testContext(t), DefaultRouteRecord())
	if err != nil {
		t.Fatalf("error dumping routes: %v", err)
	}

	want, err := vnl.RouteListFiltered(vnl.FAMILY_V4, &vnl.Route{Table: unix.RT_TABLE_UNSPEC}, vnl.RT_FILTER_TABLE)
	if err != nil {
		t.Fatalf("error listing routes through vishvananda/netlink: %v", err)
	}

	if routes.Len() != len(want) {
		t.Logf("got %d routes, vishvananda/netlink got %d", routes.Len(), len(want))
	}

	for _, r := range routes {
		if r.Family.Bits() != 32 {
			t.Errorf("got an IPv4 dump entry of family %s", r.Family)
		}
	}
}
