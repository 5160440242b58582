package netlink

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/types"
	"golang.org/x/sys/unix"
)

var eth0MAC = []byte{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}

// linkMsg encodes a kernel-style RTM_NEWLINK message for eth0.
func linkMsg(t *testing.T, mod func(ae *netlink.AttributeEncoder)) netlink.Message {
	t.Helper()

	hdr := ifInfoMsg{
		Family: unix.AF_UNSPEC,
		Type:   ARPHRD_ETHER,
		Index:  2,
		Flags:  unix.IFF_UP | unix.IFF_BROADCAST | unix.IFF_RUNNING | unix.IFF_MULTICAST,
	}

	ae := netlink.NewAttributeEncoder()
	ae.String(IFLA_IFNAME, "eth0")
	ae.Uint32(IFLA_MTU, 1500)
	ae.Uint8(IFLA_OPERSTATE, uint8(types.IF_OPER_UP))
	ae.Bytes(IFLA_ADDRESS, eth0MAC)
	ae.Bytes(IFLA_BROADCAST, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	ae.Uint32(IFLA_TXQLEN, 1000)
	ae.String(IFLA_QDISC, "fq_codel")
	if mod != nil {
		mod(ae)
	}

	attrs, err := ae.Encode()
	if err != nil {
		t.Fatalf("error encoding the attributes: %v", err)
	}

	return netlink.Message{
		Header: netlink.Header{Type: netlink.HeaderType(RTM_NEWLINK)},
		Data:   append(hdr.serialize(), attrs...),
	}
}

func TestDecodeLinkEth0(t *testing.T) {
	tmpl := DefaultLinkRecord()
	f, err := GenerateLinkFilter(&tmpl)
	if err != nil {
		t.Fatalf("error generating the filter: %v", err)
	}

	rec, outcome, err := DecodeLink(linkMsg(t, nil), f, &tmpl)
	if err != nil {
		t.Fatalf("error decoding: %v", err)
	}
	if outcome != Keep {
		t.Fatalf("got %v, want %v", outcome, Keep)
	}

	if rec.Name != "eth0" || rec.MTU != 1500 || rec.OperState != types.IF_OPER_UP {
		t.Errorf("got name=%q mtu=%d operstate=%s, want eth0, 1500 and up", rec.Name, rec.MTU, rec.OperState)
	}
	if rec.Index != 2 || !rec.Up() {
		t.Errorf("got index %d and up=%t", rec.Index, rec.Up())
	}
	if got := rec.HardwareAddr(); got != "52:54:00:12:34:56" {
		t.Errorf("got address %q, want 52:54:00:12:34:56", got)
	}
	if got := rec.BroadcastAddr(); got != "ff:ff:ff:ff:ff:ff" {
		t.Errorf("got broadcast %q", got)
	}
	if rec.QDisc != "fq_codel" || rec.TxQLen != 1000 {
		t.Errorf("got qdisc %q and txqlen %d", rec.QDisc, rec.TxQLen)
	}
	if rec.Stats != nil || rec.Map != nil {
		t.Errorf("got stats %v and map %v without the attributes", rec.Stats, rec.Map)
	}
}

func TestDecodeLinkStats(t *testing.T) {
	stats := make([]byte, 24*4)
	for i := 0; i < 24; i++ {
		native.Endian.PutUint32(stats[i*4:], uint32(i+1))
	}

	ifmap := make([]byte, sizeofLinkMapMin+4)
	native.Endian.PutUint64(ifmap[0:8], 0xd000)
	native.Endian.PutUint64(ifmap[8:16], 0xdfff)
	native.Endian.PutUint16(ifmap[24:26], 11)

	m := linkMsg(t, func(ae *netlink.AttributeEncoder) {
		ae.Bytes(IFLA_STATS, stats)
		ae.Bytes(IFLA_MAP, ifmap)
		ae.String(IFLA_IFALIAS, "uplink")
		ae.Uint8(IFLA_LINKMODE, uint8(types.IF_LINK_MODE_DORMANT))
		ae.Uint32(IFLA_LINK, 7)
	})

	tmpl := DefaultLinkRecord()
	f, _ := GenerateLinkFilter(&tmpl)

	rec, _, err := DecodeLink(m, f, &tmpl)
	if err != nil {
		t.Fatalf("error decoding: %v", err)
	}

	if rec.Stats == nil || rec.Stats.RxPackets != 1 || rec.Stats.TxBytes != 4 || rec.Stats.RxNoHandler != 24 {
		t.Errorf("got stats %+v", rec.Stats)
	}

	want := &LinkMap{MemStart: 0xd000, MemEnd: 0xdfff, IRQ: 11}
	if diff := cmp.Diff(want, rec.Map); diff != "" {
		t.Errorf("unexpected map (-want +got):\n%s", diff)
	}

	if rec.Alias != "uplink" || rec.LinkMode != types.IF_LINK_MODE_DORMANT || rec.Link != 7 {
		t.Errorf("got alias %q, linkmode %s and link %d", rec.Alias, rec.LinkMode, rec.Link)
	}
}

func TestDecodeLinkFilter(t *testing.T) {
	tests := []struct {
		name string
		tmpl func(l *LinkRecord)
		want Outcome
	}{
		{"name", func(l *LinkRecord) { l.Name = "eth0" }, Keep},
		{"other name", func(l *LinkRecord) { l.Name = "eth1" }, Skip},
		{"index", func(l *LinkRecord) { l.Index = 2 }, Keep},
		{"other index", func(l *LinkRecord) { l.Index = 3 }, Skip},
		{"address", func(l *LinkRecord) { l.Address = eth0MAC }, Keep},
		{"other address", func(l *LinkRecord) { l.Address = []byte{0, 0, 0, 0, 0, 1} }, Skip},
		{"type", func(l *LinkRecord) { l.Type = ARPHRD_LOOPBACK }, Skip},
		{"mtu", func(l *LinkRecord) { l.MTU = 9000 }, Skip},
		{"operstate", func(l *LinkRecord) { l.OperState = types.IF_OPER_UP }, Keep},
		{"down", func(l *LinkRecord) { l.OperState = types.IF_OPER_DOWN }, Skip},
		{"alias", func(l *LinkRecord) { l.Alias = "uplink" }, Skip},
	}

	for _, test := range tests {
		tmpl := DefaultLinkRecord()
		test.tmpl(&tmpl)

		f, err := GenerateLinkFilter(&tmpl)
		if err != nil {
			t.Fatalf("%q: error generating the filter: %v", test.name, err)
		}

		_, got, err := DecodeLink(linkMsg(t, nil), f, &tmpl)
		if err != nil {
			t.Errorf("%q: error decoding: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%q: got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestDecodeLinkMalformed(t *testing.T) {
	tmpl := DefaultLinkRecord()
	f, _ := GenerateLinkFilter(&tmpl)

	tests := []struct {
		name string
		m    netlink.Message
	}{
		{"short ifinfomsg", netlink.Message{Data: make([]byte, sizeofIfInfoMsg-1)}},
		{"short stats", linkMsg(t, func(ae *netlink.AttributeEncoder) { ae.Bytes(IFLA_STATS, make([]byte, 8)) })},
		{"short map", linkMsg(t, func(ae *netlink.AttributeEncoder) { ae.Bytes(IFLA_MAP, make([]byte, 8)) })},
		{"wide operstate", linkMsg(t, func(ae *netlink.AttributeEncoder) { ae.Uint32(IFLA_OPERSTATE, 6) })},
	}

	for _, test := range tests {
		if _, _, err := DecodeLink(test.m, f, &tmpl); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: got %v, want %v", test.name, err, ErrMalformed)
		}
	}
}

func TestLinkModifyRequest(t *testing.T) {
	rec := DefaultLinkRecord()
	rec.Index = 2
	rec.Flags, rec.Change = IFF_UP, IFF_UP
	rec.MTU = 9000

	f, err := GenerateLinkFilter(&rec)
	if err != nil {
		t.Fatalf("error generating the filter: %v", err)
	}

	req, err := newLinkModifyRequest(&rec, f, RTM_NEWLINK, 0)
	if err != nil {
		t.Fatalf("error building the request: %v", err)
	}

	var hdr ifInfoMsg
	if err := hdr.deserialize(req.Bytes()[sizeofNlMsghdr:]); err != nil {
		t.Fatalf("error reading the header back: %v", err)
	}
	want := ifInfoMsg{Family: unix.AF_UNSPEC, Type: ARPHRD_VOID, Index: 2, Flags: IFF_UP, Change: IFF_UP}
	if diff := cmp.Diff(want, hdr); diff != "" {
		t.Errorf("unexpected ifinfomsg (-want +got):\n%s", diff)
	}

	ad, err := netlink.NewAttributeDecoder(req.Bytes()[sizeofNlMsghdr+sizeofIfInfoMsg:])
	if err != nil {
		t.Fatalf("error creating the attribute decoder: %v", err)
	}
	got := map[uint16]uint32{}
	for ad.Next() {
		got[ad.Type()] = ad.Uint32()
	}
	if diff := cmp.Diff(map[uint16]uint32{IFLA_MTU: 9000}, got); diff != "" {
		t.Errorf("unexpected attributes (-want +got):\n%s", diff)
	}

	// Untouched flags must not ride on the all-ones change mask.
	rec = DefaultLinkRecord()
	rec.Name = "eth0"
	f, _ = GenerateLinkFilter(&rec)
	req, err = newLinkModifyRequest(&rec, f, RTM_NEWLINK, 0)
	if err != nil {
		t.Fatalf("error building the request: %v", err)
	}
	if err := hdr.deserialize(req.Bytes()[sizeofNlMsghdr:]); err != nil {
		t.Fatalf("error reading the header back: %v", err)
	}
	if hdr.Flags != 0 || hdr.Change != 0 {
		t.Errorf("got flags %#x and change %#x, want both zero", hdr.Flags, hdr.Change)
	}
}

func TestLinkModifyRejects(t *testing.T) {
	tests := []struct {
		name string
		rec  func(l *LinkRecord)
		typ  uint16
	}{
		{"no name nor index", func(l *LinkRecord) { l.MTU = 1500 }, RTM_NEWLINK},
		{"long name", func(l *LinkRecord) { l.Name = "a-very-long-ifname" }, RTM_NEWLINK},
		{"route type", func(l *LinkRecord) { l.Index = 1 }, RTM_NEWROUTE},
	}

	for _, test := range tests {
		rec := DefaultLinkRecord()
		test.rec(&rec)
		f, err := GenerateLinkFilter(&rec)
		if err != nil {
			t.Fatalf("%q: error generating the filter: %v", test.name, err)
		}
		if _, err := newLinkModifyRequest(&rec, f, test.typ, 0); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%q: got %v, want %v", test.name, err, ErrInvalidParameter)
		}
	}
}
