package netlink

import (
	"testing"
)

func TestFormatHardwareAddr(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		devType uint16
		want    string
	}{
		{"ethernet", []byte{0x52, 0x54, 0x00, 0xab, 0xcd, 0xef}, ARPHRD_ETHER, "52:54:00:ab:cd:ef"},
		{"loopback", make([]byte, 6), ARPHRD_LOOPBACK, "00:00:00:00:00:00"},
		{"empty", nil, ARPHRD_NONE, ""},
		{"ipip", []byte{192, 0, 2, 1}, ARPHRD_TUNNEL, "192.0.2.1"},
		{"sit", []byte{198, 51, 100, 7}, ARPHRD_SIT, "198.51.100.7"},
		{"gre", []byte{10, 0, 0, 1}, ARPHRD_IPGRE, "10.0.0.1"},
		{"ip6tnl", []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, ARPHRD_TUNNEL6, "2001:db8::1"},
		{"odd tunnel", []byte{1, 2, 3}, ARPHRD_TUNNEL, "01:02:03"},
		{"ipv4 on ip6tnl", []byte{10, 0, 0, 1}, ARPHRD_TUNNEL6, "0a:00:00:01"},
	}

	for _, test := range tests {
		if got := FormatHardwareAddr(test.raw, test.devType); got != test.want {
			t.Errorf("%q: got %q, want %q", test.name, got, test.want)
		}
	}
}

func TestLinkTypeIndex(t *testing.T) {
	tests := []struct {
		devType uint16
		want    string
	}{
		{ARPHRD_NETROM, "NETROM"},
		{ARPHRD_ETHER, "ETHER"},
		{ARPHRD_LOOPBACK, "LOOPBACK"},
		{ARPHRD_CISCO, "CISCO"},
		{ARPHRD_VOID, "VOID"},
		{ARPHRD_NONE, "NONE"},
		{0x4242, "NONE"},
	}

	for _, test := range tests {
		if got := LinkTypeName(test.devType); got != test.want {
			t.Errorf("%d: got %q, want %q", test.devType, got, test.want)
		}
	}

	if LinkTypeIndex(ARPHRD_NETROM) != 0 {
		t.Errorf("got %d for NETROM, want 0", LinkTypeIndex(ARPHRD_NETROM))
	}
	if LinkTypeIndex(0x4242) != LinkTypeIndex(ARPHRD_NONE) {
		t.Errorf("an unknown type should share NONE's position")
	}
}
