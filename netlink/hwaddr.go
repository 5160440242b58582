package netlink

import (
	"fmt"
	"net/netip"
	"strings"
)

type linkType struct {
	arphrd uint16
	name   string
}

// linkTypes is ordered; LinkTypeIndex hands out positions into it. The final
// NONE entry doubles as the answer for unknown hardware types.
var linkTypes = []linkType{
	{ARPHRD_NETROM, "NETROM"},
	{ARPHRD_ETHER, "ETHER"},
	{ARPHRD_EETHER, "EETHER"},
	{ARPHRD_AX25, "AX25"},
	{ARPHRD_PRONET, "PRONET"},
	{ARPHRD_CHAOS, "CHAOS"},
	{ARPHRD_IEEE802, "IEEE802"},
	{ARPHRD_ARCNET, "ARCNET"},
	{ARPHRD_APPLETLK, "APPLETLK"},
	{ARPHRD_DLCI, "DLCI"},
	{ARPHRD_ATM, "ATM"},
	{ARPHRD_METRICOM, "METRICOM"},
	{ARPHRD_IEEE1394, "IEEE1394"},
	{ARPHRD_EUI64, "EUI64"},
	{ARPHRD_INFINIBAND, "INFINIBAND"},
	{ARPHRD_SLIP, "SLIP"},
	{ARPHRD_CSLIP, "CSLIP"},
	{ARPHRD_SLIP6, "SLIP6"},
	{ARPHRD_CSLIP6, "CSLIP6"},
	{ARPHRD_RSRVD, "RSRVD"},
	{ARPHRD_ADAPT, "ADAPT"},
	{ARPHRD_ROSE, "ROSE"},
	{ARPHRD_X25, "X25"},
	{ARPHRD_HWX25, "HWX25"},
	{ARPHRD_CAN, "CAN"},
	{ARPHRD_PPP, "PPP"},
	{ARPHRD_CISCO, "CISCO"},
	{ARPHRD_HDLC, "HDLC"},
	{ARPHRD_LAPB, "LAPB"},
	{ARPHRD_DDCMP, "DDCMP"},
	{ARPHRD_RAWHDLC, "RAWHDLC"},
	{ARPHRD_TUNNEL, "TUNNEL"},
	{ARPHRD_TUNNEL6, "TUNNEL6"},
	{ARPHRD_FRAD, "FRAD"},
	{ARPHRD_SKIP, "SKIP"},
	{ARPHRD_LOOPBACK, "LOOPBACK"},
	{ARPHRD_LOCALTLK, "LOCALTLK"},
	{ARPHRD_FDDI, "FDDI"},
	{ARPHRD_BIF, "BIF"},
	{ARPHRD_SIT, "SIT"},
	{ARPHRD_IPDDP, "IPDDP"},
	{ARPHRD_IPGRE, "IPGRE"},
	{ARPHRD_PIMREG, "PIMREG"},
	{ARPHRD_HIPPI, "HIPPI"},
	{ARPHRD_ASH, "ASH"},
	{ARPHRD_ECONET, "ECONET"},
	{ARPHRD_IRDA, "IRDA"},
	{ARPHRD_FCPP, "FCPP"},
	{ARPHRD_FCAL, "FCAL"},
	{ARPHRD_FCPL, "FCPL"},
	{ARPHRD_FCFABRIC, "FCFABRIC"},
	{ARPHRD_IEEE802_TR, "IEEE802_TR"},
	{ARPHRD_IEEE80211, "IEEE80211"},
	{ARPHRD_IEEE80211_PRISM, "IEEE80211_PRISM"},
	{ARPHRD_IEEE80211_RADIOTAP, "IEEE80211_RADIOTAP"},
	{ARPHRD_VOID, "VOID"},
	{ARPHRD_NONE, "NONE"},
}

// linkTypePos maps a hardware type onto its first position in linkTypes.
var linkTypePos = func() map[uint16]int {
	m := make(map[uint16]int, len(linkTypes))
	for i, lt := range linkTypes {
		if _, ok := m[lt.arphrd]; !ok {
			m[lt.arphrd] = i
		}
	}
	return m
}()

// LinkTypeIndex returns the position of devType within the known hardware
// types. Unknown types map onto the last position (NONE).
func LinkTypeIndex(devType uint16) int {
	if i, ok := linkTypePos[devType]; ok {
		return i
	}
	return len(linkTypes) - 1
}

func LinkTypeName(devType uint16) string {
	return linkTypes[LinkTypeIndex(devType)].name
}

// FormatHardwareAddr renders a link-layer address. Tunnels carry the
// underlying IP endpoint as their hardware address, so those are shown as IP
// literals; everything else is shown as colon-separated hex octets.
func FormatHardwareAddr(raw []byte, devType uint16) string {
	switch {
	case len(raw) == 4 && (devType == ARPHRD_TUNNEL || devType == ARPHRD_SIT || devType == ARPHRD_IPGRE):
		return netip.AddrFrom4([4]byte(raw)).String()
	case len(raw) == 16 && devType == ARPHRD_TUNNEL6:
		return netip.AddrFrom16([16]byte(raw)).String()
	}

	var sb strings.Builder
	for i, b := range raw {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}
