package types

import (
	"strconv"
	"strings"
)

// The names below follow include/uapi/linux/if.h and include/uapi/linux/rtnetlink.h
// so that they can be grepped for in the kernel sources. The linter won't like them.
type (
	OperState     uint8
	LinkMode      uint8
	RouteType     int
	RouteProtocol int
	RouteScope    int
	RouteTable    int64
)

const (
	IF_OPER_UNKNOWN        OperState = 0
	IF_OPER_NOTPRESENT     OperState = 1
	IF_OPER_DOWN           OperState = 2
	IF_OPER_LOWERLAYERDOWN OperState = 3
	IF_OPER_TESTING        OperState = 4
	IF_OPER_DORMANT        OperState = 5
	IF_OPER_UP             OperState = 6

	IF_LINK_MODE_DEFAULT LinkMode = 0
	IF_LINK_MODE_DORMANT LinkMode = 1
)

const (
	RTN_UNSPEC      RouteType = 0
	RTN_UNICAST     RouteType = 1
	RTN_LOCAL       RouteType = 2
	RTN_BROADCAST   RouteType = 3
	RTN_ANYCAST     RouteType = 4
	RTN_MULTICAST   RouteType = 5
	RTN_BLACKHOLE   RouteType = 6
	RTN_UNREACHABLE RouteType = 7
	RTN_PROHIBIT    RouteType = 8
	RTN_THROW       RouteType = 9
	RTN_NAT         RouteType = 10
	RTN_XRESOLVE    RouteType = 11
	RTN_MAX                   = RTN_XRESOLVE

	RTPROT_UNSPEC   RouteProtocol = 0
	RTPROT_REDIRECT RouteProtocol = 1
	RTPROT_KERNEL   RouteProtocol = 2
	RTPROT_BOOT     RouteProtocol = 3
	RTPROT_STATIC   RouteProtocol = 4
	RTPROT_RA       RouteProtocol = 9
	RTPROT_ZEBRA    RouteProtocol = 11
	RTPROT_BIRD     RouteProtocol = 12
	RTPROT_NTK      RouteProtocol = 15
	RTPROT_DHCP     RouteProtocol = 16
	RTPROT_BGP      RouteProtocol = 186
	RTPROT_OSPF     RouteProtocol = 188
	RTPROT_MAX                    = 255

	RT_SCOPE_UNIVERSE RouteScope = 0
	RT_SCOPE_SITE     RouteScope = 200
	RT_SCOPE_LINK     RouteScope = 253
	RT_SCOPE_HOST     RouteScope = 254
	RT_SCOPE_NOWHERE  RouteScope = 255

	RT_TABLE_UNSPEC  RouteTable = 0
	RT_TABLE_COMPAT  RouteTable = 252
	RT_TABLE_DEFAULT RouteTable = 253
	RT_TABLE_MAIN    RouteTable = 254
	RT_TABLE_LOCAL   RouteTable = 255
	RT_TABLE_MAX     RouteTable = 0xFFFFFFFF
)

var (
	operStateName = map[OperState]string{
		IF_OPER_UNKNOWN:        "unknown",
		IF_OPER_NOTPRESENT:     "notpresent",
		IF_OPER_DOWN:           "down",
		IF_OPER_LOWERLAYERDOWN: "lowerlayerdown",
		IF_OPER_TESTING:        "testing",
		IF_OPER_DORMANT:        "dormant",
		IF_OPER_UP:             "up",
	}

	linkModeName = map[LinkMode]string{
		IF_LINK_MODE_DEFAULT: "default",
		IF_LINK_MODE_DORMANT: "dormant",
	}

	routeTypeName = map[RouteType]string{
		RTN_UNSPEC:      "unspec",
		RTN_UNICAST:     "unicast",
		RTN_LOCAL:       "local",
		RTN_BROADCAST:   "broadcast",
		RTN_ANYCAST:     "anycast",
		RTN_MULTICAST:   "multicast",
		RTN_BLACKHOLE:   "blackhole",
		RTN_UNREACHABLE: "unreachable",
		RTN_PROHIBIT:    "prohibit",
		RTN_THROW:       "throw",
		RTN_NAT:         "nat",
		RTN_XRESOLVE:    "xresolve",
	}

	routeProtocolName = map[RouteProtocol]string{
		RTPROT_UNSPEC:   "unspec",
		RTPROT_REDIRECT: "redirect",
		RTPROT_KERNEL:   "kernel",
		RTPROT_BOOT:     "boot",
		RTPROT_STATIC:   "static",
		RTPROT_RA:       "ra",
		RTPROT_ZEBRA:    "zebra",
		RTPROT_BIRD:     "bird",
		RTPROT_NTK:      "ntk",
		RTPROT_DHCP:     "dhcp",
		RTPROT_BGP:      "bgp",
		RTPROT_OSPF:     "ospf",
	}

	routeScopeName = map[RouteScope]string{
		RT_SCOPE_UNIVERSE: "global",
		RT_SCOPE_SITE:     "site",
		RT_SCOPE_LINK:     "link",
		RT_SCOPE_HOST:     "host",
		RT_SCOPE_NOWHERE:  "nowhere",
	}

	routeTableName = map[RouteTable]string{
		RT_TABLE_UNSPEC:  "unspec",
		RT_TABLE_COMPAT:  "compat",
		RT_TABLE_DEFAULT: "default",
		RT_TABLE_MAIN:    "main",
		RT_TABLE_LOCAL:   "local",
	}
)

func lookup[K ~int | ~int64 | ~uint8](m map[K]string, k K) string {
	if s, ok := m[k]; ok {
		return s
	}
	return strconv.Itoa(int(k))
}

func reverse[K ~int | ~int64 | ~uint8](m map[K]string, s string) (K, bool) {
	s = strings.ToLower(s)
	for k, v := range m {
		if v == s {
			return k, true
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return K(n), true
}

func (s OperState) String() string     { return lookup(operStateName, s) }
func (m LinkMode) String() string      { return lookup(linkModeName, m) }
func (t RouteType) String() string     { return lookup(routeTypeName, t) }
func (p RouteProtocol) String() string { return lookup(routeProtocolName, p) }
func (s RouteScope) String() string    { return lookup(routeScopeName, s) }
func (t RouteTable) String() string    { return lookup(routeTableName, t) }

func (s OperState) MarshalText() ([]byte, error)     { return []byte(s.String()), nil }
func (m LinkMode) MarshalText() ([]byte, error)      { return []byte(m.String()), nil }
func (t RouteType) MarshalText() ([]byte, error)     { return []byte(t.String()), nil }
func (p RouteProtocol) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (s RouteScope) MarshalText() ([]byte, error)    { return []byte(s.String()), nil }
func (t RouteTable) MarshalText() ([]byte, error)    { return []byte(t.String()), nil }

// The parsers accept either a symbolic name or a plain decimal number.

func ParseOperState(s string) (OperState, bool)         { return reverse(operStateName, s) }
func ParseLinkMode(s string) (LinkMode, bool)           { return reverse(linkModeName, s) }
func ParseRouteType(s string) (RouteType, bool)         { return reverse(routeTypeName, s) }
func ParseRouteProtocol(s string) (RouteProtocol, bool) { return reverse(routeProtocolName, s) }
func ParseRouteScope(s string) (RouteScope, bool)       { return reverse(routeScopeName, s) }
func ParseRouteTable(s string) (RouteTable, bool)       { return reverse(routeTableName, s) }
