package netlink

// The rtnetlink ABI constants are spelt as in include/uapi/linux/rtnetlink.h,
// include/uapi/linux/if_link.h and include/uapi/linux/if_arp.h so they can be
// grepped for in the kernel sources. Values are the Linux ones no matter what
// platform we're built on.
const (
	RTM_NEWLINK  uint16 = 16
	RTM_DELLINK  uint16 = 17
	RTM_GETLINK  uint16 = 18
	RTM_NEWROUTE uint16 = 24
	RTM_DELROUTE uint16 = 25
	RTM_GETROUTE uint16 = 26
)

// Route attributes (enum rtattr_type_t).
const (
	RTA_UNSPEC    uint16 = 0
	RTA_DST       uint16 = 1
	RTA_SRC       uint16 = 2
	RTA_IIF       uint16 = 3
	RTA_OIF       uint16 = 4
	RTA_GATEWAY   uint16 = 5
	RTA_PRIORITY  uint16 = 6
	RTA_PREFSRC   uint16 = 7
	RTA_METRICS   uint16 = 8
	RTA_MULTIPATH uint16 = 9
	RTA_FLOW      uint16 = 11
	RTA_CACHEINFO uint16 = 12
	RTA_TABLE     uint16 = 15

	RTAX_MTU uint16 = 2
)

// Link attributes.
const (
	IFLA_UNSPEC    uint16 = 0
	IFLA_ADDRESS   uint16 = 1
	IFLA_BROADCAST uint16 = 2
	IFLA_IFNAME    uint16 = 3
	IFLA_MTU       uint16 = 4
	IFLA_LINK      uint16 = 5
	IFLA_QDISC     uint16 = 6
	IFLA_STATS     uint16 = 7
	IFLA_TXQLEN    uint16 = 13
	IFLA_MAP       uint16 = 14
	IFLA_OPERSTATE uint16 = 16
	IFLA_LINKMODE  uint16 = 17
	IFLA_IFALIAS   uint16 = 20
)

const (
	IFF_UP uint32 = 0x1

	// IFNAMSIZ accounts for the trailing '\0'.
	IFNAMSIZ = 16

	// Any change mask bit set means the matching flag is to be updated.
	// All of them set is what an unconstrained template carries.
	CHANGE_ALL uint32 = 0xFFFFFFFF
)

// Hardware types as defined in include/uapi/linux/if_arp.h.
const (
	ARPHRD_NETROM             uint16 = 0
	ARPHRD_ETHER              uint16 = 1
	ARPHRD_EETHER             uint16 = 2
	ARPHRD_AX25               uint16 = 3
	ARPHRD_PRONET             uint16 = 4
	ARPHRD_CHAOS              uint16 = 5
	ARPHRD_IEEE802            uint16 = 6
	ARPHRD_ARCNET             uint16 = 7
	ARPHRD_APPLETLK           uint16 = 8
	ARPHRD_DLCI               uint16 = 15
	ARPHRD_ATM                uint16 = 19
	ARPHRD_METRICOM           uint16 = 23
	ARPHRD_IEEE1394           uint16 = 24
	ARPHRD_EUI64              uint16 = 27
	ARPHRD_INFINIBAND         uint16 = 32
	ARPHRD_SLIP               uint16 = 256
	ARPHRD_CSLIP              uint16 = 257
	ARPHRD_SLIP6              uint16 = 258
	ARPHRD_CSLIP6             uint16 = 259
	ARPHRD_RSRVD              uint16 = 260
	ARPHRD_ADAPT              uint16 = 264
	ARPHRD_ROSE               uint16 = 270
	ARPHRD_X25                uint16 = 271
	ARPHRD_HWX25              uint16 = 272
	ARPHRD_CAN                uint16 = 280
	ARPHRD_PPP                uint16 = 512
	ARPHRD_CISCO              uint16 = 513
	ARPHRD_HDLC                      = ARPHRD_CISCO
	ARPHRD_LAPB               uint16 = 516
	ARPHRD_DDCMP              uint16 = 517
	ARPHRD_RAWHDLC            uint16 = 518
	ARPHRD_TUNNEL             uint16 = 768
	ARPHRD_TUNNEL6            uint16 = 769
	ARPHRD_FRAD               uint16 = 770
	ARPHRD_SKIP               uint16 = 771
	ARPHRD_LOOPBACK           uint16 = 772
	ARPHRD_LOCALTLK           uint16 = 773
	ARPHRD_FDDI               uint16 = 774
	ARPHRD_BIF                uint16 = 775
	ARPHRD_SIT                uint16 = 776
	ARPHRD_IPDDP              uint16 = 777
	ARPHRD_IPGRE              uint16 = 778
	ARPHRD_PIMREG             uint16 = 779
	ARPHRD_HIPPI              uint16 = 780
	ARPHRD_ASH                uint16 = 781
	ARPHRD_ECONET             uint16 = 782
	ARPHRD_IRDA               uint16 = 783
	ARPHRD_FCPP               uint16 = 784
	ARPHRD_FCAL               uint16 = 785
	ARPHRD_FCPL               uint16 = 786
	ARPHRD_FCFABRIC           uint16 = 787
	ARPHRD_IEEE802_TR         uint16 = 800
	ARPHRD_IEEE80211          uint16 = 801
	ARPHRD_IEEE80211_PRISM    uint16 = 802
	ARPHRD_IEEE80211_RADIOTAP uint16 = 803
	ARPHRD_VOID               uint16 = 0xFFFF
	ARPHRD_NONE               uint16 = 0xFFFE
)

// Wire sizes.
const (
	nlmsgAlignTo = 4

	sizeofNlMsghdr  = 16
	sizeofRtMsg     = 12
	sizeofIfInfoMsg = 16
	sizeofRtAttr    = 4
	sizeofNlMsgerr  = 4 + sizeofNlMsghdr

	// requestAttrSpace bounds the attributes any single request may carry.
	requestAttrSpace = 1024
)

func nlmsgAlign(n int) int {
	return (n + nlmsgAlignTo - 1) & ^(nlmsgAlignTo - 1)
}
