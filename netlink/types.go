package netlink

import (
	"github.com/scitags/rtnl/types"
)

// RouteRecord is a decoded rtmsg along with its attributes. Addresses are kept
// in their presentation form. When used as a template, wildcards are expressed
// through the values DefaultRouteRecord hands out.
type RouteRecord struct {
	Family   types.Family        `json:"family"`
	Type     types.RouteType     `json:"type"`
	Protocol types.RouteProtocol `json:"protocol"`
	Scope    types.RouteScope    `json:"scope"`
	SrcLen   int                 `json:"srcLen"`
	DstLen   int                 `json:"dstLen"`
	TOS      int                 `json:"tos"`

	Dst     string `json:"dst,omitempty"`
	Src     string `json:"src,omitempty"`
	Gateway string `json:"gateway,omitempty"`
	PrefSrc string `json:"prefSrc,omitempty"`

	InputIf  int `json:"inputIf"`
	OutputIf int `json:"outputIf"`
	Priority int `json:"priority"`

	// Metrics holds the RTAX_MTU route metric.
	Metrics int              `json:"metrics"`
	Table   types.RouteTable `json:"table"`
}

// DefaultRouteRecord returns a template matching every IPv4 route.
func DefaultRouteRecord() RouteRecord {
	return RouteRecord{
		Family:   types.IPv4,
		Type:     types.RTN_UNSPEC,
		Protocol: types.RTPROT_UNSPEC,
		Scope:    types.RT_SCOPE_UNIVERSE,
		InputIf:  -1,
		OutputIf: -1,
		Priority: -1,
		Metrics:  -1,
		Table:    types.RT_TABLE_UNSPEC,
	}
}

// LinkRecord is a decoded ifinfomsg along with its attributes.
type LinkRecord struct {
	Family uint8  `json:"family"`
	Type   uint16 `json:"type"`
	Index  int    `json:"index"`
	Flags  uint32 `json:"flags"`
	Change uint32 `json:"change"`

	// Link-layer addresses are kept raw; use HardwareAddr and BroadcastAddr
	// to render them.
	Address   []byte `json:"-"`
	Broadcast []byte `json:"-"`

	Name      string          `json:"name"`
	MTU       uint32          `json:"mtu"`
	Link      int             `json:"link"`
	QDisc     string          `json:"qdisc,omitempty"`
	Stats     *LinkStats      `json:"stats,omitempty"`
	TxQLen    int             `json:"txqlen"`
	Map       *LinkMap        `json:"map,omitempty"`
	OperState types.OperState `json:"operState"`
	LinkMode  types.LinkMode  `json:"linkMode"`
	Alias     string          `json:"alias,omitempty"`
}

// DefaultLinkRecord returns a template matching every link.
func DefaultLinkRecord() LinkRecord {
	return LinkRecord{
		Family:    uint8(types.Unspec),
		Type:      ARPHRD_VOID,
		Change:    CHANGE_ALL,
		OperState: types.IF_OPER_UNKNOWN,
		LinkMode:  types.IF_LINK_MODE_DEFAULT,
	}
}

func (l *LinkRecord) HardwareAddr() string {
	return FormatHardwareAddr(l.Address, l.Type)
}

func (l *LinkRecord) BroadcastAddr() string {
	return FormatHardwareAddr(l.Broadcast, l.Type)
}

func (l *LinkRecord) Up() bool {
	return l.Flags&IFF_UP != 0
}

// LinkStats mirrors struct rtnl_link_stats. Older kernels omit the trailing
// fields, which are then left at zero.
type LinkStats struct {
	RxPackets         uint32 `structs:"rx_packets" json:"rxPackets"`
	TxPackets         uint32 `structs:"tx_packets" json:"txPackets"`
	RxBytes           uint32 `structs:"rx_bytes" json:"rxBytes"`
	TxBytes           uint32 `structs:"tx_bytes" json:"txBytes"`
	RxErrors          uint32 `structs:"rx_errors" json:"rxErrors"`
	TxErrors          uint32 `structs:"tx_errors" json:"txErrors"`
	RxDropped         uint32 `structs:"rx_dropped" json:"rxDropped"`
	TxDropped         uint32 `structs:"tx_dropped" json:"txDropped"`
	Multicast         uint32 `structs:"multicast" json:"multicast"`
	Collisions        uint32 `structs:"collisions" json:"collisions"`
	RxLengthErrors    uint32 `structs:"rx_length_errors" json:"rxLengthErrors"`
	RxOverErrors      uint32 `structs:"rx_over_errors" json:"rxOverErrors"`
	RxCRCErrors       uint32 `structs:"rx_crc_errors" json:"rxCrcErrors"`
	RxFrameErrors     uint32 `structs:"rx_frame_errors" json:"rxFrameErrors"`
	RxFIFOErrors      uint32 `structs:"rx_fifo_errors" json:"rxFifoErrors"`
	RxMissedErrors    uint32 `structs:"rx_missed_errors" json:"rxMissedErrors"`
	TxAbortedErrors   uint32 `structs:"tx_aborted_errors" json:"txAbortedErrors"`
	TxCarrierErrors   uint32 `structs:"tx_carrier_errors" json:"txCarrierErrors"`
	TxFIFOErrors      uint32 `structs:"tx_fifo_errors" json:"txFifoErrors"`
	TxHeartbeatErrors uint32 `structs:"tx_heartbeat_errors" json:"txHeartbeatErrors"`
	TxWindowErrors    uint32 `structs:"tx_window_errors" json:"txWindowErrors"`
	RxCompressed      uint32 `structs:"rx_compressed" json:"rxCompressed"`
	TxCompressed      uint32 `structs:"tx_compressed" json:"txCompressed"`
	RxNoHandler       uint32 `structs:"rx_nohandler" json:"rxNoHandler"`
}

// LinkMap mirrors struct rtnl_link_ifmap.
type LinkMap struct {
	MemStart uint64 `json:"memStart"`
	MemEnd   uint64 `json:"memEnd"`
	BaseAddr uint64 `json:"baseAddr"`
	IRQ      uint16 `json:"irq"`
	DMA      uint8  `json:"dma"`
	Port     uint8  `json:"port"`
}
