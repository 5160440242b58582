// Package qdisc lists the queueing disciplines attached to links. The link
// dump only carries the root qdisc's kind through IFLA_QDISC; the full tree
// lives behind RTM_GETQDISC, which we leave to github.com/florianl/go-tc.
package qdisc

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/florianl/go-tc"
	"github.com/florianl/go-tc/core"
	"github.com/mdlayher/netlink"
)

// Qdisc is a single queueing discipline as reported by the kernel.
type Qdisc struct {
	Ifindex uint32 `json:"ifindex"`
	Kind    string `json:"kind"`
	Handle  string `json:"handle"`
	Parent  string `json:"parent"`

	Bytes      uint64 `json:"bytes"`
	Packets    uint32 `json:"packets"`
	Drops      uint32 `json:"drops"`
	Overlimits uint32 `json:"overlimits"`
	Qlen       uint32 `json:"qlen"`
	Backlog    uint32 `json:"backlog"`
}

// Client wraps a go-tc connection. Beware that it should be closed to avoid
// leaking fds.
type Client struct {
	conn *tc.Tc
}

func Open() (*Client, error) {
	tcnl, err := tc.Open(&tc.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not open rtnetlink socket: %w", err)
	}

	// For enhanced error messages from the kernel, it is recommended to set
	// option `NETLINK_EXT_ACK`, which is supported since 4.12 kernel. If not
	// supported, `unix.ENOPROTOOPT` is returned.
	if err := tcnl.SetOption(netlink.ExtendedAcknowledge, true); err != nil {
		slog.Warn("could not set option ExtendedAcknowledge", "err", err)
	}

	return &Client{conn: tcnl}, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// List returns the qdiscs attached to ifindex, or every qdisc on the system
// when ifindex is 0.
func (c *Client) List(ifindex uint32) ([]Qdisc, error) {
	objs, err := c.conn.Qdisc().Get()
	if err != nil {
		return nil, fmt.Errorf("error getting qdiscs: %w", err)
	}
	return fromObjects(objs, ifindex), nil
}

func fromObjects(objs []tc.Object, ifindex uint32) []Qdisc {
	qdiscs := []Qdisc{}
	for _, obj := range objs {
		if ifindex != 0 && obj.Ifindex != ifindex {
			continue
		}

		q := Qdisc{
			Ifindex: obj.Ifindex,
			Kind:    obj.Kind,
			Handle:  FormatHandle(obj.Handle),
			Parent:  FormatHandle(obj.Parent),
		}
		if obj.Stats != nil {
			q.Bytes = obj.Stats.Bytes
			q.Packets = obj.Stats.Packets
			q.Drops = obj.Stats.Drops
			q.Overlimits = obj.Stats.Overlimits
			q.Qlen = obj.Stats.Qlen
			q.Backlog = obj.Stats.Backlog
		}
		qdiscs = append(qdiscs, q)
	}

	sort.SliceStable(qdiscs, func(i, j int) bool { return qdiscs[i].Ifindex < qdiscs[j].Ifindex })

	return qdiscs
}

// FormatHandle renders a handle the way tc(8) does.
func FormatHandle(h uint32) string {
	switch h {
	case tc.HandleRoot:
		return "root"
	case tc.HandleIngress:
		return "ingress"
	case 0:
		return "none"
	}

	maj, min := core.SplitHandle(h)
	if min == 0 {
		return fmt.Sprintf("%x:", maj)
	}
	return fmt.Sprintf("%x:%x", maj, min)
}
