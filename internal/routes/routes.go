// Package routes adds, removes and lists IP next-hop routes described the way
// an operator would: a destination prefix, a gateway and an output link.
package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	nl "github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/types"
)

// NextHop describes a single route. Out of range type, scope and table values
// fall back to their unspecified defaults instead of being rejected.
type NextHop struct {
	Dst      netip.Prefix        `json:"dst"`
	Gateway  netip.Addr          `json:"gateway,omitempty"`
	OutputIf int                 `json:"outputIf"`
	Metric   int                 `json:"metric"`
	Type     types.RouteType     `json:"type"`
	Scope    types.RouteScope    `json:"scope"`
	Table    types.RouteTable    `json:"table"`
	Protocol types.RouteProtocol `json:"protocol"`

	// Static marks operator-installed routes. On output it's set for any
	// protocol up to and including RTPROT_STATIC.
	Static bool `json:"static"`
}

// Modifier is satisfied by *netlink.Session.
type Modifier interface {
	ModifyRoute(ctx context.Context, rec netlink.RouteRecord, msgType uint16, flags nl.HeaderFlags) error
}

// Lister is satisfied by *netlink.Session.
type Lister interface {
	Routes(ctx context.Context, tmpl netlink.RouteRecord) (netlink.List[netlink.RouteRecord], error)
}

func (n NextHop) String() string {
	s := n.Dst.String()
	if n.Gateway.IsValid() {
		s += " via " + n.Gateway.String()
	}
	if n.OutputIf > 0 {
		s += fmt.Sprintf(" dev %d", n.OutputIf)
	}
	return s
}

// Record converts n into the template ModifyRoute expects.
func (n NextHop) Record() (netlink.RouteRecord, error) {
	if !n.Dst.IsValid() {
		return netlink.RouteRecord{}, fmt.Errorf("%w: missing destination", netlink.ErrInvalidParameter)
	}

	dst := n.Dst.Masked()

	rec := netlink.DefaultRouteRecord()
	rec.Family = types.IPv6
	if dst.Addr().Is4() {
		rec.Family = types.IPv4
	}
	rec.Dst = dst.Addr().String()
	rec.DstLen = dst.Bits()

	if n.Gateway.IsValid() {
		rec.Gateway = n.Gateway.String()
	}

	rec.Type = n.Type
	if n.Type < types.RTN_UNSPEC || n.Type > types.RTN_MAX {
		rec.Type = types.RTN_UNSPEC
	}

	rec.Scope = n.Scope
	if n.Scope < types.RT_SCOPE_UNIVERSE || n.Scope > types.RT_SCOPE_NOWHERE {
		rec.Scope = types.RT_SCOPE_UNIVERSE
	}

	rec.Table = n.Table
	if n.Table < types.RT_TABLE_UNSPEC || n.Table > types.RT_TABLE_LOCAL {
		rec.Table = types.RT_TABLE_UNSPEC
	}

	switch {
	case n.Protocol > types.RTPROT_UNSPEC && n.Protocol <= types.RTPROT_MAX:
		rec.Protocol = n.Protocol
	case n.Static:
		rec.Protocol = types.RTPROT_STATIC
	}

	if n.OutputIf > 0 {
		rec.OutputIf = n.OutputIf
	}
	if n.Metric >= 0 {
		rec.Priority = n.Metric
	}

	return rec, nil
}

// FromRecord converts a decoded route back into a NextHop. Routes without a
// destination attribute are default routes.
func FromRecord(rec netlink.RouteRecord) (NextHop, error) {
	var dst netip.Addr
	if rec.Dst != "" {
		a, err := netip.ParseAddr(rec.Dst)
		if err != nil {
			return NextHop{}, fmt.Errorf("error parsing destination %q: %w", rec.Dst, err)
		}
		dst = a
	} else if rec.Family == types.IPv6 {
		dst = netip.IPv6Unspecified()
	} else {
		dst = netip.IPv4Unspecified()
	}

	prefix, err := dst.Prefix(rec.DstLen)
	if err != nil {
		return NextHop{}, fmt.Errorf("error building prefix %s/%d: %w", rec.Dst, rec.DstLen, err)
	}

	n := NextHop{
		Dst:      prefix,
		OutputIf: rec.OutputIf,
		Metric:   rec.Priority,
		Type:     rec.Type,
		Scope:    rec.Scope,
		Table:    rec.Table,
		Protocol: rec.Protocol,
		Static:   rec.Protocol <= types.RTPROT_STATIC,
	}

	if rec.Gateway != "" {
		gw, err := netip.ParseAddr(rec.Gateway)
		if err != nil {
			return NextHop{}, fmt.Errorf("error parsing gateway %q: %w", rec.Gateway, err)
		}
		n.Gateway = gw
	}

	return n, nil
}

// AddRoute installs n, failing with EEXIST if an identical route is present.
// A route with no protocol of its own is marked as static.
func AddRoute(ctx context.Context, m Modifier, n NextHop) error {
	if n.Protocol == types.RTPROT_UNSPEC {
		n.Static = true
	}

	rec, err := n.Record()
	if err != nil {
		return err
	}

	slog.Debug("adding route", "route", n, "table", rec.Table, "protocol", rec.Protocol)

	if err := m.ModifyRoute(ctx, rec, netlink.RTM_NEWROUTE, nl.Create|nl.Excl); err != nil {
		return fmt.Errorf("error adding route %s: %w", n, err)
	}
	return nil
}

func DeleteRoute(ctx context.Context, m Modifier, n NextHop) error {
	rec, err := n.Record()
	if err != nil {
		return err
	}

	slog.Debug("deleting route", "route", n, "table", rec.Table)

	if err := m.ModifyRoute(ctx, rec, netlink.RTM_DELROUTE, 0); err != nil {
		return fmt.Errorf("error deleting route %s: %w", n, err)
	}
	return nil
}

// List returns the IPv4 routes followed by the IPv6 ones.
func List(ctx context.Context, l Lister) ([]NextHop, error) {
	var hops []NextHop
	for _, family := range []types.Family{types.IPv4, types.IPv6} {
		tmpl := netlink.DefaultRouteRecord()
		tmpl.Family = family

		recs, err := l.Routes(ctx, tmpl)
		if err != nil {
			return nil, fmt.Errorf("error listing %s routes: %w", family, err)
		}

		for _, rec := range recs {
			n, err := FromRecord(rec)
			if err != nil {
				return nil, err
			}
			hops = append(hops, n)
		}
	}
	return hops, nil
}
