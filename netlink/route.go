package netlink

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/types"
)

// DecodeRoute decodes an RTM_NEWROUTE message and checks it against the
// filter generated from tmpl. Fixed fields are checked before walking the
// attributes so that mismatches are cheap.
//
// Destination and source prefixes match when both the template's and the
// route's addresses agree on the route's prefix length. A template address of
// 10.0.0.0 thus matches 10.0.0.0/16 and, with a /24 template, 10.0.0.5/24.
func DecodeRoute(m netlink.Message, f RouteFilter, tmpl *RouteRecord) (RouteRecord, Outcome, error) {
	var hdr rtMsg
	if err := hdr.deserialize(m.Data); err != nil {
		return RouteRecord{}, Skip, err
	}

	rec := DefaultRouteRecord()

	rec.Family = types.Family(hdr.Family)
	if f.Has(RouteFieldFamily) && rec.Family != tmpl.Family {
		return RouteRecord{}, Skip, nil
	}

	rec.Type = types.RouteType(hdr.Type)
	if f.Has(RouteFieldType) && rec.Type != tmpl.Type {
		return RouteRecord{}, Skip, nil
	}

	rec.Protocol = types.RouteProtocol(hdr.Protocol)
	if f.Has(RouteFieldProtocol) && rec.Protocol != tmpl.Protocol {
		return RouteRecord{}, Skip, nil
	}

	rec.Scope = types.RouteScope(hdr.Scope)
	if f.Has(RouteFieldScope) && rec.Scope != tmpl.Scope {
		return RouteRecord{}, Skip, nil
	}

	rec.SrcLen = int(hdr.SrcLen)
	if f.Has(RouteFieldSrcLen) && rec.SrcLen != tmpl.SrcLen {
		return RouteRecord{}, Skip, nil
	}

	rec.DstLen = int(hdr.DstLen)
	if f.Has(RouteFieldDstLen) && rec.DstLen != tmpl.DstLen {
		return RouteRecord{}, Skip, nil
	}

	rec.TOS = int(hdr.TOS)
	if f.Has(RouteFieldTOS) && rec.TOS != tmpl.TOS {
		return RouteRecord{}, Skip, nil
	}

	// RTA_TABLE overrides this one for tables beyond 255.
	rec.Table = types.RouteTable(hdr.Table)

	ad, err := netlink.NewAttributeDecoder(m.Data[nlmsgAlign(sizeofRtMsg):])
	if err != nil {
		return RouteRecord{}, Skip, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	for ad.Next() {
		switch ad.Type() {
		case RTA_DST, RTA_SRC, RTA_GATEWAY, RTA_PREFSRC:
			addr, ok := addrFromBytes(rec.Family, ad.Bytes())
			if !ok {
				slog.Debug("skipping route with an unconvertible address", "attr", ad.Type(), "family", rec.Family)
				return RouteRecord{}, Skip, nil
			}
			switch ad.Type() {
			case RTA_DST:
				rec.Dst = addr.String()
			case RTA_SRC:
				rec.Src = addr.String()
			case RTA_GATEWAY:
				rec.Gateway = addr.String()
			case RTA_PREFSRC:
				rec.PrefSrc = addr.String()
			}
		case RTA_IIF:
			rec.InputIf = int(ad.Uint32())
		case RTA_OIF:
			rec.OutputIf = int(ad.Uint32())
		case RTA_PRIORITY:
			rec.Priority = int(ad.Uint32())
		case RTA_METRICS:
			ad.Nested(func(nad *netlink.AttributeDecoder) error {
				for nad.Next() {
					if nad.Type() == RTAX_MTU {
						rec.Metrics = int(nad.Uint32())
					}
				}
				return nad.Err()
			})
		case RTA_TABLE:
			rec.Table = types.RouteTable(ad.Uint32())
		}
	}
	if err := ad.Err(); err != nil {
		return RouteRecord{}, Skip, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if f.Has(RouteFieldDst) && !prefixMatch(rec.Family, tmpl.Dst, rec.Dst, rec.DstLen) {
		return RouteRecord{}, Skip, nil
	}

	if f.Has(RouteFieldSrc) && !prefixMatch(rec.Family, tmpl.Src, rec.Src, rec.SrcLen) {
		return RouteRecord{}, Skip, nil
	}

	if f.Has(RouteFieldGateway) && !addrEqual(tmpl.Gateway, rec.Gateway) {
		return RouteRecord{}, Skip, nil
	}

	if f.Has(RouteFieldPrefSrc) && !addrEqual(tmpl.PrefSrc, rec.PrefSrc) {
		return RouteRecord{}, Skip, nil
	}

	for _, c := range []struct {
		field     RouteField
		want, got int
	}{
		{RouteFieldInputIf, tmpl.InputIf, rec.InputIf},
		{RouteFieldOutputIf, tmpl.OutputIf, rec.OutputIf},
		{RouteFieldPriority, tmpl.Priority, rec.Priority},
		{RouteFieldMetrics, tmpl.Metrics, rec.Metrics},
	} {
		if f.Has(c.field) && c.want != c.got {
			return RouteRecord{}, Skip, nil
		}
	}

	if f.Has(RouteFieldTable) && rec.Table != tmpl.Table {
		return RouteRecord{}, Skip, nil
	}

	return rec, Keep, nil
}

func addrFromBytes(family types.Family, b []byte) (netip.Addr, bool) {
	if len(b)*8 != family.Bits() {
		return netip.Addr{}, false
	}
	return netip.AddrFromSlice(b)
}

// prefixMatch reports whether want and got share their first bits bits. An
// empty got is the family's unspecified address, as the kernel leaves RTA_DST
// out for default routes.
func prefixMatch(family types.Family, want, got string, bits int) bool {
	w, err := netip.ParseAddr(want)
	if err != nil {
		return false
	}

	g := netip.IPv4Unspecified()
	if family == types.IPv6 {
		g = netip.IPv6Unspecified()
	}
	if got != "" {
		if g, err = netip.ParseAddr(got); err != nil {
			return false
		}
	}

	if w.BitLen() != g.BitLen() {
		return false
	}

	wp, err := w.Prefix(bits)
	if err != nil {
		return false
	}
	gp, err := g.Prefix(bits)
	if err != nil {
		return false
	}

	return wp == gp
}

func addrEqual(want, got string) bool {
	w, err := netip.ParseAddr(want)
	if err != nil {
		return false
	}
	g, err := netip.ParseAddr(got)
	if err != nil {
		return false
	}
	return w == g
}

// newRouteDumpRequest asks for every route of the template's family. The
// kernel ignores most of rtmsg on dumps so we do the filtering ourselves.
func newRouteDumpRequest(tmpl *RouteRecord) (*Request, error) {
	req := NewRequest(RTM_GETROUTE, netlink.Request|netlink.Dump, sizeofNlMsghdr+sizeofRtMsg+requestAttrSpace)

	hdr := rtMsg{
		Family: uint8(tmpl.Family),
		Table:  uint8(types.RT_TABLE_UNSPEC),
		Scope:  uint8(types.RT_SCOPE_UNIVERSE),
	}
	if err := req.SetFamilyHeader(hdr.serialize()); err != nil {
		return nil, err
	}

	return req, nil
}

// newRouteModifyRequest fills rtmsg straight from rec and appends an attribute
// for every active field that has one.
func newRouteModifyRequest(rec *RouteRecord, f RouteFilter, msgType uint16, flags netlink.HeaderFlags) (*Request, error) {
	if msgType != RTM_NEWROUTE && msgType != RTM_DELROUTE {
		return nil, fmt.Errorf("%w: message type %s for a route", ErrInvalidParameter, msgTypeName(msgType))
	}

	req := NewRequest(msgType, netlink.Request|netlink.Acknowledge|flags, sizeofNlMsghdr+sizeofRtMsg+requestAttrSpace)

	hdr := rtMsg{
		Family:   uint8(rec.Family),
		DstLen:   uint8(rec.DstLen),
		SrcLen:   uint8(rec.SrcLen),
		TOS:      uint8(rec.TOS),
		Protocol: uint8(rec.Protocol),
		Scope:    uint8(rec.Scope),
		Type:     uint8(rec.Type),
	}

	// rtm_table only fits the classic tables; RTA_TABLE carries the rest.
	if rec.Table <= types.RT_TABLE_LOCAL && rec.Table > types.RT_TABLE_UNSPEC {
		hdr.Table = uint8(rec.Table)
	}

	if err := req.SetFamilyHeader(hdr.serialize()); err != nil {
		return nil, err
	}

	for _, a := range []struct {
		field RouteField
		typ   uint16
		addr  string
	}{
		{RouteFieldDst, RTA_DST, rec.Dst},
		{RouteFieldSrc, RTA_SRC, rec.Src},
		{RouteFieldGateway, RTA_GATEWAY, rec.Gateway},
		{RouteFieldPrefSrc, RTA_PREFSRC, rec.PrefSrc},
	} {
		if !f.Has(a.field) {
			continue
		}

		addr, err := netip.ParseAddr(a.addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidParameter, a.addr, err)
		}

		if err := req.AddAttr(a.typ, addr.AsSlice()); err != nil {
			return nil, err
		}
	}

	for _, a := range []struct {
		field RouteField
		typ   uint16
		val   int
	}{
		{RouteFieldInputIf, RTA_IIF, rec.InputIf},
		{RouteFieldOutputIf, RTA_OIF, rec.OutputIf},
		{RouteFieldPriority, RTA_PRIORITY, rec.Priority},
	} {
		if !f.Has(a.field) {
			continue
		}
		if err := req.AddAttrUint32(a.typ, uint32(a.val)); err != nil {
			return nil, err
		}
	}

	if f.Has(RouteFieldTable) {
		if err := req.AddAttrUint32(RTA_TABLE, uint32(rec.Table)); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// Routes dumps the routing tables and returns the routes matching tmpl in the
// order the kernel reported them. The template's family may be corrected to
// match its address literals. A route failing to decode aborts the dump.
func (s *Session) Routes(ctx context.Context, tmpl RouteRecord) (List[RouteRecord], error) {
	f, err := GenerateRouteFilter(&tmpl)
	if err != nil {
		return nil, fmt.Errorf("error generating the route filter: %w", err)
	}

	req, err := newRouteDumpRequest(&tmpl)
	if err != nil {
		return nil, fmt.Errorf("error building the route dump request: %w", err)
	}

	var routes List[RouteRecord]
	err = s.dump(ctx, req, func(m netlink.Message) error {
		if m.Header.Type != netlink.HeaderType(RTM_NEWROUTE) {
			s.logger.Debug("ignoring non-route message in dump", "type", m.Header.Type)
			return nil
		}

		rec, outcome, err := DecodeRoute(m, f, &tmpl)
		if err != nil {
			return fmt.Errorf("error decoding route: %w", err)
		}
		s.metrics.observeDecode("route", outcome)

		if outcome == Keep {
			routes = append(routes, rec)
		}
		return nil
	})
	if err != nil {
		routes.Free()
		return nil, err
	}

	s.logger.Debug("dumped routes", "family", tmpl.Family, "filter", fmt.Sprintf("%#x", uint32(f)), "n", routes.Len())

	return routes, nil
}

// ModifyRoute sends an RTM_NEWROUTE or RTM_DELROUTE built from rec. The
// netlink.Request and netlink.Acknowledge flags are always set; callers add
// the likes of netlink.Create|netlink.Excl.
func (s *Session) ModifyRoute(ctx context.Context, rec RouteRecord, msgType uint16, flags netlink.HeaderFlags) error {
	f, err := GenerateRouteFilter(&rec)
	if err != nil {
		return fmt.Errorf("error generating the route filter: %w", err)
	}

	req, err := newRouteModifyRequest(&rec, f, msgType, flags)
	if err != nil {
		return fmt.Errorf("error building the route request: %w", err)
	}

	return s.modify(ctx, req)
}
