package netlink

import (
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/scitags/rtnl/types"
)

// RouteField identifies a RouteRecord field within a RouteFilter.
type RouteField uint32

const (
	RouteFieldFamily RouteField = 1 << iota
	RouteFieldType
	RouteFieldProtocol
	RouteFieldScope
	RouteFieldSrcLen
	RouteFieldDstLen
	RouteFieldTOS
	RouteFieldDst
	RouteFieldSrc
	RouteFieldInputIf
	RouteFieldOutputIf
	RouteFieldGateway
	RouteFieldPriority
	RouteFieldPrefSrc
	RouteFieldMetrics
	RouteFieldTable
)

// LinkField identifies a LinkRecord field within a LinkFilter.
type LinkField uint32

const (
	LinkFieldFamily LinkField = 1 << iota
	LinkFieldType
	LinkFieldIndex
	LinkFieldFlags
	LinkFieldChange
	LinkFieldAddress
	LinkFieldBroadcast
	LinkFieldName
	LinkFieldMTU
	LinkFieldLink
	LinkFieldQDisc
	LinkFieldTxQLen
	LinkFieldOperState
	LinkFieldLinkMode
	LinkFieldAlias
)

// RouteFilter has a bit set for every template field a decoded route must
// match. The zero value matches everything.
type RouteFilter uint32

func (f RouteFilter) Has(field RouteField) bool { return f&RouteFilter(field) != 0 }
func (f *RouteFilter) Reset()                   { *f = 0 }
func (f *RouteFilter) set(field RouteField)     { *f |= RouteFilter(field) }

// LinkFilter has a bit set for every template field a decoded link must
// match. The zero value matches everything.
type LinkFilter uint32

func (f LinkFilter) Has(field LinkField) bool { return f&LinkFilter(field) != 0 }
func (f *LinkFilter) Reset()                  { *f = 0 }
func (f *LinkFilter) set(field LinkField)     { *f |= LinkFilter(field) }

// GenerateRouteFilter works out which fields of t are significant. Address
// literals decide the family: an IPv6 literal on an IPv4 template turns the
// template into an IPv6 one and vice versa. Calling it again on the same
// template yields the same filter.
func GenerateRouteFilter(t *RouteRecord) (RouteFilter, error) {
	var f RouteFilter
	f.Reset()

	if t == nil {
		return f, invalid("template", nil)
	}

	// The template only sees the corrected family once every field checks out.
	family := t.Family
	switch family {
	case types.IPv4, types.IPv6:
		f.set(RouteFieldFamily)
	default:
		return 0, invalid("family", family)
	}

	switch {
	case t.Type > types.RTN_UNSPEC && t.Type <= types.RTN_MAX:
		f.set(RouteFieldType)
	case t.Type != types.RTN_UNSPEC:
		return 0, invalid("type", t.Type)
	}

	switch {
	case t.Protocol > types.RTPROT_UNSPEC && t.Protocol <= types.RTPROT_MAX:
		f.set(RouteFieldProtocol)
	case t.Protocol != types.RTPROT_UNSPEC:
		return 0, invalid("protocol", t.Protocol)
	}

	switch {
	case t.Scope > types.RT_SCOPE_UNIVERSE && t.Scope <= types.RT_SCOPE_NOWHERE:
		f.set(RouteFieldScope)
	case t.Scope != types.RT_SCOPE_UNIVERSE:
		return 0, invalid("scope", t.Scope)
	}

	switch {
	case t.TOS > 0 && t.TOS <= 0xFF:
		f.set(RouteFieldTOS)
	case t.TOS != 0:
		return 0, invalid("tos", t.TOS)
	}

	familyFixed := false
	for _, a := range []struct {
		field RouteField
		name  string
		addr  string
	}{
		{RouteFieldDst, "dst", t.Dst},
		{RouteFieldSrc, "src", t.Src},
		{RouteFieldGateway, "gateway", t.Gateway},
		{RouteFieldPrefSrc, "prefSrc", t.PrefSrc},
	} {
		if a.addr == "" {
			continue
		}

		_, af, err := parseAddr(a.addr)
		if err != nil {
			return 0, invalid(a.name, a.addr)
		}

		if af == family.Other() {
			if familyFixed {
				return 0, fmt.Errorf("%w: %s=%s contradicts family %s", ErrInvalidParameter, a.name, a.addr, family)
			}
			slog.Debug("correcting the template's family", "field", a.name, "addr", a.addr, "from", family, "to", af)
			family = af
		}
		familyFixed = true

		f.set(a.field)
	}

	// Prefix lengths are bounded by the family we've settled on.
	for _, l := range []struct {
		field RouteField
		name  string
		len   int
	}{
		{RouteFieldSrcLen, "srcLen", t.SrcLen},
		{RouteFieldDstLen, "dstLen", t.DstLen},
	} {
		switch {
		case l.len > 0 && l.len <= family.Bits():
			f.set(l.field)
		case l.len != 0:
			return 0, invalid(l.name, l.len)
		}
	}

	for _, n := range []struct {
		field RouteField
		name  string
		val   int
	}{
		{RouteFieldInputIf, "inputIf", t.InputIf},
		{RouteFieldOutputIf, "outputIf", t.OutputIf},
		{RouteFieldPriority, "priority", t.Priority},
		{RouteFieldMetrics, "metrics", t.Metrics},
	} {
		switch {
		case n.val >= 0:
			f.set(n.field)
		case n.val != -1:
			return 0, invalid(n.name, n.val)
		}
	}

	switch {
	case t.Table > types.RT_TABLE_UNSPEC && t.Table <= types.RT_TABLE_MAX:
		f.set(RouteFieldTable)
	case t.Table != types.RT_TABLE_UNSPEC:
		return 0, invalid("table", t.Table)
	}

	t.Family = family

	return f, nil
}

// GenerateLinkFilter works out which fields of t are significant.
func GenerateLinkFilter(t *LinkRecord) (LinkFilter, error) {
	var f LinkFilter
	f.Reset()

	if t == nil {
		return f, invalid("template", nil)
	}

	// Links are always requested and reported with AF_UNSPEC, so the
	// family is never something to match on.
	if types.Family(t.Family) != types.Unspec {
		return 0, invalid("family", t.Family)
	}

	if t.Type != ARPHRD_VOID {
		f.set(LinkFieldType)
	}

	switch {
	case t.Index > 0:
		f.set(LinkFieldIndex)
	case t.Index < 0:
		return 0, invalid("index", t.Index)
	}

	if t.Flags != 0 {
		f.set(LinkFieldFlags)
	}

	if t.Change != CHANGE_ALL {
		f.set(LinkFieldChange)
	}

	if len(t.Address) > 0 {
		f.set(LinkFieldAddress)
	}

	if len(t.Broadcast) > 0 {
		f.set(LinkFieldBroadcast)
	}

	if t.Name != "" {
		f.set(LinkFieldName)
	}

	if t.MTU > 0 {
		f.set(LinkFieldMTU)
	}

	switch {
	case t.Link > 0:
		f.set(LinkFieldLink)
	case t.Link < 0:
		return 0, invalid("link", t.Link)
	}

	if t.QDisc != "" {
		f.set(LinkFieldQDisc)
	}

	switch {
	case t.TxQLen > 0:
		f.set(LinkFieldTxQLen)
	case t.TxQLen < 0:
		return 0, invalid("txqlen", t.TxQLen)
	}

	switch {
	case t.OperState > types.IF_OPER_UP:
		return 0, invalid("operstate", t.OperState)
	case t.OperState != types.IF_OPER_UNKNOWN:
		f.set(LinkFieldOperState)
	}

	switch {
	case t.LinkMode > types.IF_LINK_MODE_DORMANT:
		return 0, invalid("linkmode", t.LinkMode)
	case t.LinkMode != types.IF_LINK_MODE_DEFAULT:
		f.set(LinkFieldLinkMode)
	}

	if t.Alias != "" {
		f.set(LinkFieldAlias)
	}

	return f, nil
}

// parseAddr parses an IP literal and reports the family it belongs to.
// IPv4-mapped IPv6 literals count as IPv6, as they do for inet_pton(3).
func parseAddr(s string) (netip.Addr, types.Family, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, 0, err
	}
	if a.Zone() != "" {
		return netip.Addr{}, 0, fmt.Errorf("zoned address %q", s)
	}
	if a.Is4() {
		return a, types.IPv4, nil
	}
	return a, types.IPv6, nil
}
