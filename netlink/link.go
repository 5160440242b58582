package netlink

import (
	"context"
	"fmt"

	"github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/types"
)

// DecodeLink decodes an RTM_NEWLINK message and checks it against the filter
// generated from tmpl. Hardware addresses are compared in their display form
// so that equivalent renderings match.
func DecodeLink(m netlink.Message, f LinkFilter, tmpl *LinkRecord) (LinkRecord, Outcome, error) {
	var hdr ifInfoMsg
	if err := hdr.deserialize(m.Data); err != nil {
		return LinkRecord{}, Skip, err
	}

	rec := DefaultLinkRecord()

	rec.Family = hdr.Family
	if f.Has(LinkFieldFamily) && rec.Family != tmpl.Family {
		return LinkRecord{}, Skip, nil
	}

	rec.Type = hdr.Type
	if f.Has(LinkFieldType) && rec.Type != tmpl.Type {
		return LinkRecord{}, Skip, nil
	}

	rec.Index = int(hdr.Index)
	if f.Has(LinkFieldIndex) && rec.Index != tmpl.Index {
		return LinkRecord{}, Skip, nil
	}

	rec.Flags = hdr.Flags
	if f.Has(LinkFieldFlags) && rec.Flags != tmpl.Flags {
		return LinkRecord{}, Skip, nil
	}

	rec.Change = hdr.Change
	if f.Has(LinkFieldChange) && rec.Change != tmpl.Change {
		return LinkRecord{}, Skip, nil
	}

	ad, err := netlink.NewAttributeDecoder(m.Data[nlmsgAlign(sizeofIfInfoMsg):])
	if err != nil {
		return LinkRecord{}, Skip, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	for ad.Next() {
		switch ad.Type() {
		case IFLA_ADDRESS:
			rec.Address = ad.Bytes()
		case IFLA_BROADCAST:
			rec.Broadcast = ad.Bytes()
		case IFLA_IFNAME:
			rec.Name = ad.String()
		case IFLA_MTU:
			rec.MTU = ad.Uint32()
		case IFLA_LINK:
			rec.Link = int(int32(ad.Uint32()))
		case IFLA_QDISC:
			rec.QDisc = ad.String()
		case IFLA_STATS:
			rec.Stats = &LinkStats{}
			ad.Do(rec.Stats.deserialize)
		case IFLA_TXQLEN:
			rec.TxQLen = int(ad.Uint32())
		case IFLA_MAP:
			rec.Map = &LinkMap{}
			ad.Do(rec.Map.deserialize)
		case IFLA_OPERSTATE:
			rec.OperState = types.OperState(ad.Uint8())
		case IFLA_LINKMODE:
			rec.LinkMode = types.LinkMode(ad.Uint8())
		case IFLA_IFALIAS:
			rec.Alias = ad.String()
		}
	}
	if err := ad.Err(); err != nil {
		return LinkRecord{}, Skip, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if f.Has(LinkFieldAddress) && FormatHardwareAddr(tmpl.Address, rec.Type) != FormatHardwareAddr(rec.Address, rec.Type) {
		return LinkRecord{}, Skip, nil
	}

	if f.Has(LinkFieldBroadcast) && FormatHardwareAddr(tmpl.Broadcast, rec.Type) != FormatHardwareAddr(rec.Broadcast, rec.Type) {
		return LinkRecord{}, Skip, nil
	}

	switch {
	case f.Has(LinkFieldName) && rec.Name != tmpl.Name,
		f.Has(LinkFieldMTU) && rec.MTU != tmpl.MTU,
		f.Has(LinkFieldLink) && rec.Link != tmpl.Link,
		f.Has(LinkFieldQDisc) && rec.QDisc != tmpl.QDisc,
		f.Has(LinkFieldTxQLen) && rec.TxQLen != tmpl.TxQLen,
		f.Has(LinkFieldOperState) && rec.OperState != tmpl.OperState,
		f.Has(LinkFieldLinkMode) && rec.LinkMode != tmpl.LinkMode,
		f.Has(LinkFieldAlias) && rec.Alias != tmpl.Alias:
		return LinkRecord{}, Skip, nil
	}

	return rec, Keep, nil
}

func newLinkDumpRequest() (*Request, error) {
	req := NewRequest(RTM_GETLINK, netlink.Request|netlink.Dump, sizeofNlMsghdr+sizeofIfInfoMsg+requestAttrSpace)

	hdr := ifInfoMsg{Family: uint8(types.Unspec)}
	if err := req.SetFamilyHeader(hdr.serialize()); err != nil {
		return nil, err
	}

	return req, nil
}

// newLinkModifyRequest fills ifinfomsg straight from rec. The interface can be
// addressed either through its index or, with a zero index, through its name.
func newLinkModifyRequest(rec *LinkRecord, f LinkFilter, msgType uint16, flags netlink.HeaderFlags) (*Request, error) {
	if msgType != RTM_NEWLINK && msgType != RTM_DELLINK {
		return nil, fmt.Errorf("%w: message type %s for a link", ErrInvalidParameter, msgTypeName(msgType))
	}

	if f.Has(LinkFieldName) && len(rec.Name) >= IFNAMSIZ {
		return nil, invalid("name", rec.Name)
	}

	if !f.Has(LinkFieldName) && !f.Has(LinkFieldIndex) {
		return nil, fmt.Errorf("%w: the link has neither a name nor an index", ErrInvalidParameter)
	}

	req := NewRequest(msgType, netlink.Request|netlink.Acknowledge|flags, sizeofNlMsghdr+sizeofIfInfoMsg+requestAttrSpace)

	hdr := ifInfoMsg{
		Family: rec.Family,
		Type:   rec.Type,
		Index:  int32(rec.Index),
		Flags:  rec.Flags,
		Change: rec.Change,
	}

	// The kernel applies ifi_flags whenever either field is non-zero, so an
	// untouched template must not carry the all-ones change mask.
	if !f.Has(LinkFieldFlags) && !f.Has(LinkFieldChange) {
		hdr.Flags, hdr.Change = 0, 0
	}

	if err := req.SetFamilyHeader(hdr.serialize()); err != nil {
		return nil, err
	}

	attrs := []struct {
		field LinkField
		typ   uint16
		data  func() []byte
	}{
		{LinkFieldName, IFLA_IFNAME, func() []byte { return cString(rec.Name) }},
		{LinkFieldAddress, IFLA_ADDRESS, func() []byte { return rec.Address }},
		{LinkFieldBroadcast, IFLA_BROADCAST, func() []byte { return rec.Broadcast }},
		{LinkFieldOperState, IFLA_OPERSTATE, func() []byte { return []byte{uint8(rec.OperState)} }},
		{LinkFieldLinkMode, IFLA_LINKMODE, func() []byte { return []byte{uint8(rec.LinkMode)} }},
		{LinkFieldAlias, IFLA_IFALIAS, func() []byte { return cString(rec.Alias) }},
	}
	for _, a := range attrs {
		if !f.Has(a.field) {
			continue
		}
		if err := req.AddAttr(a.typ, a.data()); err != nil {
			return nil, err
		}
	}

	if f.Has(LinkFieldMTU) {
		if err := req.AddAttrUint32(IFLA_MTU, rec.MTU); err != nil {
			return nil, err
		}
	}

	if f.Has(LinkFieldTxQLen) {
		if err := req.AddAttrUint32(IFLA_TXQLEN, uint32(rec.TxQLen)); err != nil {
			return nil, err
		}
	}

	return req, nil
}

func cString(s string) []byte {
	return append([]byte(s), 0)
}

// Links dumps every link and returns those matching tmpl in the order the
// kernel reported them. A link failing to decode aborts the dump.
func (s *Session) Links(ctx context.Context, tmpl LinkRecord) (List[LinkRecord], error) {
	f, err := GenerateLinkFilter(&tmpl)
	if err != nil {
		return nil, fmt.Errorf("error generating the link filter: %w", err)
	}

	req, err := newLinkDumpRequest()
	if err != nil {
		return nil, fmt.Errorf("error building the link dump request: %w", err)
	}

	var links List[LinkRecord]
	err = s.dump(ctx, req, func(m netlink.Message) error {
		if m.Header.Type != netlink.HeaderType(RTM_NEWLINK) {
			s.logger.Debug("ignoring non-link message in dump", "type", m.Header.Type)
			return nil
		}

		rec, outcome, err := DecodeLink(m, f, &tmpl)
		if err != nil {
			return fmt.Errorf("error decoding link: %w", err)
		}
		s.metrics.observeDecode("link", outcome)

		if outcome == Keep {
			links = append(links, rec)
		}
		return nil
	})
	if err != nil {
		links.Free()
		return nil, err
	}

	s.logger.Debug("dumped links", "filter", fmt.Sprintf("%#x", uint32(f)), "n", links.Len())

	return links, nil
}

// ModifyLink sends an RTM_NEWLINK or RTM_DELLINK built from rec. Flags and
// the change mask are sent as they are: set IFF_UP on both to bring a link up
// and only on the change mask to bring it down.
func (s *Session) ModifyLink(ctx context.Context, rec LinkRecord, msgType uint16, flags netlink.HeaderFlags) error {
	f, err := GenerateLinkFilter(&rec)
	if err != nil {
		return fmt.Errorf("error generating the link filter: %w", err)
	}

	req, err := newLinkModifyRequest(&rec, f, msgType, flags)
	if err != nil {
		return fmt.Errorf("error building the link request: %w", err)
	}

	return s.modify(ctx, req)
}
