package netlink

import (
	"fmt"
	"math"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
)

// Request is an outgoing netlink message bounded by a fixed capacity. The
// header's length field always reflects the aligned end of the last thing
// written, so Bytes() can go straight to the socket.
type Request struct {
	b        []byte
	capacity int
}

// NewRequest returns a request holding nothing but its nlmsghdr.
func NewRequest(typ uint16, flags netlink.HeaderFlags, capacity int) *Request {
	if capacity < sizeofNlMsghdr {
		capacity = sizeofNlMsghdr
	}

	r := &Request{b: make([]byte, sizeofNlMsghdr, capacity), capacity: capacity}
	native.Endian.PutUint16(r.b[4:6], typ)
	native.Endian.PutUint16(r.b[6:8], uint16(flags))
	r.setLen(sizeofNlMsghdr)

	return r
}

func (r *Request) setLen(n int) {
	native.Endian.PutUint32(r.b[0:4], uint32(n))
}

// Len returns the length declared on the header.
func (r *Request) Len() int {
	return int(native.Endian.Uint32(r.b[0:4]))
}

func (r *Request) Bytes() []byte {
	return r.b[:r.Len()]
}

func (r *Request) Header() netlink.Header {
	return parseHeader(r.b)
}

// SetFamilyHeader appends the family-specific fixed header (i.e. rtmsg or
// ifinfomsg). It must come before any attribute.
func (r *Request) SetFamilyHeader(fixed []byte) error {
	if len(r.b) != sizeofNlMsghdr {
		return fmt.Errorf("%w: family header after attributes", ErrInvalidParameter)
	}
	end := sizeofNlMsghdr + nlmsgAlign(len(fixed))
	if end > r.capacity {
		return fmt.Errorf("%w: family header of %d bytes", ErrNoSpace, len(fixed))
	}

	r.b = append(r.b, make([]byte, end-len(r.b))...)
	copy(r.b[sizeofNlMsghdr:], fixed)
	r.setLen(end)

	return nil
}

// AddAttr appends a type-length-value attribute at the aligned end of the
// message. The request is left untouched when the attribute doesn't fit.
func (r *Request) AddAttr(typ uint16, data []byte) error {
	l := sizeofRtAttr + len(data)
	off := nlmsgAlign(r.Len())
	end := off + nlmsgAlign(l)

	if l > math.MaxUint16 || end > r.capacity {
		return fmt.Errorf("%w: attribute %d with %d bytes (%d/%d used)", ErrNoSpace, typ, len(data), r.Len(), r.capacity)
	}

	r.b = append(r.b, make([]byte, end-len(r.b))...)
	native.Endian.PutUint16(r.b[off:off+2], uint16(l))
	native.Endian.PutUint16(r.b[off+2:off+4], typ)
	copy(r.b[off+sizeofRtAttr:], data)
	r.setLen(end)

	return nil
}

func (r *Request) AddAttrUint32(typ uint16, v uint32) error {
	b := make([]byte, 4)
	native.Endian.PutUint32(b, v)
	return r.AddAttr(typ, b)
}

func (r *Request) stamp(seq, pid uint32) {
	native.Endian.PutUint32(r.b[8:12], seq)
	native.Endian.PutUint32(r.b[12:16], pid)
}

func parseHeader(b []byte) netlink.Header {
	return netlink.Header{
		Length:   native.Endian.Uint32(b[0:4]),
		Type:     netlink.HeaderType(native.Endian.Uint16(b[4:6])),
		Flags:    netlink.HeaderFlags(native.Endian.Uint16(b[6:8])),
		Sequence: native.Endian.Uint32(b[8:12]),
		PID:      native.Endian.Uint32(b[12:16]),
	}
}

// parseMessages splits a datagram into its messages. Anything not adding up
// to whole messages is reported rather than silently dropped.
func parseMessages(b []byte) ([]netlink.Message, error) {
	var msgs []netlink.Message

	for len(b) > 0 {
		if len(b) < sizeofNlMsghdr {
			return nil, fmt.Errorf("%w: remnant of size %d", ErrMalformed, len(b))
		}

		h := parseHeader(b)
		l := int(h.Length)
		if l < sizeofNlMsghdr || l > len(b) {
			return nil, fmt.Errorf("%w: declared length %d with %d bytes left", ErrMalformed, l, len(b))
		}

		msgs = append(msgs, netlink.Message{Header: h, Data: b[sizeofNlMsghdr:l]})

		next := nlmsgAlign(l)
		if next > len(b) {
			next = len(b)
		}
		b = b[next:]
	}

	return msgs, nil
}

// errorCode extracts the (negated) errno embedded in an NLMSG_ERROR frame.
func errorCode(m netlink.Message) (int32, error) {
	if len(m.Data) < 4 {
		return 0, fmt.Errorf("%w: short NLMSG_ERROR of %d bytes", ErrMalformed, len(m.Data))
	}
	return int32(native.Endian.Uint32(m.Data[0:4])), nil
}
