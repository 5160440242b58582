package netlink

import (
	"fmt"

	"github.com/fatih/structs"
	"github.com/josharian/native"
)

const (
	sizeofLinkStatsMin = 23 * 4
	sizeofLinkMapMin   = 28
)

// Please note the readBuffer has been plundered from
// github.com/vishvananda/netlink/socket_linux.go. Callers
// check lengths up front.
type readBuffer struct {
	Bytes []byte
	pos   int
}

func (b *readBuffer) Read() byte {
	c := b.Bytes[b.pos]
	b.pos++
	return c
}

func (b *readBuffer) Next(n int) []byte {
	s := b.Bytes[b.pos : b.pos+n]
	b.pos += n
	return s
}

func (b *readBuffer) Len() int {
	return len(b.Bytes) - b.pos
}

// rtMsg is struct rtmsg from include/uapi/linux/rtnetlink.h.
type rtMsg struct {
	Family   uint8
	DstLen   uint8
	SrcLen   uint8
	TOS      uint8
	Table    uint8
	Protocol uint8
	Scope    uint8
	Type     uint8
	Flags    uint32
}

func (m *rtMsg) deserialize(b []byte) error {
	if len(b) < sizeofRtMsg {
		return fmt.Errorf("%w: rtmsg short read (%d); want %d", ErrMalformed, len(b), sizeofRtMsg)
	}

	rb := readBuffer{Bytes: b}
	m.Family = rb.Read()
	m.DstLen = rb.Read()
	m.SrcLen = rb.Read()
	m.TOS = rb.Read()
	m.Table = rb.Read()
	m.Protocol = rb.Read()
	m.Scope = rb.Read()
	m.Type = rb.Read()
	m.Flags = native.Endian.Uint32(rb.Next(4))

	return nil
}

func (m *rtMsg) serialize() []byte {
	b := make([]byte, sizeofRtMsg)
	b[0] = m.Family
	b[1] = m.DstLen
	b[2] = m.SrcLen
	b[3] = m.TOS
	b[4] = m.Table
	b[5] = m.Protocol
	b[6] = m.Scope
	b[7] = m.Type
	native.Endian.PutUint32(b[8:12], m.Flags)
	return b
}

// ifInfoMsg is struct ifinfomsg from include/uapi/linux/rtnetlink.h.
type ifInfoMsg struct {
	Family uint8
	Type   uint16
	Index  int32
	Flags  uint32
	Change uint32
}

func (m *ifInfoMsg) deserialize(b []byte) error {
	if len(b) < sizeofIfInfoMsg {
		return fmt.Errorf("%w: ifinfomsg short read (%d); want %d", ErrMalformed, len(b), sizeofIfInfoMsg)
	}

	rb := readBuffer{Bytes: b}
	m.Family = rb.Read()
	rb.Read() // __ifi_pad
	m.Type = native.Endian.Uint16(rb.Next(2))
	m.Index = int32(native.Endian.Uint32(rb.Next(4)))
	m.Flags = native.Endian.Uint32(rb.Next(4))
	m.Change = native.Endian.Uint32(rb.Next(4))

	return nil
}

func (m *ifInfoMsg) serialize() []byte {
	b := make([]byte, sizeofIfInfoMsg)
	b[0] = m.Family
	native.Endian.PutUint16(b[2:4], m.Type)
	native.Endian.PutUint32(b[4:8], uint32(m.Index))
	native.Endian.PutUint32(b[8:12], m.Flags)
	native.Endian.PutUint32(b[12:16], m.Change)
	return b
}

// deserialize fills the counters in declaration order, which matches the
// kernel's layout.
func (s *LinkStats) deserialize(b []byte) error {
	if len(b) < sizeofLinkStatsMin {
		return fmt.Errorf("%w: link stats short read (%d); want at least %d", ErrMalformed, len(b), sizeofLinkStatsMin)
	}

	rb := readBuffer{Bytes: b}
	for _, f := range structs.New(s).Fields() {
		if rb.Len() < 4 {
			break
		}
		if err := f.Set(native.Endian.Uint32(rb.Next(4))); err != nil {
			return fmt.Errorf("error setting %s: %w", f.Name(), err)
		}
	}

	return nil
}

func (m *LinkMap) deserialize(b []byte) error {
	if len(b) < sizeofLinkMapMin {
		return fmt.Errorf("%w: link map short read (%d); want at least %d", ErrMalformed, len(b), sizeofLinkMapMin)
	}

	rb := readBuffer{Bytes: b}
	m.MemStart = native.Endian.Uint64(rb.Next(8))
	m.MemEnd = native.Endian.Uint64(rb.Next(8))
	m.BaseAddr = native.Endian.Uint64(rb.Next(8))
	m.IRQ = native.Endian.Uint16(rb.Next(2))
	m.DMA = rb.Read()
	m.Port = rb.Read()

	return nil
}
