package netlink

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Remove the directory from the source's filename.
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

const testPID = 4242

// datagram is a single canned read off the fake socket.
type datagram struct {
	b      []byte
	sender uint32
	err    error
}

// fakeTransport answers every request through respond, which gets to see the
// stamped header so replies can carry the right sequence number.
type fakeTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	queue   []datagram
	closed  bool
	respond func(h netlink.Header) []datagram
}

func (f *fakeTransport) send(ctx context.Context, b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, append([]byte(nil), b...))
	if f.respond != nil {
		f.queue = append(f.queue, f.respond(parseHeader(b))...)
	}
	return nil
}

func (f *fakeTransport) peek(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if f.queue[0].err != nil {
		return 0, nil
	}
	return len(f.queue[0].b), nil
}

func (f *fakeTransport) receive(ctx context.Context, b []byte) (int, uint32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return 0, 0, false, ctx.Err()
	}

	d := f.queue[0]
	f.queue = f.queue[1:]

	if d.err != nil {
		return 0, 0, false, d.err
	}

	n := copy(b, d.b)
	return n, d.sender, n < len(d.b), nil
}

func (f *fakeTransport) close() error {
	f.closed = true
	return nil
}

func newTestSession(t *testing.T, respond func(h netlink.Header) []datagram) (*Session, *fakeTransport) {
	t.Helper()

	ft := &fakeTransport{respond: respond}
	conf := DefaultConfig
	return newSession(&conf, ft, testPID), ft
}

// frame wraps body in an nlmsghdr addressed to the request described by h.
func frame(t *testing.T, typ netlink.HeaderType, flags netlink.HeaderFlags, h netlink.Header, body []byte) []byte {
	t.Helper()

	data := make([]byte, nlmsgAlign(len(body)))
	copy(data, body)

	b, err := netlink.Message{
		Header: netlink.Header{
			Length:   uint32(sizeofNlMsghdr + len(data)),
			Type:     typ,
			Flags:    flags,
			Sequence: h.Sequence,
			PID:      h.PID,
		},
		Data: data,
	}.MarshalBinary()
	if err != nil {
		t.Fatalf("error marshalling the fixture: %v", err)
	}
	return b
}

func errorBody(code int32, req netlink.Header) []byte {
	b := make([]byte, sizeofNlMsgerr)
	native.Endian.PutUint32(b[0:4], uint32(code))
	native.Endian.PutUint32(b[4:8], req.Length)
	native.Endian.PutUint16(b[8:10], uint16(req.Type))
	native.Endian.PutUint16(b[10:12], uint16(req.Flags))
	native.Endian.PutUint32(b[12:16], req.Sequence)
	native.Endian.PutUint32(b[16:20], req.PID)
	return b
}

func done(t *testing.T, h netlink.Header) []byte {
	return frame(t, netlink.Done, netlink.Multi, h, make([]byte, 4))
}

func concat(bs ...[]byte) []byte {
	var out []byte
	for _, b := range bs {
		out = append(out, b...)
	}
	return out
}
