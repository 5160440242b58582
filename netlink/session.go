package netlink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// transport is what a Session needs from the socket. The linux implementation
// lives in socket_linux.go; tests plug in canned reply streams.
type transport interface {
	send(ctx context.Context, b []byte) error

	// peek returns the size of the next datagram without consuming it.
	peek(ctx context.Context) (int, error)

	// receive reads the next datagram into b. truncated is set when it
	// didn't fit, in which case its contents are lost.
	receive(ctx context.Context, b []byte) (n int, sender uint32, truncated bool, err error)

	close() error
}

// Session is an open rtnetlink socket bound to a kernel-assigned port id.
// Exchanges are serialised so a Session can be shared between goroutines.
type Session struct {
	Config

	// lock holds a token while an exchange runs. Waiting on it honours the
	// caller's context.
	lock chan struct{}

	t   transport
	pid uint32
	seq uint32
	buf []byte

	metrics *metrics
	logger  *slog.Logger
}

// Open opens and binds an rtnetlink socket. A nil conf means DefaultConfig.
func Open(ctx context.Context, conf *Config) (*Session, error) {
	if conf == nil {
		conf = &DefaultConfig
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("error validating the configuration: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, pid, err := openTransport(conf)
	if err != nil {
		return nil, fmt.Errorf("error opening the netlink socket: %w", err)
	}

	s := newSession(conf, t, pid)
	s.logger.Debug("opened netlink session", "pid", pid)

	return s, nil
}

func newSession(conf *Config, t transport, pid uint32) *Session {
	s := &Session{
		Config:  *conf,
		t:       t,
		pid:     pid,
		lock:    make(chan struct{}, 1),
		buf:     make([]byte, conf.ReceiveBufferSize),
		metrics: newMetrics(),
	}

	if s.Log {
		s.logger = slog.Default().With("t", "netlink")
	} else {
		s.logger = slog.New(slog.DiscardHandler)
	}

	return s
}

// Close closes the socket. Closing a session twice returns ErrNotOpen.
func (s *Session) Close() error {
	s.lock <- struct{}{}
	defer s.release()

	if s.t == nil {
		return ErrNotOpen
	}

	err := s.t.close()

	s.t = nil
	s.pid = 0
	s.buf = nil

	s.logger.Debug("closed netlink session")

	if err != nil {
		return fmt.Errorf("error closing the netlink socket: %w", err)
	}
	return nil
}

// PID returns the port id the socket is bound to, 0 once closed.
func (s *Session) PID() uint32 {
	s.lock <- struct{}{}
	defer s.release()
	return s.pid
}

// Register adds the session's protocol counters to reg.
func (s *Session) Register(reg prometheus.Registerer) error {
	return s.metrics.register(reg)
}

// acquire waits for the session to be free or for ctx to be done.
func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("error waiting for the session: %w", ctx.Err())
	}
}

func (s *Session) release() { <-s.lock }

// nextSeq derives sequence numbers from the wall clock, bumping them when
// two requests land on the same second. The caller holds the session lock.
func (s *Session) nextSeq() uint32 {
	seq := uint32(time.Now().Unix())
	if seq <= s.seq {
		seq = s.seq + 1
	}
	s.seq = seq
	return seq
}
