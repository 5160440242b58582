package netlink

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/types"
	"golang.org/x/sys/unix"
)

// send stamps req with a fresh sequence number and our port id and hands it
// to the socket. The caller holds the session lock.
func (s *Session) send(ctx context.Context, req *Request) (uint32, error) {
	if s.t == nil {
		return 0, ErrNotOpen
	}

	seq := s.nextSeq()
	req.stamp(seq, s.pid)

	h := req.Header()
	s.logger.Log(ctx, types.LevelTrace, "sending request",
		"type", msgTypeName(uint16(h.Type)), "flags", h.Flags, "seq", seq, "len", h.Length)

	if err := s.t.send(ctx, req.Bytes()); err != nil {
		if cErr := ctx.Err(); cErr != nil {
			return 0, fmt.Errorf("error sending %s: %w", msgTypeName(uint16(h.Type)), cErr)
		}
		return 0, fmt.Errorf("error sending %s: %w", msgTypeName(uint16(h.Type)), err)
	}
	s.metrics.observeRequest(uint16(h.Type))

	return seq, nil
}

func retryable(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)
}

// recv returns the messages in the next kernel datagram. Datagrams sent by
// anything but the kernel are dropped. The returned messages alias s.buf and
// are only valid until the following call. The caller holds the session lock.
func (s *Session) recv(ctx context.Context) ([]netlink.Message, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, fmt.Errorf("error receiving: %w", err)
		}

		size, err := s.t.peek(ctx)
		if err != nil {
			if retryable(err) {
				continue
			}
			if cErr := ctx.Err(); cErr != nil {
				return nil, false, fmt.Errorf("error receiving: %w", cErr)
			}
			return nil, false, fmt.Errorf("error peeking: %w", err)
		}

		if size > len(s.buf) && size <= s.MaxReceiveBufferSize {
			s.logger.Debug("growing receive buffer", "from", len(s.buf), "to", nlmsgAlign(size))
			s.buf = make([]byte, nlmsgAlign(size))
		}

		n, sender, truncated, err := s.t.receive(ctx, s.buf)
		if err != nil {
			if retryable(err) {
				continue
			}
			if cErr := ctx.Err(); cErr != nil {
				return nil, false, fmt.Errorf("error receiving: %w", cErr)
			}
			return nil, false, fmt.Errorf("error receiving: %w", err)
		}

		if sender != 0 {
			s.logger.Debug("dropping datagram from a non-kernel sender", "sender", sender)
			s.metrics.observeSkip(skipSender)
			continue
		}

		if truncated {
			s.logger.Warn("discarding truncated datagram", "size", size, "max", s.MaxReceiveBufferSize)
			s.metrics.observeTruncation()
			return nil, true, nil
		}

		msgs, err := parseMessages(s.buf[:n])
		if err != nil {
			return nil, false, err
		}

		s.logger.Log(ctx, types.LevelTrace, "received datagram", "len", n, "msgs", len(msgs))

		return msgs, false, nil
	}
}

// ours reports whether m answers the request stamped with seq.
func (s *Session) ours(m netlink.Message, seq uint32) bool {
	if m.Header.PID != s.pid || m.Header.Sequence != seq {
		s.logger.Debug("skipping stale message",
			"type", m.Header.Type, "pid", m.Header.PID, "seq", m.Header.Sequence, "want", seq)
		s.metrics.observeSkip(skipSequence)
		return false
	}
	return true
}

func (s *Session) kernelError(t uint16, code int32) error {
	s.metrics.observeKernelError(t)
	return &KernelError{Type: t, Errno: syscall.Errno(-code)}
}

// dump runs a REQUEST|DUMP exchange, calling fn on every reply until
// NLMSG_DONE. Any error from fn ends the exchange; leftovers are dropped by
// the sequence check of the next one.
func (s *Session) dump(ctx context.Context, req *Request, fn func(netlink.Message) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	reqType := uint16(req.Header().Type)

	seq, err := s.send(ctx, req)
	if err != nil {
		return err
	}

	lost := 0
	for {
		msgs, truncated, err := s.recv(ctx)
		if err != nil {
			return err
		}
		if truncated {
			lost++
			continue
		}

		for _, m := range msgs {
			if !s.ours(m, seq) {
				continue
			}

			switch m.Header.Type {
			case netlink.Done:
				if lost > 0 {
					return fmt.Errorf("%w: %d datagrams of the %s dump were lost", ErrTruncated, lost, msgTypeName(reqType))
				}
				return nil
			case netlink.Error:
				code, err := errorCode(m)
				if err != nil {
					return err
				}
				if code != 0 {
					return s.kernelError(reqType, code)
				}
				continue
			}

			if err := fn(m); err != nil {
				return err
			}
		}
	}
}

// modify runs a REQUEST|ACK exchange and returns once the kernel answers
// with an NLMSG_ERROR frame, a zero code being the acknowledgement.
func (s *Session) modify(ctx context.Context, req *Request) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	reqType := uint16(req.Header().Type)

	seq, err := s.send(ctx, req)
	if err != nil {
		return err
	}

	for {
		msgs, truncated, err := s.recv(ctx)
		if err != nil {
			return err
		}
		if truncated {
			return fmt.Errorf("%w: reply to %s", ErrTruncated, msgTypeName(reqType))
		}

		for _, m := range msgs {
			if !s.ours(m, seq) {
				continue
			}

			if m.Header.Type != netlink.Error {
				s.logger.Warn("unexpected reply", "type", m.Header.Type, "request", msgTypeName(reqType))
				s.metrics.observeSkip(skipUnexpected)
				continue
			}

			code, err := errorCode(m)
			if err != nil {
				return err
			}
			if code != 0 {
				return s.kernelError(reqType, code)
			}

			s.logger.Debug("kernel acknowledged request", "type", msgTypeName(reqType), "seq", seq)
			return nil
		}
	}
}
