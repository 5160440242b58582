//go:build linux

package netlink

import (
	"context"
	"fmt"

	"github.com/mdlayher/socket"
	"golang.org/x/sys/unix"
)

type sock struct {
	c *socket.Conn
}

// openTransport binds to port id 0 so the kernel hands out a unique one: the
// process id for the first socket and something else for any further one.
func openTransport(conf *Config) (transport, uint32, error) {
	c, err := socket.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_ROUTE, "rtnetlink", nil)
	if err != nil {
		return nil, 0, err
	}

	pid, err := setup(c, conf)
	if err != nil {
		_ = c.Close()
		return nil, 0, err
	}

	return &sock{c: c}, pid, nil
}

func setup(c *socket.Conn, conf *Config) (uint32, error) {
	if err := c.SetsockoptInt(unix.SOL_SOCKET, unix.SO_SNDBUF, conf.SendBufferSize); err != nil {
		return 0, fmt.Errorf("error setting SO_SNDBUF: %w", err)
	}

	if err := c.SetsockoptInt(unix.SOL_SOCKET, unix.SO_RCVBUF, conf.ReceiveBufferSize); err != nil {
		return 0, fmt.Errorf("error setting SO_RCVBUF: %w", err)
	}

	if err := c.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return 0, fmt.Errorf("error binding: %w", err)
	}

	sa, err := c.Getsockname()
	if err != nil {
		return 0, fmt.Errorf("error getting the local address: %w", err)
	}

	local, ok := sa.(*unix.SockaddrNetlink)
	if !ok {
		return 0, fmt.Errorf("%w: local address of type %T", ErrMalformed, sa)
	}

	return local.Pid, nil
}

func (s *sock) send(ctx context.Context, b []byte) error {
	_, err := s.c.Sendmsg(ctx, b, nil, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}, 0)
	return err
}

func (s *sock) peek(ctx context.Context) (int, error) {
	n, _, _, _, err := s.c.Recvmsg(ctx, nil, nil, unix.MSG_PEEK|unix.MSG_TRUNC)
	return n, err
}

func (s *sock) receive(ctx context.Context, b []byte) (int, uint32, bool, error) {
	n, _, flags, from, err := s.c.Recvmsg(ctx, b, nil, 0)
	if err != nil {
		return 0, 0, false, err
	}

	var sender uint32
	if sa, ok := from.(*unix.SockaddrNetlink); ok {
		sender = sa.Pid
	}

	return n, sender, flags&unix.MSG_TRUNC != 0, nil
}

func (s *sock) close() error {
	return s.c.Close()
}
