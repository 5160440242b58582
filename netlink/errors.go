package netlink

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrNotOpen          = errors.New("no netlink session is open")
	ErrUnsupported      = errors.New("rtnetlink is only available on linux")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNoSpace          = errors.New("attribute exceeds the request capacity")
	ErrMalformed        = errors.New("malformed netlink message")
	ErrTruncated        = errors.New("netlink reply truncated")
)

// KernelError is an NLMSG_ERROR frame carrying a non-zero code. It unwraps
// into the errno so callers can check for unix.EEXIST and the like.
type KernelError struct {
	// Type is the request type the kernel refused.
	Type  uint16
	Errno syscall.Errno
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("kernel rejected %s: %v", msgTypeName(e.Type), e.Errno)
}

func (e *KernelError) Unwrap() error {
	return e.Errno
}

func invalid(field string, v any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidParameter, field, v)
}

func msgTypeName(t uint16) string {
	switch t {
	case RTM_NEWLINK:
		return "RTM_NEWLINK"
	case RTM_DELLINK:
		return "RTM_DELLINK"
	case RTM_GETLINK:
		return "RTM_GETLINK"
	case RTM_NEWROUTE:
		return "RTM_NEWROUTE"
	case RTM_DELROUTE:
		return "RTM_DELROUTE"
	case RTM_GETROUTE:
		return "RTM_GETROUTE"
	}
	return fmt.Sprintf("type %d", t)
}
