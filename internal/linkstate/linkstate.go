// Package linkstate brings links up and down by name within a time bound.
package linkstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	nl "github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/netlink"
)

// State is a requested link state. The values follow the RequestedState
// property of CIM_EnabledLogicalElement so they can be passed through as is.
type State uint16

const (
	Enabled  State = 2
	Disabled State = 3
	ShutDown State = 4
	Offline  State = 6
	Test     State = 7
	Deferred State = 8
	Quiesce  State = 9
	Reboot   State = 10
	Reset    State = 11
)

var (
	ErrInvalidState = errors.New("invalid link state")
	ErrTimeout      = errors.New("link state change timed out")
)

var (
	stateMap = map[string]State{
		"enabled":  Enabled,
		"up":       Enabled,
		"disabled": Disabled,
		"down":     Disabled,
		"shutdown": ShutDown,
		"offline":  Offline,
		"test":     Test,
		"deferred": Deferred,
		"quiesce":  Quiesce,
		"reboot":   Reboot,
		"reset":    Reset,
	}

	etatsMap = map[State]string{
		Enabled:  "enabled",
		Disabled: "disabled",
		ShutDown: "shutdown",
		Offline:  "offline",
		Test:     "test",
		Deferred: "deferred",
		Quiesce:  "quiesce",
		Reboot:   "reboot",
		Reset:    "reset",
	}
)

func (s State) String() string {
	if n, ok := etatsMap[s]; ok {
		return n
	}
	return strconv.Itoa(int(s))
}

// ParseState accepts either a state name or its numeric value.
func ParseState(s string) (State, error) {
	if st, ok := stateMap[strings.ToLower(s)]; ok {
		return st, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	if _, ok := etatsMap[State(n)]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidState, n)
	}
	return State(n), nil
}

// Modifier is satisfied by *netlink.Session.
type Modifier interface {
	ModifyLink(ctx context.Context, rec netlink.LinkRecord, msgType uint16, flags nl.HeaderFlags) error
}

// request builds the RTM_NEWLINK template for state. Only enabling and
// disabling touch IFF_UP; the remaining states are accepted and leave the
// link as it is.
func request(name string, state State) (netlink.LinkRecord, error) {
	rec := netlink.DefaultLinkRecord()
	rec.Name = name

	switch state {
	case Enabled:
		rec.Change = netlink.IFF_UP
		rec.Flags |= netlink.IFF_UP
	case Disabled:
		rec.Change = netlink.IFF_UP
		rec.Flags &^= netlink.IFF_UP
	case ShutDown, Offline, Test, Deferred, Quiesce, Reboot, Reset:
	default:
		return netlink.LinkRecord{}, fmt.Errorf("%w: %d", ErrInvalidState, state)
	}

	return rec, nil
}

// Set moves link name into state. A zero timeout waits for as long as ctx
// allows. When the timeout runs out ErrTimeout is returned, although the
// kernel may have applied the change regardless.
func Set(ctx context.Context, m Modifier, name string, state State, timeout time.Duration) error {
	if name == "" {
		return fmt.Errorf("%w: empty link name", netlink.ErrInvalidParameter)
	}

	rec, err := request(name, state)
	if err != nil {
		return err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	slog.Debug("changing link state", "link", name, "state", state, "timeout", timeout)

	if err := m.ModifyLink(ctx, rec, netlink.RTM_NEWLINK, 0); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s to %s after %s", ErrTimeout, name, state, timeout)
		}
		return fmt.Errorf("error setting %s to %s: %w", name, state, err)
	}

	return nil
}
