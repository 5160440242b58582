package linkstate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	nl "github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/netlink"
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

type fakeModifier struct {
	got   []netlink.LinkRecord
	block bool
	err   error
}

func (f *fakeModifier) ModifyLink(ctx context.Context, rec netlink.LinkRecord, msgType uint16, flags nl.HeaderFlags) error {
	if msgType != netlink.RTM_NEWLINK {
		return netlink.ErrInvalidParameter
	}
	f.got = append(f.got, rec)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func TestSet(t *testing.T) {
	tests := []struct {
		state  State
		flags  uint32
		change uint32
	}{
		{Enabled, netlink.IFF_UP, netlink.IFF_UP},
		{Disabled, 0, netlink.IFF_UP},
		{ShutDown, 0, netlink.CHANGE_ALL},
		{Reset, 0, netlink.CHANGE_ALL},
	}

	for _, test := range tests {
		m := &fakeModifier{}
		if err := Set(context.Background(), m, "eth0", test.state, time.Second); err != nil {
			t.Errorf("%q: error setting the state: %v", test.state, err)
			continue
		}
		if len(m.got) != 1 {
			t.Fatalf("%q: got %d requests, want 1", test.state, len(m.got))
		}

		rec := m.got[0]
		if rec.Name != "eth0" || rec.Flags != test.flags || rec.Change != test.change {
			t.Errorf("%q: got name %q, flags %#x and change %#x; want flags %#x and change %#x",
				test.state, rec.Name, rec.Flags, rec.Change, test.flags, test.change)
		}

		if _, err := netlink.GenerateLinkFilter(&rec); err != nil {
			t.Errorf("%q: the request isn't a valid template: %v", test.state, err)
		}
	}
}

func TestSetFailures(t *testing.T) {
	if err := Set(context.Background(), &fakeModifier{}, "eth0", 5, 0); !errors.Is(err, ErrInvalidState) {
		t.Errorf("got %v, want %v", err, ErrInvalidState)
	}

	if err := Set(context.Background(), &fakeModifier{}, "", Enabled, 0); !errors.Is(err, netlink.ErrInvalidParameter) {
		t.Errorf("got %v, want %v", err, netlink.ErrInvalidParameter)
	}

	if err := Set(context.Background(), &fakeModifier{block: true}, "eth0", Enabled, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want %v", err, ErrTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Set(ctx, &fakeModifier{block: true}, "eth0", Enabled, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}

	kerr := &netlink.KernelError{Type: netlink.RTM_NEWLINK, Errno: 19}
	if err := Set(context.Background(), &fakeModifier{err: kerr}, "nope0", Disabled, 0); !errors.As(err, &kerr) {
		t.Errorf("got %v, want a kernel error", err)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in   string
		want State
		err  error
	}{
		{"up", Enabled, nil},
		{"Disabled", Disabled, nil},
		{"11", Reset, nil},
		{"5", 0, ErrInvalidState},
		{"sideways", 0, ErrInvalidState},
	}

	for _, test := range tests {
		got, err := ParseState(test.in)
		if !errors.Is(err, test.err) {
			t.Errorf("%q: got error %v, want %v", test.in, err, test.err)
		}
		if got != test.want {
			t.Errorf("%q: got %v, want %v", test.in, got, test.want)
		}
	}
}

func TestConf(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"{}", 2 * time.Second},
		{"timeoutMs: 250", 250 * time.Millisecond},
		{"timeoutMs: 0", 0},
	}

	for _, test := range tests {
		var c Config
		if err := yaml.Unmarshal([]byte(test.in), &c); err != nil {
			t.Errorf("%q: error unmarshalling: %v", test.in, err)
			continue
		}
		if c.Timeout() != test.want {
			t.Errorf("%q: got %v, want %v", test.in, c.Timeout(), test.want)
		}
	}
}
