package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/types"
)

func TestLogReplacements(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level:       types.LevelTrace,
		ReplaceAttr: logReplacements,
	}))

	tests := []struct {
		log  func()
		want []string
	}{
		{
			func() { logger.Log(t.Context(), types.LevelTrace, "sent", FlagsKey, netlink.Request|netlink.Acknowledge) },
			[]string{"level=TRACE", "flags=0x5(request|acknowledge)"},
		},
		{
			func() { logger.Info("link", ChangeKey, uint32(0x1)) },
			[]string{"level=INFO", "change=0x1"},
		},
		{
			func() { logger.Info("link", "index", uint32(7)) },
			[]string{"index=7"},
		},
	}

	for _, test := range tests {
		buf.Reset()
		test.log()

		got := buf.String()
		if strings.Contains(got, "time=") {
			t.Errorf("%q: time wasn't removed", got)
		}
		for _, w := range test.want {
			if !strings.Contains(got, w) {
				t.Errorf("%q: got %v, want %v", got, got, w)
			}
		}
	}
}
