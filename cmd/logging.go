package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mdlayher/netlink"
	"github.com/scitags/rtnl/types"
)

// Attributes rendered as hex since they're bit sets.
const (
	FlagsKey  string = "flags"
	ChangeKey string = "change"
)

func logReplacements(groups []string, a slog.Attr) slog.Attr {
	// Remove time.
	if a.Key == slog.TimeKey && len(groups) == 0 && !logTimeFlag {
		return slog.Attr{}
	}

	// Remove the directory from the source's filename.
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
	}

	// slog has no name for our extra level.
	if a.Key == slog.LevelKey && len(groups) == 0 {
		if l, ok := a.Value.Any().(slog.Level); ok && l == types.LevelTrace {
			return slog.Attr{Key: a.Key, Value: slog.StringValue("TRACE")}
		}
	}

	if a.Key == FlagsKey || a.Key == ChangeKey {
		switch v := a.Value.Any().(type) {
		case netlink.HeaderFlags:
			return slog.Attr{Key: a.Key, Value: slog.StringValue(fmt.Sprintf("%#x(%s)", uint16(v), v))}
		case uint64:
			// When slog gobbles a uint32 it becomes a uint64.
			return slog.Attr{Key: a.Key, Value: slog.StringValue(fmt.Sprintf("%#x", v))}
		}
	}

	return a
}
