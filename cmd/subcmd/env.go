// Package subcmd holds the rtnl sub-commands. They share an Env the root
// command fills in from the configuration before any of them runs.
package subcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/scitags/rtnl/backends/prometheus"
	"github.com/scitags/rtnl/internal/linkstate"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/plugins/api"
)

type Env struct {
	Netlink   netlink.Config
	LinkState linkstate.Config

	// A nil Api or Prometheus leaves that component out of serve.
	Api        *api.Config
	Prometheus *prometheus.Config

	Out io.Writer

	// JSON selects indented JSON output instead of tables.
	JSON bool
}

func NewEnv() *Env {
	return &Env{
		Netlink: netlink.DefaultConfig,
		Out:     os.Stdout,
	}
}

func (e *Env) open(ctx context.Context) (*netlink.Session, error) {
	s, err := netlink.Open(ctx, &e.Netlink)
	if err != nil {
		return nil, fmt.Errorf("error opening the netlink session: %w", err)
	}
	return s, nil
}

func (e *Env) printJSON(v any) error {
	enc := json.NewEncoder(e.Out)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

func (e *Env) table() *tabwriter.Writer {
	return tabwriter.NewWriter(e.Out, 0, 4, 2, ' ', 0)
}
