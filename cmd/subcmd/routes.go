package subcmd

import (
	"fmt"
	"net/netip"

	"github.com/scitags/rtnl/internal/routes"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/types"
	"github.com/spf13/cobra"
)

func Routes(env *Env) *cobra.Command {
	var (
		family  string
		table   string
		dst     string
		dstLen  int
		gateway string
		dev     int
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List routes. Address literals switch the family to theirs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl := netlink.DefaultRouteRecord()

			f, ok := types.ParseFamily(family)
			if !ok || f == types.Unspec {
				return fmt.Errorf("%w: family %q", netlink.ErrInvalidParameter, family)
			}
			tmpl.Family = f

			if table != "" {
				t, ok := types.ParseRouteTable(table)
				if !ok {
					return fmt.Errorf("%w: table %q", netlink.ErrInvalidParameter, table)
				}
				tmpl.Table = t
			}

			tmpl.Dst, tmpl.DstLen, tmpl.Gateway = dst, dstLen, gateway
			if dev > 0 {
				tmpl.OutputIf = dev
			}

			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rs, err := s.Routes(cmd.Context(), tmpl)
			if err != nil {
				return err
			}
			defer rs.Free()

			if env.JSON {
				return env.printJSON(rs)
			}

			w := env.table()
			fmt.Fprintln(w, "DST\tGATEWAY\tDEV\tMETRIC\tTABLE\tPROTO\tSCOPE\tTYPE")
			for _, r := range rs {
				d := "default"
				if r.Dst != "" {
					d = fmt.Sprintf("%s/%d", r.Dst, r.DstLen)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
					d, r.Gateway, r.OutputIf, r.Priority, r.Table, r.Protocol, r.Scope, r.Type)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&family, "family", "ipv4", "address family (ipv4 or ipv6)")
	cmd.Flags().StringVar(&table, "table", "", "only show routes in this table (name or number)")
	cmd.Flags().StringVar(&dst, "dst", "", "only show routes covering this destination")
	cmd.Flags().IntVar(&dstLen, "dst-len", 0, "only show routes with this prefix length")
	cmd.Flags().StringVar(&gateway, "gateway", "", "only show routes through this gateway")
	cmd.Flags().IntVar(&dev, "dev", 0, "only show routes going out through this ifindex")

	return cmd
}

type hopFlags struct {
	gateway  string
	dev      int
	metric   int
	table    string
	scope    string
	kind     string
	protocol string
}

func (h *hopFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.gateway, "via", "", "gateway address")
	cmd.Flags().IntVar(&h.dev, "dev", 0, "output ifindex")
	cmd.Flags().IntVar(&h.metric, "metric", -1, "route priority, -1 meaning none")
	cmd.Flags().StringVar(&h.table, "table", "main", "routing table (name or number)")
	cmd.Flags().StringVar(&h.scope, "scope", "global", "route scope")
	cmd.Flags().StringVar(&h.kind, "type", "unicast", "route type")
	cmd.Flags().StringVar(&h.protocol, "protocol", "", "route protocol, static when adding if unset")
}

func (h *hopFlags) nextHop(dst string) (routes.NextHop, error) {
	prefix, err := netip.ParsePrefix(dst)
	if err != nil {
		// Bare addresses are host routes.
		a, aerr := netip.ParseAddr(dst)
		if aerr != nil {
			return routes.NextHop{}, fmt.Errorf("%w: destination %q: %w", netlink.ErrInvalidParameter, dst, err)
		}
		prefix = netip.PrefixFrom(a, a.BitLen())
	}

	n := routes.NextHop{Dst: prefix, OutputIf: h.dev, Metric: h.metric}

	if h.gateway != "" {
		gw, err := netip.ParseAddr(h.gateway)
		if err != nil {
			return routes.NextHop{}, fmt.Errorf("%w: gateway %q: %w", netlink.ErrInvalidParameter, h.gateway, err)
		}
		n.Gateway = gw
	}

	var ok bool
	if n.Table, ok = types.ParseRouteTable(h.table); !ok {
		return routes.NextHop{}, fmt.Errorf("%w: table %q", netlink.ErrInvalidParameter, h.table)
	}
	if n.Scope, ok = types.ParseRouteScope(h.scope); !ok {
		return routes.NextHop{}, fmt.Errorf("%w: scope %q", netlink.ErrInvalidParameter, h.scope)
	}
	if n.Type, ok = types.ParseRouteType(h.kind); !ok {
		return routes.NextHop{}, fmt.Errorf("%w: type %q", netlink.ErrInvalidParameter, h.kind)
	}
	if h.protocol != "" {
		if n.Protocol, ok = types.ParseRouteProtocol(h.protocol); !ok {
			return routes.NextHop{}, fmt.Errorf("%w: protocol %q", netlink.ErrInvalidParameter, h.protocol)
		}
	}

	return n, nil
}

func Route(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Add and delete routes.",
	}

	var add, del hopFlags

	addCmd := &cobra.Command{
		Use:   "add <prefix>",
		Short: "Add a route, failing if it's already there.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := add.nextHop(args[0])
			if err != nil {
				return err
			}

			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return routes.AddRoute(cmd.Context(), s, n)
		},
	}
	add.register(addCmd)

	delCmd := &cobra.Command{
		Use:   "del <prefix>",
		Short: "Delete a route.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := del.nextHop(args[0])
			if err != nil {
				return err
			}

			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return routes.DeleteRoute(cmd.Context(), s, n)
		},
	}
	del.register(delCmd)

	cmd.AddCommand(addCmd, delCmd)

	return cmd
}
