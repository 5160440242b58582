package subcmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/scitags/rtnl/internal/linkstate"
	"github.com/scitags/rtnl/internal/qdisc"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/types"
	"github.com/spf13/cobra"
)

func Links(env *Env) *cobra.Command {
	var (
		index     int
		operState string
		reverse   bool
	)

	cmd := &cobra.Command{
		Use:   "links [name]",
		Short: "List links, optionally only the one called name.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl := netlink.DefaultLinkRecord()
			if len(args) == 1 {
				tmpl.Name = args[0]
			}
			tmpl.Index = index

			if operState != "" {
				s, ok := types.ParseOperState(operState)
				if !ok {
					return fmt.Errorf("%w: operstate %q", netlink.ErrInvalidParameter, operState)
				}
				tmpl.OperState = s
			}

			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			links, err := s.Links(cmd.Context(), tmpl)
			if err != nil {
				return err
			}
			defer links.Free()

			if reverse {
				links = links.Reverse()
			}

			return env.printLinks(links)
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "only show the link with this ifindex")
	cmd.Flags().StringVar(&operState, "operstate", "", "only show links in this operational state")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "list links in reverse kernel order")

	return cmd
}

func (e *Env) printLinks(links netlink.List[netlink.LinkRecord]) error {
	if e.JSON {
		return e.printJSON(links)
	}

	w := e.table()
	fmt.Fprintln(w, "INDEX\tNAME\tTYPE\tMTU\tSTATE\tQDISC\tADDRESS\tFLAGS")
	for _, l := range links {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%#x\n",
			l.Index, l.Name, strings.ToLower(netlink.LinkTypeName(l.Type)), l.MTU, l.OperState, l.QDisc, l.HardwareAddr(), l.Flags)
	}
	return w.Flush()
}

func Link(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Change links.",
	}
	cmd.AddCommand(linkSet(env))
	return cmd
}

func linkSet(env *Env) *cobra.Command {
	var timeoutMs int

	cmd := &cobra.Command{
		Use:   "set <name> <state>",
		Short: "Bring a link up or down. The state is a name (up, down, enabled, ...) or its CIM value.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := linkstate.ParseState(args[1])
			if err != nil {
				return err
			}

			timeout := env.LinkState.Timeout()
			if cmd.Flags().Changed("timeout") {
				timeout = time.Duration(timeoutMs) * time.Millisecond
			}

			s, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return linkstate.Set(cmd.Context(), s, args[0], state, timeout)
		},
	}

	cmd.Flags().IntVar(&timeoutMs, "timeout", 0, "bound on the change in milliseconds, 0 meaning none (defaults to the configured one)")

	return cmd
}

func Qdiscs(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "qdiscs [ifindex]",
		Short: "List queueing disciplines, optionally only those of a link.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ifindex uint32
			if len(args) == 1 {
				if _, err := fmt.Sscanf(args[0], "%d", &ifindex); err != nil {
					return fmt.Errorf("%w: ifindex %q", netlink.ErrInvalidParameter, args[0])
				}
			}

			c, err := qdisc.Open()
			if err != nil {
				return err
			}
			defer c.Close()

			qdiscs, err := c.List(ifindex)
			if err != nil {
				return err
			}

			if env.JSON {
				return env.printJSON(qdiscs)
			}

			w := env.table()
			fmt.Fprintln(w, "INDEX\tKIND\tHANDLE\tPARENT\tBYTES\tPACKETS\tDROPS\tBACKLOG")
			for _, q := range qdiscs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					q.Ifindex, q.Kind, q.Handle, q.Parent, q.Bytes, q.Packets, q.Drops, q.Backlog)
			}
			return w.Flush()
		},
	}
}
