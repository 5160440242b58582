package subcmd

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/scitags/rtnl/backends/prometheus"
	"github.com/scitags/rtnl/internal/qdisc"
	"github.com/scitags/rtnl/plugins/api"
	"github.com/spf13/cobra"
)

func Serve(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the configured exporter and API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Api == nil && env.Prometheus == nil {
				return errors.New("neither the api nor the prometheus exporter are configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			// go-tc needs a socket of its own. Not having one only disables
			// the qdisc bits.
			var qdiscs *qdisc.Client
			if q, err := qdisc.Open(); err != nil {
				slog.Warn("qdisc listing is unavailable", "err", err)
			} else {
				qdiscs = q
				defer q.Close()
			}

			done := make(chan struct{}, 2)
			running := 0

			if env.Prometheus != nil {
				e, err := prometheus.NewPrometheusExporter(env.Prometheus, s)
				if err != nil {
					return err
				}
				if env.Prometheus.Qdiscs && qdiscs != nil {
					e.WithQdiscs(qdiscs)
				}
				defer func() {
					if err := e.Cleanup(); err != nil {
						slog.Error("error cleaning up", "component", e, "err", err)
					}
				}()

				running++
				go func() { e.Run(ctx); done <- struct{}{} }()
			}

			if env.Api != nil {
				var p *api.ApiPlugin
				if qdiscs != nil {
					p = api.New(env.Api, s, qdiscs)
				} else {
					p = api.New(env.Api, s, nil)
				}
				if err := p.Init(); err != nil {
					return err
				}
				defer func() {
					if err := p.Cleanup(); err != nil {
						slog.Error("error cleaning up", "component", p, "err", err)
					}
				}()

				running++
				go func() { p.Run(ctx); done <- struct{}{} }()
			}

			slog.Info("serving", "pid", s.PID())

			for ; running > 0; running-- {
				<-done
			}

			slog.Info("cleanly exiting")
			return nil
		},
	}
}
