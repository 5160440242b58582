package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/scitags/rtnl/cmd/subcmd"
	"github.com/scitags/rtnl/types"
	"github.com/spf13/cobra"
)

const defaultConfPath = "/etc/rtnl/conf.yaml"

var (
	logLevelFlag string
	logTimeFlag  bool
	confPathFlag string

	env = subcmd.NewEnv()

	rootCmd = &cobra.Command{
		Use:   "rtnl",
		Short: "Inspect and change links and routes over rtnetlink.",
		Long: "rtnl talks to the kernel's routing netlink family to list links and routes, add\n" +
			"and delete routes and bring links up and down. It can also export what it\n" +
			"sees to prometheus and serve it over a read-only JSON API.",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (trace, debug, info, warn or error)")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "include timestamps in the log")
	rootCmd.PersistentFlags().StringVar(&confPathFlag, "conf", defaultConfPath, "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&env.JSON, "json", false, "print indented JSON instead of tables")

	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add the different sub-commands
	rootCmd.AddCommand(
		subcmd.Links(env),
		subcmd.Link(env),
		subcmd.Routes(env),
		subcmd.Route(env),
		subcmd.Qdiscs(env),
		subcmd.Serve(env),
		subcmd.Version(env),
		subcmd.Man(rootCmd),
	)
}

func setup(cmd *cobra.Command, args []string) error {
	level, ok := types.ParseLevel(logLevelFlag)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevelFlag)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   true,
		Level:       level,
		ReplaceAttr: logReplacements,
	}))
	slog.SetDefault(logger)

	conf, err := ReadConf(confPathFlag)
	switch {
	// The default path is optional, an explicit one isn't.
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("conf"):
		slog.Debug("no configuration file, using the defaults", "path", confPathFlag)
		conf, err = ParseConf(nil)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	slog.Log(context.Background(), types.LevelTrace, "loaded the configuration", "conf", conf)

	conf.apply(env)

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
