package subcmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// BuiltCommit is overridden through -ldflags at build time.
var BuiltCommit = "dev"

func Version(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(env.Out, "built commit: %s\n", BuiltCommit)
			if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Fprintf(env.Out, "go version: %s\n", info.GoVersion)
			}
		},
	}
}
