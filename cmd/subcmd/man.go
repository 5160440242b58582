package subcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// Man writes the man pages for root and its sub-commands.
func Man(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:    "man <dir>",
		Short:  "Generate man pages into dir.",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return genMan(root, args[0])
		},
	}
}

func genMan(root *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating %q: %w", dir, err)
	}

	header := &doc.GenManHeader{
		Title:   "RTNL",
		Section: "8",
		Source:  "rtnl " + BuiltCommit,
		Manual:  "rtnl manual",
	}

	if err := doc.GenManTree(root, header, dir); err != nil {
		return fmt.Errorf("error generating the man pages: %w", err)
	}
	return nil
}
