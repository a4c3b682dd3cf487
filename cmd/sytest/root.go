package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sytest",
		Short:         "Sytest batch-tests a SysY compiler against case suites",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("profile", "", "test profile to run (frontend|backend)")
	persistent.String("manifest", "", "explicit case manifest file")
	persistent.StringArray("only-case", nil, "include only matching case ids (repeatable)")
	persistent.StringArray("skip-case", nil, "exclude matching case ids (repeatable)")
	persistent.IntP("parallel", "p", 0, "number of cases to run in parallel")
	persistent.Int("timeout", 0, "per-stage timeout in seconds")
	persistent.String("format", "", "output format (pretty|json|jsonl)")
	persistent.Bool("strict-skips", false, "count skipped cases as run failure")
	persistent.Bool("keep", false, "keep per-case artifacts and write result.log")
	persistent.BoolP("verbose", "v", false, "print run details to stderr")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}
