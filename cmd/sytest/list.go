package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sycomp/sytest/internal/config"
	"github.com/sycomp/sytest/internal/output"
	"github.com/sycomp/sytest/internal/toolcheck"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [case-dir...]",
		Short: "List discovered test cases without running them",
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cases, err := discoverCases(cfg, args)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching cases")
		return nil
	}

	// A missing tool is only a warning here; listing never runs anything.
	for _, msg := range toolcheck.Missing(cfg) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
	}

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		return output.NewPretty(cmd.OutOrStdout()).RenderList(cases)
	case config.FormatJSON, config.FormatJSONL:
		doc := output.Document{Profile: cfg.Profile, Cases: cases}
		return output.NewJSON(cmd.OutOrStdout()).Render(doc)
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}
