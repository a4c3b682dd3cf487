package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sycomp/sytest/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	if flags.Changed("profile") {
		v, err := flags.GetString("profile")
		if err != nil {
			return values, fmt.Errorf("parse --profile: %w", err)
		}
		values.Profile = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("manifest") {
		v, err := flags.GetString("manifest")
		if err != nil {
			return values, fmt.Errorf("parse --manifest: %w", err)
		}
		values.Manifest = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("only-case") {
		v, err := flags.GetStringArray("only-case")
		if err != nil {
			return values, fmt.Errorf("parse --only-case: %w", err)
		}
		values.OnlyCases = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("skip-case") {
		v, err := flags.GetStringArray("skip-case")
		if err != nil {
			return values, fmt.Errorf("parse --skip-case: %w", err)
		}
		values.SkipCases = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("parallel") {
		v, err := flags.GetInt("parallel")
		if err != nil {
			return values, fmt.Errorf("parse --parallel: %w", err)
		}
		values.Parallel = config.IntFlag{Value: v, Set: true}
	}

	if flags.Changed("timeout") {
		v, err := flags.GetInt("timeout")
		if err != nil {
			return values, fmt.Errorf("parse --timeout: %w", err)
		}
		values.Timeout = config.IntFlag{Value: v, Set: true}
	}

	if flags.Changed("format") {
		v, err := flags.GetString("format")
		if err != nil {
			return values, fmt.Errorf("parse --format: %w", err)
		}
		values.Format = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("strict-skips") {
		v, err := flags.GetBool("strict-skips")
		if err != nil {
			return values, fmt.Errorf("parse --strict-skips: %w", err)
		}
		values.StrictSkips = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("keep") {
		v, err := flags.GetBool("keep")
		if err != nil {
			return values, fmt.Errorf("parse --keep: %w", err)
		}
		values.Keep = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("verbose") {
		v, err := flags.GetBool("verbose")
		if err != nil {
			return values, fmt.Errorf("parse --verbose: %w", err)
		}
		values.Verbose = config.BoolFlag{Value: v, Set: true}
	}

	return values, nil
}
