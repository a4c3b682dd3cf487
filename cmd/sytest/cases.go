package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sycomp/sytest/internal/config"
	"github.com/sycomp/sytest/internal/discovery"
)

// defaultCaseRoot is used when neither a positional argument, a manifest,
// nor a config entry names the case source.
const defaultCaseRoot = "testcases"

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}
	return cfg, root, nil
}

// discoverCases resolves the case source (manifest beats directories),
// enumerates cases, and applies the configured id filters. Discovery
// failures are fatal: no case runs when the source is malformed.
func discoverCases(cfg config.Config, args []string) ([]discovery.TestCase, error) {
	cases, err := enumerate(cfg, args)
	if err != nil {
		if errors.Is(err, discovery.ErrNoCases) {
			return nil, fmt.Errorf("no test cases found; pass a case directory or --manifest")
		}
		return nil, err
	}

	only, err := discovery.CompilePatterns(cfg.OnlyCases)
	if err != nil {
		return nil, err
	}
	skip, err := discovery.CompilePatterns(cfg.SkipCases)
	if err != nil {
		return nil, err
	}
	return discovery.Filter(cases, only, skip), nil
}

func enumerate(cfg config.Config, args []string) ([]discovery.TestCase, error) {
	if cfg.Manifest != "" {
		return discovery.FromManifest(cfg.Manifest)
	}

	roots := args
	if len(roots) == 0 {
		roots = cfg.Cases
	}
	if len(roots) == 0 {
		roots = []string{defaultCaseRoot}
	}

	seen := make(map[string]struct{})
	var all []discovery.TestCase
	for _, root := range roots {
		cases, err := discovery.FromDir(root)
		if err != nil {
			return nil, err
		}
		for _, tc := range cases {
			if _, dup := seen[tc.ID]; dup {
				return nil, fmt.Errorf("case id %q discovered twice across roots", tc.ID)
			}
			seen[tc.ID] = struct{}{}
			all = append(all, tc)
		}
	}
	return all, nil
}
