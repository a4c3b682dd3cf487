package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config captures harness options sourced from config files or flags.
type Config struct {
	Profile  string   `yaml:"profile"`
	Manifest string   `yaml:"manifest"`
	Cases    []string `yaml:"cases"`

	OnlyCases []string `yaml:"only_case"`
	SkipCases []string `yaml:"skip_case"`

	Parallel       int    `yaml:"parallel"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	OutputCapKB    int    `yaml:"output_cap_kb"`
	Format         string `yaml:"format"`
	StrictSkips    bool   `yaml:"strict_skips"`
	KeepArtifacts  bool   `yaml:"keep_artifacts"`
	Verbose        bool   `yaml:"verbose"`

	Tools Tools `yaml:"tools"`
}

// Tools lists the external toolchain executables the profiles invoke.
type Tools struct {
	Java        string `yaml:"java"`
	CompilerJar string `yaml:"compiler_jar"`
	LLVMLink    string `yaml:"llvm_link"`
	LLI         string `yaml:"lli"`
	ReferenceCC string `yaml:"reference_cc"`
	CrossCC     string `yaml:"cross_cc"`
	Emulator    string `yaml:"emulator"`
	RuntimeLL   string `yaml:"runtime_ll"`
	RuntimeC    string `yaml:"runtime_c"`
}

const (
	// ProfileFrontend compiles to LLVM IR and checks interpreted output
	// against golden files.
	ProfileFrontend = "frontend"
	// ProfileBackend cross-validates emitted ARM assembly against an x86
	// reference build.
	ProfileBackend = "backend"

	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders a single machine readable document.
	FormatJSON = "json"
	// FormatJSONL renders one machine readable record per case.
	FormatJSONL = "jsonl"
)

// ConfigFileName is looked up at the working directory root.
const ConfigFileName = ".sytest.yml"

// Default returns the baseline configuration used when no flags or config
// file specify values.
func Default() Config {
	return Config{
		Profile:        ProfileFrontend,
		Parallel:       1,
		TimeoutSeconds: 60,
		Format:         FormatPretty,
		Tools: Tools{
			Java:        "java",
			LLVMLink:    "llvm-link",
			LLI:         "lli",
			ReferenceCC: "gcc",
			CrossCC:     "arm-linux-gnueabihf-gcc",
			Emulator:    "qemu-arm",
			RuntimeLL:   "sylib.ll",
			RuntimeC:    "sylib.c",
		},
	}
}

// Load reads .sytest.yml from root when present. Missing files are ignored.
func Load(root string) (Config, error) {
	cfg := Default()
	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	return merge(cfg, fileCfg), nil
}

// Validate rejects option combinations no run can honor.
func (c Config) Validate() error {
	switch c.Profile {
	case ProfileFrontend, ProfileBackend:
	default:
		return fmt.Errorf("unsupported profile %q", c.Profile)
	}
	switch c.Format {
	case FormatPretty, FormatJSON, FormatJSONL:
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout must be at least 1s, got %ds", c.TimeoutSeconds)
	}
	if c.Tools.CompilerJar == "" {
		return errors.New("tools.compiler_jar is required")
	}
	return nil
}

func merge(base, override Config) Config {
	out := base

	if override.Profile != "" {
		out.Profile = override.Profile
	}
	if override.Manifest != "" {
		out.Manifest = override.Manifest
	}
	if len(override.Cases) > 0 {
		out.Cases = append([]string{}, override.Cases...)
	}
	if len(override.OnlyCases) > 0 {
		out.OnlyCases = append([]string{}, override.OnlyCases...)
	}
	if len(override.SkipCases) > 0 {
		out.SkipCases = append([]string{}, override.SkipCases...)
	}
	if override.Parallel > 0 {
		out.Parallel = override.Parallel
	}
	if override.TimeoutSeconds > 0 {
		out.TimeoutSeconds = override.TimeoutSeconds
	}
	if override.OutputCapKB > 0 {
		out.OutputCapKB = override.OutputCapKB
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.StrictSkips {
		out.StrictSkips = true
	}
	if override.KeepArtifacts {
		out.KeepArtifacts = true
	}
	if override.Verbose {
		out.Verbose = true
	}

	out.Tools = mergeTools(base.Tools, override.Tools)
	return out
}

func mergeTools(base, override Tools) Tools {
	out := base
	if override.Java != "" {
		out.Java = override.Java
	}
	if override.CompilerJar != "" {
		out.CompilerJar = override.CompilerJar
	}
	if override.LLVMLink != "" {
		out.LLVMLink = override.LLVMLink
	}
	if override.LLI != "" {
		out.LLI = override.LLI
	}
	if override.ReferenceCC != "" {
		out.ReferenceCC = override.ReferenceCC
	}
	if override.CrossCC != "" {
		out.CrossCC = override.CrossCC
	}
	if override.Emulator != "" {
		out.Emulator = override.Emulator
	}
	if override.RuntimeLL != "" {
		out.RuntimeLL = override.RuntimeLL
	}
	if override.RuntimeC != "" {
		out.RuntimeC = override.RuntimeC
	}
	return out
}

// ApplyFlags mutates cfg by applying values from CLI flags when they were
// set explicitly.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.Profile.Set {
		cfg.Profile = flags.Profile.Value
	}
	if flags.Manifest.Set {
		cfg.Manifest = flags.Manifest.Value
	}
	if len(flags.OnlyCases.Values) > 0 {
		cfg.OnlyCases = append([]string{}, flags.OnlyCases.Values...)
	}
	if len(flags.SkipCases.Values) > 0 {
		cfg.SkipCases = append([]string{}, flags.SkipCases.Values...)
	}
	if flags.Parallel.Set {
		cfg.Parallel = flags.Parallel.Value
	}
	if flags.Timeout.Set {
		cfg.TimeoutSeconds = flags.Timeout.Value
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.StrictSkips.Set {
		cfg.StrictSkips = flags.StrictSkips.Value
	}
	if flags.Keep.Set {
		cfg.KeepArtifacts = flags.Keep.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag
// was set explicitly.
type FlagValues struct {
	Profile     StringFlag
	Manifest    StringFlag
	OnlyCases   SliceFlag
	SkipCases   SliceFlag
	Parallel    IntFlag
	Timeout     IntFlag
	Format      StringFlag
	StrictSkips BoolFlag
	Keep        BoolFlag
	Verbose     BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and the values it captured.
type SliceFlag struct {
	Values []string
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
