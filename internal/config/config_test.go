package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Profile != ProfileFrontend || cfg.Format != FormatPretty {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Tools.LLI != "lli" {
		t.Fatalf("unexpected default tools: %+v", cfg.Tools)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	root := t.TempDir()
	contents := `
profile: backend
parallel: 4
tools:
  compiler_jar: ./compiler.jar
  emulator: qemu-arm-static
`
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Profile != ProfileBackend || cfg.Parallel != 4 {
		t.Fatalf("file values not merged: %+v", cfg)
	}
	if cfg.Tools.Emulator != "qemu-arm-static" {
		t.Fatalf("tool override lost: %+v", cfg.Tools)
	}
	if cfg.Tools.LLI != "lli" {
		t.Fatalf("unset tool fields must keep defaults: %+v", cfg.Tools)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("profile: [oops"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(root); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyFlagsOverridesFile(t *testing.T) {
	cfg := Default()
	cfg.Profile = ProfileBackend
	cfg.Parallel = 4

	ApplyFlags(&cfg, FlagValues{
		Profile:  StringFlag{Value: ProfileFrontend, Set: true},
		Parallel: IntFlag{Value: 8, Set: true},
	})

	if cfg.Profile != ProfileFrontend || cfg.Parallel != 8 {
		t.Fatalf("flags must win over file values: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Tools.CompilerJar = "compiler.jar"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.Profile = "middleend"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown profile")
	}

	bad = cfg
	bad.Format = "xml"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown format")
	}

	bad = cfg
	bad.Tools.CompilerJar = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for missing compiler jar")
	}
}
