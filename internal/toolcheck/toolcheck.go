// Package toolcheck verifies the configured external toolchain before any
// case runs, so a missing binary surfaces as one clear configuration error
// instead of a launch failure on every case.
package toolcheck

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sycomp/sytest/internal/config"
)

// tool pairs a config label with the value to locate.
type tool struct {
	label string
	path  string
	file  bool // plain file (jar, runtime lib) rather than an executable
}

// Missing returns a description of every required tool the selected
// profile cannot find, in a stable order. Empty means the preflight passed.
func Missing(cfg config.Config) []string {
	var missing []string
	for _, item := range required(cfg) {
		if item.path == "" {
			missing = append(missing, fmt.Sprintf("%s is not configured", item.label))
			continue
		}
		if err := locate(item); err != nil {
			missing = append(missing, fmt.Sprintf("%s: %v", item.label, err))
		}
	}
	return missing
}

// Check converts a failed preflight into a single error naming every
// missing tool.
func Check(cfg config.Config) error {
	missing := Missing(cfg)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("toolchain preflight failed: %s", strings.Join(missing, "; "))
}

func required(cfg config.Config) []tool {
	tools := []tool{
		{label: "java", path: cfg.Tools.Java},
		{label: "compiler_jar", path: cfg.Tools.CompilerJar, file: true},
	}
	switch cfg.Profile {
	case config.ProfileBackend:
		tools = append(tools,
			tool{label: "reference_cc", path: cfg.Tools.ReferenceCC},
			tool{label: "cross_cc", path: cfg.Tools.CrossCC},
			tool{label: "emulator", path: cfg.Tools.Emulator},
			tool{label: "runtime_c", path: cfg.Tools.RuntimeC, file: true},
		)
	default:
		tools = append(tools,
			tool{label: "llvm_link", path: cfg.Tools.LLVMLink},
			tool{label: "lli", path: cfg.Tools.LLI},
			tool{label: "runtime_ll", path: cfg.Tools.RuntimeLL, file: true},
		)
	}
	return tools
}

func locate(item tool) error {
	if item.file || strings.ContainsRune(item.path, os.PathSeparator) {
		info, err := os.Stat(item.path)
		if err != nil {
			return fmt.Errorf("%q not found", item.path)
		}
		if info.IsDir() {
			return fmt.Errorf("%q is a directory", item.path)
		}
		return nil
	}
	if _, err := exec.LookPath(item.path); err != nil {
		return fmt.Errorf("%q not found on PATH", item.path)
	}
	return nil
}
