// Package profile turns harness configuration into runnable stage plans.
// A profile is the fixed ordered stage sequence plus the comparison
// contract for one way of testing the compiler.
package profile

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sycomp/sytest/internal/compare"
	"github.com/sycomp/sytest/internal/config"
	"github.com/sycomp/sytest/internal/discovery"
	"github.com/sycomp/sytest/internal/invoker"
	"github.com/sycomp/sytest/internal/pipeline"
)

// toleranceEpsilon is the slack the numeric rule allows for float output.
const toleranceEpsilon = 1e-6

// Build returns the plan for the configured profile.
func Build(cfg config.Config, iv *invoker.Invoker) (pipeline.Plan, error) {
	switch cfg.Profile {
	case config.ProfileFrontend:
		return Frontend(cfg), nil
	case config.ProfileBackend:
		return Backend(cfg, iv), nil
	default:
		return pipeline.Plan{}, fmt.Errorf("unknown profile %q", cfg.Profile)
	}
}

// Frontend builds the IR-path plan: compile the source to LLVM IR, link the
// runtime library, interpret the bitcode with the case's stdin, and check
// the printed output plus echoed exit status against the golden file.
func Frontend(cfg config.Config) pipeline.Plan {
	timeout := stageTimeout(cfg)
	return pipeline.Plan{
		Name: config.ProfileFrontend,
		Stages: []pipeline.StageSpec{
			{
				Name:    "compile",
				Argv:    []string{cfg.Tools.Java, "-jar", mustAbs(cfg.Tools.CompilerJar), "-s", "{source}", "-emit-llvm", "{work}/case.ll"},
				Output:  "case.ll",
				Timeout: timeout,
			},
			{
				Name:    "link",
				Argv:    []string{cfg.Tools.LLVMLink, "{out:compile}", mustAbs(cfg.Tools.RuntimeLL), "-o", "{work}/case.bc"},
				Output:  "case.bc",
				Timeout: timeout,
			},
			{
				Name:             "run",
				Argv:             []string{cfg.Tools.LLI, "{out:link}"},
				Stdin:            "{input}",
				CaptureStdout:    "case.actual",
				EchoExit:         true,
				ExitCodeIsResult: true,
				Timeout:          timeout,
			},
		},
		Judge: func(tc discovery.TestCase) (pipeline.Judgment, error) {
			judgment := pipeline.Judgment{Actual: "{out:run}", Expected: "{expected}"}
			switch tc.Compare {
			case "", "exact":
				judgment.Rule = compare.ExactText{}
			case "numeric":
				judgment.Rule = compare.Tolerance{Epsilon: toleranceEpsilon}
			default:
				return pipeline.Judgment{}, fmt.Errorf("case %q: rule %q not available under the frontend profile", tc.ID, tc.Compare)
			}
			return judgment, nil
		},
	}
}

// Backend builds the ARM-path plan. The x86 reference lane runs strictly
// before the ARM lane inside one pipeline, so the cross-validation can
// never judge against stale reference artifacts.
func Backend(cfg config.Config, iv *invoker.Invoker) pipeline.Plan {
	timeout := stageTimeout(cfg)
	runtimeC := mustAbs(cfg.Tools.RuntimeC)
	return pipeline.Plan{
		Name: config.ProfileBackend,
		Stages: []pipeline.StageSpec{
			{
				Name:    "ref-build",
				Argv:    []string{cfg.Tools.ReferenceCC, "-x", "c", "{source}", runtimeC, "-o", "{work}/ref.bin"},
				Output:  "ref.bin",
				Timeout: timeout,
			},
			{
				Name:    "emit-asm",
				Argv:    []string{cfg.Tools.Java, "-jar", mustAbs(cfg.Tools.CompilerJar), "-s", "{source}", "-emit-asm", "{work}/case.s"},
				Output:  "case.s",
				Timeout: timeout,
			},
			{
				Name:    "cross-build",
				Argv:    []string{cfg.Tools.CrossCC, "{out:emit-asm}", runtimeC, "-o", "{work}/case.bin"},
				Output:  "case.bin",
				Timeout: timeout,
			},
		},
		Judge: func(tc discovery.TestCase) (pipeline.Judgment, error) {
			switch tc.Compare {
			case "", "reexec":
				return pipeline.Judgment{
					Rule: compare.ReExec{
						Invoker:      iv,
						ActualRunner: []string{cfg.Tools.Emulator},
						Stdin:        tc.Input,
						Timeout:      stageTimeout(cfg),
					},
					Actual:   "{out:cross-build}",
					Expected: "{out:ref-build}",
				}, nil
			case "exact":
				// Bit-exact assembly check against a golden .s file.
				return pipeline.Judgment{
					Rule:     compare.ExactText{},
					Actual:   "{out:emit-asm}",
					Expected: "{expected}",
				}, nil
			default:
				return pipeline.Judgment{}, fmt.Errorf("case %q: rule %q not available under the backend profile", tc.ID, tc.Compare)
			}
		},
	}
}

func stageTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

// mustAbs resolves file arguments against the invocation directory, since
// stages run inside per-case scratch directories.
func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
