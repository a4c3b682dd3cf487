package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sycomp/sytest/internal/config"
	"github.com/sycomp/sytest/internal/invoker"
	"github.com/sycomp/sytest/internal/output"
	"github.com/sycomp/sytest/internal/pipeline"
	"github.com/sycomp/sytest/internal/profile"
	"github.com/sycomp/sytest/internal/report"
	"github.com/sycomp/sytest/internal/toolcheck"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [case-dir...]",
		Short: "Run test cases under the selected profile",
		RunE:  runExecute,
	}
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
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

	if err := toolcheck.Check(cfg); err != nil {
		return err
	}

	iv := invoker.New(invoker.Options{OutputCap: cfg.OutputCapKB * 1024})
	plan, err := profile.Build(cfg, iv)
	if err != nil {
		return err
	}

	workRoot := filepath.Join(root, pipeline.WorkRootName(time.Now()))
	if cfg.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "running %d cases under the %s profile (workers=%d, work dir %s)\n",
			len(cases), plan.Name, cfg.Parallel, workRoot)
	}
	runner := pipeline.NewRunner(pipeline.Options{
		Invoker:      iv,
		WorkRoot:     workRoot,
		Keep:         cfg.KeepArtifacts,
		StageTimeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if !cfg.KeepArtifacts {
		defer os.RemoveAll(workRoot)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := report.New(cfg.StrictSkips)
	pipeline.NewScheduler(runner, cfg.Parallel).Run(ctx, cases, plan, rep)
	summary := rep.Finalize()

	if err := renderResults(cmd, cfg, plan.Name, rep, summary); err != nil {
		return err
	}

	if cfg.KeepArtifacts {
		logPath := filepath.Join(workRoot, "result.log")
		if err := output.WriteResultLog(logPath, rep.Outcomes()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}

	if summary.ExitCode != 0 {
		bad := summary.Failed + summary.Errored
		if bad == 0 {
			return fmt.Errorf("%d of %d cases were skipped", summary.Skipped, summary.Total)
		}
		return fmt.Errorf("%d of %d cases did not pass", bad, summary.Total)
	}
	return nil
}

func renderResults(cmd *cobra.Command, cfg config.Config, profileName string, rep *report.Report, summary report.Summary) error {
	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		return output.NewPretty(cmd.OutOrStdout()).RenderResults(rep.Outcomes(), summary)
	case config.FormatJSON:
		doc := output.Document{
			Profile:  profileName,
			Outcomes: rep.Outcomes(),
			Summary:  summary,
		}
		return output.NewJSON(cmd.OutOrStdout()).Render(doc)
	case config.FormatJSONL:
		return output.NewJSONL(cmd.OutOrStdout()).Render(rep.Outcomes(), summary)
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}
