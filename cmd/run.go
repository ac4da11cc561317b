// -- cmd/run.go --
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/browser"
	"github.com/johnjkle/traderev/internal/browser/backend"
	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/observability"
	"github.com/johnjkle/traderev/internal/reporting"
	"github.com/johnjkle/traderev/internal/scenario"
	"github.com/johnjkle/traderev/internal/session"
)

// ErrScenariosFailed is returned when the run completed but not every scenario passed.
var ErrScenariosFailed = errors.New("scenarios failed")

// startBrowser is replaced in tests.
var startBrowser browser.Factory = backend.New

// newRunCmd creates the `run` command. Flags set on the command line override the
// config file and environment.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios (all of them when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger := observability.GetLogger()
			log := observability.Component("cmd")

			// Resolve names before starting any browser.
			if _, err := scenario.Select(args...); err != nil {
				return err
			}

			rep, err := reporting.NewWithStdout(cfg.Report().Format, cfg.Report().Output, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to initialize reporter: %w", err)
			}
			defer func() {
				if err := rep.Close(); err != nil {
					log.Warn("Failed to close reporter cleanly.", zap.Error(err))
				}
			}()

			mgr := session.NewManager(cfg, startBrowser, logger)
			report, runErr := scenario.NewRunner(cfg, mgr, logger).Run(ctx, args...)
			if report == nil {
				return runErr
			}
			if err := rep.Write(report); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			if runErr != nil {
				return fmt.Errorf("run aborted: %w", runErr)
			}

			sum := report.Summary()
			log.Info("Run finished.",
				zap.String("run_id", report.ID),
				zap.Int("passed", sum.Passed),
				zap.Int("failed", sum.Failed),
				zap.Int("errors", sum.Errors),
			)
			if !report.OK() {
				return fmt.Errorf("%d of %d scenarios did not pass: %w", sum.Failed+sum.Errors, sum.Total, ErrScenariosFailed)
			}
			return nil
		},
	}

	flags := runCmd.Flags()
	flags.String("backend", "", "browser backend: "+strings.Join(backend.Names(), ", "))
	flags.String("browser", "", "browser to drive (chrome, chromium, firefox, webkit)")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("format", "", "report format (json, junit)")
	flags.StringP("output", "o", "", "report path, '-' for stdout")
	return runCmd
}

// applyRunFlags copies the flags that were set on the command line into cfg.
func applyRunFlags(cmd *cobra.Command, cfg config.Interface) error {
	flags := cmd.Flags()
	strFlags := []struct {
		name string
		set  func(string)
	}{
		{"backend", cfg.SetBrowserBackend},
		{"browser", cfg.SetBrowserName},
		{"format", cfg.SetReportFormat},
		{"output", cfg.SetReportOutput},
	}
	for _, f := range strFlags {
		if !flags.Changed(f.name) {
			continue
		}
		val, err := flags.GetString(f.name)
		if err != nil {
			return err
		}
		f.set(val)
	}
	if flags.Changed("headless") {
		headless, err := flags.GetBool("headless")
		if err != nil {
			return err
		}
		cfg.SetBrowserHeadless(headless)
	}
	return nil
}
