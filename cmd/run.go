package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/geoprobe-cli/internal/config"
	"github.com/xkilldash9x/geoprobe-cli/internal/observability"
	"github.com/xkilldash9x/geoprobe-cli/internal/scenario"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the nearby-issues scenario against the configured application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Explicit flags override config file and environment values.
			if cmd.Flags().Changed("base-url") {
				cfg.Scenario.BaseURL, _ = cmd.Flags().GetString("base-url")
			}
			if cmd.Flags().Changed("probe") {
				mode, _ := cmd.Flags().GetString("probe")
				cfg.Probe.Mode = config.ProbeMode(mode)
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless, _ = cmd.Flags().GetBool("headless")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Interrupts abort the run; teardown still releases the browser.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("Starting scenario run",
				zap.String("scenario", scenario.Name),
				zap.String("base_url", cfg.Scenario.BaseURL),
				zap.String("probe_mode", string(cfg.Probe.Mode)),
			)

			outcome := scenario.New(cfg, logger).Run(ctx)

			fmt.Println(outcome.String())
			for _, d := range outcome.Diagnostics {
				fmt.Printf("  note [%s]: %s\n", d.Step, d.Message)
			}

			if !outcome.Passed {
				return fmt.Errorf("scenario %s failed: %s", outcome.Scenario, outcome.Kind)
			}
			return nil
		},
	}

	runCmd.Flags().String("base-url", "", "Base URL of the application under test. (Overrides config/env)")
	runCmd.Flags().String("probe", "", "Network probe mode: 'direct' or 'intercept'. (Overrides config/env)")
	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")

	return runCmd
}
