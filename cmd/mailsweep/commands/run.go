package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/internal/health"
	"github.com/mailsweep/mailsweep/internal/startup"
)

// NewRunCommand boots the lifecycle core and keeps provider health under
// watch until interrupted.
func NewRunCommand(cfg *RuntimeConfig) *cobra.Command {
	var withMetrics bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the lifecycle core and monitor provider health",
		Long: `Run the startup sequence (storage and security checks, provider
wiring, initial health snapshot), then keep refreshing provider status on the
configured cadence until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch := startup.NewOrchestrator(st.store, st.bridge, st.statuses, cfg.Logger)
			orch.SetTimeout(cfg.File.Startup.Timeout())
			orch.OnProgress(func(p startup.Progress) {
				cfg.Logger.Debug("Startup: %s (%d/%d)", p.CurrentStep, p.CompletedSteps, p.TotalSteps)
			})

			result := orch.Execute(ctx)
			if !result.IsSuccess {
				return fmt.Errorf("startup failed (%s): %s", result.FailureReason, result.ErrorMessage)
			}

			if !st.onboarding.IsComplete() {
				cfg.Logger.Warn("Onboarding is not finished; run 'mailsweep onboarding show'")
			}

			monitor := health.NewMonitor(st.statuses, cfg.Logger, health.MonitorConfig{
				QuickInterval: cfg.File.Monitor.QuickInterval(),
				FullInterval:  cfg.File.Monitor.FullInterval(),
				StartupDelay:  cfg.File.Monitor.StartupDelay(),
			})
			if withMetrics {
				health.InitMetrics()
				monitor.SetMetrics(health.NewMetrics())
			}

			if err := monitor.Start(ctx); err != nil {
				return err
			}
			defer monitor.Stop()

			cfg.Logger.Info("✓ mailsweep running; press Ctrl-C to stop")
			<-ctx.Done()
			cfg.Logger.Info("Shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "Register Prometheus metrics for the health monitor")
	return cmd
}
