package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/internal/onboarding"
)

// NewOnboardingCommand groups the first-run state subcommands.
func NewOnboardingCommand(cfg *RuntimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Inspect and advance first-run setup state",
	}

	cmd.AddCommand(
		newOnboardingShowCommand(cfg),
		newOnboardingCompleteWelcomeCommand(cfg),
		newOnboardingCompleteProviderCommand(cfg),
		newOnboardingSetPhaseCommand(cfg),
		newOnboardingResetCommand(cfg),
	)
	return cmd
}

func newOnboardingShowCommand(cfg *RuntimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the derived onboarding state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			// Derivation needs live health; refresh before reading.
			st.statuses.RefreshAll(context.Background())

			state, err := st.onboarding.State()
			if err != nil {
				return err
			}

			fmt.Printf("Phase:            %s\n", state.CurrentPhase)
			fmt.Printf("Welcome done:     %t\n", state.IsWelcomeComplete)
			fmt.Printf("Onboarding done:  %t\n", state.IsComplete)
			fmt.Printf("Main app access:  %t\n", state.CanAccessMainApplication)

			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "PROVIDER\tREQUIRED\tSET UP\tHEALTHY\n")
			statuses := st.statuses.GetAll()
			for _, p := range onboarding.Providers() {
				healthy := false
				if s, ok := statuses[p.Name]; ok {
					healthy = s.IsHealthy
				}
				_, _ = fmt.Fprintf(w, "%s\t%t\t%t\t%t\n",
					p.DisplayName, p.Required, state.ProviderSetupComplete[p.Name], healthy)
			}
			return w.Flush()
		},
	}
}

func newOnboardingCompleteWelcomeCommand(cfg *RuntimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-welcome",
		Short: "Mark the welcome screen as acknowledged",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.onboarding.MarkWelcomeComplete(); err != nil {
				return err
			}
			cfg.Logger.Info("✓ Welcome complete")
			return nil
		},
	}
}

func newOnboardingCompleteProviderCommand(cfg *RuntimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-provider <name>",
		Short: "Mark a provider's setup as finished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.onboarding.MarkProviderSetupComplete(args[0]); err != nil {
				return err
			}
			cfg.Logger.Info("✓ Provider %s marked as set up", args[0])
			return nil
		},
	}
}

func newOnboardingSetPhaseCommand(cfg *RuntimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "set-phase <welcome|provider_setup|completed>",
		Short: "Override the stored onboarding phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.onboarding.UpdatePhase(onboarding.Phase(args[0])); err != nil {
				return err
			}
			cfg.Logger.Info("✓ Phase set to %s", args[0])
			return nil
		},
	}
}

func newOnboardingResetCommand(cfg *RuntimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard all onboarding progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			return st.onboarding.Reset()
		},
	}
}
