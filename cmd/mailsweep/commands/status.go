package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
	"github.com/mailsweep/mailsweep/internal/providers"
)

// NewStatusCommand reports provider health in a doctor-style table.
func NewStatusCommand(cfg *RuntimeConfig) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check provider credentials and connectivity",
		Long: `Derive the current status of every configured provider.

This command checks:
- Stored credentials (client registration and session)
- Live connectivity to Gmail, OpenAI, and the local database
- Which providers still need setup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Logger.Info("Checking provider status...")

			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			ctx := context.Background()
			st.statuses.RefreshAll(ctx)
			statuses := st.statuses.GetAll()

			displayStatuses(st.bridge.Kinds(), statuses, verbose)

			healthy := 0
			for _, s := range statuses {
				if s.IsHealthy {
					healthy++
				}
			}
			fmt.Printf("\nSummary: %d/%d providers healthy\n", healthy, len(statuses))

			if healthy < len(statuses) {
				return fmt.Errorf("some providers are not healthy")
			}
			cfg.Logger.Info("✓ All providers operational")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show error details and setup suggestions")
	return cmd
}

func displayStatuses(kinds []providers.Kind, statuses map[string]providers.ProviderStatus, verbose bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "PROVIDER\tSTATUS\tIDENTITY\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "--------\t------\t--------\t-------\n")

	for _, kind := range kinds {
		s, ok := statuses[string(kind)]
		if !ok {
			_, _ = fmt.Fprintf(w, "%s\t? unknown\t\t\n", kind)
			continue
		}

		label := s.Status
		switch {
		case s.IsHealthy:
			label = "✓ " + label
		case s.RequiresSetup:
			label = "• " + label
		default:
			label = "✗ " + label
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.Name, label, s.IdentityEmail(), s.ErrorMessage)
	}
	_ = w.Flush()

	if !verbose {
		return
	}
	for _, kind := range kinds {
		s, ok := statuses[string(kind)]
		if !ok || s.IsHealthy {
			continue
		}
		for _, suggestion := range statusSuggestions(kind, s) {
			fmt.Printf("\n%s: %s\n", s.Name, suggestion)
		}
	}
}

func statusSuggestions(kind providers.Kind, s providers.ProviderStatus) []string {
	var out []string
	switch kind {
	case providers.KindGmail:
		if s.RequiresSetup {
			out = append(out, "Connect your Google account from the onboarding flow")
		} else {
			out = append(out, "Sign in again; the saved Gmail session may have been revoked")
		}
	case providers.KindOpenAI:
		if s.RequiresSetup {
			out = append(out, "Add an OpenAI API key (starts with \"sk-\") in settings")
		} else {
			out = append(out, "Verify the API key at https://platform.openai.com/api-keys")
		}
	case providers.KindLocalStore:
		out = append(out, "Check disk space and permissions for the history database")
	}

	if s.ErrorMessage != "" && mserrors.IsRetryable(fmt.Errorf("%s", s.ErrorMessage)) {
		out = append(out, "This looks transient; try again in a moment")
	}
	return out
}
