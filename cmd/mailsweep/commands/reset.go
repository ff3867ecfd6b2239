package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/pkg/credstore"
)

// allCredentialKeys lists every key mailsweep may have written.
var allCredentialKeys = []string{
	credstore.KeyGmailClientID,
	credstore.KeyGmailClientSecret,
	credstore.KeyGmailRefreshToken,
	credstore.KeyGmailTokenExpiry,
	credstore.KeyOpenAIAPIKey,
	credstore.KeyOnboardingState,
}

// NewResetCommand removes stored credentials and onboarding state.
func NewResetCommand(cfg *RuntimeConfig) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove all stored credentials and setup state",
		Long: `Delete every credential and onboarding record mailsweep has stored.
Providers return to "Setup Required" on the next status check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Print("This removes all stored credentials. Continue? [y/N] ")
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
					cfg.Logger.Info("Aborted")
					return nil
				}
			}

			store, err := buildStore(cfg)
			if err != nil {
				return err
			}

			var failed []string
			for _, key := range allCredentialKeys {
				if err := store.Remove(key); err != nil {
					cfg.Logger.Warn("Could not remove %s: %v", key, err)
					failed = append(failed, key)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("failed to remove %d of %d entries", len(failed), len(allCredentialKeys))
			}

			cfg.Logger.Info("✓ All credentials removed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return cmd
}
