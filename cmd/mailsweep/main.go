package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/cmd/mailsweep/commands"
	"github.com/mailsweep/mailsweep/internal/config"
	"github.com/mailsweep/mailsweep/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &commands.RuntimeConfig{}

	rootCmd := &cobra.Command{
		Use:   "mailsweep",
		Short: "Email cleanup assistant - provider lifecycle and health",
		Long: `mailsweep connects your mail account, an LLM, and a local history
database, keeps their health under watch, and walks new users through setup.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(debug, noColor)

			path := configFile
			if path == "" {
				defaultPath, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			fileCfg, err := config.LoadOrDefault(path)
			if err != nil {
				return err
			}
			if debug {
				fileCfg.Logging.Debug = true
			}
			if noColor {
				fileCfg.Logging.NoColor = true
			}

			cfg.Path = path
			cfg.Logger = logger
			cfg.File = fileCfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: per-user mailsweep.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewStatusCommand(cfg),
		commands.NewRunCommand(cfg),
		commands.NewOnboardingCommand(cfg),
		commands.NewResetCommand(cfg),
	)

	return rootCmd.Execute()
}
