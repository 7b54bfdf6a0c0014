package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is reported by --version. It is set at build time with
// -ldflags "-X github.com/llxisdsh/waitgen/internal/cmd.Version=...".
var Version = "dev"

// NewRootCmd creates the root cobra command for the waitgen CLI.
func NewRootCmd() *cobra.Command {
	var logLevel string
	log := logrus.New()

	rootCmd := &cobra.Command{
		Use:   "waitgen",
		Short: "waitgen - exercise and inspect generation wait gates",
		Long: `waitgen drives ChangeCounter gates from many goroutines and reports
how the shared wait node pool behaved.

Use subcommands to perform different operations:
  - stress: park waiters on a set of gates and signal them to a target generation`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			log.SetLevel(level)
			log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(NewStressCmd(log))

	return rootCmd
}
